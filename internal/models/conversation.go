package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Conversation struct {
	gorm.Model
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	SessionID string    `gorm:"index;unique"`
	Messages  []Message `gorm:"foreignKey:ConversationID"`
}

type Message struct {
	gorm.Model
	ConversationID uint   `gorm:"index"`
	Type           string // "user" or "ai"
	Content        string
	Provider       string
	ModelID        string
	TokensUsed     int
	Timestamp      time.Time
}
