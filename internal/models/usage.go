package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyUsage counts accepted generations per user per UTC calendar day.
// The (user_id, day) pair is unique so the counter can be bumped with a
// single upsert.
type DailyUsage struct {
	gorm.Model
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_daily_usage_user_day;not null"`
	Day    string    `gorm:"uniqueIndex:idx_daily_usage_user_day;not null"` // "2006-01-02"
	Count  int       `gorm:"not null;default:0"`
}
