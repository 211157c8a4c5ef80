package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Auth0ID   string    `gorm:"unique;not null"`
	Email     string    `gorm:"unique;not null"`
	Name      string
	Nickname  string
	Plan      string `gorm:"not null;default:'free'"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
