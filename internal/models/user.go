package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a platform user.
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string         `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	PasswordHash     string         `gorm:"not null" json:"-"`
	Name             string         `gorm:"not null;default:''" json:"name"`
	SubscriptionTier Tier           `gorm:"type:varchar(16);not null;default:'free'" json:"subscription_tier"`
	APIKeyHash       *string        `gorm:"uniqueIndex" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = TierFree
	}
	return nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
