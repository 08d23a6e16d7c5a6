package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsageLog is an append-only record of a billable action.
type UsageLog struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Action       string          `gorm:"type:varchar(64);not null" json:"action"`
	ResourceType string          `gorm:"type:varchar(64);not null" json:"resource_type"`
	ResourceID   *uuid.UUID      `gorm:"type:uuid" json:"resource_id,omitempty"`
	Cost         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (u *UsageLog) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// All returns every model managed by migrations.
func All() []any {
	return []any{
		&User{},
		&Project{},
		&CodeAnalysis{},
		&InfrastructureTemplate{},
		&Deployment{},
		&UsageLog{},
	}
}
