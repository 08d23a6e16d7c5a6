package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// Project is a code repository owned by exactly one user.
type Project struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Name          string         `gorm:"not null" json:"name" validate:"required"`
	Description   string         `gorm:"type:text" json:"description"`
	RepositoryURL string         `gorm:"type:text" json:"repository_url"`
	Language      string         `gorm:"type:varchar(64)" json:"language"`
	Framework     string         `gorm:"type:varchar(64)" json:"framework"`
	Status        string         `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	return nil
}
