package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TemplateTypeTerraform = "terraform"
	TemplateTypeCDK       = "cdk"
)

// InfrastructureTemplate is a generated IaC template. Rows are never updated;
// optimization inserts a new row pointing at its parent.
type InfrastructureTemplate struct {
	ID                      uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID               uuid.UUID         `gorm:"type:uuid;index;not null" json:"project_id"`
	ParentID                *uuid.UUID        `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	TemplateType            string            `gorm:"type:varchar(16);not null" json:"template_type"`
	TemplateContent         string            `gorm:"type:text;not null" json:"template_content"`
	EstimatedCost           decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"estimated_cost"`
	Resources               datatypes.JSONMap `json:"resources"`
	OptimizationSuggestions datatypes.JSON    `json:"optimization_suggestions"`
	OptimizationLevel       string            `gorm:"type:varchar(32)" json:"optimization_level,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
}

func (InfrastructureTemplate) TableName() string { return "infrastructure_templates" }

func (t *InfrastructureTemplate) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	if len(t.OptimizationSuggestions) == 0 {
		t.OptimizationSuggestions = datatypes.JSON("[]")
	}
	return nil
}

// ValidTemplateType reports whether s names a supported template flavour.
func ValidTemplateType(s string) bool {
	return s == TemplateTypeTerraform || s == TemplateTypeCDK
}
