package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AnalysisStatusPending   = "pending"
	AnalysisStatusRunning   = "running"
	AnalysisStatusCompleted = "completed"
	AnalysisStatusFailed    = "failed"
)

// AnalysisStatuses lists every analysis status in reporting order.
var AnalysisStatuses = []string{
	AnalysisStatusPending,
	AnalysisStatusRunning,
	AnalysisStatusCompleted,
	AnalysisStatusFailed,
}

// CodeAnalysis records the analysis of one source file. Only the analysis
// service mutates it after creation.
type CodeAnalysis struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID         `gorm:"type:uuid;index;not null" json:"project_id"`
	FilePath        string            `gorm:"type:text;not null" json:"file_path"`
	FileSize        int64             `json:"file_size"`
	ContentType     string            `gorm:"type:varchar(128)" json:"content_type,omitempty"`
	StorageKey      string            `gorm:"type:text" json:"storage_key,omitempty"`
	Language        string            `gorm:"type:varchar(64)" json:"language"`
	Framework       string            `gorm:"type:varchar(64)" json:"framework"`
	Dependencies    datatypes.JSONMap `json:"dependencies"`
	Requirements    datatypes.JSONMap `json:"requirements"`
	AnalysisResults datatypes.JSONMap `json:"analysis_results"`
	Status          string            `gorm:"type:varchar(32);index;not null" json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (CodeAnalysis) TableName() string { return "code_analyses" }

func (a *CodeAnalysis) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	if a.Status == "" {
		a.Status = AnalysisStatusPending
	}
	return nil
}

// AnalysisFinished reports whether status is final.
func AnalysisFinished(status string) bool {
	return status == AnalysisStatusCompleted || status == AnalysisStatusFailed
}
