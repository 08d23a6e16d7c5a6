package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeploymentStatus is a node of the deployment state machine.
type DeploymentStatus string

const (
	DeploymentPending       DeploymentStatus = "pending"
	DeploymentRunning       DeploymentStatus = "running"
	DeploymentCompleted     DeploymentStatus = "completed"
	DeploymentFailed        DeploymentStatus = "failed"
	DeploymentCancelled     DeploymentStatus = "cancelled"
	DeploymentDestroying    DeploymentStatus = "destroying"
	DeploymentDestroyed     DeploymentStatus = "destroyed"
	DeploymentDestroyFailed DeploymentStatus = "destroy_failed"
)

var deploymentTransitions = map[DeploymentStatus][]DeploymentStatus{
	DeploymentPending:    {DeploymentRunning, DeploymentFailed, DeploymentCancelled},
	DeploymentRunning:    {DeploymentCompleted, DeploymentFailed, DeploymentCancelled},
	DeploymentCompleted:  {DeploymentDestroying},
	DeploymentDestroying: {DeploymentDestroyed, DeploymentDestroyFailed},
}

// ParseDeploymentStatus validates s against the known statuses.
func ParseDeploymentStatus(s string) (DeploymentStatus, bool) {
	st := DeploymentStatus(s)
	switch st {
	case DeploymentPending, DeploymentRunning, DeploymentCompleted, DeploymentFailed,
		DeploymentCancelled, DeploymentDestroying, DeploymentDestroyed, DeploymentDestroyFailed:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s DeploymentStatus) CanTransitionTo(next DeploymentStatus) bool {
	for _, allowed := range deploymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s DeploymentStatus) Terminal() bool {
	return len(deploymentTransitions[s]) == 0
}

// Cancellable reports whether a user may cancel a deployment in s.
func (s DeploymentStatus) Cancellable() bool {
	return s == DeploymentPending || s == DeploymentRunning
}

// Destroyable reports whether a user may destroy a deployment in s.
func (s DeploymentStatus) Destroyable() bool {
	return s == DeploymentCompleted
}

// PredecessorsOf returns every status with a transition into next.
func PredecessorsOf(next DeploymentStatus) []DeploymentStatus {
	var out []DeploymentStatus
	for from, tos := range deploymentTransitions {
		for _, to := range tos {
			if to == next {
				out = append(out, from)
			}
		}
	}
	return out
}

// Deployment is one attempt to provision a template.
type Deployment struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID        uuid.UUID        `gorm:"type:uuid;index;not null" json:"template_id"`
	Status            DeploymentStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	Region            string           `gorm:"type:varchar(32)" json:"region"`
	DeploymentURL     string           `gorm:"type:text" json:"deployment_url,omitempty"`
	TerraformStateURL string           `gorm:"type:text" json:"terraform_state_url,omitempty"`
	Logs              string           `gorm:"type:text" json:"logs,omitempty"`
	ErrorMessage      string           `gorm:"type:text" json:"error_message,omitempty"`
	DeployedAt        *time.Time       `json:"deployed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (d *Deployment) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	if d.Status == "" {
		d.Status = DeploymentPending
	}
	return nil
}
