package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
	appErr "github.com/autostack/gateway/pkg/errors"
)

type DeploymentRepository interface {
	BaseRepository[models.Deployment]
	OwnedRepository[models.Deployment]
	ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.Deployment, error)
	Transition(ctx context.Context, id uuid.UUID, to models.DeploymentStatus, fields map[string]any) error
	Annotate(ctx context.Context, id uuid.UUID, status models.DeploymentStatus, fields map[string]any) (bool, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]models.Deployment, error)
}

type deploymentRepository struct {
	BaseRepository[models.Deployment]
	OwnedRepository[models.Deployment]
	db *gorm.DB
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{
		BaseRepository:  NewBaseRepository[models.Deployment](db, "deployment"),
		OwnedRepository: NewOwnedRepository[models.Deployment](db, "deployments", "deployment", ownedDeployment),
		db:              db,
	}
}

func ownedDeployment(tx *gorm.DB, userID uuid.UUID) *gorm.DB {
	return tx.
		Joins("JOIN infrastructure_templates ON infrastructure_templates.id = deployments.template_id").
		Joins("JOIN projects ON projects.id = infrastructure_templates.project_id AND projects.deleted_at IS NULL").
		Where("projects.user_id = ?", userID)
}

func (r *deploymentRepository) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.Deployment, error) {
	out := make([]models.Deployment, 0)
	err := ownedDeployment(r.db.WithContext(ctx).Model(&models.Deployment{}), userID).
		Where("infrastructure_templates.project_id = ?", projectID).
		Order("deployments.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list deployments failed")
	}
	return out, nil
}

// Transition moves a deployment to status `to` if, and only if, its current
// status has an edge into `to`. fields are written in the same statement.
func (r *deploymentRepository) Transition(ctx context.Context, id uuid.UUID, to models.DeploymentStatus, fields map[string]any) error {
	from := models.PredecessorsOf(to)
	if len(from) == 0 {
		return appErr.New(appErr.CodePreconditionFailed, "no transition leads to "+string(to))
	}
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	updates := map[string]any{"status": string(to)}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Deployment{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update deployment status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodePreconditionFailed, "deployment cannot move to "+string(to)+" from its current status").
			WithMeta("target_status", string(to))
	}
	return nil
}

// Annotate writes informational fields while the deployment is still in status.
func (r *deploymentRepository) Annotate(ctx context.Context, id uuid.UUID, status models.DeploymentStatus, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Deployment{}).
		Where("id = ? AND status = ?", id, string(status)).
		Updates(fields)
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "update deployment failed")
	}
	return res.RowsAffected > 0, nil
}

// ListStale returns deployments waiting on the deployment service, oldest first.
func (r *deploymentRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]models.Deployment, error) {
	waiting := []string{
		string(models.DeploymentPending),
		string(models.DeploymentRunning),
		string(models.DeploymentDestroying),
	}
	out := make([]models.Deployment, 0)
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", waiting, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list stale deployments failed")
	}
	return out, nil
}
