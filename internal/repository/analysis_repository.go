package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
	appErr "github.com/autostack/gateway/pkg/errors"
)

// StatusCount is one row of a per-status aggregation.
type StatusCount struct {
	Status string
	Count  int64
}

type AnalysisRepository interface {
	BaseRepository[models.CodeAnalysis]
	OwnedRepository[models.CodeAnalysis]
	CreateBatch(ctx context.Context, rows []*models.CodeAnalysis) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.CodeAnalysis, error)
	ListCompleted(ctx context.Context, projectID uuid.UUID) ([]models.CodeAnalysis, error)
	CountByStatus(ctx context.Context, projectID uuid.UUID) ([]StatusCount, error)
	MarkStatus(ctx context.Context, ids []uuid.UUID, status string) (int64, error)
	ApplyReport(ctx context.Context, id uuid.UUID, from []string, fields map[string]any) (int64, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]models.CodeAnalysis, error)
}

type analysisRepository struct {
	BaseRepository[models.CodeAnalysis]
	OwnedRepository[models.CodeAnalysis]
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{
		BaseRepository:  NewBaseRepository[models.CodeAnalysis](db, "analysis"),
		OwnedRepository: NewOwnedRepository[models.CodeAnalysis](db, "code_analyses", "analysis", ownedByProjectColumn("code_analyses")),
		db:              db,
	}
}

func (r *analysisRepository) CreateBatch(ctx context.Context, rows []*models.CodeAnalysis) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(rows).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "create analyses failed")
	}
	return nil
}

func (r *analysisRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.CodeAnalysis, error) {
	out := make([]models.CodeAnalysis, 0)
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list analyses failed")
	}
	return out, nil
}

func (r *analysisRepository) ListCompleted(ctx context.Context, projectID uuid.UUID) ([]models.CodeAnalysis, error) {
	out := make([]models.CodeAnalysis, 0)
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, models.AnalysisStatusCompleted).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list completed analyses failed")
	}
	return out, nil
}

func (r *analysisRepository) CountByStatus(ctx context.Context, projectID uuid.UUID) ([]StatusCount, error) {
	var out []StatusCount
	err := r.db.WithContext(ctx).Model(&models.CodeAnalysis{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "count analyses failed")
	}
	return out, nil
}

// MarkStatus moves every listed analysis that has not finished to status.
func (r *analysisRepository) MarkStatus(ctx context.Context, ids []uuid.UUID, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.CodeAnalysis{}).
		Where("id IN ? AND status IN ?", ids, []string{models.AnalysisStatusPending, models.AnalysisStatusRunning}).
		Update("status", status)
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "update analyses failed")
	}
	return res.RowsAffected, nil
}

// ApplyReport writes fields to the analysis only while its status is one of from.
func (r *analysisRepository) ApplyReport(ctx context.Context, id uuid.UUID, from []string, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CodeAnalysis{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "update analysis failed")
	}
	return res.RowsAffected, nil
}

// ListStale returns unfinished analyses not touched since olderThan, oldest first.
func (r *analysisRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]models.CodeAnalysis, error) {
	out := make([]models.CodeAnalysis, 0)
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{models.AnalysisStatusPending, models.AnalysisStatusRunning}, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list stale analyses failed")
	}
	return out, nil
}
