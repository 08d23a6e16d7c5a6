package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
	appErr "github.com/autostack/gateway/pkg/errors"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	OwnedRepository[models.Project]
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	UpdateOwned(ctx context.Context, id, userID uuid.UUID, fields map[string]any) error
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	OwnedRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{
		BaseRepository:  NewBaseRepository[models.Project](db, "project"),
		OwnedRepository: NewOwnedRepository[models.Project](db, "projects", "project", ownedProject),
		db:              db,
	}
}

func ownedProject(tx *gorm.DB, userID uuid.UUID) *gorm.DB {
	return tx.Where("projects.user_id = ?", userID)
}

func (r *projectRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count projects failed")
	}
	return n, nil
}

func (r *projectRepository) UpdateOwned(ctx context.Context, id, userID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ? AND user_id = ?", id, userID).Updates(fields)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

func (r *projectRepository) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Project{})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete project failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}
