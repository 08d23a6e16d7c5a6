package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
	appErr "github.com/autostack/gateway/pkg/errors"
)

// UsageRepository appends and reads usage logs. Entries are never updated.
type UsageRepository interface {
	Append(ctx context.Context, entry *models.UsageLog) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageLog, error)
}

type usageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) Append(ctx context.Context, entry *models.UsageLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "append usage log failed")
	}
	return nil
}

func (r *usageRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	out := make([]models.UsageLog, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list usage failed")
	}
	return out, nil
}
