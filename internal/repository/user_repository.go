package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
	appErr "github.com/autostack/gateway/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	GetByAPIKeyHash(ctx context.Context, hash string, dest *models.User) error
	SetAPIKeyHash(ctx context.Context, userID uuid.UUID, hash string) error
	UpdateTier(ctx context.Context, userID uuid.UUID, tier models.Tier) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, fields map[string]any) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db, "user"), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	email = strings.ToLower(strings.TrimSpace(email))
	*dest = models.User{}
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "user not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by email failed")
	}
	return nil
}

func (r *userRepository) GetByAPIKeyHash(ctx context.Context, hash string, dest *models.User) error {
	*dest = models.User{}
	if err := r.db.WithContext(ctx).Where("api_key_hash = ?", hash).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "user not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by api key failed")
	}
	return nil
}

func (r *userRepository) SetAPIKeyHash(ctx context.Context, userID uuid.UUID, hash string) error {
	return r.updateColumns(ctx, userID, map[string]any{"api_key_hash": hash})
}

func (r *userRepository) UpdateTier(ctx context.Context, userID uuid.UUID, tier models.Tier) error {
	if !tier.Valid() {
		return appErr.New(appErr.CodeInvalid, "unknown subscription tier").WithMeta("tier", string(tier))
	}
	return r.updateColumns(ctx, userID, map[string]any{"subscription_tier": tier})
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.updateColumns(ctx, userID, fields)
}

func (r *userRepository) updateColumns(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update user failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "user not found")
	}
	return nil
}
