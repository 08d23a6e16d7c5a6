package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	appErr "github.com/autostack/gateway/pkg/errors"
)

// OwnerScope narrows a query on an entity's table to rows whose ownership
// chain ends at a live project owned by userID.
type OwnerScope func(tx *gorm.DB, userID uuid.UUID) *gorm.DB

// OwnedRepository reads entities through their ownership chain. A row that
// exists but belongs to someone else is reported exactly like a missing row.
type OwnedRepository[T any] interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID, dest *T) error
	ListOwned(ctx context.Context, userID uuid.UUID, page Page) ([]T, int64, error)
	ListOwnedBy(ctx context.Context, column string, parentID, userID uuid.UUID) ([]T, error)
}

type ownedRepository[T any] struct {
	db     *gorm.DB
	table  string
	entity string
	scope  OwnerScope
}

// NewOwnedRepository builds an OwnedRepository for T stored in table.
func NewOwnedRepository[T any](db *gorm.DB, table, entity string, scope OwnerScope) OwnedRepository[T] {
	return &ownedRepository[T]{db: db, table: table, entity: entity, scope: scope}
}

func (r *ownedRepository[T]) scoped(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.scope(r.db.WithContext(ctx).Model(new(T)), userID)
}

func (r *ownedRepository[T]) GetOwned(ctx context.Context, id, userID uuid.UUID, dest *T) error {
	var zero T
	*dest = zero
	err := r.scoped(ctx, userID).Where(r.table+".id = ?", id).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, r.entity+" not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get "+r.entity+" failed")
	}
	return nil
}

func (r *ownedRepository[T]) ListOwned(ctx context.Context, userID uuid.UUID, page Page) ([]T, int64, error) {
	var total int64
	if err := r.scoped(ctx, userID).Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count "+r.entity+" failed")
	}
	out := make([]T, 0)
	page = page.Normalize()
	err := r.scoped(ctx, userID).
		Order(r.table + ".created_at DESC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&out).Error
	if err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list "+r.entity+" failed")
	}
	return out, total, nil
}

func (r *ownedRepository[T]) ListOwnedBy(ctx context.Context, column string, parentID, userID uuid.UUID) ([]T, error) {
	out := make([]T, 0)
	err := r.scoped(ctx, userID).
		Where(r.table+"."+column+" = ?", parentID).
		Order(r.table + ".created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list "+r.entity+" failed")
	}
	return out, nil
}

// ownedByProjectColumn scopes tables holding a project_id column.
func ownedByProjectColumn(table string) OwnerScope {
	return func(tx *gorm.DB, userID uuid.UUID) *gorm.DB {
		return tx.
			Joins("JOIN projects ON projects.id = "+table+".project_id AND projects.deleted_at IS NULL").
			Where("projects.user_id = ?", userID)
	}
}

// Page selects a window of a list, 1-based.
type Page struct {
	Page     int
	PageSize int
}

// Normalize applies the default and maximum page sizes.
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > 100 {
		p.PageSize = 20
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
