package repository

import (
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
)

// TemplateRepository has no update path: templates are immutable once stored.
type TemplateRepository interface {
	BaseRepository[models.InfrastructureTemplate]
	OwnedRepository[models.InfrastructureTemplate]
}

type templateRepository struct {
	BaseRepository[models.InfrastructureTemplate]
	OwnedRepository[models.InfrastructureTemplate]
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{
		BaseRepository: NewBaseRepository[models.InfrastructureTemplate](db, "template"),
		OwnedRepository: NewOwnedRepository[models.InfrastructureTemplate](
			db, "infrastructure_templates", "template", ownedByProjectColumn("infrastructure_templates")),
	}
}
