package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/pkg/logger"
)

// Usage actions.
const (
	ActionProjectCreate    = "project.create"
	ActionFilesUpload      = "project.upload"
	ActionAnalysisTrigger  = "analysis.trigger"
	ActionTemplateGenerate = "template.generate"
	ActionTemplateOptimize = "template.optimize"
	ActionCostEstimate     = "template.estimate_cost"
	ActionDeploy           = "deployment.deploy"
	ActionDestroy          = "deployment.destroy"
)

type UsageService interface {
	// Record appends a usage entry. Failures are logged, never returned.
	Record(ctx context.Context, userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, cost decimal.Decimal)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageLog, error)
}

type usageService struct {
	repo repository.UsageRepository
}

func NewUsageService(repo repository.UsageRepository) UsageService {
	return &usageService{repo: repo}
}

var _ UsageService = (*usageService)(nil)

func (s *usageService) Record(ctx context.Context, userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, cost decimal.Decimal) {
	entry := &models.UsageLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Cost:         cost,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		logger.L().Warn("record usage failed", zap.String("user_id", userID.String()), zap.String("action", action), zap.Error(err))
	}
}

func (s *usageService) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageLog, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func ref(id uuid.UUID) *uuid.UUID { return &id }
