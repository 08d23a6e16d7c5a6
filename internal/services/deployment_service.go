package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/metrics"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

// Minimum tiers for gated deployment operations.
const (
	TierForDeploy  = models.TierStarter
	TierForDestroy = models.TierStarter
)

// DeployFailedMessage is stored on a deployment whose deploy call failed.
const DeployFailedMessage = "deployment service unavailable"

type DeploymentService interface {
	List(ctx context.Context, userID uuid.UUID, filters *DeploymentFilters) ([]models.Deployment, int64, error)
	ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.Deployment, error)
	GetDeployment(ctx context.Context, deploymentID, userID uuid.UUID) (*models.Deployment, error)
	Status(ctx context.Context, deploymentID, userID uuid.UUID) (*DeploymentStatusView, error)
	Logs(ctx context.Context, deploymentID, userID uuid.UUID) (*DeploymentLogsView, error)

	// Deploy records a pending deployment before calling the deployment service.
	Deploy(ctx context.Context, userID uuid.UUID, input *DeployInput) (*models.Deployment, error)
	Cancel(ctx context.Context, deploymentID, userID uuid.UUID) (*models.Deployment, error)
	Destroy(ctx context.Context, deploymentID, userID uuid.UUID) (*models.Deployment, error)
}

type DeployInput struct {
	TemplateID     uuid.UUID
	Region         string
	AWSCredentials map[string]string
}

type DeploymentFilters struct {
	Page     int
	PageSize int
}

type DeploymentStatusView struct {
	ID            uuid.UUID               `json:"id"`
	Status        models.DeploymentStatus `json:"status"`
	DeploymentURL string                  `json:"deployment_url,omitempty"`
	ErrorMessage  string                  `json:"error_message,omitempty"`
	DeployedAt    *time.Time              `json:"deployed_at,omitempty"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Terminal      bool                    `json:"terminal"`
}

type DeploymentLogsView struct {
	ID     uuid.UUID               `json:"id"`
	Status models.DeploymentStatus `json:"status"`
	Logs   string                  `json:"logs"`
}

type deploymentService struct {
	projectRepo  repository.ProjectRepository
	templateRepo repository.TemplateRepository
	deployRepo   repository.DeploymentRepository
	client       downstream.DeploymentClient
	usage        UsageService
}

func NewDeploymentService(projectRepo repository.ProjectRepository, templateRepo repository.TemplateRepository, deployRepo repository.DeploymentRepository, client downstream.DeploymentClient, usage UsageService) DeploymentService {
	return &deploymentService{projectRepo: projectRepo, templateRepo: templateRepo, deployRepo: deployRepo, client: client, usage: usage}
}

var _ DeploymentService = (*deploymentService)(nil)

func (s *deploymentService) List(ctx context.Context, userID uuid.UUID, filters *DeploymentFilters) ([]models.Deployment, int64, error) {
	page := repository.Page{}
	if filters != nil {
		page = repository.Page{Page: filters.Page, PageSize: filters.PageSize}
	}
	return s.deployRepo.ListOwned(ctx, userID, page)
}

func (s *deploymentService) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.Deployment, error) {
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, projectID, userID, &p); err != nil {
		return nil, err
	}
	return s.deployRepo.ListByProject(ctx, projectID, userID)
}

func (s *deploymentService) GetDeployment(ctx context.Context, deploymentID, userID uuid.UUID) (*models.Deployment, error) {
	var d models.Deployment
	if err := s.deployRepo.GetOwned(ctx, deploymentID, userID, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *deploymentService) Status(ctx context.Context, deploymentID, userID uuid.UUID) (*DeploymentStatusView, error) {
	d, err := s.GetDeployment(ctx, deploymentID, userID)
	if err != nil {
		return nil, err
	}
	return &DeploymentStatusView{
		ID:            d.ID,
		Status:        d.Status,
		DeploymentURL: d.DeploymentURL,
		ErrorMessage:  d.ErrorMessage,
		DeployedAt:    d.DeployedAt,
		UpdatedAt:     d.UpdatedAt,
		Terminal:      d.Status.Terminal(),
	}, nil
}

func (s *deploymentService) Logs(ctx context.Context, deploymentID, userID uuid.UUID) (*DeploymentLogsView, error) {
	d, err := s.GetDeployment(ctx, deploymentID, userID)
	if err != nil {
		return nil, err
	}
	return &DeploymentLogsView{ID: d.ID, Status: d.Status, Logs: d.Logs}, nil
}

func (s *deploymentService) Deploy(ctx context.Context, userID uuid.UUID, input *DeployInput) (*models.Deployment, error) {
	logger.L().Info("create deployment", zap.String("template_id", input.TemplateID.String()), zap.String("user_id", userID.String()))

	var t models.InfrastructureTemplate
	if err := s.templateRepo.GetOwned(ctx, input.TemplateID, userID, &t); err != nil {
		return nil, err
	}
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, t.ProjectID, userID, &p); err != nil {
		return nil, err
	}
	region := strings.TrimSpace(input.Region)
	if region == "" {
		region = defaultRegion
	}

	d := &models.Deployment{TemplateID: t.ID, Status: models.DeploymentPending, Region: region}
	if err := s.deployRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(models.DeploymentPending), "api")

	err := s.client.Deploy(ctx, downstream.DeployRequest{
		DeploymentID:   d.ID,
		Template:       t.TemplateContent,
		TemplateType:   t.TemplateType,
		ProjectName:    p.Name,
		AWSCredentials: input.AWSCredentials,
		Region:         region,
	})
	if err != nil {
		bg := context.WithoutCancel(ctx)
		if terr := s.deployRepo.Transition(bg, d.ID, models.DeploymentFailed, map[string]any{"error_message": DeployFailedMessage}); terr != nil {
			logger.L().Error("mark deployment failed", zap.String("deployment_id", d.ID.String()), zap.Error(terr))
		} else {
			metrics.RecordTransition(string(models.DeploymentFailed), "api")
		}
		return nil, err
	}

	if terr := s.deployRepo.Transition(ctx, d.ID, models.DeploymentRunning, nil); terr != nil {
		// A fast callback may already have moved it on.
		logger.L().Warn("mark deployment running", zap.String("deployment_id", d.ID.String()), zap.Error(terr))
	} else {
		metrics.RecordTransition(string(models.DeploymentRunning), "api")
	}

	s.usage.Record(ctx, userID, ActionDeploy, "deployment", ref(d.ID), decimal.Zero)
	logger.L().Info("deployment started", zap.String("deployment_id", d.ID.String()), zap.String("region", region))
	return s.GetDeployment(ctx, d.ID, userID)
}

func (s *deploymentService) Cancel(ctx context.Context, deploymentID, userID uuid.UUID) (*models.Deployment, error) {
	logger.L().Info("cancel deployment", zap.String("deployment_id", deploymentID.String()), zap.String("user_id", userID.String()))

	d, err := s.GetDeployment(ctx, deploymentID, userID)
	if err != nil {
		return nil, err
	}
	if !d.Status.Cancellable() {
		return nil, appErr.New(appErr.CodePreconditionFailed, "cannot cancel deployment in current status").
			WithMeta("status", string(d.Status))
	}

	if err := s.client.Cancel(ctx, d.ID); err != nil {
		return nil, err
	}
	if err := s.deployRepo.Transition(ctx, d.ID, models.DeploymentCancelled, nil); err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(models.DeploymentCancelled), "api")
	logger.L().Info("deployment cancelled", zap.String("deployment_id", d.ID.String()))
	return s.GetDeployment(ctx, d.ID, userID)
}

func (s *deploymentService) Destroy(ctx context.Context, deploymentID, userID uuid.UUID) (*models.Deployment, error) {
	logger.L().Info("destroy deployment requested", zap.String("deployment_id", deploymentID.String()), zap.String("user_id", userID.String()))

	d, err := s.GetDeployment(ctx, deploymentID, userID)
	if err != nil {
		return nil, err
	}
	if !d.Status.Destroyable() {
		return nil, appErr.New(appErr.CodePreconditionFailed, "only completed deployments can be destroyed").
			WithMeta("status", string(d.Status))
	}

	if err := s.client.Destroy(ctx, downstream.DestroyRequest{DeploymentID: d.ID, StateURL: d.TerraformStateURL}); err != nil {
		return nil, err
	}
	if err := s.deployRepo.Transition(ctx, d.ID, models.DeploymentDestroying, nil); err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(models.DeploymentDestroying), "api")
	s.usage.Record(ctx, userID, ActionDestroy, "deployment", ref(d.ID), decimal.Zero)
	return s.GetDeployment(ctx, d.ID, userID)
}
