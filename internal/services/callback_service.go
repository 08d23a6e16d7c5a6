package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/metrics"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

// Report sources.
const (
	SourceCallback  = "callback"
	SourceReconcile = "reconcile"
)

// CallbackService applies status reports from the analysis and deployment
// services, whether pushed to a webhook or pulled by reconciliation.
type CallbackService interface {
	ApplyAnalysisReport(ctx context.Context, analysisID uuid.UUID, report *downstream.AnalysisReport, source string) (*models.CodeAnalysis, error)
	ApplyDeploymentReport(ctx context.Context, deploymentID uuid.UUID, report *downstream.DeploymentReport, source string) (*models.Deployment, error)
	ReconcileAnalyses(ctx context.Context, minAge time.Duration, limit int) (ReconcileResult, error)
	ReconcileDeployments(ctx context.Context, minAge time.Duration, limit int) (ReconcileResult, error)
}

type ReconcileResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

var analysisPredecessors = map[string][]string{
	models.AnalysisStatusRunning:   {models.AnalysisStatusPending},
	models.AnalysisStatusCompleted: {models.AnalysisStatusPending, models.AnalysisStatusRunning},
	models.AnalysisStatusFailed:    {models.AnalysisStatusPending, models.AnalysisStatusRunning},
}

type callbackService struct {
	analysisRepo   repository.AnalysisRepository
	deployRepo     repository.DeploymentRepository
	analysisClient downstream.AnalysisClient
	deployClient   downstream.DeploymentClient
	now            func() time.Time
}

func NewCallbackService(analysisRepo repository.AnalysisRepository, deployRepo repository.DeploymentRepository, analysisClient downstream.AnalysisClient, deployClient downstream.DeploymentClient) CallbackService {
	return &callbackService{
		analysisRepo:   analysisRepo,
		deployRepo:     deployRepo,
		analysisClient: analysisClient,
		deployClient:   deployClient,
		now:            time.Now,
	}
}

var _ CallbackService = (*callbackService)(nil)

func (s *callbackService) ApplyAnalysisReport(ctx context.Context, analysisID uuid.UUID, report *downstream.AnalysisReport, source string) (*models.CodeAnalysis, error) {
	from, ok := analysisPredecessors[report.Status]
	if !ok {
		return nil, appErr.New(appErr.CodeInvalid, "unsupported analysis status").WithMeta("status", report.Status)
	}

	fields := map[string]any{"status": report.Status}
	if report.Status != models.AnalysisStatusRunning {
		if report.Language != "" {
			fields["language"] = report.Language
		}
		if report.Framework != "" {
			fields["framework"] = report.Framework
		}
		if report.Dependencies != nil {
			fields["dependencies"] = datatypes.JSONMap(report.Dependencies)
		}
		if report.Requirements != nil {
			fields["requirements"] = datatypes.JSONMap(report.Requirements)
		}
		if report.AnalysisResults != nil {
			fields["analysis_results"] = datatypes.JSONMap(report.AnalysisResults)
		}
	}

	n, err := s.analysisRepo.ApplyReport(ctx, analysisID, from, fields)
	if err != nil {
		return nil, err
	}
	var a models.CodeAnalysis
	if err := s.analysisRepo.GetByID(ctx, analysisID, &a); err != nil {
		return nil, err
	}
	if n == 0 {
		if a.Status == report.Status {
			return &a, nil
		}
		return nil, appErr.New(appErr.CodePreconditionFailed, "analysis cannot move to "+report.Status+" from its current status").
			WithMeta("status", a.Status)
	}

	metrics.RecordAnalysisReport(report.Status, source)
	logger.L().Info("analysis report applied",
		zap.String("analysis_id", analysisID.String()),
		zap.String("status", report.Status),
		zap.String("source", source))
	return &a, nil
}

func (s *callbackService) ApplyDeploymentReport(ctx context.Context, deploymentID uuid.UUID, report *downstream.DeploymentReport, source string) (*models.Deployment, error) {
	target, ok := models.ParseDeploymentStatus(report.Status)
	if !ok {
		return nil, appErr.New(appErr.CodeInvalid, "unsupported deployment status").WithMeta("status", report.Status)
	}

	var d models.Deployment
	if err := s.deployRepo.GetByID(ctx, deploymentID, &d); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if report.DeploymentURL != "" {
		fields["deployment_url"] = report.DeploymentURL
	}
	if report.StateURL != "" {
		fields["terraform_state_url"] = report.StateURL
	}
	if report.Logs != "" {
		fields["logs"] = report.Logs
	}
	if report.ErrorMessage != "" {
		fields["error_message"] = report.ErrorMessage
	}

	if d.Status == target {
		if _, err := s.deployRepo.Annotate(ctx, d.ID, d.Status, fields); err != nil {
			return nil, err
		}
		return s.reload(ctx, d.ID)
	}

	// The deployment service may report completion of a deployment this
	// gateway still has as pending; pass through running first.
	if d.Status == models.DeploymentPending && target == models.DeploymentCompleted {
		if err := s.deployRepo.Transition(ctx, d.ID, models.DeploymentRunning, nil); err != nil {
			return nil, err
		}
		metrics.RecordTransition(string(models.DeploymentRunning), source)
		d.Status = models.DeploymentRunning
	}

	if !d.Status.CanTransitionTo(target) {
		return nil, appErr.New(appErr.CodePreconditionFailed, "deployment cannot move to "+string(target)+" from its current status").
			WithMeta("status", string(d.Status))
	}
	if target == models.DeploymentCompleted {
		deployedAt := report.DeployedTime()
		if deployedAt == nil {
			now := s.now().UTC()
			deployedAt = &now
		}
		fields["deployed_at"] = *deployedAt
	}
	if err := s.deployRepo.Transition(ctx, d.ID, target, fields); err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(target), source)
	logger.L().Info("deployment report applied",
		zap.String("deployment_id", d.ID.String()),
		zap.String("from", string(d.Status)),
		zap.String("to", string(target)),
		zap.String("source", source))
	return s.reload(ctx, d.ID)
}

func (s *callbackService) reload(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	var d models.Deployment
	if err := s.deployRepo.GetByID(ctx, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *callbackService) ReconcileAnalyses(ctx context.Context, minAge time.Duration, limit int) (ReconcileResult, error) {
	var res ReconcileResult
	stale, err := s.analysisRepo.ListStale(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return res, err
	}
	for _, a := range stale {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++
		report, err := s.analysisClient.GetAnalysis(ctx, a.ID)
		if err != nil {
			res.Failed++
			logger.L().Warn("poll analysis failed", zap.String("analysis_id", a.ID.String()), zap.Error(err))
			continue
		}
		if report.Status == "" || report.Status == a.Status || report.Status == models.AnalysisStatusPending {
			continue
		}
		if _, err := s.ApplyAnalysisReport(ctx, a.ID, report, SourceReconcile); err != nil {
			res.Failed++
			logger.L().Warn("apply polled analysis report failed", zap.String("analysis_id", a.ID.String()), zap.Error(err))
			continue
		}
		res.Updated++
	}
	return res, nil
}

func (s *callbackService) ReconcileDeployments(ctx context.Context, minAge time.Duration, limit int) (ReconcileResult, error) {
	var res ReconcileResult
	stale, err := s.deployRepo.ListStale(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return res, err
	}
	for _, d := range stale {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++
		report, err := s.deployClient.Status(ctx, d.ID)
		if err != nil {
			res.Failed++
			logger.L().Warn("poll deployment failed", zap.String("deployment_id", d.ID.String()), zap.Error(err))
			continue
		}
		if report.Status == "" || report.Status == string(d.Status) || report.Status == string(models.DeploymentPending) {
			continue
		}
		if _, err := s.ApplyDeploymentReport(ctx, d.ID, report, SourceReconcile); err != nil {
			res.Failed++
			logger.L().Warn("apply polled deployment report failed", zap.String("deployment_id", d.ID.String()), zap.Error(err))
			continue
		}
		res.Updated++
	}
	return res, nil
}
