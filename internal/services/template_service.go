package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

// Minimum tiers for gated template operations.
const (
	TierForCostEstimate = models.TierStarter
	TierForOptimize     = models.TierPro
)

const (
	defaultRegion            = "us-west-2"
	defaultOptimizationLevel = "balanced"
)

var optimizationLevels = map[string]bool{"basic": true, "balanced": true, "aggressive": true}

type TemplateService interface {
	ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.InfrastructureTemplate, error)
	GetTemplate(ctx context.Context, templateID, userID uuid.UUID) (*models.InfrastructureTemplate, error)
	Download(ctx context.Context, templateID, userID uuid.UUID) (*TemplateFile, error)
	Generate(ctx context.Context, user Identity, input *GenerateTemplateInput) (*models.InfrastructureTemplate, error)
	EstimateCost(ctx context.Context, userID uuid.UUID, input *EstimateCostInput) (*downstream.CostEstimate, error)
	// Optimize stores the optimized template as a new row; the original is never modified.
	Optimize(ctx context.Context, userID, templateID uuid.UUID, input *OptimizeInput) (*OptimizeResult, error)
	Examples(ctx context.Context) (json.RawMessage, error)
}

type GenerateTemplateInput struct {
	ProjectID         uuid.UUID
	TemplateType      string
	OptimizationLevel string
}

type EstimateCostInput struct {
	TemplateID *uuid.UUID
	Resources  map[string]any
	Region     string
}

type OptimizeInput struct {
	Goals []string
}

type OptimizeResult struct {
	Original  *models.InfrastructureTemplate `json:"original"`
	Optimized *models.InfrastructureTemplate `json:"optimized"`
	Savings   decimal.Decimal                `json:"savings"`
}

type TemplateFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type templateService struct {
	projectRepo  repository.ProjectRepository
	analysisRepo repository.AnalysisRepository
	templateRepo repository.TemplateRepository
	client       downstream.GenerationClient
	usage        UsageService
}

func NewTemplateService(projectRepo repository.ProjectRepository, analysisRepo repository.AnalysisRepository, templateRepo repository.TemplateRepository, client downstream.GenerationClient, usage UsageService) TemplateService {
	return &templateService{projectRepo: projectRepo, analysisRepo: analysisRepo, templateRepo: templateRepo, client: client, usage: usage}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.InfrastructureTemplate, error) {
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, projectID, userID, &p); err != nil {
		return nil, err
	}
	return s.templateRepo.ListOwnedBy(ctx, "project_id", projectID, userID)
}

func (s *templateService) GetTemplate(ctx context.Context, templateID, userID uuid.UUID) (*models.InfrastructureTemplate, error) {
	var t models.InfrastructureTemplate
	if err := s.templateRepo.GetOwned(ctx, templateID, userID, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func (s *templateService) Download(ctx context.Context, templateID, userID uuid.UUID) (*TemplateFile, error) {
	t, err := s.GetTemplate(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, t.ProjectID, userID, &p); err != nil {
		return nil, err
	}

	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(p.Name), "-"), "-")
	if slug == "" {
		slug = "template"
	}
	ext := ".tf"
	if t.TemplateType == models.TemplateTypeCDK {
		ext = ".ts"
	}
	return &TemplateFile{
		Filename:    slug + "-" + t.ID.String()[:8] + ext,
		ContentType: "text/plain; charset=utf-8",
		Content:     []byte(t.TemplateContent),
	}, nil
}

func (s *templateService) Generate(ctx context.Context, user Identity, input *GenerateTemplateInput) (*models.InfrastructureTemplate, error) {
	logger.L().Info("generate template", zap.String("project_id", input.ProjectID.String()), zap.String("user_id", user.ID.String()))

	templateType := input.TemplateType
	if templateType == "" {
		templateType = models.TemplateTypeTerraform
	}
	if !models.ValidTemplateType(templateType) {
		return nil, appErr.New(appErr.CodeInvalid, "template_type must be terraform or cdk")
	}
	level := input.OptimizationLevel
	if level == "" {
		level = defaultOptimizationLevel
	}
	if !optimizationLevels[level] {
		return nil, appErr.New(appErr.CodeInvalid, "optimization_level must be basic, balanced or aggressive")
	}

	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, input.ProjectID, user.ID, &p); err != nil {
		return nil, err
	}

	counts, err := s.analysisRepo.CountByStatus(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return nil, appErr.New(appErr.CodePreconditionFailed, "no analysis found for project").WithMeta("reason", "no_analysis")
	}
	completed, err := s.analysisRepo.ListCompleted(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, appErr.New(appErr.CodePreconditionFailed, "analysis not completed yet").WithMeta("reason", "analysis_incomplete")
	}

	reqs := make([]map[string]any, 0, len(completed))
	for _, a := range completed {
		reqs = append(reqs, a.Requirements)
	}

	resp, err := s.client.Generate(ctx, downstream.GenerateRequest{
		ProjectID:         p.ID,
		ProjectName:       p.Name,
		Requirements:      mergeRequirements(reqs),
		TemplateType:      templateType,
		OptimizationLevel: level,
		SubscriptionTier:  string(user.Tier),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Template) == "" {
		return nil, appErr.New(appErr.CodeUnavailable, "generation service returned no template")
	}

	t := &models.InfrastructureTemplate{
		ProjectID:               p.ID,
		TemplateType:            templateType,
		TemplateContent:         resp.Template,
		EstimatedCost:           resp.EstimatedCost.Round(2),
		Resources:               datatypes.JSONMap(resp.Resources),
		OptimizationSuggestions: suggestions(resp.OptimizationSuggestions),
		OptimizationLevel:       level,
	}
	if err := s.templateRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.usage.Record(ctx, user.ID, ActionTemplateGenerate, "template", ref(t.ID), t.EstimatedCost)
	logger.L().Info("template generated", zap.String("template_id", t.ID.String()), zap.String("estimated_cost", t.EstimatedCost.String()))
	return t, nil
}

func (s *templateService) EstimateCost(ctx context.Context, userID uuid.UUID, input *EstimateCostInput) (*downstream.CostEstimate, error) {
	resources := input.Resources
	var resourceID *uuid.UUID
	if input.TemplateID != nil {
		t, err := s.GetTemplate(ctx, *input.TemplateID, userID)
		if err != nil {
			return nil, err
		}
		resources = t.Resources
		resourceID = ref(t.ID)
	}
	if len(resources) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "template_id or resources is required")
	}
	region := input.Region
	if region == "" {
		region = defaultRegion
	}

	est, err := s.client.EstimateCost(ctx, downstream.EstimateRequest{Resources: resources, Region: region})
	if err != nil {
		return nil, err
	}
	s.usage.Record(ctx, userID, ActionCostEstimate, "template", resourceID, decimal.Zero)
	return est, nil
}

func (s *templateService) Optimize(ctx context.Context, userID, templateID uuid.UUID, input *OptimizeInput) (*OptimizeResult, error) {
	logger.L().Info("optimize template", zap.String("template_id", templateID.String()), zap.String("user_id", userID.String()))

	orig, err := s.GetTemplate(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}
	goals := []string{"cost", "performance"}
	if input != nil && len(input.Goals) > 0 {
		goals = input.Goals
	}

	resp, err := s.client.Optimize(ctx, downstream.OptimizeRequest{
		Template:          orig.TemplateContent,
		Resources:         orig.Resources,
		OptimizationGoals: goals,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.OptimizedTemplate) == "" {
		return nil, appErr.New(appErr.CodeUnavailable, "generation service returned no template")
	}

	parent := orig.ID
	opt := &models.InfrastructureTemplate{
		ProjectID:               orig.ProjectID,
		ParentID:                &parent,
		TemplateType:            orig.TemplateType,
		TemplateContent:         resp.OptimizedTemplate,
		EstimatedCost:           resp.EstimatedCost.Round(2),
		Resources:               orig.Resources,
		OptimizationSuggestions: suggestions(resp.OptimizationSuggestions),
		OptimizationLevel:       "aggressive",
	}
	if err := s.templateRepo.Create(ctx, opt); err != nil {
		return nil, err
	}

	savings := orig.EstimatedCost.Sub(opt.EstimatedCost)
	s.usage.Record(ctx, userID, ActionTemplateOptimize, "template", ref(opt.ID), decimal.Zero)
	logger.L().Info("template optimized",
		zap.String("template_id", orig.ID.String()),
		zap.String("optimized_id", opt.ID.String()),
		zap.String("savings", savings.String()))
	return &OptimizeResult{Original: orig, Optimized: opt, Savings: savings}, nil
}

func (s *templateService) Examples(ctx context.Context) (json.RawMessage, error) {
	return s.client.Examples(ctx)
}

func suggestions(raw json.RawMessage) datatypes.JSON {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
