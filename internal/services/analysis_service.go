package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/internal/storage"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

type AnalysisService interface {
	ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.CodeAnalysis, error)
	GetAnalysis(ctx context.Context, analysisID, userID uuid.UUID) (*models.CodeAnalysis, error)
	// Trigger creates pending analyses and hands them to the analysis service
	// in one call. If that call fails every created analysis is marked failed.
	Trigger(ctx context.Context, userID uuid.UUID, input *TriggerAnalysisInput) ([]models.CodeAnalysis, error)
	Summary(ctx context.Context, projectID, userID uuid.UUID) (*AnalysisSummary, error)
}

// AnalysisFileInput carries inline content or the key of an earlier upload.
type AnalysisFileInput struct {
	Filename   string
	Content    string
	StorageKey string
}

type TriggerAnalysisInput struct {
	ProjectID uuid.UUID
	Files     []AnalysisFileInput
}

type AnalysisSummary struct {
	ProjectID    uuid.UUID        `json:"project_id"`
	Total        int64            `json:"total"`
	StatusCounts map[string]int64 `json:"status_counts"`
	Languages    []string         `json:"languages"`
	Frameworks   []string         `json:"frameworks"`
	Requirements map[string][]any `json:"requirements"`
	// TotalComplexity sums analysis_results.complexity over completed analyses.
	TotalComplexity float64 `json:"total_complexity"`
}

type analysisService struct {
	projectRepo  repository.ProjectRepository
	analysisRepo repository.AnalysisRepository
	store        storage.FileStore
	client       downstream.AnalysisClient
	usage        UsageService
}

func NewAnalysisService(projectRepo repository.ProjectRepository, analysisRepo repository.AnalysisRepository, store storage.FileStore, client downstream.AnalysisClient, usage UsageService) AnalysisService {
	return &analysisService{projectRepo: projectRepo, analysisRepo: analysisRepo, store: store, client: client, usage: usage}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.CodeAnalysis, error) {
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, projectID, userID, &p); err != nil {
		return nil, err
	}
	return s.analysisRepo.ListOwnedBy(ctx, "project_id", projectID, userID)
}

func (s *analysisService) GetAnalysis(ctx context.Context, analysisID, userID uuid.UUID) (*models.CodeAnalysis, error) {
	var a models.CodeAnalysis
	if err := s.analysisRepo.GetOwned(ctx, analysisID, userID, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *analysisService) Trigger(ctx context.Context, userID uuid.UUID, input *TriggerAnalysisInput) ([]models.CodeAnalysis, error) {
	logger.L().Info("trigger analysis", zap.String("project_id", input.ProjectID.String()), zap.Int("files", len(input.Files)))

	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, input.ProjectID, userID, &p); err != nil {
		return nil, err
	}
	if len(input.Files) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "at least one file is required")
	}

	var (
		created []*models.CodeAnalysis
		ids     = make([]uuid.UUID, 0, len(input.Files))
		files   = make([]downstream.AnalysisFile, 0, len(input.Files))
		rows    = make([]models.CodeAnalysis, 0, len(input.Files))
		keys    []string
	)
	for _, f := range input.Files {
		file, existing, err := s.resolveFile(ctx, p.ID, f)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			ids = append(ids, existing.ID)
			rows = append(rows, *existing)
		} else {
			row := &models.CodeAnalysis{
				ID:          uuid.New(),
				ProjectID:   p.ID,
				FilePath:    file.Filename,
				FileSize:    int64(len(file.Content)),
				ContentType: file.ContentType,
				Status:      models.AnalysisStatusPending,
			}
			created = append(created, row)
			ids = append(ids, row.ID)
			rows = append(rows, *row)
		}
		files = append(files, file)
		if f.StorageKey != "" {
			keys = append(keys, f.StorageKey)
		}
	}

	if err := s.analysisRepo.CreateBatch(ctx, created); err != nil {
		return nil, err
	}

	err := s.client.Analyze(ctx, downstream.AnalyzeRequest{ProjectID: p.ID, Files: files, AnalysisIDs: ids})
	if err != nil {
		// Compensate with a fresh context: the request context may be the reason the call failed.
		if n, markErr := s.analysisRepo.MarkStatus(context.WithoutCancel(ctx), ids, models.AnalysisStatusFailed); markErr != nil {
			logger.L().Error("mark analyses failed", zap.String("project_id", p.ID.String()), zap.Error(markErr))
		} else {
			logger.L().Warn("analysis service call failed; analyses marked failed",
				zap.String("project_id", p.ID.String()), zap.Int64("rows", n), zap.Error(err))
		}
		return nil, err
	}

	// Content now lives with the analysis service; failed batches keep theirs for a retry.
	s.releaseUploads(ctx, keys)
	s.usage.Record(ctx, userID, ActionAnalysisTrigger, "project", ref(p.ID), decimal.Zero)
	logger.L().Info("analysis triggered", zap.String("project_id", p.ID.String()), zap.Int("analyses", len(ids)))
	return rows, nil
}

func (s *analysisService) releaseUploads(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(context.WithoutCancel(ctx), k); err != nil {
			logger.L().Warn("release stored upload failed", zap.String("key", k), zap.Error(err))
		}
	}
}

// resolveFile loads content for f. When f names a stored upload whose analysis
// is still pending, that analysis is returned so it is reused, not duplicated.
func (s *analysisService) resolveFile(ctx context.Context, projectID uuid.UUID, f AnalysisFileInput) (downstream.AnalysisFile, *models.CodeAnalysis, error) {
	if f.StorageKey == "" {
		if strings.TrimSpace(f.Filename) == "" {
			return downstream.AnalysisFile{}, nil, appErr.New(appErr.CodeInvalid, "file filename is required")
		}
		if f.Content == "" {
			return downstream.AnalysisFile{}, nil, appErr.New(appErr.CodeInvalid, "file content or storage_key is required").
				WithMeta("filename", f.Filename)
		}
		return downstream.AnalysisFile{Filename: f.Filename, Content: f.Content}, nil, nil
	}

	if s.store == nil {
		return downstream.AnalysisFile{}, nil, appErr.New(appErr.CodeInvalid, "file storage is disabled; send content inline")
	}
	if !storage.BelongsTo(f.StorageKey, projectID) {
		return downstream.AnalysisFile{}, nil, appErr.New(appErr.CodeNotFound, "stored file not found").WithMeta("storage_key", f.StorageKey)
	}
	data, ct, err := s.store.Get(ctx, f.StorageKey)
	if err != nil {
		return downstream.AnalysisFile{}, nil, err
	}
	name := f.Filename
	if name == "" {
		name = f.StorageKey[strings.LastIndex(f.StorageKey, "/")+1:]
	}
	file := downstream.AnalysisFile{Filename: name, Content: string(data), ContentType: ct}

	parts := strings.Split(f.StorageKey, "/")
	if len(parts) == 4 {
		if aid, err := uuid.Parse(parts[2]); err == nil {
			var a models.CodeAnalysis
			if err := s.analysisRepo.GetByID(ctx, aid, &a); err == nil && a.ProjectID == projectID && a.Status == models.AnalysisStatusPending {
				return file, &a, nil
			}
		}
	}
	return file, nil, nil
}

func (s *analysisService) Summary(ctx context.Context, projectID, userID uuid.UUID) (*AnalysisSummary, error) {
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, projectID, userID, &p); err != nil {
		return nil, err
	}

	counts, err := s.analysisRepo.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := &AnalysisSummary{ProjectID: projectID, StatusCounts: map[string]int64{}}
	for _, st := range models.AnalysisStatuses {
		out.StatusCounts[st] = 0
	}
	for _, c := range counts {
		out.StatusCounts[c.Status] = c.Count
		out.Total += c.Count
	}

	rows, err := s.analysisRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var langs, frameworks []string
	reqs := make([]map[string]any, 0, len(rows))
	for _, a := range rows {
		if a.Status != models.AnalysisStatusCompleted {
			continue
		}
		out.TotalComplexity += complexityOf(a.AnalysisResults)
		langs = append(langs, a.Language)
		frameworks = append(frameworks, a.Framework)
		if len(a.Requirements) > 0 {
			reqs = append(reqs, a.Requirements)
		}
	}
	out.Languages = sortedSet(langs)
	out.Frameworks = sortedSet(frameworks)
	out.Requirements = unionRequirements(reqs)
	return out, nil
}

func complexityOf(results map[string]any) float64 {
	switch v := results["complexity"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}
