package services

import (
	"context"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/metrics"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/internal/storage"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

type ProjectService interface {
	CreateProject(ctx context.Context, user Identity, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID, filters *ProjectFilters) ([]models.Project, int64, error)
	UpdateProject(ctx context.Context, projectID, userID uuid.UUID, input *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error

	// UploadFiles records one pending analysis per file. Nothing is analyzed yet.
	UploadFiles(ctx context.Context, projectID, userID uuid.UUID, files []UploadFile) ([]UploadedFile, error)
}

type CreateProjectInput struct {
	Name          string
	Description   string
	RepositoryURL string
	Language      string
	Framework     string
}

type UpdateProjectInput struct {
	Name          *string
	Description   *string
	RepositoryURL *string
	Language      *string
	Framework     *string
	Status        *string
}

type ProjectFilters struct {
	Page     int
	PageSize int
}

type UploadFile struct {
	Filename string
	Data     []byte
}

// UploadedFile is the metadata returned for an accepted upload.
type UploadedFile struct {
	AnalysisID  uuid.UUID `json:"analysis_id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"storage_key,omitempty"`
	Status      string    `json:"status"`
}

type UploadLimits struct {
	MaxFiles      int
	MaxFileBytes  int64
	MaxTotalBytes int64
}

var allowedExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	".java": true, ".kt": true, ".go": true, ".rb": true, ".php": true, ".cs": true,
	".rs": true, ".swift": true, ".scala": true, ".c": true, ".cpp": true, ".h": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".xml": true, ".ini": true,
	".cfg": true, ".conf": true, ".txt": true, ".md": true, ".gradle": true, ".lock": true,
	".sql": true, ".sh": true, ".tf": true, ".mod": true, ".sum": true,
}

var allowedNames = map[string]bool{
	"Dockerfile": true,
	"Makefile":   true,
	"Procfile":   true,
	"Gemfile":    true,
}

// AllowedUpload reports whether filename passes the extension allow-list.
func AllowedUpload(filename string) bool {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if allowedNames[base] {
		return true
	}
	return allowedExtensions[strings.ToLower(path.Ext(base))]
}

type projectService struct {
	projectRepo  repository.ProjectRepository
	analysisRepo repository.AnalysisRepository
	store        storage.FileStore
	usage        UsageService
	limits       UploadLimits
}

// NewProjectService wires the project operations. store may be nil, in which
// case uploads keep metadata only.
func NewProjectService(projectRepo repository.ProjectRepository, analysisRepo repository.AnalysisRepository, store storage.FileStore, usage UsageService, limits UploadLimits) ProjectService {
	return &projectService{projectRepo: projectRepo, analysisRepo: analysisRepo, store: store, usage: usage, limits: limits}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) CreateProject(ctx context.Context, user Identity, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project called", zap.String("user_id", user.ID.String()), zap.String("name", input.Name))

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "project name is required")
	}

	quota := user.Tier.ProjectQuota()
	if quota != models.Unlimited {
		count, err := s.projectRepo.CountByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if count >= int64(quota) {
			return nil, appErr.New(appErr.CodeQuotaExceeded, "project limit reached for subscription tier").
				WithMeta("limit", quota).
				WithMeta("current_tier", string(user.Tier))
		}
	}

	p := &models.Project{
		UserID:        user.ID,
		Name:          name,
		Description:   input.Description,
		RepositoryURL: input.RepositoryURL,
		Language:      input.Language,
		Framework:     input.Framework,
	}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.usage.Record(ctx, user.ID, ActionProjectCreate, "project", ref(p.ID), decimal.Zero)
	logger.L().Info("project created", zap.String("project_id", p.ID.String()), zap.String("user_id", user.ID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetOwned(ctx, projectID, userID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, userID uuid.UUID, filters *ProjectFilters) ([]models.Project, int64, error) {
	logger.L().Info("list projects", zap.String("user_id", userID.String()))
	page := repository.Page{}
	if filters != nil {
		page = repository.Page{Page: filters.Page, PageSize: filters.PageSize}
	}
	return s.projectRepo.ListOwned(ctx, userID, page)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID, userID uuid.UUID, input *UpdateProjectInput) (*models.Project, error) {
	logger.L().Info("update project", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, appErr.New(appErr.CodeInvalid, "project name cannot be empty")
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.RepositoryURL != nil {
		fields["repository_url"] = *input.RepositoryURL
	}
	if input.Language != nil {
		fields["language"] = *input.Language
	}
	if input.Framework != nil {
		fields["framework"] = *input.Framework
	}
	if input.Status != nil {
		if *input.Status != models.ProjectStatusActive && *input.Status != models.ProjectStatusArchived {
			return nil, appErr.New(appErr.CodeInvalid, "status must be active or archived")
		}
		fields["status"] = *input.Status
	}

	if len(fields) > 0 {
		if err := s.projectRepo.UpdateOwned(ctx, projectID, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetProject(ctx, projectID, userID)
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	logger.L().Info("delete project", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	if err := s.projectRepo.DeleteOwned(ctx, projectID, userID); err != nil {
		return err
	}
	if s.store != nil {
		n, err := s.store.DeletePrefix(context.WithoutCancel(ctx), storage.ProjectPrefix(projectID))
		if err != nil {
			logger.L().Warn("release project uploads failed", zap.String("project_id", projectID.String()), zap.Error(err))
		} else if n > 0 {
			logger.L().Info("project uploads released", zap.String("project_id", projectID.String()), zap.Int("files", n))
		}
	}
	logger.L().Info("project deleted", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	return nil
}

func (s *projectService) UploadFiles(ctx context.Context, projectID, userID uuid.UUID, files []UploadFile) ([]UploadedFile, error) {
	logger.L().Info("upload files", zap.String("project_id", projectID.String()), zap.Int("files", len(files)))

	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}
	if err := s.checkLimits(files); err != nil {
		return nil, err
	}

	rows := make([]*models.CodeAnalysis, len(files))
	var stored []string
	for i, f := range files {
		ct := mimetype.Detect(f.Data).String()
		row := &models.CodeAnalysis{
			ID:          uuid.New(),
			ProjectID:   projectID,
			FilePath:    f.Filename,
			FileSize:    int64(len(f.Data)),
			ContentType: ct,
			Status:      models.AnalysisStatusPending,
		}
		if s.store != nil {
			key := storage.UploadKey(projectID, row.ID, f.Filename)
			if err := s.store.Put(ctx, key, f.Data, ct); err != nil {
				metrics.RecordUpload(ct, "error", row.FileSize)
				s.discard(ctx, stored)
				return nil, err
			}
			row.StorageKey = key
			stored = append(stored, key)
		}
		rows[i] = row
	}

	if err := s.analysisRepo.CreateBatch(ctx, rows); err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	out := make([]UploadedFile, len(rows))
	var total int64
	for i, row := range rows {
		metrics.RecordUpload(row.ContentType, "success", row.FileSize)
		total += row.FileSize
		out[i] = UploadedFile{
			AnalysisID:  row.ID,
			Filename:    row.FilePath,
			Size:        row.FileSize,
			ContentType: row.ContentType,
			StorageKey:  row.StorageKey,
			Status:      row.Status,
		}
	}
	s.usage.Record(ctx, userID, ActionFilesUpload, "project", ref(projectID), decimal.Zero)
	logger.L().Info("files uploaded", zap.String("project_id", projectID.String()), zap.Int64("bytes", total))
	return out, nil
}

func (s *projectService) checkLimits(files []UploadFile) error {
	if len(files) == 0 {
		return appErr.New(appErr.CodeInvalid, "at least one file is required")
	}
	if s.limits.MaxFiles > 0 && len(files) > s.limits.MaxFiles {
		return appErr.New(appErr.CodeInvalid, "too many files").WithMeta("max_files", s.limits.MaxFiles)
	}
	var total int64
	for _, f := range files {
		size := int64(len(f.Data))
		if !AllowedUpload(f.Filename) {
			return appErr.New(appErr.CodeInvalid, "file type not allowed").WithMeta("filename", f.Filename)
		}
		if s.limits.MaxFileBytes > 0 && size > s.limits.MaxFileBytes {
			return appErr.New(appErr.CodeInvalid, "file too large").
				WithMeta("filename", f.Filename).
				WithMeta("max_file_bytes", s.limits.MaxFileBytes)
		}
		total += size
	}
	if s.limits.MaxTotalBytes > 0 && total > s.limits.MaxTotalBytes {
		return appErr.New(appErr.CodeInvalid, "upload too large").WithMeta("max_total_bytes", s.limits.MaxTotalBytes)
	}
	return nil
}

func (s *projectService) discard(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			logger.L().Warn("discard stored upload failed", zap.String("key", k), zap.Error(err))
		}
	}
}
