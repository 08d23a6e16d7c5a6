package services

import (
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/internal/storage"
	"github.com/autostack/gateway/internal/testutil"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// env wires every service over one in-memory database and mocked downstreams.
type env struct {
	db *gorm.DB

	users       repository.UserRepository
	projects    repository.ProjectRepository
	analyses    repository.AnalysisRepository
	templates   repository.TemplateRepository
	deployments repository.DeploymentRepository
	usageRepo   repository.UsageRepository

	store          *storage.MemoryStore
	analysisClient *mockAnalysisClient
	genClient      *mockGenerationClient
	deployClient   *mockDeploymentClient

	auth       AuthService
	usage      UsageService
	projectSvc ProjectService
	analysis   AnalysisService
	template   TemplateService
	deployment DeploymentService
	callbacks  CallbackService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{
		db:             db,
		users:          repository.NewUserRepository(db),
		projects:       repository.NewProjectRepository(db),
		analyses:       repository.NewAnalysisRepository(db),
		templates:      repository.NewTemplateRepository(db),
		deployments:    repository.NewDeploymentRepository(db),
		usageRepo:      repository.NewUsageRepository(db),
		store:          storage.NewMemoryStore(),
		analysisClient: &mockAnalysisClient{},
		genClient:      &mockGenerationClient{},
		deployClient:   &mockDeploymentClient{},
	}
	e.auth = NewAuthService(e.users, []byte("test-secret"), 0)
	e.usage = NewUsageService(e.usageRepo)
	e.projectSvc = NewProjectService(e.projects, e.analyses, e.store, e.usage, UploadLimits{MaxFiles: 10, MaxFileBytes: 10 << 20, MaxTotalBytes: 100 << 20})
	e.analysis = NewAnalysisService(e.projects, e.analyses, e.store, e.analysisClient, e.usage)
	e.template = NewTemplateService(e.projects, e.analyses, e.templates, e.genClient, e.usage)
	e.deployment = NewDeploymentService(e.projects, e.templates, e.deployments, e.deployClient, e.usage)
	e.callbacks = NewCallbackService(e.analyses, e.deployments, e.analysisClient, e.deployClient)
	t.Cleanup(func() {
		e.analysisClient.AssertExpectations(t)
		e.genClient.AssertExpectations(t)
		e.deployClient.AssertExpectations(t)
	})
	return e
}

func identityOf(u *models.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Tier: u.SubscriptionTier}
}

func unavailable() error {
	return appErr.New(appErr.CodeUnavailable, "service unavailable")
}
