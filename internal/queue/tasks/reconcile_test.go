package tasks

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/services"
	"github.com/autostack/gateway/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockCallbackService struct {
	mock.Mock
}

func (m *mockCallbackService) ApplyAnalysisReport(ctx context.Context, id uuid.UUID, report *downstream.AnalysisReport, source string) (*models.CodeAnalysis, error) {
	args := m.Called(ctx, id, report, source)
	if v := args.Get(0); v != nil {
		return v.(*models.CodeAnalysis), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCallbackService) ApplyDeploymentReport(ctx context.Context, id uuid.UUID, report *downstream.DeploymentReport, source string) (*models.Deployment, error) {
	args := m.Called(ctx, id, report, source)
	if v := args.Get(0); v != nil {
		return v.(*models.Deployment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCallbackService) ReconcileAnalyses(ctx context.Context, minAge time.Duration, limit int) (services.ReconcileResult, error) {
	args := m.Called(ctx, minAge, limit)
	return args.Get(0).(services.ReconcileResult), args.Error(1)
}

func (m *mockCallbackService) ReconcileDeployments(ctx context.Context, minAge time.Duration, limit int) (services.ReconcileResult, error) {
	args := m.Called(ctx, minAge, limit)
	return args.Get(0).(services.ReconcileResult), args.Error(1)
}

func TestHandleDeploymentsUsesPayload(t *testing.T) {
	cb := &mockCallbackService{}
	h := NewReconcileTaskHandler(cb)

	task, err := NewReconcileTask(TypeDeploymentReconcile, 2*time.Minute, 25)
	require.NoError(t, err)
	require.Equal(t, TypeDeploymentReconcile, task.Type())

	cb.On("ReconcileDeployments", mock.Anything, 2*time.Minute, 25).
		Return(services.ReconcileResult{Checked: 3, Updated: 1}, nil).Once()

	require.NoError(t, h.HandleDeployments(context.Background(), task))
	cb.AssertExpectations(t)
}

func TestHandleAnalysesDefaultsBatchSize(t *testing.T) {
	cb := &mockCallbackService{}
	h := NewReconcileTaskHandler(cb)

	cb.On("ReconcileAnalyses", mock.Anything, time.Duration(0), DefaultBatchSize).
		Return(services.ReconcileResult{}, nil).Once()

	require.NoError(t, h.HandleAnalyses(context.Background(), asynq.NewTask(TypeAnalysisReconcile, nil)))
	cb.AssertExpectations(t)
}

func TestHandlerPropagatesErrors(t *testing.T) {
	cb := &mockCallbackService{}
	h := NewReconcileTaskHandler(cb)
	boom := errors.New("database is down")

	cb.On("ReconcileDeployments", mock.Anything, mock.Anything, mock.Anything).
		Return(services.ReconcileResult{}, boom).Once()

	err := h.HandleDeployments(context.Background(), asynq.NewTask(TypeDeploymentReconcile, []byte(`{"batch_size":5}`)))
	require.ErrorIs(t, err, boom)
	cb.AssertExpectations(t)
}

func TestInvalidPayloadSkipsRetry(t *testing.T) {
	h := NewReconcileTaskHandler(&mockCallbackService{})
	err := h.HandleAnalyses(context.Background(), asynq.NewTask(TypeAnalysisReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRegisterRoutesTaskTypes(t *testing.T) {
	cb := &mockCallbackService{}
	mux := asynq.NewServeMux()
	NewReconcileTaskHandler(cb).Register(mux)

	cb.On("ReconcileAnalyses", mock.Anything, mock.Anything, mock.Anything).
		Return(services.ReconcileResult{}, nil).Once()
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TypeAnalysisReconcile, nil)))
	cb.AssertExpectations(t)
}
