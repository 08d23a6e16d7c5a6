package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/autostack/gateway/internal/downstream"
)

type mockAnalysisClient struct {
	mock.Mock
}

func (m *mockAnalysisClient) Analyze(ctx context.Context, req downstream.AnalyzeRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockAnalysisClient) GetAnalysis(ctx context.Context, id uuid.UUID) (*downstream.AnalysisReport, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*downstream.AnalysisReport), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGenerationClient struct {
	mock.Mock
}

func (m *mockGenerationClient) Generate(ctx context.Context, req downstream.GenerateRequest) (*downstream.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*downstream.GenerateResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerationClient) EstimateCost(ctx context.Context, req downstream.EstimateRequest) (*downstream.CostEstimate, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*downstream.CostEstimate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerationClient) Optimize(ctx context.Context, req downstream.OptimizeRequest) (*downstream.OptimizeResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*downstream.OptimizeResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerationClient) Examples(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(json.RawMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeploymentClient struct {
	mock.Mock
}

func (m *mockDeploymentClient) Deploy(ctx context.Context, req downstream.DeployRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockDeploymentClient) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDeploymentClient) Destroy(ctx context.Context, req downstream.DestroyRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockDeploymentClient) Status(ctx context.Context, id uuid.UUID) (*downstream.DeploymentReport, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*downstream.DeploymentReport), args.Error(1)
	}
	return nil, args.Error(1)
}
