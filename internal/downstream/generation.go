package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GenerateRequest struct {
	ProjectID         uuid.UUID      `json:"projectId"`
	ProjectName       string         `json:"projectName"`
	Requirements      map[string]any `json:"requirements"`
	TemplateType      string         `json:"templateType"`
	OptimizationLevel string         `json:"optimizationLevel"`
	SubscriptionTier  string         `json:"subscriptionTier"`
}

type GenerateResponse struct {
	Template                string          `json:"template"`
	EstimatedCost           decimal.Decimal `json:"estimatedCost"`
	Resources               map[string]any  `json:"resources"`
	OptimizationSuggestions json.RawMessage `json:"optimizationSuggestions"`
}

type EstimateRequest struct {
	Resources map[string]any `json:"resources"`
	Region    string         `json:"region"`
}

type CostEstimate struct {
	MonthlyCost decimal.Decimal `json:"monthlyCost"`
	YearlyCost  decimal.Decimal `json:"yearlyCost"`
	Breakdown   map[string]any  `json:"breakdown"`
	Region      string          `json:"region"`
}

type OptimizeRequest struct {
	Template          string         `json:"template"`
	Resources         map[string]any `json:"resources"`
	OptimizationGoals []string       `json:"optimizationGoals"`
}

type OptimizeResponse struct {
	OptimizedTemplate       string          `json:"optimizedTemplate"`
	EstimatedCost           decimal.Decimal `json:"estimatedCost"`
	OptimizationSuggestions json.RawMessage `json:"optimizationSuggestions"`
}

type GenerationClient interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	EstimateCost(ctx context.Context, req EstimateRequest) (*CostEstimate, error)
	Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error)
	Examples(ctx context.Context) (json.RawMessage, error)
}

type generationClient struct{ *client }

func NewGenerationClient(baseURL string, timeout time.Duration) GenerationClient {
	return &generationClient{newClient("generation", baseURL, timeout)}
}

func (c *generationClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := c.call(ctx, "generate", http.MethodPost, "/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *generationClient) EstimateCost(ctx context.Context, req EstimateRequest) (*CostEstimate, error) {
	var out CostEstimate
	if err := c.call(ctx, "estimate_cost", http.MethodPost, "/estimate-cost", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *generationClient) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error) {
	var out OptimizeResponse
	if err := c.call(ctx, "optimize", http.MethodPost, "/optimize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *generationClient) Examples(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, "examples", http.MethodGet, "/templates/examples", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
