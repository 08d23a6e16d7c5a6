package downstream

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AnalysisFile is one source file sent for analysis.
type AnalysisFile struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType,omitempty"`
}

type AnalyzeRequest struct {
	ProjectID   uuid.UUID      `json:"projectId"`
	Files       []AnalysisFile `json:"files"`
	AnalysisIDs []uuid.UUID    `json:"analysisIds"`
}

// AnalysisReport is the analysis service's view of one analysis.
type AnalysisReport struct {
	Status          string         `json:"status"`
	Language        string         `json:"language"`
	Framework       string         `json:"framework"`
	Dependencies    map[string]any `json:"dependencies"`
	Requirements    map[string]any `json:"requirements"`
	AnalysisResults map[string]any `json:"analysis_results"`
}

type AnalysisClient interface {
	// Analyze hands a batch to the analysis service. Results arrive later.
	Analyze(ctx context.Context, req AnalyzeRequest) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (*AnalysisReport, error)
}

type analysisClient struct{ *client }

func NewAnalysisClient(baseURL string, timeout time.Duration) AnalysisClient {
	return &analysisClient{newClient("analysis", baseURL, timeout)}
}

func (c *analysisClient) Analyze(ctx context.Context, req AnalyzeRequest) error {
	return c.call(ctx, "analyze", http.MethodPost, "/analyze", req, nil)
}

func (c *analysisClient) GetAnalysis(ctx context.Context, id uuid.UUID) (*AnalysisReport, error) {
	var out struct {
		Analysis AnalysisReport `json:"analysis"`
	}
	if err := c.call(ctx, "get_analysis", http.MethodGet, "/analysis/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Analysis, nil
}
