package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAnalyzeSendsBatch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"message": "Analysis started"})
	}))
	defer srv.Close()

	pid, aid := uuid.New(), uuid.New()
	c := NewAnalysisClient(srv.URL, time.Second)
	err := c.Analyze(context.Background(), AnalyzeRequest{
		ProjectID:   pid,
		Files:       []AnalysisFile{{Filename: "main.py", Content: "print(1)"}},
		AnalysisIDs: []uuid.UUID{aid},
	})
	require.NoError(t, err)
	require.Equal(t, pid.String(), got["projectId"])
	require.Equal(t, []any{aid.String()}, got["analysisIds"])
	require.Len(t, got["files"], 1)
}

func TestGetAnalysisUnwrapsEnvelope(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analysis/"+id.String(), r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"analysis": map[string]any{
			"status":       "completed",
			"language":     "python",
			"framework":    "fastapi",
			"requirements": map[string]any{"database": "postgres"},
		}})
	}))
	defer srv.Close()

	rep, err := NewAnalysisClient(srv.URL, time.Second).GetAnalysis(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "completed", rep.Status)
	require.Equal(t, "postgres", rep.Requirements["database"])
}

func TestGenerateDecodesCost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "pro", req.SubscriptionTier)
		writeJSON(w, http.StatusOK, map[string]any{
			"template":                "resource {}",
			"estimatedCost":           42.5,
			"resources":               map[string]any{"compute": "ecs"},
			"optimizationSuggestions": []string{"use spot"},
		})
	}))
	defer srv.Close()

	out, err := NewGenerationClient(srv.URL, time.Second).Generate(context.Background(), GenerateRequest{
		ProjectID: uuid.New(), ProjectName: "P1", TemplateType: "terraform", SubscriptionTier: "pro",
	})
	require.NoError(t, err)
	require.True(t, out.EstimatedCost.Equal(decimal.RequireFromString("42.5")))
	require.JSONEq(t, `["use spot"]`, string(out.OptimizationSuggestions))
}

func TestErrorStatusIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
	}))
	defer srv.Close()

	_, err := NewGenerationClient(srv.URL, time.Second).Generate(context.Background(), GenerateRequest{})
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	ae, _ := appErr.As(err)
	require.Equal(t, "generation", ae.Meta["service"])
}

func TestUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewDeploymentClient(url, time.Second).Cancel(context.Background(), uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}

func TestDeploymentStatus(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/deployment/"+id.String()+"/status", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"deploymentId":  id.String(),
			"status":        "completed",
			"deploymentUrl": "https://app.example.com",
			"deployedAt":    "2025-03-01T10:00:00.123456",
		})
	}))
	defer srv.Close()

	rep, err := NewDeploymentClient(srv.URL, time.Second).Status(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "completed", rep.Status)
	require.NotNil(t, rep.DeployedTime())
	require.Equal(t, 2025, rep.DeployedTime().Year())
}

func TestDestroySendsStateURL(t *testing.T) {
	var got DestroyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/destroy", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"status": "destroying"})
	}))
	defer srv.Close()

	id := uuid.New()
	err := NewDeploymentClient(srv.URL, time.Second).Destroy(context.Background(), DestroyRequest{DeploymentID: id, StateURL: "s3://state/x"})
	require.NoError(t, err)
	require.Equal(t, id, got.DeploymentID)
	require.Equal(t, "s3://state/x", got.StateURL)
}

func TestDeployedTimeUnparseable(t *testing.T) {
	require.Nil(t, (&DeploymentReport{DeployedAt: "yesterday"}).DeployedTime())
	require.Nil(t, (&DeploymentReport{}).DeployedTime())
}
