package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/services"
	"github.com/autostack/gateway/pkg/logger"
)

// Task types handled by the worker.
const (
	TypeDeploymentReconcile = "deployment:reconcile"
	TypeAnalysisReconcile   = "analysis:reconcile"
)

const DefaultBatchSize = 100

// ReconcilePayload is the task payload for reconcile tasks.
type ReconcilePayload struct {
	MinAgeSeconds int `json:"min_age_seconds"`
	BatchSize     int `json:"batch_size"`
}

// NewReconcileTask builds a reconcile task of the given type.
func NewReconcileTask(taskType string, minAge time.Duration, batchSize int) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{MinAgeSeconds: int(minAge.Seconds()), BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	// A reconcile pass that overruns its interval is dropped, not queued behind.
	return asynq.NewTask(taskType, payload, asynq.MaxRetry(0), asynq.Unique(time.Minute)), nil
}

// ReconcileTaskHandler polls downstream services for rows still in flight.
type ReconcileTaskHandler struct {
	callbacks services.CallbackService
}

func NewReconcileTaskHandler(callbacks services.CallbackService) *ReconcileTaskHandler {
	return &ReconcileTaskHandler{callbacks: callbacks}
}

// Register binds every reconcile task type on mux.
func (h *ReconcileTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDeploymentReconcile, h.HandleDeployments)
	mux.HandleFunc(TypeAnalysisReconcile, h.HandleAnalyses)
}

func (h *ReconcileTaskHandler) HandleDeployments(ctx context.Context, t *asynq.Task) error {
	p, err := parsePayload(t)
	if err != nil {
		return err
	}
	res, err := h.callbacks.ReconcileDeployments(ctx, time.Duration(p.MinAgeSeconds)*time.Second, p.BatchSize)
	return logResult(t.Type(), res, err)
}

func (h *ReconcileTaskHandler) HandleAnalyses(ctx context.Context, t *asynq.Task) error {
	p, err := parsePayload(t)
	if err != nil {
		return err
	}
	res, err := h.callbacks.ReconcileAnalyses(ctx, time.Duration(p.MinAgeSeconds)*time.Second, p.BatchSize)
	return logResult(t.Type(), res, err)
}

func parsePayload(t *asynq.Task) (ReconcilePayload, error) {
	var p ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.L().Error("invalid reconcile task payload", zap.String("type", t.Type()), zap.Error(err))
			return p, fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
	}
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.MinAgeSeconds < 0 {
		p.MinAgeSeconds = 0
	}
	return p, nil
}

func logResult(taskType string, res services.ReconcileResult, err error) error {
	if err != nil {
		logger.L().Error("reconcile failed", zap.String("type", taskType), zap.Error(err))
		return err
	}
	logger.L().Info("reconcile finished",
		zap.String("type", taskType),
		zap.Int("checked", res.Checked),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed))
	return nil
}
