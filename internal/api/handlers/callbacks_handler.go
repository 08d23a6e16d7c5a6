package handlers

import (
	"net/http"

	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/services"
)

// CallbacksHandler receives completion reports from downstream services.
type CallbacksHandler struct {
	callbacks services.CallbackService
}

func NewCallbacksHandler(callbacks services.CallbackService) *CallbacksHandler {
	return &CallbacksHandler{callbacks: callbacks}
}

func (h *CallbacksHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.AnalysisCallbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.callbacks.ApplyAnalysisReport(r.Context(), id, &downstream.AnalysisReport{
		Status:          req.Status,
		Language:        req.Language,
		Framework:       req.Framework,
		Dependencies:    req.Dependencies,
		Requirements:    req.Requirements,
		AnalysisResults: req.AnalysisResults,
	}, services.SourceCallback)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, a)
}

func (h *CallbacksHandler) Deployment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.DeploymentCallbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.callbacks.ApplyDeploymentReport(r.Context(), id, &downstream.DeploymentReport{
		DeploymentID:  id.String(),
		Status:        req.Status,
		DeploymentURL: req.DeploymentURL,
		StateURL:      req.StateURL,
		ErrorMessage:  req.ErrorMessage,
		Logs:          req.Logs,
		DeployedAt:    req.DeployedAt,
	}, services.SourceCallback)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, d)
}
