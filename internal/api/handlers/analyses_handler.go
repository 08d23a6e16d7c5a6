package handlers

import (
	"net/http"

	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/services"
)

type AnalysesHandler struct {
	analyses     services.AnalysisService
	maxBodyBytes int64
}

// NewAnalysesHandler serves analysis routes. maxBodyBytes bounds an analyze
// request carrying inline file content; zero keeps the default JSON limit.
func NewAnalysesHandler(analyses services.AnalysisService, maxBodyBytes int64) *AnalysesHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = maxJSONBody
	}
	return &AnalysesHandler{analyses: analyses, maxBodyBytes: maxBodyBytes}
}

func (h *AnalysesHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.analyses.ListByProject(r.Context(), pid, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

func (h *AnalysesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.analyses.GetAnalysis(r.Context(), id, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, a)
}

func (h *AnalysesHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if err := decodeBody(w, r, &req, h.maxBodyBytes, true); err != nil {
		writeError(w, r, err)
		return
	}
	pid, err := parseUUID(req.ProjectID, "project_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	files := make([]services.AnalysisFileInput, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, services.AnalysisFileInput{Filename: f.Filename, Content: f.Content, StorageKey: f.StorageKey})
	}
	rows, err := h.analyses.Trigger(r.Context(), identity(r).ID, &services.TriggerAnalysisInput{ProjectID: pid, Files: files})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, map[string]any{"project_id": pid, "analyses": rows})
}

func (h *AnalysesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := h.analyses.Summary(r.Context(), pid, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sum)
}
