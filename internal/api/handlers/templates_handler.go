package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/services"
)

type TemplatesHandler struct {
	templates services.TemplateService
}

func NewTemplatesHandler(templates services.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates}
}

func (h *TemplatesHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.templates.ListByProject(r.Context(), pid, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.templates.GetTemplate(r.Context(), id, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, t)
}

func (h *TemplatesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pid, err := parseUUID(req.ProjectID, "project_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.templates.Generate(r.Context(), identity(r), &services.GenerateTemplateInput{
		ProjectID:         pid,
		TemplateType:      req.TemplateType,
		OptimizationLevel: req.OptimizationLevel,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, t)
}

func (h *TemplatesHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := h.templates.Download(r.Context(), id, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

func (h *TemplatesHandler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	var req types.EstimateCostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	input := &services.EstimateCostInput{Resources: req.Resources, Region: req.Region}
	if req.TemplateID != "" {
		tid, err := parseUUID(req.TemplateID, "template_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		input.TemplateID = &tid
	}

	est, err := h.templates.EstimateCost(r.Context(), identity(r).ID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, est)
}

func (h *TemplatesHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.OptimizeRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.templates.Optimize(r.Context(), identity(r).ID, id, &services.OptimizeInput{Goals: req.OptimizationGoals})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, res)
}

func (h *TemplatesHandler) Examples(w http.ResponseWriter, r *http.Request) {
	raw, err := h.templates.Examples(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, raw)
}

