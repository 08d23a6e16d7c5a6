package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/services"
)

type DeploymentsHandler struct {
	deployments services.DeploymentService
}

func NewDeploymentsHandler(deployments services.DeploymentService) *DeploymentsHandler {
	return &DeploymentsHandler{deployments: deployments}
}

func (h *DeploymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	items, total, err := h.deployments.List(r.Context(), identity(r).ID, &services.DeploymentFilters{Page: page, PageSize: size})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, items, page, size, total)
}

func (h *DeploymentsHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.deployments.ListByProject(r.Context(), pid, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

func (h *DeploymentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(id uuid.UUID) (any, error) {
		return h.deployments.GetDeployment(r.Context(), id, identity(r).ID)
	})
}

func (h *DeploymentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(id uuid.UUID) (any, error) {
		return h.deployments.Status(r.Context(), id, identity(r).ID)
	})
}

func (h *DeploymentsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(id uuid.UUID) (any, error) {
		return h.deployments.Logs(r.Context(), id, identity(r).ID)
	})
}

func (h *DeploymentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(id uuid.UUID) (any, error) {
		return h.deployments.Cancel(r.Context(), id, identity(r).ID)
	})
}

func (h *DeploymentsHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.deployments.Destroy(r.Context(), id, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, d)
}

func (h *DeploymentsHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	var req types.DeployRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tid, err := parseUUID(req.TemplateID, "template_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.deployments.Deploy(r.Context(), identity(r).ID, &services.DeployInput{
		TemplateID:     tid,
		Region:         req.Region,
		AWSCredentials: req.AWSCredentials,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, d)
}

func (h *DeploymentsHandler) byID(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID) (any, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := fn(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, v)
}
