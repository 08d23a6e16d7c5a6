package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/services"
	appErr "github.com/autostack/gateway/pkg/errors"
)

// uploadField is the multipart field holding uploaded files.
const uploadField = "files"

type ProjectsHandler struct {
	projects       services.ProjectService
	maxUploadBytes int64
}

func NewProjectsHandler(projects services.ProjectService, maxUploadBytes int64) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, maxUploadBytes: maxUploadBytes}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	items, total, err := h.projects.ListProjects(r.Context(), identity(r).ID, &services.ProjectFilters{Page: page, PageSize: size})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, items, page, size, total)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.projects.CreateProject(r.Context(), identity(r), &services.CreateProjectInput{
		Name:          req.Name,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		Language:      req.Language,
		Framework:     req.Framework,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.GetProject(r.Context(), id, identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.ProjectUpdateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.projects.UpdateProject(r.Context(), id, identity(r).ID, &services.UpdateProjectInput{
		Name:          req.Name,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		Language:      req.Language,
		Framework:     req.Framework,
		Status:        req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.projects.DeleteProject(r.Context(), id, identity(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// Upload reads the whole multipart body into memory; the service applies
// per-file and per-call limits.
func (h *ProjectsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Allow some room for multipart framing on top of the content limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, appErr.New(appErr.CodeInvalid, "upload too large").WithMeta("max_total_bytes", h.maxUploadBytes))
			return
		}
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "unreadable file"))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "unreadable file"))
			return
		}
		files = append(files, services.UploadFile{Filename: fh.Filename, Data: data})
	}

	uploaded, err := h.projects.UploadFiles(r.Context(), id, identity(r).ID, files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, map[string]any{"files": uploaded})
}
