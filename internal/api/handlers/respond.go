package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/api/middleware"
	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/api/validators"
	"github.com/autostack/gateway/internal/services"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

// maxJSONBody caps ordinary JSON bodies. Analyze takes its own larger limit.
const maxJSONBody = 1 << 20

var validate = validators.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writePage(w http.ResponseWriter, r *http.Request, data any, page, size int, total int64) {
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    data,
		Meta: &types.Meta{
			RequestID: middleware.GetRequestID(r.Context()),
			Page:      page,
			PageSize:  size,
			Total:     total,
		},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, status := types.FromAppError(err)
	if status >= http.StatusInternalServerError {
		logger.Request(middleware.GetRequestID(r.Context())).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, maxJSONBody, true)
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, maxJSONBody, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, limit int64, required bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErr.New(appErr.CodeInvalid, "request body too large").WithMeta("max_bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			if !required {
				return nil
			}
			return appErr.New(appErr.CodeInvalid, "request body is required")
		}
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return validators.ToAppError(err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeNotFound, "resource not found")
	}
	return id, nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeInvalid, field+" must be a uuid")
	}
	return id, nil
}

func identity(r *http.Request) services.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
