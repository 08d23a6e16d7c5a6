package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/autostack/gateway/internal/api/types"
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, status := types.FromAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    &types.Meta{RequestID: GetRequestID(r.Context())},
	})
}
