package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/autostack/gateway/internal/api/types"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/services"
)

type AuthHandler struct {
	auth     services.AuthService
	usage    services.UsageService
	tokenTTL time.Duration
}

func NewAuthHandler(auth services.AuthService, usage services.UsageService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, usage: usage, tokenTTL: tokenTTL}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.auth.Register(r.Context(), &services.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, u, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
		User:        u,
	})
}

// Logout is a no-op: tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Me(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{
		"user":          u,
		"project_quota": quotaView(u.SubscriptionTier),
	})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req types.ProfileUpdateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.auth.UpdateProfile(r.Context(), identity(r).ID, &services.UpdateProfileInput{Name: req.Name, Password: req.Password})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, u)
}

func (h *AuthHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.auth.IssueAPIKey(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, types.APIKeyResponse{
		APIKey: key,
		Note:   "store this key now; it cannot be shown again",
	})
}

func (h *AuthHandler) Usage(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.usage.List(r.Context(), identity(r).ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, entries)
}

func quotaView(t models.Tier) any {
	if q := t.ProjectQuota(); q != models.Unlimited {
		return q
	}
	return "unlimited"
}
