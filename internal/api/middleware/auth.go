package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/metrics"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/services"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

type identityKeyType struct{}

var identityKey identityKeyType

// Authenticator resolves the caller from request credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer, apiKey string) (*services.Identity, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id services.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(ctx context.Context) (services.Identity, bool) {
	id, ok := ctx.Value(identityKey).(services.Identity)
	return id, ok
}

// Auth accepts a Bearer token in Authorization or an API key in apiKeyHeader
// and attaches the resolved identity to the request context.
func Auth(auth Authenticator, apiKeyHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(bearer) >= len("bearer ") && strings.EqualFold(bearer[:len("bearer ")], "bearer ") {
				bearer = strings.TrimSpace(bearer[len("bearer "):])
			}
			apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader))

			id, err := auth.Authenticate(r.Context(), bearer, apiKey)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

// RequireTier rejects callers whose subscription ranks below required.
func RequireTier(required models.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, r, appErr.New(appErr.CodeUnauthenticated, "authentication required"))
				return
			}
			if err := models.CheckTier(id.Tier, required); err != nil {
				metrics.RecordTierRejection(string(required))
				logger.L().Info("tier gate rejected request",
					zap.String("user_id", id.ID.String()),
					zap.String("current_tier", string(id.Tier)),
					zap.String("required_tier", string(required)),
					zap.String("path", r.URL.Path))
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallbackSecretHeader carries the shared secret on downstream callbacks.
const CallbackSecretHeader = "X-Callback-Secret"

// CallbackAuth guards internal callback routes with a shared secret.
// An empty secret disables the routes entirely.
func CallbackAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, r, appErr.New(appErr.CodeNotFound, "not found"))
				return
			}
			got := r.Header.Get(CallbackSecretHeader)
			if got == "" {
				writeError(w, r, appErr.New(appErr.CodeUnauthenticated, "callback secret required"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, r, appErr.New(appErr.CodeInvalidCredential, "invalid callback secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
