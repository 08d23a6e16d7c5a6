package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/services"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockAuthenticator struct{ mock.Mock }

func (m *mockAuthenticator) Authenticate(ctx context.Context, bearer, apiKey string) (*services.Identity, error) {
	args := m.Called(ctx, bearer, apiKey)
	if id := args.Get(0); id != nil {
		return id.(*services.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestAuthStripsBearerPrefix(t *testing.T) {
	id := &services.Identity{ID: uuid.New(), Email: "a@example.com", Tier: models.TierFree}
	auth := new(mockAuthenticator)
	auth.On("Authenticate", mock.Anything, "tok", "").Return(id, nil)

	var seen services.Identity
	h := Auth(auth, "X-API-Key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, *id, seen)
	auth.AssertExpectations(t)
}

func TestAuthPassesAPIKeyAndMapsErrors(t *testing.T) {
	auth := new(mockAuthenticator)
	auth.On("Authenticate", mock.Anything, "", "ask_bad").
		Return(nil, appErr.New(appErr.CodeInvalidCredential, "invalid credentials"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", " ask_bad ")
	rec := httptest.NewRecorder()
	Auth(auth, "X-API-Key")(okHandler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credential", errorCode(t, rec))
}

func TestRequireTier(t *testing.T) {
	h := RequireTier(models.TierStarter)(okHandler)

	cases := []struct {
		tier models.Tier
		want int
	}{
		{models.TierFree, http.StatusForbidden},
		{models.TierStarter, http.StatusNoContent},
		{models.TierEnterprise, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/deploy", nil)
		req = req.WithContext(WithIdentity(req.Context(), services.Identity{ID: uuid.New(), Tier: tc.tier}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, tc.want, rec.Code, tc.tier)
		if tc.want == http.StatusForbidden {
			require.Equal(t, "tier_required", errorCode(t, rec))
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/deploy", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackAuth(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"disabled", "", "anything", http.StatusNotFound},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"wrong", "s3cret", "nope", http.StatusUnauthorized},
		{"valid", "s3cret", "s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/callbacks/deployments/x", nil)
			if tc.header != "" {
				req.Header.Set(CallbackSecretHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			CallbackAuth(tc.secret)(okHandler).ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRecoveryReturnsGenericError(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
	require.Equal(t, "internal", errorCode(t, rec))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://app.example.com"}, "X-API-Key")(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}
