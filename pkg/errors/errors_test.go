package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "project not found")
	wrapped := fmt.Errorf("get project: %w", base)

	require.True(t, IsCode(wrapped, CodeNotFound))
	require.False(t, IsCode(wrapped, CodeInternal))
	require.Equal(t, CodeNotFound, CodeOf(wrapped))
	require.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("plain")))
}

func TestWrapNilError(t *testing.T) {
	e := Wrap(nil, CodeInvalid, "bad input")
	require.Nil(t, e.Err)
	require.Equal(t, "invalid: bad input", e.Error())
}

func TestWithMeta(t *testing.T) {
	e := New(CodeTierRequired, "subscription upgrade required").
		WithMeta("required_tier", "pro").
		WithMeta("current_tier", "free")
	require.Equal(t, "pro", e.Meta["required_tier"])
	require.Equal(t, "free", e.Meta["current_tier"])
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:            http.StatusBadRequest,
		CodeUnauthenticated:    http.StatusUnauthorized,
		CodeInvalidCredential:  http.StatusUnauthorized,
		CodeTierRequired:       http.StatusForbidden,
		CodeQuotaExceeded:      http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodePreconditionFailed: http.StatusConflict,
		CodeUnavailable:        http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
		CodeUnknown:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, HTTPStatus(code), "code %s", code)
	}
}
