package validators

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/autostack/gateway/pkg/errors"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Tier  string `json:"tier" validate:"omitempty,oneof=free pro"`
}

func TestToAppErrorNamesJSONFields(t *testing.T) {
	err := ToAppError(New().Struct(sample{Email: "nope", Tier: "gold"}))
	ae, ok := appErr.As(err)
	require.True(t, ok)
	require.Equal(t, appErr.CodeInvalid, ae.Code)
	fields := ae.Meta["fields"].(map[string]any)
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "oneof", fields["tier"])
}

func TestValidStruct(t *testing.T) {
	require.NoError(t, New().Struct(sample{Email: "a@example.com"}))
}
