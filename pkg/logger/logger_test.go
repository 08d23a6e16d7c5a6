package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitRejectsUnknownFormat(t *testing.T) {
	_, err := Init("info", "xml")
	require.Error(t, err)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	_, err := Init("chatty", "json")
	require.Error(t, err)
}

func TestInitSetsGlobal(t *testing.T) {
	l, err := Init("debug", "console")
	require.NoError(t, err)
	require.Same(t, l, L())
	require.NotNil(t, Named("projects"))
	Sync()
}

func TestErrorsGoToErrorOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	_, err := initWith("info", "json", zapcore.AddSync(&out), zapcore.AddSync(&errOut))
	require.NoError(t, err)

	Request("req-1").Info("request")
	L().Error("deploy failed")
	L().Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	require.Equal(t, "request", entry["message"])
	require.Equal(t, "req-1", entry["request_id"])
	require.Equal(t, "autostack-gateway", entry["service"])

	require.Contains(t, errOut.String(), "deploy failed")
	require.NotContains(t, out.String(), "deploy failed")
	require.NotContains(t, out.String()+errOut.String(), "hidden")
}

func TestSetLevel(t *testing.T) {
	var out bytes.Buffer
	_, err := initWith("warn", "json", zapcore.AddSync(&out), zapcore.AddSync(&out))
	require.NoError(t, err)

	L().Info("before")
	require.NoError(t, SetLevel("debug"))
	L().Debug("after")
	require.Error(t, SetLevel("loud"))

	require.False(t, strings.Contains(out.String(), "before"))
	require.True(t, strings.Contains(out.String(), "after"))
}
