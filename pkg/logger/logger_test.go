package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorFCtxAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-42")
	l.ErrorFCtx(ctx, "request to %s failed", "/users/1")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "request to /users/1 failed", entry.Message)
	require.Equal(t, "req-42", entry.ContextMap()["request_id"])
}

func TestRegisterContextKey(t *testing.T) {
	type tenantKey struct{}
	RegisterContextKey(tenantKey{}, "tenant")
	t.Cleanup(func() { UnregisterContextKey(tenantKey{}) })

	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	l.InfoFCtx(ctx, "hello")

	require.Equal(t, "acme", logs.All()[0].ContextMap()["tenant"])
}

func TestNewLoggerLevel(t *testing.T) {
	l, err := NewLogger(LoggerOptions{Level: "warn", Encoding: "json", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.NoError(t, l.SetLogLevel("debug"))
	require.Error(t, l.SetLogLevel("loud"))
}

func TestNewLoggerWriter(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(LoggerOptions{Level: "warn", Encoding: "json", Writer: &buf})
	require.NoError(t, err)

	l.InfoF("dropped %d", 1)
	l.WarnF("kept %d", 2)
	require.NoError(t, l.SetLogLevel("info"))
	l.InfoF("kept %d", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "WARN", entry["level"])
	require.Equal(t, "kept 2", entry["msg"])

	_, err = NewLogger(LoggerOptions{Encoding: "xml", Writer: &buf})
	require.Error(t, err)
}

func TestRequestIDFromContext(t *testing.T) {
	require.Empty(t, RequestIDFromContext(context.Background()))
	require.Equal(t, "abc", RequestIDFromContext(WithRequestID(context.Background(), "abc")))
}
