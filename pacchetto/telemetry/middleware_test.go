package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	slogmulti "github.com/samber/slog-multi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	pipeline := slogmulti.Pipe(
		slogmulti.NewHandleInlineMiddleware(traceContextMiddleware),
		slogmulti.NewHandleInlineMiddleware(errorFormattingMiddleware),
	)
	return slog.New(pipeline.Handler(slog.NewJSONHandler(buf, nil)))
}

func TestErrorFormattingMiddleware(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	// Act
	logger.Error("failed to save cart", slog.Any("err", errors.New("disk full")), slog.String("slot", "file"))

	// Assert
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	errGroup, ok := entry["err"].(map[string]any)
	require.True(t, ok, "err should be rendered as a group")
	assert.Equal(t, "disk full", errGroup["msg"])
	assert.Equal(t, "*errors.errorString", errGroup["type"])
	assert.Equal(t, "file", entry["slot"])
}

func TestTraceContextMiddleware(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	// Act
	logger.InfoContext(ctx, "inside span")

	// Assert
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestTraceContextMiddlewareWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("no span")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
}
