package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{
		ServiceName:    "cuenca-ubate",
		ServiceVersion: "test",
		Environment:    "test",
		LogLevel:       "debug",
		LogFormat:      "json",
	}, &buf)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.Info(ctx).Str("email", "ana@example.com").Msg("suscriptor guardado")
	span.End()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "suscriptor guardado", entry["message"])
	assert.Equal(t, "cuenca-ubate", entry["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{ServiceName: "svc", LogLevel: "warn"}, &buf)

	logger.Info(context.Background()).Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn(context.Background()).Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{ServiceName: "svc"}, &buf).WithFields(map[string]interface{}{"component": "dispatcher"})

	logger.Info(context.Background()).Msg("x")
	assert.Contains(t, buf.String(), `"component":"dispatcher"`)
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error(context.Background()).Msg("nothing")
		logger.OTELErrorHandler()(assert.AnError)
	})
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLogLevel("debug").String())
	assert.Equal(t, "warn", parseLogLevel("warning").String())
	assert.Equal(t, "info", parseLogLevel("loud").String())
}
