package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is a zerolog logger whose events carry the trace and span IDs found in ctx
type Logger struct {
	logger zerolog.Logger
}

// NewLogger writes to stdout, or stderr when LogOutput says so
func NewLogger(config Config) *Logger {
	var out io.Writer = os.Stdout
	if config.LogOutput == "stderr" {
		out = os.Stderr
	}
	return NewLoggerWithWriter(config, out)
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// NewLoggerWithWriter creates a JSON logger on out, or a console one for LogFormat "console"
func NewLoggerWithWriter(config Config, out io.Writer) *Logger {
	if config.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &Logger{
		logger: zerolog.New(out).
			Level(parseLogLevel(config.LogLevel)).
			With().
			Timestamp().
			Str("service", config.ServiceName).
			Str("version", config.ServiceVersion).
			Str("environment", config.Environment).
			Logger(),
	}
}

// parseLogLevel falls back to info for empty or unknown names
func parseLogLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithContext returns the logger annotated with the span found in ctx, if any
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &l.logger
	}
	logger := l.logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Bool("trace_sampled", sc.IsSampled()).
		Logger()
	return &logger
}

func (l *Logger) Info(ctx context.Context) *zerolog.Event  { return l.WithContext(ctx).Info() }
func (l *Logger) Debug(ctx context.Context) *zerolog.Event { return l.WithContext(ctx).Debug() }
func (l *Logger) Warn(ctx context.Context) *zerolog.Event  { return l.WithContext(ctx).Warn() }
func (l *Logger) Error(ctx context.Context) *zerolog.Event { return l.WithContext(ctx).Error() }

// Fatal logs and exits the process once the event is sent
func (l *Logger) Fatal(ctx context.Context) *zerolog.Event { return l.WithContext(ctx).Fatal() }

// WithFields returns a child logger carrying fields on every event
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{logger: l.logger.With().Fields(fields).Logger()}
}

// OTELErrorHandler logs errors reported by the OpenTelemetry SDK, such as failed exports
func (l *Logger) OTELErrorHandler() func(error) {
	return func(err error) {
		l.logger.Error().Err(err).Str("source", "otel_sdk").Msg("OpenTelemetry SDK error")
	}
}
