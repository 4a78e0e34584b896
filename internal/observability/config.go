package observability

import (
	"fmt"
	"os"
	"strconv"
)

// Trace sampler names, as accepted by OTEL_TRACES_SAMPLER
const (
	SamplerAlwaysOn                = "always_on"
	SamplerAlwaysOff               = "always_off"
	SamplerTraceIDRatio            = "traceidratio"
	SamplerParentBasedAlwaysOn     = "parentbased_always_on"
	SamplerParentBasedAlwaysOff    = "parentbased_always_off"
	SamplerParentBasedTraceIDRatio = "parentbased_traceidratio"
)

// Config holds configuration for OpenTelemetry instrumentation
type Config struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLP Trace Exporter configuration
	TracesEndpoint   string
	TracesEnabled    bool
	TracesSampler    string
	TracesSamplerArg string

	// OTLP Metrics Exporter configuration
	MetricsEndpoint string
	MetricsEnabled  bool

	// Logging configuration
	LogLevel  string
	LogFormat string // json or console
	LogOutput string // stdout or stderr
}

// LoadConfig loads observability configuration from environment variables
func LoadConfig() Config {
	return Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "cuenca-ubate"),
		ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:    getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", getEnv("GO_ENV", "development")),

		TracesEndpoint:   getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://localhost:4318/v1/traces"),
		TracesEnabled:    getEnvBool("OTEL_TRACES_ENABLED", false),
		TracesSampler:    getEnv("OTEL_TRACES_SAMPLER", SamplerAlwaysOn),
		TracesSamplerArg: getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0"),

		MetricsEndpoint: getEnv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "http://localhost:4318/v1/metrics"),
		MetricsEnabled:  getEnvBool("OTEL_METRICS_ENABLED", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	if c.TracesEnabled && c.TracesEndpoint == "" {
		return fmt.Errorf("traces endpoint is required when traces are enabled")
	}

	if c.TracesEnabled {
		if err := validateSampler(c.TracesSampler, c.TracesSamplerArg); err != nil {
			return err
		}
	}

	if c.MetricsEnabled && c.MetricsEndpoint == "" {
		return fmt.Errorf("metrics endpoint is required when metrics are enabled")
	}

	return nil
}

// validateSampler checks the sampler name and, for ratio samplers, its argument
func validateSampler(sampler, arg string) error {
	switch sampler {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerParentBasedAlwaysOn, SamplerParentBasedAlwaysOff:
		return nil
	case SamplerTraceIDRatio, SamplerParentBasedTraceIDRatio:
		ratio, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("sampler arg %q is not a number: %w", arg, err)
		}
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("sampler ratio must be between 0 and 1, got %v", ratio)
		}
		return nil
	default:
		return fmt.Errorf("unknown sampler type: %s", sampler)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
