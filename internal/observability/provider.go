package observability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	traceBatchTimeout  = 5 * time.Second
	traceBatchSize     = 512
	metricsInterval    = 30 * time.Second
	histogramMaxSize   = 160
	histogramMaxScale  = 20
	siteAttributeValue = "cuenca-alta-rio-ubate"
)

// Provider owns the trace and metric pipelines of the process.
// With both signals disabled it is a no-op and the global otel providers stay untouched.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewProvider installs the OTLP exporters enabled in config as the global providers
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Provider{}
	if !config.TracesEnabled && !config.MetricsEnabled {
		return p, nil
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, err
	}

	if config.TracesEnabled {
		sampler, err := newSampler(config.TracesSampler, config.TracesSamplerArg)
		if err != nil {
			return nil, err
		}
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(config.TracesEndpoint))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler),
			sdktrace.WithBatcher(exporter,
				sdktrace.WithBatchTimeout(traceBatchTimeout),
				sdktrace.WithMaxExportBatchSize(traceBatchSize),
			),
		)
		otel.SetTracerProvider(p.tracerProvider)
	}

	if config.MetricsEnabled {
		exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(config.MetricsEndpoint))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create metric exporter: %w", err), p.Shutdown(ctx))
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricsInterval))),
			sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
			// request durations, send latencies and upload sizes are all histograms
			sdkmetric.WithView(sdkmetric.NewView(
				sdkmetric.Instrument{Kind: sdkmetric.InstrumentKindHistogram},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationBase2ExponentialHistogram{
					MaxSize:  histogramMaxSize,
					MaxScale: histogramMaxScale,
				}},
			)),
		)
		otel.SetMeterProvider(p.meterProvider)
	}

	return p, nil
}

func newResource(ctx context.Context, config Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
			attribute.String("site", siteAttributeValue),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// newSampler maps an OTEL_TRACES_SAMPLER name onto an SDK sampler
func newSampler(name, arg string) (sdktrace.Sampler, error) {
	if err := validateSampler(name, arg); err != nil {
		return nil, err
	}

	var base sdktrace.Sampler
	switch name {
	case SamplerAlwaysOn, SamplerParentBasedAlwaysOn:
		base = sdktrace.AlwaysSample()
	case SamplerAlwaysOff, SamplerParentBasedAlwaysOff:
		base = sdktrace.NeverSample()
	default:
		ratio, _ := strconv.ParseFloat(arg, 64) //nolint:errcheck // Checked by validateSampler
		base = sdktrace.TraceIDRatioBased(ratio)
	}

	switch name {
	case SamplerParentBasedAlwaysOn, SamplerParentBasedAlwaysOff, SamplerParentBasedTraceIDRatio:
		return sdktrace.ParentBased(base), nil
	}
	return base, nil
}

// Enabled reports whether any exporter is running
func (p *Provider) Enabled() bool {
	return p.tracerProvider != nil || p.meterProvider != nil
}

// RegisterErrorHandler routes SDK export errors to the structured logger
func (p *Provider) RegisterErrorHandler(logger *Logger) {
	otel.SetErrorHandler(otel.ErrorHandlerFunc(logger.OTELErrorHandler()))
}

// Shutdown flushes pending spans and metrics and stops the exporters
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
