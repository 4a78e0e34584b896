package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "cuenca-ubate/http"

// healthPaths are polled by the orchestrator and stay out of traces and metrics
var healthPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// HTTPMetrics holds the server-side request instruments
type HTTPMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	responseSize    metric.Int64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the request instruments on meter
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	var err error

	if m.requestCount, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.responseSize, err = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.activeRequests, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return m, nil
}

// statusRecorder captures what the handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// Flush keeps streaming responses working behind the recorder
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsMiddleware counts and times every request except the health checks
func MetricsMiddleware(metrics *HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			start := time.Now()
			metrics.activeRequests.Add(ctx, 1)
			defer metrics.activeRequests.Add(ctx, -1)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(routePattern(r)),
				semconv.HTTPResponseStatusCode(rec.status),
				attribute.Bool("htmx", isHTMX(r)),
			)
			metrics.requestCount.Add(ctx, 1, attrs)
			metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			metrics.responseSize.Record(ctx, rec.bytes, attrs)
		})
	}
}

// TracingMiddleware opens a server span per request, named after the chi route
func TracingMiddleware(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLFull(r.URL.String()),
					semconv.UserAgentOriginal(r.UserAgent()),
					semconv.ClientAddress(r.RemoteAddr),
					attribute.Bool("htmx", isHTMX(r)),
				),
			)
			defer span.End()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			// chi fills the pattern in while routing
			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(rec.status),
				attribute.Int64("http.response.body.size", rec.bytes),
			)
			if rec.status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// routePattern returns the matched chi pattern, or the raw path outside a chi router
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// GetTracer returns the tracer for HTTP instrumentation
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// GetMeter returns the meter for HTTP instrumentation
func GetMeter() metric.Meter {
	return otel.Meter(instrumentationName)
}
