package implementations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/platform/cache"
)

// CatalogService keeps the snapshot of the backend's image list.
// Fetches are numbered when issued and a response is applied only when no
// later-issued fetch has been applied already.
type CatalogService struct {
	backend gallery.Backend
	shared  gallery.SnapshotCache // can be nil
	ttl     time.Duration
	logger  *observability.Logger
	tracer  trace.Tracer
	now     func() time.Time

	issued atomic.Uint64

	mu        sync.RWMutex
	applied   uint64
	snapshot  []gallery.ImageRecord
	fetchedAt time.Time

	refreshes   metric.Int64Counter
	cacheLookup metric.Int64Counter
}

// NewCatalogService creates a catalog over the backend, sharing snapshots through shared when set
func NewCatalogService(backend gallery.Backend, shared gallery.SnapshotCache, ttl time.Duration, logger *observability.Logger) *CatalogService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	meter := otel.Meter("cuenca-ubate/services")
	refreshes, _ := meter.Int64Counter("catalog.refreshes",
		metric.WithDescription("Image list fetches from the backend"))
	lookups, _ := meter.Int64Counter("catalog.cache.lookups",
		metric.WithDescription("Shared snapshot cache lookups"))

	return &CatalogService{
		backend:     backend,
		shared:      shared,
		ttl:         ttl,
		logger:      logger,
		tracer:      otel.Tracer("cuenca-ubate/services"),
		now:         time.Now,
		refreshes:   refreshes,
		cacheLookup: lookups,
	}
}

var _ gallery.CatalogService = (*CatalogService)(nil)

// Records returns the current snapshot, fetching it when stale
func (c *CatalogService) Records(ctx context.Context) ([]gallery.ImageRecord, error) {
	if records, ok := c.fresh(); ok {
		return records, nil
	}

	if records, ok := c.fromShared(ctx); ok {
		return records, nil
	}

	return c.Refresh(ctx)
}

// Refresh fetches the list again and returns the newest applied snapshot
func (c *CatalogService) Refresh(ctx context.Context) ([]gallery.ImageRecord, error) {
	seq := c.issued.Add(1)

	ctx, span := c.tracer.Start(ctx, "catalog.Refresh",
		trace.WithAttributes(attribute.Int64("catalog.sequence", int64(seq))))
	defer span.End()

	records, err := c.backend.ListImages(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.count(ctx, c.refreshes, "error")
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	records = gallery.Normalize(records)

	c.mu.Lock()
	applied := seq > c.applied
	if applied {
		c.applied = seq
		c.snapshot = records
		c.fetchedAt = c.now()
	}
	current := clone(c.snapshot)
	c.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("catalog.applied", applied),
		attribute.Int("catalog.records", len(records)),
	)

	if !applied {
		c.count(ctx, c.refreshes, "superseded")
		c.logger.Debug(ctx).Uint64("sequence", seq).Msg("Discarded superseded image list")
		return current, nil
	}

	c.count(ctx, c.refreshes, "applied")
	if c.shared != nil {
		if err := c.shared.Set(ctx, cache.CatalogKey, records, c.ttl); err != nil {
			c.logger.Warn(ctx).Err(err).Msg("Failed to share image list snapshot")
		}
	}
	return current, nil
}

// Invalidate drops every cached copy
func (c *CatalogService) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()

	if c.shared == nil {
		return nil
	}
	if err := c.shared.Delete(ctx, cache.CatalogKey); err != nil {
		return fmt.Errorf("failed to invalidate shared snapshot: %w", err)
	}
	return nil
}

func (c *CatalogService) fresh() ([]gallery.ImageRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return clone(c.snapshot), true
}

// fromShared adopts a snapshot another instance stored, unless a fetch was applied meanwhile
func (c *CatalogService) fromShared(ctx context.Context) ([]gallery.ImageRecord, bool) {
	if c.shared == nil {
		return nil, false
	}

	seq := c.issued.Load()
	var records []gallery.ImageRecord
	if err := c.shared.Get(ctx, cache.CatalogKey, &records); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn(ctx).Err(err).Msg("Shared snapshot cache unavailable")
		}
		c.count(ctx, c.cacheLookup, "miss")
		return nil, false
	}
	c.count(ctx, c.cacheLookup, "hit")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applied <= seq {
		c.snapshot = records
		c.fetchedAt = c.now()
	}
	return clone(c.snapshot), true
}

func (c *CatalogService) count(ctx context.Context, counter metric.Int64Counter, result string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func clone(records []gallery.ImageRecord) []gallery.ImageRecord {
	out := make([]gallery.ImageRecord, len(records))
	copy(out, records)
	return out
}
