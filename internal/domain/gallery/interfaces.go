package gallery

import (
	"context"
	"time"
)

// Backend is the part of the remote backend that serves and mutates image records
type Backend interface {
	ListImages(ctx context.Context) ([]ImageRecord, error)
	ChangeStatus(ctx context.Context, id int, status Status) error
	EditImage(ctx context.Context, id int, edit Edit) error
	DeleteImage(ctx context.Context, id int) error
}

// SnapshotCache stores the shared copy of the image list.
// Implementations return an error wrapping a cache-miss sentinel when the key is absent.
type SnapshotCache interface {
	Get(ctx context.Context, key string, result interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CatalogService hands out snapshots of the image list
type CatalogService interface {
	// Records returns the current snapshot, fetching it when stale
	Records(ctx context.Context) ([]ImageRecord, error)

	// Refresh fetches the list again and returns the newest applied snapshot
	Refresh(ctx context.Context) ([]ImageRecord, error)

	// Invalidate drops every cached copy
	Invalidate(ctx context.Context) error
}
