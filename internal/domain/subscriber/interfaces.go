package subscriber

import "context"

// Remote is the backend's subscriber API, the primary copy
type Remote interface {
	Subscribe(ctx context.Context, nombre, email string) (RemoteResult, error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	DeleteSubscriber(ctx context.Context, id int) error
}

// Mirror is the local best-effort copy. Entries are keyed by normalized email.
type Mirror interface {
	// Save inserts the entry unless its email is already present; it reports whether a row was added
	Save(ctx context.Context, entry MirrorEntry) (bool, error)
	List(ctx context.Context) ([]MirrorEntry, error)
	ListPending(ctx context.Context) ([]MirrorEntry, error)
	// MarkSynced clears the pending flag once the backend confirmed the email
	MarkSynced(ctx context.Context, email string) error
	DeleteByEmail(ctx context.Context, email string) error
}

// Service runs the subscription use cases
type Service interface {
	Subscribe(ctx context.Context, req SubscribeRequest) (SubscribeResult, error)
	List(ctx context.Context) (ListResult, error)
	Delete(ctx context.Context, id int, confirmed bool) error
	DeleteAll(ctx context.Context, confirmed bool) (BatchReport, error)
	SyncPending(ctx context.Context) (SyncReport, error)
}
