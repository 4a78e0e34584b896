package moderation

import "context"

// Service runs the admin panel's call-then-refresh operations.
// Every operation returns an Outcome carrying a toast, also on failure.
type Service interface {
	ChangeStatus(ctx context.Context, id int, status string, confirmed bool) (Outcome, error)
	EditRecord(ctx context.Context, id int, form EditForm) (Outcome, error)
	DeleteRecord(ctx context.Context, id int, confirmed bool) (Outcome, error)
}
