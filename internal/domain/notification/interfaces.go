package notification

import "context"

// Sender delivers one message to one recipient
type Sender interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}

// ProgressFunc observes a batch; calls are serialized
type ProgressFunc func(Progress)

// Dispatcher sends a message to many recipients under a pacing policy
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []Recipient, msg Message, onProgress ProgressFunc) Summary
}

// Broadcaster runs newsletter broadcasts to the active subscribers in the background
type Broadcaster interface {
	// Start launches a broadcast and returns the job at its initial state
	Start(ctx context.Context) (Job, error)
	Job(ctx context.Context, id string) (Job, error)
}
