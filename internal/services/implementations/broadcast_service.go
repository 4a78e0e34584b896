package implementations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/observability"
)

// SubscriberLister is the part of the backend that lists newsletter subscribers
type SubscriberLister interface {
	ListSubscribers(ctx context.Context) ([]subscriber.Subscriber, error)
}

// BroadcastService runs newsletter broadcasts in the background and keeps
// their progress in an expiring registry
type BroadcastService struct {
	subscribers SubscriberLister
	dispatcher  notification.Dispatcher
	logger      *observability.Logger
	now         func() time.Time

	mu   sync.Mutex
	jobs *gocache.Cache

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroadcastService creates a broadcaster; finished jobs are forgotten after jobTTL
func NewBroadcastService(subscribers SubscriberLister, dispatcher notification.Dispatcher, jobTTL time.Duration, logger *observability.Logger) *BroadcastService {
	if jobTTL <= 0 {
		jobTTL = time.Hour
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	base, cancel := context.WithCancel(context.Background())
	return &BroadcastService{
		subscribers: subscribers,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         time.Now,
		jobs:        gocache.New(jobTTL, 2*jobTTL),
		base:        base,
		cancel:      cancel,
	}
}

var _ notification.Broadcaster = (*BroadcastService)(nil)

// Start launches a broadcast to the active subscribers
func (b *BroadcastService) Start(ctx context.Context) (notification.Job, error) {
	subs, err := b.subscribers.ListSubscribers(ctx)
	if err != nil {
		return notification.Job{}, fmt.Errorf("failed to load subscribers: %w", err)
	}

	active := subscriber.Active(subs)
	if len(active) == 0 {
		return notification.Job{}, notification.ErrNoRecipients
	}

	recipients := make([]notification.Recipient, 0, len(active))
	for _, s := range active {
		recipients = append(recipients, notification.Recipient{Name: s.Nombre, Email: s.Email})
	}

	job := notification.Job{
		ID:        uuid.NewString(),
		Status:    notification.JobRunning,
		Progress:  notification.Progress{Total: len(recipients)},
		StartedAt: b.now(),
	}
	b.store(job)

	// The job outlives the request; only Close stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(b.base, cancel)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		defer stop()
		b.run(runCtx, job.ID, recipients)
	}()

	b.logger.Info(ctx).Str("job_id", job.ID).Int("recipients", len(recipients)).Msg("Broadcast started")
	return job, nil
}

// Job returns the current state of a broadcast
func (b *BroadcastService) Job(_ context.Context, id string) (notification.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.jobs.Get(id)
	if !ok {
		return notification.Job{}, fmt.Errorf("%w: %s", notification.ErrJobNotFound, id)
	}
	return v.(notification.Job), nil
}

// Close cancels running broadcasts and waits for them to stop
func (b *BroadcastService) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *BroadcastService) run(ctx context.Context, id string, recipients []notification.Recipient) {
	msg := notification.BroadcastMessage(b.now())
	summary := b.dispatcher.Dispatch(ctx, recipients, msg, func(p notification.Progress) {
		b.update(id, func(j *notification.Job) { j.Progress = p })
	})

	finished := b.now()
	status := notification.JobCompleted
	if ctx.Err() != nil {
		status = notification.JobCancelled
	}
	b.update(id, func(j *notification.Job) {
		j.Status = status
		j.Summary = &summary
		j.FinishedAt = &finished
	})

	b.logger.Info(ctx).
		Str("job_id", id).
		Str("status", string(status)).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Broadcast finished")
}

func (b *BroadcastService) store(job notification.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs.Set(job.ID, job, gocache.DefaultExpiration)
}

func (b *BroadcastService) update(id string, fn func(*notification.Job)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.jobs.Get(id)
	if !ok {
		return
	}
	job := v.(notification.Job)
	fn(&job)
	b.jobs.Set(id, job, gocache.DefaultExpiration)
}
