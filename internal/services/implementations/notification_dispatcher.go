package implementations

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/observability"
)

// NotificationDispatcher sends one message to many recipients with a minimum
// interval between sends and a bounded number of sends in flight
type NotificationDispatcher struct {
	sender      notification.Sender
	interval    time.Duration
	concurrency int
	logger      *observability.Logger
	sent        metric.Int64Counter
}

// NewNotificationDispatcher creates a dispatcher. A concurrency below 1 means sequential.
func NewNotificationDispatcher(sender notification.Sender, interval time.Duration, concurrency int, logger *observability.Logger) *NotificationDispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	sent, _ := otel.Meter("cuenca-ubate/services").Int64Counter("notifications.sent",
		metric.WithDescription("Notification send attempts"))

	return &NotificationDispatcher{
		sender:      sender,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger,
		sent:        sent,
	}
}

var _ notification.Dispatcher = (*NotificationDispatcher)(nil)

// Dispatch attempts every recipient once. Failures are isolated per recipient and
// recipients never attempted because ctx ended count as failed, so
// Succeeded+Failed always equals Total.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, recipients []notification.Recipient, msg notification.Message, onProgress notification.ProgressFunc) notification.Summary {
	total := len(recipients)
	if total == 0 {
		return notification.Summary{}
	}

	var limiter *rate.Limiter
	if d.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(d.interval), 1)
	}

	var mu sync.Mutex
	progress := notification.Progress{Total: total}
	report := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		progress.Attempted++
		if ok {
			progress.Succeeded++
		} else {
			progress.Failed++
		}
		if onProgress != nil {
			onProgress(progress)
		}
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, r := range recipients {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
			}
			err := d.sender.Send(ctx, r, msg)
			d.record(ctx, err)
			if err != nil {
				d.logger.Warn(ctx).Err(err).Str("recipient", r.Email).Msg("Notification send failed")
			}
			report(err == nil)
			return nil
		})
	}
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	summary := notification.Summary{
		Total:     total,
		Succeeded: progress.Succeeded,
		Failed:    total - progress.Succeeded,
	}
	if skipped := summary.Failed - progress.Failed; skipped > 0 {
		progress.Failed += skipped
		d.logger.Warn(ctx).Int("skipped", skipped).Msg("Notification batch cancelled before every recipient was attempted")
		if onProgress != nil {
			onProgress(progress)
		}
	}

	d.logger.Info(ctx).
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Notification batch finished")
	return summary
}

func (d *NotificationDispatcher) record(ctx context.Context, err error) {
	if d.sent == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	d.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
