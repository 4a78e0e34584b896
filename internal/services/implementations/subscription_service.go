package implementations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/platform/backend"
)

// SubscriptionService writes subscribers to the backend first and keeps a local mirror
type SubscriptionService struct {
	remote subscriber.Remote
	mirror subscriber.Mirror   // can be nil
	sender notification.Sender // can be nil
	logger *observability.Logger
	now    func() time.Time
}

// NewSubscriptionService creates a subscription service
func NewSubscriptionService(remote subscriber.Remote, mirror subscriber.Mirror, sender notification.Sender, logger *observability.Logger) *SubscriptionService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &SubscriptionService{
		remote: remote,
		mirror: mirror,
		sender: sender,
		logger: logger,
		now:    time.Now,
	}
}

var _ subscriber.Service = (*SubscriptionService)(nil)

// Subscribe registers a visitor. A backend failure still succeeds when the
// mirror keeps a pending copy.
func (s *SubscriptionService) Subscribe(ctx context.Context, req subscriber.SubscribeRequest) (subscriber.SubscribeResult, error) {
	req, err := req.Validate()
	if err != nil {
		return subscriber.SubscribeResult{}, err
	}

	var result subscriber.SubscribeResult
	remote, err := s.remote.Subscribe(ctx, req.Nombre, req.Email)
	switch {
	case err != nil:
		s.logger.Warn(ctx).Err(err).Str("email", req.Email).Msg("Backend subscribe failed, keeping a pending local copy")
	case remote.Success:
		result.Confirmed = true
	case remote.IsDuplicate():
		result.Confirmed = true
		result.Duplicate = true
	default:
		s.logger.Warn(ctx).Str("email", req.Email).Str("message", remote.Message).Msg("Backend refused subscription, keeping a pending local copy")
	}

	result.Mirrored = s.mirrorEntry(ctx, req, !result.Confirmed)
	if !result.Confirmed && !result.Mirrored {
		return result, fmt.Errorf("%w: %s", subscriber.ErrNotSaved, req.Email)
	}

	if !result.Duplicate {
		result.WelcomeSent = s.welcome(ctx, req)
	}

	s.logger.Info(ctx).
		Str("email", req.Email).
		Bool("confirmed", result.Confirmed).
		Bool("duplicate", result.Duplicate).
		Msg("Subscription processed")
	return result, nil
}

func (s *SubscriptionService) mirrorEntry(ctx context.Context, req subscriber.SubscribeRequest, pending bool) bool {
	if s.mirror == nil {
		return false
	}
	_, err := s.mirror.Save(ctx, subscriber.MirrorEntry{
		ID:                      uuid.NewString(),
		Nombre:                  req.Nombre,
		Email:                   subscriber.NormalizeEmail(req.Email),
		Fecha:                   s.now(),
		Activo:                  true,
		PendienteSincronizacion: pending,
	})
	if err != nil {
		s.logger.Warn(ctx).Err(err).Str("email", req.Email).Msg("Failed to mirror subscriber")
		return false
	}
	if !pending {
		// an older pending copy of the same email is now confirmed
		if err := s.mirror.MarkSynced(ctx, req.Email); err != nil {
			s.logger.Warn(ctx).Err(err).Str("email", req.Email).Msg("Failed to clear pending flag")
		}
	}
	return true
}

func (s *SubscriptionService) welcome(ctx context.Context, req subscriber.SubscribeRequest) bool {
	if s.sender == nil {
		return false
	}
	to := notification.Recipient{Name: req.Nombre, Email: req.Email}
	if err := s.sender.Send(ctx, to, notification.WelcomeMessage(s.now())); err != nil {
		s.logger.Warn(ctx).Err(err).Str("email", req.Email).Msg("Welcome email failed")
		return false
	}
	return true
}

// List returns the backend's subscribers, or the mirror when the backend is unreachable
func (s *SubscriptionService) List(ctx context.Context) (subscriber.ListResult, error) {
	subs, err := s.remote.ListSubscribers(ctx)
	if err == nil {
		return subscriber.ListResult{Subscribers: subs}, nil
	}
	if s.mirror == nil {
		return subscriber.ListResult{}, fmt.Errorf("failed to list subscribers: %w", err)
	}

	s.logger.Warn(ctx).Err(err).Msg("Backend subscriber list failed, using local mirror")
	entries, mirrorErr := s.mirror.List(ctx)
	if mirrorErr != nil {
		return subscriber.ListResult{}, fmt.Errorf("failed to list subscribers: %w", errors.Join(err, mirrorErr))
	}
	return subscriber.ListResult{Subscribers: subscriber.FromMirror(entries), FromMirror: true}, nil
}

// Delete removes one subscriber from the backend
func (s *SubscriptionService) Delete(ctx context.Context, id int, confirmed bool) error {
	if !confirmed {
		return subscriber.ErrConfirmationRequired
	}
	if err := s.remote.DeleteSubscriber(ctx, id); err != nil {
		if backend.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %d", subscriber.ErrSubscriberNotFound, id)
		}
		return fmt.Errorf("failed to delete subscriber %d: %w", id, err)
	}
	s.logger.Info(ctx).Int("subscriber_id", id).Msg("Subscriber deleted")
	return nil
}

// DeleteAll removes every active subscriber one by one and tallies the outcome
func (s *SubscriptionService) DeleteAll(ctx context.Context, confirmed bool) (subscriber.BatchReport, error) {
	if !confirmed {
		return subscriber.BatchReport{}, subscriber.ErrConfirmationRequired
	}

	subs, err := s.remote.ListSubscribers(ctx)
	if err != nil {
		return subscriber.BatchReport{}, fmt.Errorf("failed to list subscribers: %w", err)
	}
	active := subscriber.Active(subs)

	report := subscriber.BatchReport{Total: len(active)}
	for _, sub := range active {
		if err := s.remote.DeleteSubscriber(ctx, sub.ID); err != nil {
			s.logger.Warn(ctx).Err(err).Int("subscriber_id", sub.ID).Msg("Failed to delete subscriber")
			report.Failed++
			continue
		}
		report.Deleted++
		if s.mirror != nil {
			if err := s.mirror.DeleteByEmail(ctx, sub.Email); err != nil {
				s.logger.Warn(ctx).Err(err).Str("email", sub.Email).Msg("Failed to delete mirrored subscriber")
			}
		}
	}

	s.logger.Info(ctx).Int("deleted", report.Deleted).Int("failed", report.Failed).Msg("Bulk subscriber delete finished")
	return report, nil
}

// SyncPending pushes mirror entries the backend never confirmed
func (s *SubscriptionService) SyncPending(ctx context.Context) (subscriber.SyncReport, error) {
	if s.mirror == nil {
		return subscriber.SyncReport{}, nil
	}
	pending, err := s.mirror.ListPending(ctx)
	if err != nil {
		return subscriber.SyncReport{}, fmt.Errorf("failed to list pending subscribers: %w", err)
	}

	var report subscriber.SyncReport
	for _, entry := range pending {
		res, err := s.remote.Subscribe(ctx, entry.Nombre, entry.Email)
		if err != nil || !(res.Success || res.IsDuplicate()) {
			s.logger.Warn(ctx).Err(err).Str("email", entry.Email).Msg("Pending subscriber still not accepted")
			report.Failed++
			continue
		}
		if err := s.mirror.MarkSynced(ctx, entry.Email); err != nil {
			s.logger.Warn(ctx).Err(err).Str("email", entry.Email).Msg("Failed to clear pending flag")
			report.Failed++
			continue
		}
		report.Synced++
	}
	return report, nil
}
