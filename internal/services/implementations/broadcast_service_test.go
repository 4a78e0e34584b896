package implementations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
)

type blockingSender struct {
	started chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, _ notification.Recipient, _ notification.Message) error {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func active(v bool) *bool { return &v }

func TestBroadcastService_RunsToCompletion(t *testing.T) {
	remote := &fakeRemote{subscribers: []subscriber.Subscriber{
		{ID: 1, Nombre: "Ana", Email: "ana@example.com"},
		{ID: 2, Nombre: "Luis", Email: "luis@example.com", Activo: active(true)},
		{ID: 3, Nombre: "Inactiva", Email: "off@example.com", Activo: active(false)},
	}}
	sender := &recordingSender{}
	svc := NewBroadcastService(remote, NewNotificationDispatcher(sender, 0, 1, nil), time.Minute, nil)
	defer svc.Close()
	ctx := context.Background()

	job, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.JobRunning, job.Status)
	assert.Equal(t, 2, job.Progress.Total)

	require.Eventually(t, func() bool {
		j, err := svc.Job(ctx, job.ID)
		return err == nil && j.Finished()
	}, 2*time.Second, 10*time.Millisecond)

	done, err := svc.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.JobCompleted, done.Status)
	require.NotNil(t, done.Summary)
	assert.Equal(t, notification.Summary{Total: 2, Succeeded: 2}, *done.Summary)
	assert.Equal(t, 2, done.Progress.Attempted)
	assert.NotNil(t, done.FinishedAt)

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, notification.TemplateNewsletter, msgs[0].Msg.Template)
	assert.Equal(t, notification.BroadcastText, msgs[0].Msg.Params["message"])
}

func TestBroadcastService_NoRecipients(t *testing.T) {
	remote := &fakeRemote{subscribers: []subscriber.Subscriber{{ID: 1, Email: "off@example.com", Activo: active(false)}}}
	svc := NewBroadcastService(remote, NewNotificationDispatcher(&recordingSender{}, 0, 1, nil), time.Minute, nil)
	defer svc.Close()

	_, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, notification.ErrNoRecipients)
}

func TestBroadcastService_ListFailure(t *testing.T) {
	boom := errors.New("backend down")
	svc := NewBroadcastService(&fakeRemote{listErr: boom}, NewNotificationDispatcher(&recordingSender{}, 0, 1, nil), time.Minute, nil)
	defer svc.Close()

	_, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestBroadcastService_UnknownJob(t *testing.T) {
	svc := NewBroadcastService(&fakeRemote{}, NewNotificationDispatcher(&recordingSender{}, 0, 1, nil), time.Minute, nil)
	defer svc.Close()

	_, err := svc.Job(context.Background(), "nope")
	assert.ErrorIs(t, err, notification.ErrJobNotFound)
}

func TestBroadcastService_OutlivesRequestAndStopsOnClose(t *testing.T) {
	remote := &fakeRemote{subscribers: []subscriber.Subscriber{
		{ID: 1, Nombre: "Ana", Email: "ana@example.com"},
		{ID: 2, Nombre: "Luis", Email: "luis@example.com"},
	}}
	sender := &blockingSender{started: make(chan struct{}, 1)}
	svc := NewBroadcastService(remote, NewNotificationDispatcher(sender, 0, 1, nil), time.Minute, nil)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	job, err := svc.Start(reqCtx)
	require.NoError(t, err)
	cancelReq()

	<-sender.started
	running, err := svc.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.JobRunning, running.Status)

	svc.Close()

	stopped, err := svc.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.JobCancelled, stopped.Status)
	require.NotNil(t, stopped.Summary)
	assert.Equal(t, 0, stopped.Summary.Succeeded)
	assert.Equal(t, 2, stopped.Summary.Failed)
}
