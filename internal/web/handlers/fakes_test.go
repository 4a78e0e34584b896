package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/services"
	"cuenca-ubate/internal/web/render"
)

type fakeServices struct {
	cfg            *config.Config
	catalog        *fakeCatalog
	moderation     *fakeModeration
	subscriptions  *fakeSubscriptions
	broadcaster    *fakeBroadcaster
	identification *fakeIdentification
	admin          *fakeAdmin
	checks         map[string]services.HealthCheck
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		cfg: &config.Config{
			Environment: "test",
			Storage: config.StorageConfig{
				MaxUploadSize: 1 << 20,
				AllowedTypes:  []string{"image/jpeg", "image/png"},
			},
			Auth: config.AuthConfig{
				SessionSecret: "handlers-test-session-secret",
				SessionMaxAge: time.Hour,
			},
		},
		catalog:        &fakeCatalog{},
		moderation:     &fakeModeration{},
		subscriptions:  &fakeSubscriptions{},
		broadcaster:    &fakeBroadcaster{jobs: map[string]notification.Job{}},
		identification: newFakeIdentification(),
		admin:          &fakeAdmin{},
		checks:         map[string]services.HealthCheck{},
	}
}

func (f *fakeServices) Config() *config.Config { return f.cfg }

func (f *fakeServices) Logger() *observability.Logger { return observability.NewNopLogger() }

func (f *fakeServices) Catalog() gallery.CatalogService { return f.catalog }

func (f *fakeServices) Moderation() moderation.Service { return f.moderation }

func (f *fakeServices) Subscriptions() subscriber.Service { return f.subscriptions }

func (f *fakeServices) Broadcaster() notification.Broadcaster { return f.broadcaster }

func (f *fakeServices) Identification() identification.Service { return f.identification }

func (f *fakeServices) Admin() admin.Service { return f.admin }

func (f *fakeServices) HealthChecks() map[string]services.HealthCheck { return f.checks }

type fakeCatalog struct {
	records []gallery.ImageRecord
	err     error
}

func (f *fakeCatalog) Records(context.Context) ([]gallery.ImageRecord, error) {
	return f.records, f.err
}

func (f *fakeCatalog) Refresh(ctx context.Context) ([]gallery.ImageRecord, error) {
	return f.Records(ctx)
}

func (f *fakeCatalog) Invalidate(context.Context) error { return nil }

type statusCall struct {
	id        int
	status    string
	confirmed bool
}

type fakeModeration struct {
	outcome  moderation.Outcome
	err      error
	statuses []statusCall
	edits    []moderation.EditForm
	deletes  []statusCall
}

func (f *fakeModeration) ChangeStatus(_ context.Context, id int, status string, confirmed bool) (moderation.Outcome, error) {
	f.statuses = append(f.statuses, statusCall{id: id, status: status, confirmed: confirmed})
	if !confirmed {
		return moderation.Outcome{Toast: moderation.Warning("Operación cancelada: se requiere confirmación")}, moderation.ErrConfirmationRequired
	}
	return f.outcome, f.err
}

func (f *fakeModeration) EditRecord(_ context.Context, _ int, form moderation.EditForm) (moderation.Outcome, error) {
	f.edits = append(f.edits, form)
	return f.outcome, f.err
}

func (f *fakeModeration) DeleteRecord(_ context.Context, id int, confirmed bool) (moderation.Outcome, error) {
	f.deletes = append(f.deletes, statusCall{id: id, confirmed: confirmed})
	return f.outcome, f.err
}

type fakeSubscriptions struct {
	result     subscriber.SubscribeResult
	err        error
	requests   []subscriber.SubscribeRequest
	list       subscriber.ListResult
	listErr    error
	deleteErr  error
	deleted    []int
	report     subscriber.BatchReport
	sync       subscriber.SyncReport
	syncCalled bool
}

func (f *fakeSubscriptions) Subscribe(_ context.Context, req subscriber.SubscribeRequest) (subscriber.SubscribeResult, error) {
	f.requests = append(f.requests, req)
	if _, err := req.Validate(); err != nil {
		return subscriber.SubscribeResult{}, err
	}
	return f.result, f.err
}

func (f *fakeSubscriptions) List(context.Context) (subscriber.ListResult, error) {
	return f.list, f.listErr
}

func (f *fakeSubscriptions) Delete(_ context.Context, id int, confirmed bool) error {
	if !confirmed {
		return subscriber.ErrConfirmationRequired
	}
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeSubscriptions) DeleteAll(_ context.Context, confirmed bool) (subscriber.BatchReport, error) {
	if !confirmed {
		return subscriber.BatchReport{}, subscriber.ErrConfirmationRequired
	}
	return f.report, nil
}

func (f *fakeSubscriptions) SyncPending(context.Context) (subscriber.SyncReport, error) {
	f.syncCalled = true
	return f.sync, nil
}

type fakeBroadcaster struct {
	startErr error
	started  int
	jobs     map[string]notification.Job
}

func (f *fakeBroadcaster) Start(context.Context) (notification.Job, error) {
	if f.startErr != nil {
		return notification.Job{}, f.startErr
	}
	f.started++
	job := notification.Job{
		ID:       fmt.Sprintf("job-%d", f.started),
		Status:   notification.JobRunning,
		Progress: notification.Progress{Total: 2},
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeBroadcaster) Job(_ context.Context, id string) (notification.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return notification.Job{}, fmt.Errorf("%w: %s", notification.ErrJobNotFound, id)
	}
	return job, nil
}

type fakeIdentification struct {
	mu        sync.Mutex
	flows     map[string]identification.Flow
	uploads   []identification.PhotoUpload
	actions   []string
	actionErr error
	plants    []identification.SavedPlant
}

func newFakeIdentification() *fakeIdentification {
	return &fakeIdentification{flows: map[string]identification.Flow{}}
}

func (f *fakeIdentification) Start(context.Context) (identification.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flow := identification.NewFlow(fmt.Sprintf("flow-%d", len(f.flows)+1), time.Now())
	f.flows[flow.ID] = flow
	return flow, nil
}

func (f *fakeIdentification) Get(_ context.Context, id string) (identification.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flow, ok := f.flows[id]
	if !ok {
		return identification.Flow{}, fmt.Errorf("%w: %s", identification.ErrFlowNotFound, id)
	}
	return flow, nil
}

func (f *fakeIdentification) SelectPhoto(ctx context.Context, id string, photo identification.PhotoUpload) (identification.Flow, error) {
	flow, err := f.Get(ctx, id)
	if err != nil {
		return flow, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, photo)
	flow.SelectImage(identification.Photo{Key: "staged/" + id, Filename: photo.Filename, ContentType: photo.ContentType}, time.Now())
	f.flows[id] = flow
	return flow, nil
}

func (f *fakeIdentification) action(ctx context.Context, name, id string) (identification.Flow, error) {
	flow, err := f.Get(ctx, id)
	if err != nil {
		return flow, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, name)
	return flow, f.actionErr
}

func (f *fakeIdentification) Identify(ctx context.Context, id string) (identification.Flow, error) {
	return f.action(ctx, "identify", id)
}

func (f *fakeIdentification) Save(ctx context.Context, id string) (identification.Flow, error) {
	return f.action(ctx, "save", id)
}

func (f *fakeIdentification) SaveUnidentified(ctx context.Context, id string) (identification.Flow, error) {
	return f.action(ctx, "save-unidentified", id)
}

func (f *fakeIdentification) Reset(ctx context.Context, id string) (identification.Flow, error) {
	return f.action(ctx, "reset", id)
}

func (f *fakeIdentification) Photo(ctx context.Context, id string) ([]byte, string, error) {
	flow, err := f.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if flow.Photo == nil {
		return nil, "", identification.ErrNoImage
	}
	return []byte("picture"), flow.Photo.ContentType, nil
}

func (f *fakeIdentification) SavedPlants(context.Context) ([]identification.SavedPlant, error) {
	return f.plants, nil
}

func (f *fakeIdentification) SavedPlantPhoto(_ context.Context, id string, thumb bool) ([]byte, string, error) {
	for _, p := range f.plants {
		if p.ID == id {
			if thumb {
				return []byte("thumb"), "image/jpeg", nil
			}
			return []byte("full"), "image/jpeg", nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", identification.ErrPlantNotFound, id)
}

type fakeAdmin struct {
	change    admin.ChangeResult
	changeErr error
	changes   []admin.PasswordChange
}

func (f *fakeAdmin) Login(_ context.Context, creds admin.Credentials) (admin.Session, error) {
	creds, err := creds.Validate()
	if err != nil {
		return admin.Session{}, err
	}
	if creds.Username != "admin" || creds.Password != "secreto" {
		return admin.Session{}, admin.ErrInvalidCredentials
	}
	return admin.Session{Username: creds.Username, LoggedAt: time.Now()}, nil
}

func (f *fakeAdmin) ChangePassword(_ context.Context, change admin.PasswordChange) (admin.ChangeResult, error) {
	f.changes = append(f.changes, change)
	return f.change, f.changeErr
}

// agent replays cookies between requests like a browser
type agent struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newAgent(t *testing.T, svc *fakeServices) *agent {
	t.Helper()
	renderer, err := render.New()
	require.NoError(t, err)
	return &agent{
		t:       t,
		router:  New(svc, renderer).Routes(),
		cookies: map[string]*http.Cookie{},
	}
}

func (a *agent) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		a.cookies[c.Name] = c
	}
	return rec
}

func (a *agent) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *agent) htmx(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("HX-Request", "true")
	return a.do(req)
}

func (a *agent) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *agent) login() {
	a.t.Helper()
	rec := a.post("/login", url.Values{"username": {"admin"}, "password": {"secreto"}})
	require.Equal(a.t, http.StatusSeeOther, rec.Code)
}

func ptr(v float64) *float64 { return &v }
