package implementations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/platform/cache"
)

type fakeBackend struct {
	mu       sync.Mutex
	records  []gallery.ImageRecord
	listErr  error
	opErr    error
	lists    int
	statuses map[int]gallery.Status
	edits    map[int]gallery.Edit
	deleted  []int
}

func (f *fakeBackend) ListImages(context.Context) ([]gallery.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.records), nil
}

func (f *fakeBackend) ChangeStatus(_ context.Context, id int, status gallery.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opErr != nil {
		return f.opErr
	}
	if f.statuses == nil {
		f.statuses = map[int]gallery.Status{}
	}
	f.statuses[id] = status
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Estado = status
		}
	}
	return nil
}

func (f *fakeBackend) EditImage(_ context.Context, id int, edit gallery.Edit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opErr != nil {
		return f.opErr
	}
	if f.edits == nil {
		f.edits = map[int]gallery.Edit{}
	}
	f.edits[id] = edit
	return nil
}

func (f *fakeBackend) DeleteImage(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opErr != nil {
		return f.opErr
	}
	f.deleted = append(f.deleted, id)
	f.records = slices.DeleteFunc(f.records, func(r gallery.ImageRecord) bool { return r.ID == id })
	return nil
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// memSnapshotCache stores JSON like the Redis client does
type memSnapshotCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	getErr  error
	deletes int
}

func newMemSnapshotCache() *memSnapshotCache {
	return &memSnapshotCache{values: map[string][]byte{}}
}

func (m *memSnapshotCache) Get(_ context.Context, key string, result interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	data, ok := m.values[key]
	if !ok {
		return fmt.Errorf("%w: %s", cache.ErrCacheMiss, key)
	}
	return json.Unmarshal(data, result)
}

func (m *memSnapshotCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *memSnapshotCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.values, key)
	return nil
}

func (m *memSnapshotCache) Health(context.Context) error { return nil }

func (m *memSnapshotCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

type fakeRemote struct {
	mu          sync.Mutex
	subscribe   func(nombre, email string) (subscriber.RemoteResult, error)
	subscribed  []string
	subscribers []subscriber.Subscriber
	listErr     error
	deleteErr   map[int]error
	deleted     []int
}

func (f *fakeRemote) Subscribe(_ context.Context, nombre, email string) (subscriber.RemoteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, email)
	if f.subscribe != nil {
		return f.subscribe(nombre, email)
	}
	return subscriber.RemoteResult{Success: true}, nil
}

func (f *fakeRemote) ListSubscribers(context.Context) ([]subscriber.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.subscribers), nil
}

func (f *fakeRemote) DeleteSubscriber(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMirror struct {
	mu      sync.Mutex
	entries []subscriber.MirrorEntry
	saveErr error
	listErr error
	synced  []string
	removed []string
}

func (f *fakeMirror) Save(_ context.Context, entry subscriber.MirrorEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return false, f.saveErr
	}
	for _, e := range f.entries {
		if e.Email == entry.Email {
			return false, nil
		}
	}
	f.entries = append(f.entries, entry)
	return true, nil
}

func (f *fakeMirror) List(context.Context) ([]subscriber.MirrorEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.entries), nil
}

func (f *fakeMirror) ListPending(context.Context) ([]subscriber.MirrorEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []subscriber.MirrorEntry
	for _, e := range f.entries {
		if e.PendienteSincronizacion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeMirror) MarkSynced(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, email)
	for i := range f.entries {
		if f.entries[i].Email == subscriber.NormalizeEmail(email) {
			f.entries[i].PendienteSincronizacion = false
		}
	}
	return nil
}

func (f *fakeMirror) DeleteByEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, email)
	return nil
}

type sentMessage struct {
	To  notification.Recipient
	Msg notification.Message
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	at   []time.Time
	fail func(to notification.Recipient) error
}

func (r *recordingSender) Send(_ context.Context, to notification.Recipient, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.at = append(r.at, time.Now())
	if r.fail != nil {
		if err := r.fail(to); err != nil {
			return err
		}
	}
	r.sent = append(r.sent, sentMessage{To: to, Msg: msg})
	return nil
}

func (r *recordingSender) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}

func (r *recordingSender) attempts() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.at)
}

type fakeIdentifier struct {
	result   identification.Result
	err      error
	calls    int
	received []byte
}

func (f *fakeIdentifier) Identify(_ context.Context, image io.Reader, _ string) (identification.Result, error) {
	f.calls++
	data, err := io.ReadAll(image)
	if err != nil {
		return identification.Result{}, err
	}
	f.received = data
	return f.result, f.err
}

type memPhotos struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemPhotos() *memPhotos {
	return &memPhotos{objects: map[string][]byte{}}
}

func (m *memPhotos) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = slices.Clone(data)
	return nil
}

func (m *memPhotos) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (m *memPhotos) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memPhotos) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type fakeUploader struct {
	requests []identification.UploadRequest
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, req identification.UploadRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

type memPlants struct {
	plants    []identification.SavedPlant
	createErr error
}

func (m *memPlants) Create(_ context.Context, plant identification.SavedPlant) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.plants = append(m.plants, plant)
	return nil
}

func (m *memPlants) List(context.Context) ([]identification.SavedPlant, error) {
	return slices.Clone(m.plants), nil
}

func (m *memPlants) GetByID(_ context.Context, id string) (identification.SavedPlant, error) {
	for _, p := range m.plants {
		if p.ID == id {
			return p, nil
		}
	}
	return identification.SavedPlant{}, identification.ErrPlantNotFound
}

type fakeAuth struct {
	verify    func(username, password string) (bool, error)
	change    admin.ChangeResult
	changeErr error
	changes   int
}

func (f *fakeAuth) Verify(_ context.Context, username, password string) (bool, error) {
	return f.verify(username, password)
}

func (f *fakeAuth) ChangePassword(context.Context, string, string, string) (admin.ChangeResult, error) {
	f.changes++
	return f.change, f.changeErr
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]admin.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]admin.User{}}
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (admin.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return admin.User{}, admin.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, user admin.User) (admin.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return admin.User{}, admin.ErrUserExists
	}
	user.ID = len(m.users) + 1
	m.users[user.Username] = user
	return user, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return admin.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[username] = u
	return nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}
