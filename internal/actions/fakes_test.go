package actions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"castplane/internal/dispatch"
	"castplane/internal/events"
	"castplane/internal/identity"
	"castplane/internal/plan"
	"castplane/internal/retry"
	"castplane/internal/store"

	"github.com/google/uuid"
)

var errTransient = errors.New("connection reset")

// mockProjects is an in-memory store.ProjectStore with error hooks.
type mockProjects struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*store.Project

	getErr    error
	createErr error
	deleteErr error
	renameErr error

	renamed []string
}

func newMockProjects(ps ...*store.Project) *mockProjects {
	m := &mockProjects{projects: make(map[uuid.UUID]*store.Project)}
	for _, p := range ps {
		m.projects[p.ID] = p
	}
	return m
}

func (m *mockProjects) GetProject(ctx context.Context, id uuid.UUID, userID string) (*store.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *mockProjects) CreateProject(ctx context.Context, p *store.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjects) DeleteProject(ctx context.Context, id uuid.UUID, userID string) (*store.DeletedProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(m.projects, id)
	return &store.DeletedProject{InputURL: p.InputURL}, nil
}

func (m *mockProjects) UpdateDisplayName(ctx context.Context, id uuid.UUID, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renameErr != nil {
		return m.renameErr
	}
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return store.ErrNotFound
	}
	p.Name = name
	m.renamed = append(m.renamed, name)
	return nil
}

// mockBlobs fails the first failures calls.
type mockBlobs struct {
	mu       sync.Mutex
	failures int
	calls    int
	deleted  []string
}

func (m *mockBlobs) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errTransient
	}
	m.deleted = append(m.deleted, url)
	return nil
}

// mockBus fails sends per job kind ("" for the uploaded event).
type mockBus struct {
	mu        sync.Mutex
	failures  map[plan.ArtifactKind]int
	calls     map[plan.ArtifactKind]int
	delivered []events.Event

	// When hold is set, Send reports on entered and waits for hold to close.
	hold    chan struct{}
	entered chan struct{}
}

func newMockBus() *mockBus {
	return &mockBus{
		failures: make(map[plan.ArtifactKind]int),
		calls:    make(map[plan.ArtifactKind]int),
	}
}

func (b *mockBus) Send(ctx context.Context, e events.Event) error {
	var kind plan.ArtifactKind
	if data, ok := e.Data.(events.RetryJobData); ok {
		kind = data.Job
	}

	if b.hold != nil {
		b.entered <- struct{}{}
		<-b.hold
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[kind]++
	if b.calls[kind] <= b.failures[kind] {
		return errTransient
	}
	b.delivered = append(b.delivered, e)
	return nil
}

func (b *mockBus) retryJobs() []events.RetryJobData {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.RetryJobData
	for _, e := range b.delivered {
		if data, ok := e.Data.(events.RetryJobData); ok {
			out = append(out, data)
		}
	}
	return out
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

type fixture struct {
	svc      *Service
	projects *mockProjects
	blobs    *mockBlobs
	bus      *mockBus
}

func newFixture(t *testing.T, ps ...*store.Project) *fixture {
	t.Helper()

	f := &fixture{
		projects: newMockProjects(ps...),
		blobs:    &mockBlobs{},
		bus:      newMockBus(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d := dispatch.New(f.bus, retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: noSleep}, dispatch.WithLogger(logger))

	svc, err := New(Deps{
		Projects:   f.projects,
		Blobs:      f.blobs,
		Dispatcher: d,
		Logger:     logger,
	}, Options{
		MaxFileSize: 100 * 1024 * 1024,
		Cleanup:     retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: noSleep},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.svc = svc
	return f
}

func asUser(userID string, claims ...string) context.Context {
	return identity.NewContext(context.Background(), identity.New(userID, identity.ClaimsCapability(claims)))
}

func newProject(userID string, kinds ...plan.ArtifactKind) *store.Project {
	return &store.Project{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "episode.mp3",
		InputURL:  "https://blob.example/episode.mp3",
		FileName:  "episode.mp3",
		FileSize:  1024,
		Status:    store.ProjectStatusUploaded,
		Artifacts: plan.NewArtifacts(kinds...),
		CreatedAt: time.Now(),
	}
}
