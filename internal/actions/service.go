// Package actions implements the project lifecycle: upload validation,
// creation, deletion, renaming and plan-upgrade reconciliation.
//
// Every action authenticates the caller from the context, scopes store access
// by the caller's user id, and reports failures as the typed errors in this
// package so the transport can map them to responses.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"castplane/internal/blob"
	"castplane/internal/dispatch"
	"castplane/internal/events"
	"castplane/internal/identity"
	"castplane/internal/observability"
	"castplane/internal/plan"
	"castplane/internal/retry"
	"castplane/internal/store"

	"github.com/google/uuid"
)

// DefaultMaxFileSize is the upload limit when Options leaves it unset.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// JobDispatcher sends generation events. *dispatch.Dispatcher implements it.
type JobDispatcher interface {
	DispatchJobs(ctx context.Context, jobs []dispatch.Job) (dispatch.Report, error)
	DispatchUploaded(ctx context.Context, data events.UploadedData) error
}

// Deps are the collaborators of the Service. All but Logger and Instruments
// are required.
type Deps struct {
	Projects    store.ProjectStore
	Blobs       blob.Storage
	Dispatcher  JobDispatcher
	Logger      *slog.Logger
	Instruments *observability.Instruments
}

// Options tune limits and the cleanup retry policy.
type Options struct {
	MaxFileSize int64

	// Cleanup governs blob deletion after a project is removed.
	// Zero values mean 3 attempts from a 200ms base.
	Cleanup retry.Policy
}

// Service runs the project actions.
type Service struct {
	projects    store.ProjectStore
	blobs       blob.Storage
	dispatcher  JobDispatcher
	logger      *slog.Logger
	metrics     *observability.Instruments
	maxFileSize int64
	cleanup     retry.Policy

	now   func() time.Time
	newID func() uuid.UUID

	// detached work still running after its request context was dropped
	mu     sync.Mutex
	active int
	idle   chan struct{}
}

// New checks that every required collaborator is present.
func New(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Projects == nil:
		return nil, &DependencyError{Name: "Projects"}
	case deps.Blobs == nil:
		return nil, &DependencyError{Name: "Blobs"}
	case deps.Dispatcher == nil:
		return nil, &DependencyError{Name: "Dispatcher"}
	}

	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Cleanup.MaxAttempts <= 0 {
		opts.Cleanup.MaxAttempts = 3
	}
	if opts.Cleanup.BaseDelay <= 0 {
		opts.Cleanup.BaseDelay = 200 * time.Millisecond
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		projects:    deps.Projects,
		blobs:       deps.Blobs,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Instruments,
		maxFileSize: opts.MaxFileSize,
		cleanup:     opts.Cleanup,
		now:         time.Now,
		newID:       uuid.New,
	}, nil
}

// MaxFileSize is the upload limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// detach marks the start of work that must finish even if the caller goes
// away. The returned context ignores the caller's cancellation and the
// returned func must be called when the work is done.
func (s *Service) detach(ctx context.Context) (context.Context, func()) {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()

	var once sync.Once
	return context.WithoutCancel(ctx), func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.active--
			if s.active == 0 && s.idle != nil {
				close(s.idle)
				s.idle = nil
			}
		})
	}
}

// Drain waits until all detached work has finished or ctx is done. Call it
// after the server has stopped taking requests.
func (s *Service) Drain(ctx context.Context) error {
	s.mu.Lock()
	if s.active == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		n := s.active
		s.mu.Unlock()
		return fmt.Errorf("%d detached actions still running: %w", n, ctx.Err())
	}
}

// authenticate returns the identity attached to ctx.
func authenticate(ctx context.Context, action string) (*identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok || id.UserID == "" {
		return nil, &AuthError{Action: action}
	}
	return id, nil
}

// currentTier resolves the caller's plan. Failure is never downgraded to free.
func currentTier(id *identity.Identity) (plan.Tier, error) {
	tier, err := id.Tier()
	if err != nil {
		return plan.TierFree, fmt.Errorf("failed to resolve plan: %w", err)
	}
	return tier, nil
}

// lookup reads a project owned by userID, mapping not-found to ErrNotFound.
func (s *Service) lookup(ctx context.Context, projectID, userID string) (*store.Project, error) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return nil, ErrNotFound
	}

	project, err := s.projects.GetProject(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}
