package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"castplane/internal/identity"
	"castplane/internal/plan"
)

func TestNew_MissingDependencies(t *testing.T) {
	full := Deps{
		Projects: newMockProjects(),
		Blobs:    &mockBlobs{},
	}

	tests := []struct {
		name string
		deps Deps
		want string
	}{
		{"projects", Deps{Blobs: full.Blobs}, "Projects"},
		{"blobs", Deps{Projects: full.Projects}, "Blobs"},
		{"dispatcher", Deps{Projects: full.Projects, Blobs: full.Blobs}, "Dispatcher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.deps, Options{})
			var depErr *DependencyError
			if !errors.As(err, &depErr) {
				t.Fatalf("expected *DependencyError, got %v", err)
			}
			if depErr.Name != tt.want {
				t.Errorf("got missing %s, want %s", depErr.Name, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t)
	svc, err := New(Deps{Projects: f.projects, Blobs: f.blobs, Dispatcher: f.svc.dispatcher}, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if svc.MaxFileSize() != DefaultMaxFileSize {
		t.Errorf("got MaxFileSize %d, want %d", svc.MaxFileSize(), DefaultMaxFileSize)
	}
	if svc.cleanup.MaxAttempts != 3 {
		t.Errorf("got cleanup attempts %d, want 3", svc.cleanup.MaxAttempts)
	}
	if svc.cleanup.Delay(0).Milliseconds() != 200 {
		t.Errorf("got cleanup base delay %v, want 200ms", svc.cleanup.Delay(0))
	}
}

func TestActions_RequireIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := newProject("user_1").ID.String()

	tests := []struct {
		name    string
		run     func() error
		message string
	}{
		{"validate", func() error { return f.svc.ValidateUpload(ctx, UploadCheck{FileSize: 1}) }, "Unauthorized"},
		{"create", func() error { _, err := f.svc.Create(ctx, CreateInput{}); return err }, "Unauthorized"},
		{"delete", func() error { return f.svc.Delete(ctx, id) }, "Unauthorized, You Must Be Logged In To Delete A Project"},
		{"rename", func() error { return f.svc.Rename(ctx, id, "x") }, "Unauthorized, You Must Be Logged In To Update A Project Display Name"},
		{"generate", func() error { _, err := f.svc.GenerateMissingFeatures(ctx, id); return err }, "Unauthorized, You Must Be Logged In To Generate Missing Features"},
		{"retry", func() error { return f.svc.RetryJob(ctx, id, "hashtags") }, "Unauthorized, You Must Be Logged In To Retry A Job"},
		{"get", func() error { _, err := f.svc.GetProject(ctx, id); return err }, "Unauthorized, You Must Be Logged In To View A Project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, identity.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
			if err.Error() != tt.message {
				t.Errorf("got message %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestActions_UnknownEntitlementIsNotFree(t *testing.T) {
	p := newProject("user_1")
	f := newFixture(t, p)
	ctx := identity.NewContext(context.Background(), identity.New("user_1", nil))

	_, err := f.svc.GenerateMissingFeatures(ctx, p.ID.String())
	if !errors.Is(err, plan.ErrEntitlementUnavailable) {
		t.Fatalf("expected ErrEntitlementUnavailable, got %v", err)
	}

	_, err = f.svc.Create(ctx, CreateInput{FileURL: "u", FileName: "a.mp3", FileSize: 1, MimeType: "audio/mpeg"})
	if !errors.Is(err, plan.ErrEntitlementUnavailable) {
		t.Fatalf("expected ErrEntitlementUnavailable from Create, got %v", err)
	}
	if len(f.projects.projects) != 1 {
		t.Error("no project should be created without a resolved plan")
	}
}

func TestDispatchError_Message(t *testing.T) {
	err := &DispatchError{ProjectID: "p1", Failed: []plan.ArtifactKind{plan.Hashtags, plan.KeyMoments}, Err: errTransient}
	if !strings.Contains(err.Error(), "hashtags, keyMoments") {
		t.Errorf("message should list failed jobs: %s", err.Error())
	}
	if !errors.Is(err, errTransient) {
		t.Error("DispatchError should unwrap to the cause")
	}
}

func TestDrain_NoDetachedWork(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.svc.Drain(ctx); err != nil {
		t.Errorf("Drain on an idle service returned %v", err)
	}
}

func TestDrain_WaitsForCreateAfterCallerLeaves(t *testing.T) {
	f := newFixture(t)
	f.bus.hold = make(chan struct{})
	f.bus.entered = make(chan struct{}, 1)

	callerCtx, cancelCaller := context.WithCancel(asUser("user_1", "pro"))
	created := make(chan error, 1)
	go func() {
		_, err := f.svc.Create(callerCtx, CreateInput{
			FileURL:  "https://blob.example/ep.mp3",
			FileName: "ep.mp3",
			FileSize: 1024,
			MimeType: "audio/mpeg",
		})
		created <- err
	}()

	<-f.bus.entered
	cancelCaller()

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.svc.Drain(short)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Drain to time out while dispatch is held, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 detached actions still running") {
		t.Errorf("unexpected Drain error: %v", err)
	}

	close(f.bus.hold)
	if err := f.svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if err := <-created; err != nil {
		t.Fatalf("Create should finish despite the cancelled caller, got %v", err)
	}
	if len(f.bus.delivered) != 1 {
		t.Errorf("expected the uploaded event to be delivered, got %d events", len(f.bus.delivered))
	}
}
