package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"castplane/internal/events"
	"castplane/internal/plan"
	"castplane/internal/retry"
)

// fakeBus fails the first failures[job] sends for each job, then succeeds.
type fakeBus struct {
	mu        sync.Mutex
	failures  map[plan.ArtifactKind]int
	calls     map[plan.ArtifactKind]int
	delivered []events.Event
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		failures: map[plan.ArtifactKind]int{},
		calls:    map[plan.ArtifactKind]int{},
	}
}

func (b *fakeBus) Send(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var kind plan.ArtifactKind
	if data, ok := event.Data.(events.RetryJobData); ok {
		kind = data.Job
	}
	b.calls[kind]++
	if b.calls[kind] <= b.failures[kind] {
		return errors.New("bus unavailable")
	}
	b.delivered = append(b.delivered, event)
	return nil
}

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func testDispatcher(bus events.Bus) *Dispatcher {
	return New(bus, testPolicy(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func jobsFor(kinds ...plan.ArtifactKind) []Job {
	jobs := make([]Job, len(kinds))
	for i, k := range kinds {
		jobs[i] = Job{
			ProjectID:    "p-1",
			UserID:       "u-1",
			Kind:         k,
			OriginalPlan: plan.TierPro,
			CurrentPlan:  plan.TierUltra,
		}
	}
	return jobs
}

func TestDispatchJobs_AllDelivered(t *testing.T) {
	bus := newFakeBus()
	d := testDispatcher(bus)

	report, err := d.DispatchJobs(context.Background(), jobsFor(plan.Hashtags, plan.KeyMoments, plan.YoutubeTimestamps))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Err() != nil {
		t.Errorf("unexpected report error: %v", report.Err())
	}
	if len(bus.delivered) != 3 {
		t.Errorf("got %d events, want 3", len(bus.delivered))
	}

	want := []plan.ArtifactKind{plan.Hashtags, plan.KeyMoments, plan.YoutubeTimestamps}
	if got := report.Dispatched(); !slices.Equal(got, want) {
		t.Errorf("report order: got %v, want %v", got, want)
	}
	for _, e := range bus.delivered {
		if e.Name != events.NameRetryJob {
			t.Errorf("got event %s", e.Name)
		}
	}
}

func TestDispatchJobs_FailsTwiceThenSucceeds(t *testing.T) {
	bus := newFakeBus()
	bus.failures[plan.Titles] = 2
	d := testDispatcher(bus)

	report, _ := d.DispatchJobs(context.Background(), jobsFor(plan.Titles))

	if report.Err() != nil {
		t.Fatalf("expected no error, got %v", report.Err())
	}
	if len(bus.delivered) != 1 {
		t.Errorf("got %d delivered events, want exactly 1", len(bus.delivered))
	}
	if report.Outcomes[0].Attempts != 3 {
		t.Errorf("got %d attempts, want 3", report.Outcomes[0].Attempts)
	}
}

func TestDispatchJobs_ExhaustedJobReportedOthersKept(t *testing.T) {
	bus := newFakeBus()
	bus.failures[plan.KeyMoments] = 10
	d := testDispatcher(bus)

	report, err := d.DispatchJobs(context.Background(), jobsFor(plan.Hashtags, plan.KeyMoments, plan.YoutubeTimestamps))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := report.Failed(); !slices.Equal(got, []plan.ArtifactKind{plan.KeyMoments}) {
		t.Errorf("got failed %v, want [keyMoments]", got)
	}
	if got := report.Dispatched(); !slices.Equal(got, []plan.ArtifactKind{plan.Hashtags, plan.YoutubeTimestamps}) {
		t.Errorf("got dispatched %v", got)
	}
	if bus.calls[plan.KeyMoments] != 3 {
		t.Errorf("got %d sends for keyMoments, want 3 (no fourth attempt)", bus.calls[plan.KeyMoments])
	}

	var exhausted *retry.ExhaustedError
	if !errors.As(report.Err(), &exhausted) {
		t.Errorf("expected ExhaustedError in report, got %v", report.Err())
	}
}

func TestDispatchJobs_EmptyBatch(t *testing.T) {
	bus := newFakeBus()
	d := testDispatcher(bus)

	_, err := d.DispatchJobs(context.Background(), nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
	if len(bus.calls) != 0 {
		t.Error("no events should be sent for an empty batch")
	}
}

func TestDispatchUploaded(t *testing.T) {
	bus := newFakeBus()
	bus.failures[""] = 1 // uploaded events carry no job kind
	d := testDispatcher(bus)

	err := d.DispatchUploaded(context.Background(), events.UploadedData{ProjectID: "p-1", UserID: "u-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.delivered) != 1 || bus.delivered[0].Name != events.NamePodcastUploaded {
		t.Errorf("unexpected delivered events: %v", bus.delivered)
	}
}

func TestDispatchUploaded_Exhausted(t *testing.T) {
	bus := newFakeBus()
	bus.failures[""] = 3
	d := testDispatcher(bus)

	err := d.DispatchUploaded(context.Background(), events.UploadedData{ProjectID: "p-1"})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if bus.calls[""] != 3 {
		t.Errorf("got %d sends, want 3", bus.calls[""])
	}
}

func TestNew_Defaults(t *testing.T) {
	d := New(newFakeBus(), retry.Policy{})
	if d.policy.MaxAttempts != 3 {
		t.Errorf("got MaxAttempts %d, want 3", d.policy.MaxAttempts)
	}
	if d.policy.BaseDelay != 500*time.Millisecond {
		t.Errorf("got BaseDelay %v, want 500ms", d.policy.BaseDelay)
	}
}
