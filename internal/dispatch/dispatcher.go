// Package dispatch sends artifact generation jobs to the workflow bus.
//
// Each job becomes one podcast/retry-job event. Jobs in a batch are independent:
// they are sent concurrently, each under its own retry policy, and a failure of
// one does not undo the others. The caller gets a per-job Report and can
// re-trigger exactly the jobs that failed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"castplane/internal/events"
	"castplane/internal/observability"
	"castplane/internal/plan"
	"castplane/internal/retry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyBatch is returned when DispatchJobs is called with no jobs.
var ErrEmptyBatch = errors.New("no jobs to dispatch")

// Job asks the workers to (re)generate one tier-gated artifact.
type Job struct {
	ProjectID    string
	UserID       string
	Kind         plan.ArtifactKind
	OriginalPlan plan.Tier
	CurrentPlan  plan.Tier
}

func (j Job) event() events.Event {
	return events.RetryJob(events.RetryJobData{
		ProjectID:    j.ProjectID,
		Job:          j.Kind,
		UserID:       j.UserID,
		OriginalPlan: j.OriginalPlan,
		CurrentPlan:  j.CurrentPlan,
	})
}

// Outcome is the result of dispatching one job.
type Outcome struct {
	Job      Job
	Attempts int
	Err      error
}

// Report holds one Outcome per job, in the order the jobs were given.
type Report struct {
	Outcomes []Outcome
}

// Dispatched lists the kinds whose event was delivered.
func (r Report) Dispatched() []plan.ArtifactKind {
	var out []plan.ArtifactKind
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Job.Kind)
		}
	}
	return out
}

// Failed lists the kinds whose event could not be delivered.
func (r Report) Failed() []plan.ArtifactKind {
	var out []plan.ArtifactKind
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Job.Kind)
		}
	}
	return out
}

// Err joins the errors of every failed job, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Job.Kind, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Dispatcher sends events through a Bus with retries.
type Dispatcher struct {
	bus     events.Bus
	policy  retry.Policy
	logger  *slog.Logger
	metrics *observability.Instruments
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithInstruments records attempts and failures on the given counters.
func WithInstruments(m *observability.Instruments) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher. A zero MaxAttempts in policy means 3.
func New(bus events.Bus, policy retry.Policy, opts ...Option) *Dispatcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}

	d := &Dispatcher{
		bus:    bus,
		policy: policy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchJobs sends every job concurrently and waits for all of them.
func (d *Dispatcher) DispatchJobs(ctx context.Context, jobs []Job) (Report, error) {
	if len(jobs) == 0 {
		return Report{}, ErrEmptyBatch
	}

	report := Report{Outcomes: make([]Outcome, len(jobs))}
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			attempts, err := d.send(ctx, job.event(),
				attribute.String("project.id", job.ProjectID),
				attribute.String("job", string(job.Kind)),
			)
			report.Outcomes[i] = Outcome{Job: job, Attempts: attempts, Err: err}
		}(i, job)
	}

	wg.Wait()
	return report, nil
}

// DispatchUploaded sends the podcast/uploaded event that starts initial
// processing of a new project.
func (d *Dispatcher) DispatchUploaded(ctx context.Context, data events.UploadedData) error {
	_, err := d.send(ctx, events.Uploaded(data), attribute.String("project.id", data.ProjectID))
	return err
}

func (d *Dispatcher) send(ctx context.Context, event events.Event, attrs ...attribute.KeyValue) (int, error) {
	attrs = append(attrs, attribute.String("event", event.Name))

	ctx, span := observability.Tracer().Start(ctx, "dispatch.send",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	policy := d.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		d.logger.Warn("event send failed, retrying",
			"event", event.Name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	attempts, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		if d.metrics != nil {
			d.metrics.DispatchAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event.Name)))
		}
		return d.bus.Send(ctx, event)
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		if d.metrics != nil {
			d.metrics.DispatchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event.Name)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		d.logger.Error("event send failed after retries",
			"event", event.Name,
			"attempts", attempts,
			"error", err,
		)
		return attempts, err
	}

	return attempts, nil
}
