package actions

import (
	"context"
	"fmt"
	"strings"

	"castplane/internal/dispatch"
	"castplane/internal/observability"
	"castplane/internal/plan"
	"castplane/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GenerateResult describes a reconciliation batch.
type GenerateResult struct {
	Generated []plan.ArtifactKind
	Failed    []plan.ArtifactKind
	Message   string
}

// ProjectView is a project plus what the caller's current plan still lacks.
type ProjectView struct {
	Project      *store.Project
	CurrentPlan  plan.Tier
	OriginalPlan plan.Tier
	Missing      []plan.ArtifactKind
}

// GetProject returns a project owned by the caller with its missing features.
func (s *Service) GetProject(ctx context.Context, projectID string) (*ProjectView, error) {
	id, err := authenticate(ctx, "View A Project")
	if err != nil {
		return nil, err
	}
	tier, err := currentTier(id)
	if err != nil {
		return nil, err
	}

	project, err := s.lookup(ctx, projectID, id.UserID)
	if err != nil {
		return nil, err
	}

	return &ProjectView{
		Project:      project,
		CurrentPlan:  tier,
		OriginalPlan: plan.OriginalTier(project.ProcessingPlan, project.Artifacts),
		Missing:      plan.MissingFeatures(tier, project.Artifacts),
	}, nil
}

// GenerateMissingFeatures dispatches one job for every feature the caller's
// current plan entitles that the project does not have yet. It is meant for
// users who upgraded after the project was processed.
//
// When some jobs could not be dispatched the result is still returned, along
// with a *DispatchError listing the failed jobs.
func (s *Service) GenerateMissingFeatures(ctx context.Context, projectID string) (*GenerateResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "actions.GenerateMissingFeatures",
		trace.WithAttributes(attribute.String("project.id", projectID)))
	defer span.End()

	id, err := authenticate(ctx, "Generate Missing Features")
	if err != nil {
		return nil, err
	}
	tier, err := currentTier(id)
	if err != nil {
		return nil, err
	}

	project, err := s.lookup(ctx, projectID, id.UserID)
	if err != nil {
		return nil, err
	}

	original := plan.OriginalTier(project.ProcessingPlan, project.Artifacts)
	missing := plan.MissingFeatures(tier, project.Artifacts)
	if len(missing) == 0 {
		return nil, ErrNothingToGenerate
	}

	jobs := make([]dispatch.Job, len(missing))
	for i, kind := range missing {
		jobs[i] = dispatch.Job{
			ProjectID:    projectID,
			UserID:       id.UserID,
			Kind:         kind,
			OriginalPlan: original,
			CurrentPlan:  tier,
		}
	}

	dctx, done := s.detach(ctx)
	defer done()

	report, err := s.dispatcher.DispatchJobs(dctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch jobs: %w", err)
	}

	result := &GenerateResult{
		Generated: report.Dispatched(),
		Failed:    report.Failed(),
	}
	result.Message = generatingMessage(result.Generated)

	s.logger.Info("missing features dispatched",
		"project_id", projectID,
		"user_id", id.UserID,
		"original_plan", original.String(),
		"current_plan", tier.String(),
		"generated", len(result.Generated),
		"failed", len(result.Failed),
	)

	if len(result.Failed) > 0 {
		return result, &DispatchError{ProjectID: projectID, Failed: result.Failed, Err: report.Err()}
	}
	return result, nil
}

// RetryJob re-dispatches a single tier-gated job, for example after a worker
// failure. The current plan must entitle the job.
func (s *Service) RetryJob(ctx context.Context, projectID, job string) error {
	id, err := authenticate(ctx, "Retry A Job")
	if err != nil {
		return err
	}
	tier, err := currentTier(id)
	if err != nil {
		return err
	}

	kind, err := plan.ParseArtifactKind(job)
	if err != nil {
		return invalid("Unknown job %q", job)
	}
	if !kind.TierGated() {
		return invalid("%s is generated with every project and cannot be retried on its own", kind)
	}
	if !plan.Entitles(tier, kind) {
		return invalid("%s requires the %s plan. Upgrade your plan to generate it.", kind, kind.MinimumTier())
	}

	project, err := s.lookup(ctx, projectID, id.UserID)
	if err != nil {
		return err
	}

	dctx, done := s.detach(ctx)
	defer done()

	report, err := s.dispatcher.DispatchJobs(dctx, []dispatch.Job{{
		ProjectID:    projectID,
		UserID:       id.UserID,
		Kind:         kind,
		OriginalPlan: plan.OriginalTier(project.ProcessingPlan, project.Artifacts),
		CurrentPlan:  tier,
	}})
	if err != nil {
		return fmt.Errorf("failed to dispatch job: %w", err)
	}
	if failed := report.Failed(); len(failed) > 0 {
		return &DispatchError{ProjectID: projectID, Failed: failed, Err: report.Err()}
	}

	s.logger.Info("job retried", "project_id", projectID, "user_id", id.UserID, "job", string(kind))
	return nil
}

func generatingMessage(kinds []plan.ArtifactKind) string {
	if len(kinds) == 0 {
		return ""
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	suffix := ""
	if len(kinds) > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Generating %d feature%s: %s", len(kinds), suffix, strings.Join(names, ", "))
}
