package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"castplane/internal/observability"
	"castplane/internal/retry"
	"castplane/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Delete removes a project and then its source file from blob storage.
//
// Blob cleanup is retried under the cleanup policy. If it still fails the
// blob is logged as orphaned and Delete reports success, since the project
// itself is gone.
func (s *Service) Delete(ctx context.Context, projectID string) error {
	ctx, span := observability.Tracer().Start(ctx, "actions.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	id, err := authenticate(ctx, "Delete A Project")
	if err != nil {
		return err
	}

	pid, err := uuid.Parse(projectID)
	if err != nil {
		return ErrNotFound
	}

	ctx, done := s.detach(ctx)
	defer done()

	deleted, err := s.projects.DeleteProject(ctx, pid, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if deleted.InputURL != "" {
		s.removeBlob(ctx, projectID, id.UserID, deleted.InputURL)
	}

	s.logger.Info("project deleted", "project_id", projectID, "user_id", id.UserID)
	return nil
}

func (s *Service) removeBlob(ctx context.Context, projectID, userID, url string) {
	policy := s.cleanup
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.logger.Warn("blob delete failed, retrying",
			"project_id", projectID,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	attempts, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return s.blobs.Delete(ctx, url)
	})
	if err == nil {
		return
	}

	if s.metrics != nil {
		s.metrics.OrphanedBlobs.Add(ctx, 1)
	}
	s.logger.Warn("ORPHANED_BLOB",
		"project_id", projectID,
		"user_id", userID,
		"blob_url", url,
		"attempts", attempts,
		"error", err,
	)
}
