package actions

import (
	"context"
	"fmt"

	"castplane/internal/events"
	"castplane/internal/observability"
	"castplane/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CreateInput is the metadata of a file already uploaded to storage.
type CreateInput struct {
	FileURL      string
	FileName     string
	FileSize     int64
	MimeType     string
	FileDuration *float64
}

// Create records a new project and starts processing it under the caller's
// current plan.
//
// If the project is stored but the uploaded event cannot be delivered, Create
// returns a *DispatchError with the project id. The project is kept.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "actions.Create")
	defer span.End()

	id, err := authenticate(ctx, "")
	if err != nil {
		return "", err
	}
	tier, err := currentTier(id)
	if err != nil {
		return "", err
	}

	if in.FileURL == "" || in.FileName == "" {
		return "", invalid("Missing required fields")
	}
	if err := s.checkUploadLimits(in.FileSize); err != nil {
		s.logger.Info("upload rejected",
			"user_id", id.UserID,
			"file_size", in.FileSize,
			"reason", err.Error(),
		)
		return "", err
	}
	if !IsAllowedAudioType(in.MimeType) {
		return "", invalid("Unsupported file type %q. Please upload an audio file.", in.MimeType)
	}

	project := &store.Project{
		ID:             s.newID(),
		UserID:         id.UserID,
		Name:           in.FileName,
		InputURL:       in.FileURL,
		FileName:       in.FileName,
		FileSize:       in.FileSize,
		FileDuration:   in.FileDuration,
		FileFormat:     FileFormat(in.FileName),
		MimeType:       in.MimeType,
		Status:         store.ProjectStatusUploaded,
		ProcessingPlan: &tier,
		CreatedAt:      s.now(),
	}
	projectID := project.ID.String()
	span.SetAttributes(attribute.String("project.id", projectID), attribute.String("plan", tier.String()))

	// Once the request got this far the write and the dispatch must finish.
	ctx, done := s.detach(ctx)
	defer done()

	if err := s.projects.CreateProject(ctx, project); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return "", fmt.Errorf("failed to create project: %w", err)
	}

	err = s.dispatcher.DispatchUploaded(ctx, events.UploadedData{
		ProjectID:    projectID,
		UserID:       id.UserID,
		Plan:         tier,
		FileURL:      in.FileURL,
		FileName:     in.FileName,
		FileSize:     in.FileSize,
		FileDuration: in.FileDuration,
		FileFormat:   project.FileFormat,
		MimeType:     in.MimeType,
	})
	if err != nil {
		s.logger.Error("project created but processing was not started",
			"project_id", projectID,
			"user_id", id.UserID,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return projectID, &DispatchError{ProjectID: projectID, Err: err}
	}

	s.logger.Info("project created",
		"project_id", projectID,
		"user_id", id.UserID,
		"plan", tier.String(),
	)
	return projectID, nil
}
