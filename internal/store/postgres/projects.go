package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"castplane/internal/plan"
	"castplane/internal/store"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// artifactColumns maps artifact kinds to their JSONB columns, in catalog order.
var artifactColumns = []struct {
	kind   plan.ArtifactKind
	column string
}{
	{plan.Summary, "summary"},
	{plan.Transcription, "transcription"},
	{plan.SocialPosts, "social_posts"},
	{plan.Titles, "titles"},
	{plan.Hashtags, "hashtags"},
	{plan.KeyMoments, "key_moments"},
	{plan.YoutubeTimestamps, "youtube_timestamps"},
}

var projectColumns = []string{
	"id", "user_id", "name", "input_url", "file_name", "file_size", "file_duration",
	"file_format", "mime_type", "status", "processing_plan", "created_at",
}

// GetProject reads a project owned by userID. Artifact columns are only
// checked for presence; their content belongs to the UI.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID, userID string) (*store.Project, error) {
	cols := append([]string{}, projectColumns...)
	for _, a := range artifactColumns {
		cols = append(cols, a.column+" IS NOT NULL")
	}

	query, args, err := psql.Select(cols...).
		From("projects").
		Where(sq.Eq{"id": id.String(), "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		p              store.Project
		duration       sql.NullFloat64
		processingPlan sql.NullString
		present        = make([]bool, len(artifactColumns))
	)

	dest := []any{
		&p.ID, &p.UserID, &p.Name, &p.InputURL, &p.FileName, &p.FileSize, &duration,
		&p.FileFormat, &p.MimeType, &p.Status, &processingPlan, &p.CreatedAt,
	}
	for i := range present {
		dest = append(dest, &present[i])
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if duration.Valid {
		p.FileDuration = &duration.Float64
	}
	if processingPlan.Valid {
		if tier, err := plan.ParseTier(processingPlan.String); err == nil {
			p.ProcessingPlan = &tier
		}
	}

	p.Artifacts = plan.Artifacts{}
	for i, a := range artifactColumns {
		if present[i] {
			p.Artifacts[a.kind] = true
		}
	}

	return &p, nil
}

// CreateProject inserts a new project row.
func (s *Store) CreateProject(ctx context.Context, project *store.Project) error {
	var processingPlan any
	if project.ProcessingPlan != nil {
		processingPlan = project.ProcessingPlan.String()
	}

	query, args, err := psql.Insert("projects").
		Columns(
			"id", "user_id", "name", "input_url", "file_name", "file_size", "file_duration",
			"file_format", "mime_type", "status", "processing_plan", "created_at",
		).
		Values(
			project.ID, project.UserID, project.Name, project.InputURL, project.FileName,
			project.FileSize, project.FileDuration, project.FileFormat, project.MimeType,
			string(project.Status), processingPlan, project.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteProject removes a project owned by userID and returns its input URL.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID, userID string) (*store.DeletedProject, error) {
	query, args, err := psql.Delete("projects").
		Where(sq.Eq{"id": id.String(), "user_id": userID}).
		Suffix("RETURNING input_url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var deleted store.DeletedProject
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&deleted.InputURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return &deleted, nil
}

// UpdateDisplayName sets the display name of a project owned by userID.
func (s *Store) UpdateDisplayName(ctx context.Context, id uuid.UUID, userID, name string) error {
	query, args, err := psql.Update("projects").
		Set("name", name).
		Where(sq.Eq{"id": id.String(), "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
