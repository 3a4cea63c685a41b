package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"castplane/internal/store"

	"github.com/google/uuid"
)

// MaxDisplayNameLength is the longest accepted display name, in characters.
const MaxDisplayNameLength = 200

// Rename sets the display name of a project. The name is trimmed first.
// Concurrent renames are last write wins.
func (s *Service) Rename(ctx context.Context, projectID, displayName string) error {
	id, err := authenticate(ctx, "Update A Project Display Name")
	if err != nil {
		return err
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		return invalid("Display Name Cannot Be Empty, Please Provide A Valid Display Name To Continue")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return invalid("Display Name Cannot Be Longer Than %d Characters, Please Provide A Shorter Display Name To Continue", MaxDisplayNameLength)
	}

	pid, err := uuid.Parse(projectID)
	if err != nil {
		return ErrNotFound
	}

	if err := s.projects.UpdateDisplayName(context.WithoutCancel(ctx), pid, id.UserID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update display name: %w", err)
	}

	s.logger.Info("project renamed", "project_id", projectID, "user_id", id.UserID)
	return nil
}
