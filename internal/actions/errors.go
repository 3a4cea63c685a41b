package actions

import (
	"errors"
	"fmt"
	"strings"

	"castplane/internal/identity"
	"castplane/internal/plan"
)

// ErrNotFound covers both a missing project and one owned by someone else.
var ErrNotFound = errors.New("Project not found or access denied")

// ErrNothingToGenerate is returned when the project already has every
// feature the current plan entitles.
var ErrNothingToGenerate = errors.New("No missing features to generate. All features for your plan are already available.")

// AuthError is returned when an action runs without an identity.
// It unwraps to identity.ErrUnauthenticated.
type AuthError struct {
	// Action completes "You Must Be Logged In To ...". Empty for a bare "Unauthorized".
	Action string
}

func (e *AuthError) Error() string {
	if e.Action == "" {
		return "Unauthorized"
	}
	return "Unauthorized, You Must Be Logged In To " + e.Action
}

func (e *AuthError) Unwrap() error { return identity.ErrUnauthenticated }

// ValidationError is a caller mistake. Its message is safe to show to users.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DispatchError reports events that could not be delivered after retries.
type DispatchError struct {
	ProjectID string

	// Failed lists the jobs to re-trigger. Empty when the uploaded event failed.
	Failed []plan.ArtifactKind

	Err error
}

func (e *DispatchError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("failed to start processing for project %s: %v", e.ProjectID, e.Err)
	}
	kinds := make([]string, len(e.Failed))
	for i, k := range e.Failed {
		kinds[i] = string(k)
	}
	return fmt.Sprintf("failed to dispatch %s for project %s: %v", strings.Join(kinds, ", "), e.ProjectID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// DependencyError is returned by New when a collaborator is missing.
type DependencyError struct {
	Name string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("actions: missing dependency %s", e.Name)
}
