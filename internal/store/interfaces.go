package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist or belongs to another
// user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ProjectStore persists projects. Every operation is scoped by the owning user.
type ProjectStore interface {
	// GetProject returns the project if it exists and is owned by userID.
	GetProject(ctx context.Context, id uuid.UUID, userID string) (*Project, error)

	// CreateProject inserts a new project.
	CreateProject(ctx context.Context, project *Project) error

	// DeleteProject removes the project and returns what must be cleaned up.
	DeleteProject(ctx context.Context, id uuid.UUID, userID string) (*DeletedProject, error)

	// UpdateDisplayName renames the project.
	UpdateDisplayName(ctx context.Context, id uuid.UUID, userID, name string) error
}

// UserStore handles retrieving users for authentication.
type UserStore interface {
	// CreateUser inserts a new user with the hash of its API token.
	CreateUser(ctx context.Context, user *User, tokenHash string) error

	// GetUserByTokenHash returns the user owning the token hash.
	GetUserByTokenHash(ctx context.Context, hash string) (*User, error)

	// SetUserPlans replaces the plan claims of a user.
	SetUserPlans(ctx context.Context, id uuid.UUID, plans []string) error
}
