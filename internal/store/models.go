// Package store contains the database layer for castplane.
package store

import (
	"time"

	"castplane/internal/plan"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state recorded on a project.
type ProjectStatus string

const (
	ProjectStatusUploaded ProjectStatus = "uploaded"
)

// Project is one uploaded podcast episode.
// All reads and writes are scoped by UserID.
type Project struct {
	ID           uuid.UUID
	UserID       string
	Name         string
	InputURL     string
	FileName     string
	FileSize     int64
	FileDuration *float64
	FileFormat   string
	MimeType     string
	Status       ProjectStatus

	// ProcessingPlan is the plan the owner held when the project was created.
	// Nil for projects created before it was recorded.
	ProcessingPlan *plan.Tier

	// Artifacts marks which generated outputs are populated.
	Artifacts plan.Artifacts

	CreatedAt time.Time
}

// DeletedProject carries what is left to clean up after a project row is gone.
type DeletedProject struct {
	InputURL string
}

// User is an account that can authenticate with an API token.
type User struct {
	ID   uuid.UUID
	Name string

	// Plans are the plan claims granted by billing, e.g. "pro".
	Plans []string

	// RateLimit is requests per second; 0 means unlimited.
	RateLimit      float64
	RateLimitBurst int

	CreatedAt time.Time
}
