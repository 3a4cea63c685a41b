// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
//
// Every response carries "success". Failed responses also carry "error".
package api

import "time"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// SuccessResponse is returned by actions with no other output.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ValidateUploadRequest asks whether a file may be uploaded.
type ValidateUploadRequest struct {
	FileSize int64    `json:"fileSize"`
	Duration *float64 `json:"duration,omitempty"`
}

// CreateProjectRequest registers a file that is already in blob storage.
type CreateProjectRequest struct {
	FileURL      string   `json:"fileUrl"`
	FileName     string   `json:"fileName"`
	FileSize     int64    `json:"fileSize"`
	MimeType     string   `json:"mimeType"`
	FileDuration *float64 `json:"fileDuration,omitempty"`
}

// CreateProjectResponse is returned after a project is created. On a dispatch
// failure Success is false and ProjectID is still set.
type CreateProjectResponse struct {
	Success   bool   `json:"success"`
	ProjectID string `json:"projectId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RenameProjectRequest sets a project's display name.
type RenameProjectRequest struct {
	DisplayName string `json:"displayName"`
}

// GenerateMissingResponse reports a reconciliation batch.
type GenerateMissingResponse struct {
	Success   bool     `json:"success"`
	Generated []string `json:"generated"`
	Failed    []string `json:"failed,omitempty"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// RetryJobRequest names the job to re-run.
type RetryJobRequest struct {
	Job string `json:"job"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Success bool          `json:"success"`
	Project ProjectDetail `json:"project"`
}

// ProjectDetail is a project as seen by its owner.
type ProjectDetail struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	FileName       string    `json:"fileName"`
	FileSize       int64     `json:"fileSize"`
	FileDuration   *float64  `json:"fileDuration,omitempty"`
	FileFormat     string    `json:"fileFormat"`
	MimeType       string    `json:"mimeType"`
	Status         string    `json:"status"`
	ProcessingPlan string    `json:"processingPlan,omitempty"`
	OriginalPlan   string    `json:"originalPlan"`
	CurrentPlan    string    `json:"currentPlan"`
	CreatedAt      time.Time `json:"createdAt"`

	// Artifacts are the generated outputs present on the project.
	Artifacts []string `json:"artifacts"`
	// Missing are entitled by the current plan but not generated yet.
	Missing []string `json:"missing"`
	// Locked need a higher plan.
	Locked []string `json:"locked"`
}

// CreateUserRequest is the request body for creating a new user (admin only).
type CreateUserRequest struct {
	Name           string   `json:"name"`
	Plans          []string `json:"plans,omitempty"`
	RateLimit      float64  `json:"rateLimit,omitempty"`
	RateLimitBurst int      `json:"rateLimitBurst,omitempty"`
}

// CreateUserResponse is the response body after creating a user. The token
// is only ever returned here.
type CreateUserResponse struct {
	Success bool     `json:"success"`
	ID      string   `json:"userId"`
	Name    string   `json:"name"`
	Plans   []string `json:"plans"`
	Token   string   `json:"token"`
}

// SetPlansRequest replaces a user's plan claims (admin only).
type SetPlansRequest struct {
	Plans []string `json:"plans"`
}
