// Package events defines the outbound workflow events and the bus that carries
// them to the generation workers.
package events

import (
	"context"

	"castplane/internal/plan"
)

// Event names understood by the generation workflow.
const (
	NamePodcastUploaded = "podcast/uploaded"
	NameRetryJob        = "podcast/retry-job"
)

// Event is one message on the workflow bus.
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// Bus delivers events to the workflow bus. Delivery is at-least-once and
// unordered between events.
type Bus interface {
	Send(ctx context.Context, event Event) error
}

// UploadedData is the payload of podcast/uploaded.
type UploadedData struct {
	ProjectID    string    `json:"projectId"`
	UserID       string    `json:"userId"`
	Plan         plan.Tier `json:"plan"`
	FileURL      string    `json:"fileUrl"`
	FileName     string    `json:"fileName"`
	FileSize     int64     `json:"fileSize"`
	FileDuration *float64  `json:"fileDuration,omitempty"`
	FileFormat   string    `json:"fileFormat"`
	MimeType     string    `json:"mimeType"`
}

// RetryJobData is the payload of podcast/retry-job.
type RetryJobData struct {
	ProjectID    string            `json:"projectId"`
	Job          plan.ArtifactKind `json:"job"`
	UserID       string            `json:"userId"`
	OriginalPlan plan.Tier         `json:"originalPlan"`
	CurrentPlan  plan.Tier         `json:"currentPlan"`
}

// Uploaded builds a podcast/uploaded event.
func Uploaded(data UploadedData) Event {
	return Event{Name: NamePodcastUploaded, Data: data}
}

// RetryJob builds a podcast/retry-job event.
func RetryJob(data RetryJobData) Event {
	return Event{Name: NameRetryJob, Data: data}
}
