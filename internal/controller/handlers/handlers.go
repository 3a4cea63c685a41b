// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"castplane/internal/actions"
	"castplane/internal/identity"
	"castplane/internal/logger"
	"castplane/internal/plan"
	"castplane/internal/store"
	"castplane/pkg/api"
)

// StoreFactory combines the store interfaces the handlers use directly.
type StoreFactory interface {
	Ping(ctx context.Context) error
	store.UserStore
}

// ProjectActions is the project lifecycle. *actions.Service implements it.
type ProjectActions interface {
	ValidateUpload(ctx context.Context, in actions.UploadCheck) error
	Create(ctx context.Context, in actions.CreateInput) (string, error)
	GetProject(ctx context.Context, projectID string) (*actions.ProjectView, error)
	Delete(ctx context.Context, projectID string) error
	Rename(ctx context.Context, projectID, displayName string) error
	GenerateMissingFeatures(ctx context.Context, projectID string) (*actions.GenerateResult, error)
	RetryJob(ctx context.Context, projectID, job string) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	actions ProjectActions
	store   StoreFactory
	logger  *slog.Logger
	checks  map[string]ReadinessCheck
}

// New creates a new Handlers instance.
func New(a ProjectActions, s StoreFactory, l *slog.Logger) *Handlers {
	if l == nil {
		l = slog.Default()
	}
	return &Handlers{actions: a, store: s, logger: l}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    strconv.Itoa(code),
	})
}

// writeActionError maps an action error to a status code and a message that
// is safe to show. Unexpected errors are logged and reported generically.
func (h *Handlers) writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	h.logActionError(r, status, err)
	h.httpError(w, message, status)
}

func (h *Handlers) logActionError(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	logger.FromContext(r.Context(), h.logger).Error("action failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
}

func classify(err error) (int, string) {
	var (
		authErr     *actions.AuthError
		validErr    *actions.ValidationError
		dispatchErr *actions.DispatchError
	)

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Error()
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, plan.ErrEntitlementUnavailable):
		return http.StatusUnauthorized, "Unable to verify your plan, please sign in again"
	case errors.Is(err, actions.ErrNotFound):
		return http.StatusNotFound, actions.ErrNotFound.Error()
	case errors.As(err, &validErr):
		return http.StatusBadRequest, validErr.Message
	case errors.Is(err, actions.ErrNothingToGenerate):
		return http.StatusConflict, actions.ErrNothingToGenerate.Error()
	case errors.As(err, &dispatchErr):
		return http.StatusBadGateway, dispatchMessage(dispatchErr)
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func dispatchMessage(err *actions.DispatchError) string {
	if len(err.Failed) == 0 {
		return "Project created but processing could not be started, please try again"
	}
	return fmt.Sprintf("Failed to start %s, please try again", strings.Join(kindNames(err.Failed), ", "))
}

func kindNames(kinds []plan.ArtifactKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
