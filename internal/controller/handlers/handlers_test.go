package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"castplane/internal/actions"
	"castplane/internal/identity"
	"castplane/internal/plan"
	"castplane/internal/retry"
	"castplane/internal/store"

	"github.com/google/uuid"
)

// Mock Store
type mockStore struct {
	pingErr         error
	createUserErr   error
	setUserPlansErr error

	// Spies
	capturedUser      *store.User
	capturedTokenHash string
	capturedPlans     []string
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) CreateUser(ctx context.Context, user *store.User, tokenHash string) error {
	m.capturedUser = user
	m.capturedTokenHash = tokenHash
	return m.createUserErr
}

func (m *mockStore) GetUserByTokenHash(ctx context.Context, hash string) (*store.User, error) {
	return nil, nil // Handled by Auth Middleware, not Handlers
}

func (m *mockStore) SetUserPlans(ctx context.Context, id uuid.UUID, plans []string) error {
	m.capturedPlans = plans
	return m.setUserPlansErr
}

// Mock Actions
type mockActions struct {
	validateErr error

	createResp string
	createErr  error

	getResp *actions.ProjectView
	getErr  error

	deleteErr error
	renameErr error

	generateResp *actions.GenerateResult
	generateErr  error

	retryErr error

	// Spies
	capturedProjectID string
	capturedName      string
	capturedJob       string
	capturedCreate    actions.CreateInput
	capturedUpload    actions.UploadCheck
}

func (m *mockActions) ValidateUpload(ctx context.Context, in actions.UploadCheck) error {
	m.capturedUpload = in
	return m.validateErr
}

func (m *mockActions) Create(ctx context.Context, in actions.CreateInput) (string, error) {
	m.capturedCreate = in
	return m.createResp, m.createErr
}

func (m *mockActions) GetProject(ctx context.Context, projectID string) (*actions.ProjectView, error) {
	m.capturedProjectID = projectID
	return m.getResp, m.getErr
}

func (m *mockActions) Delete(ctx context.Context, projectID string) error {
	m.capturedProjectID = projectID
	return m.deleteErr
}

func (m *mockActions) Rename(ctx context.Context, projectID, displayName string) error {
	m.capturedProjectID = projectID
	m.capturedName = displayName
	return m.renameErr
}

func (m *mockActions) GenerateMissingFeatures(ctx context.Context, projectID string) (*actions.GenerateResult, error) {
	m.capturedProjectID = projectID
	return m.generateResp, m.generateErr
}

func (m *mockActions) RetryJob(ctx context.Context, projectID, job string) error {
	m.capturedProjectID = projectID
	m.capturedJob = job
	return m.retryErr
}

func newTestHandlers(a *mockActions, s *mockStore) *Handlers {
	if a == nil {
		a = &mockActions{}
	}
	if s == nil {
		s = &mockStore{}
	}
	return New(a, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClassify(t *testing.T) {
	exhausted := &retry.ExhaustedError{Attempts: 3, Err: errors.New("503")}

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"auth", &actions.AuthError{Action: "Delete A Project"}, http.StatusUnauthorized, "Unauthorized, You Must Be Logged In To Delete A Project"},
		{"bare unauthenticated", identity.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"},
		{"entitlement", fmt.Errorf("failed to resolve plan: %w", plan.ErrEntitlementUnavailable), http.StatusUnauthorized, "Unable to verify your plan, please sign in again"},
		{"not found", actions.ErrNotFound, http.StatusNotFound, "Project not found or access denied"},
		{"validation", &actions.ValidationError{Message: "Invalid file size"}, http.StatusBadRequest, "Invalid file size"},
		{"nothing to generate", actions.ErrNothingToGenerate, http.StatusConflict, actions.ErrNothingToGenerate.Error()},
		{"dispatch batch", &actions.DispatchError{ProjectID: "p", Failed: []plan.ArtifactKind{plan.Hashtags}, Err: exhausted}, http.StatusBadGateway, "Failed to start hashtags, please try again"},
		{"dispatch upload", &actions.DispatchError{ProjectID: "p", Err: exhausted}, http.StatusBadGateway, "Project created but processing could not be started, please try again"},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := classify(tt.err)
			if status != tt.wantStatus {
				t.Errorf("got status %d, want %d", status, tt.wantStatus)
			}
			if message != tt.wantMessage {
				t.Errorf("got message %q, want %q", message, tt.wantMessage)
			}
		})
	}
}
