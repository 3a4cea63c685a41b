package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"castplane/pkg/api"
)

// ProjectClient handles API calls to the castplane controller.
type ProjectClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewProjectClient creates a new client with the given base URL and token.
func NewProjectClient(baseURL, token string) *ProjectClient {
	return &ProjectClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Body is the raw response, for endpoints that report partial results
	// alongside an error.
	Body []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	msg := string(bytes.TrimSpace(body))
	var envelope api.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	return &APIError{StatusCode: status, Message: msg, Body: body}
}

// do sends a JSON request and decodes a 2xx response into out.
func (c *ProjectClient) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func projectPath(id string) string {
	return "/projects/" + url.PathEscape(id)
}

// ValidateUpload sends POST /uploads/validate.
func (c *ProjectClient) ValidateUpload(req api.ValidateUploadRequest) error {
	return c.do(http.MethodPost, "/uploads/validate", req, nil)
}

// CreateProject sends POST /projects.
func (c *ProjectClient) CreateProject(req api.CreateProjectRequest) (*api.CreateProjectResponse, error) {
	var result api.CreateProjectResponse
	if err := c.do(http.MethodPost, "/projects", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProject sends GET /projects/{id}.
func (c *ProjectClient) GetProject(id string) (*api.ProjectDetail, error) {
	var result api.ProjectResponse
	if err := c.do(http.MethodGet, projectPath(id), nil, &result); err != nil {
		return nil, err
	}
	return &result.Project, nil
}

// DeleteProject sends DELETE /projects/{id}.
func (c *ProjectClient) DeleteProject(id string) error {
	return c.do(http.MethodDelete, projectPath(id), nil, nil)
}

// RenameProject sends PATCH /projects/{id}.
func (c *ProjectClient) RenameProject(id, displayName string) error {
	return c.do(http.MethodPatch, projectPath(id), api.RenameProjectRequest{DisplayName: displayName}, nil)
}

// GenerateMissing sends POST /projects/{id}/generate-missing. A partially
// dispatched batch returns both the response and an *APIError.
func (c *ProjectClient) GenerateMissing(id string) (*api.GenerateMissingResponse, error) {
	var result api.GenerateMissingResponse
	err := c.do(http.MethodPost, projectPath(id)+"/generate-missing", nil, &result)
	if err == nil {
		return &result, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		var partial api.GenerateMissingResponse
		if json.Unmarshal(apiErr.Body, &partial) == nil && len(partial.Generated)+len(partial.Failed) > 0 {
			return &partial, err
		}
	}
	return nil, err
}

// RetryJob sends POST /projects/{id}/retry.
func (c *ProjectClient) RetryJob(id, job string) error {
	return c.do(http.MethodPost, projectPath(id)+"/retry", api.RetryJobRequest{Job: job}, nil)
}

// CreateUser sends POST /admin/users. The client token must be the admin secret.
func (c *ProjectClient) CreateUser(req api.CreateUserRequest) (*api.CreateUserResponse, error) {
	var result api.CreateUserResponse
	if err := c.do(http.MethodPost, "/admin/users", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetUserPlans sends PUT /admin/users/{id}/plans.
func (c *ProjectClient) SetUserPlans(userID string, plans []string) error {
	return c.do(http.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/plans", api.SetPlansRequest{Plans: plans}, nil)
}
