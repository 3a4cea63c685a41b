package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"castplane/internal/retry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HTTPBus sends events to an HTTP event ingestion API at
// POST {BaseURL}/e/{EventKey}.
type HTTPBus struct {
	BaseURL    string
	EventKey   string
	HTTPClient *http.Client
}

// NewHTTPBus creates a bus client for the given endpoint and key.
func NewHTTPBus(baseURL, eventKey string) *HTTPBus {
	return &HTTPBus{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		EventKey: eventKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("event API error (%d): %s", e.StatusCode, e.Message)
}

// Send posts one event. Client errors other than 408 and 429 are marked
// permanent so the caller does not retry them.
func (b *HTTPBus) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal event: %w", err))
	}

	endpoint := fmt.Sprintf("%s/e/%s", b.BaseURL, b.EventKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	// Workers continue the caller's trace
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	if isPermanentStatus(resp.StatusCode) {
		return retry.Permanent(statusErr)
	}
	return statusErr
}

func isPermanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

// Check reports whether the client has an endpoint it can reach. It makes no
// request.
func (b *HTTPBus) Check(ctx context.Context) error {
	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("event bus endpoint %q is not configured", b.BaseURL)
	}
	return nil
}
