// Package blob talks to the object storage that holds uploaded audio files.
package blob

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
)

// Storage deletes stored files by URL.
type Storage interface {
	Delete(ctx context.Context, url string) error
}

// HTTPStore deletes blobs through the storage provider's REST API.
type HTTPStore struct {
	APIURL     string
	Token      string
	HTTPClient *http.Client
}

// NewHTTPStore creates a blob API client.
func NewHTTPStore(apiURL, token string) *HTTPStore {
	return &HTTPStore{
		APIURL: strings.TrimRight(apiURL, "/"),
		Token:  token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type deleteRequest struct {
	URLs []string `json:"urls"`
}

// Delete removes the blob at url. Deleting a blob that no longer exists is
// not an error.
func (s *HTTPStore) Delete(ctx context.Context, url string) error {
	if url == "" {
		return retry.Permanent(fmt.Errorf("empty blob url"))
	}

	body, err := json.Marshal(deleteRequest{URLs: []string{url}})
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL+"/delete", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return retry.Permanent(fmt.Errorf("blob API rejected credentials (%d)", resp.StatusCode))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("blob API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

// Check reports whether the client has an endpoint it can reach. It makes no
// request.
func (s *HTTPStore) Check(ctx context.Context) error {
	u, err := url.Parse(s.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("blob API endpoint %q is not configured", s.APIURL)
	}
	return nil
}
