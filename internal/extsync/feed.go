// Package extsync reconciles the registry against one upstream
// government organization feed. Fetched records run through the same
// match-then-merge upsert path as CSV import, so the two ingestion
// routes cannot drift apart.
package extsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"govregistry/internal/platform/config"
	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/sentinel"
)

// Agency is one organization record as the upstream feed publishes it.
type Agency struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Acronym     string `json:"acronym"`
	ParentID    string `json:"parent_id"`
	URL         string `json:"url"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// FeedClient is the upstream the coordinator pulls from.
type FeedClient interface {
	FetchAgencies(ctx context.Context) ([]Agency, error)
	Available(ctx context.Context) bool
}

// HTTPFeedClient talks to the feed over HTTP with bounded retries. The
// configured timeout caps the whole fetch including retries, so a dead
// upstream degrades the sync instead of hanging it.
type HTTPFeedClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPFeedClient(cfg config.FeedConfig, logger *slog.Logger) *HTTPFeedClient {
	return &HTTPFeedClient{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// FetchAgencies pulls the full agency listing, retrying transient
// failures with exponential backoff until the configured timeout.
func (c *HTTPFeedClient) FetchAgencies(ctx context.Context) ([]Agency, error) {
	if c.baseURL == "" {
		return nil, dErrors.New(dErrors.CodeExternalSource, "no feed URL configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = c.timeout

	var agencies []Agency
	err := backoff.RetryNotify(func() error {
		fetched, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		agencies = fetched
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, _ time.Duration) {
		c.logger.WarnContext(ctx, "retrying feed fetch", "error", err)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternalSource, "fetch agencies")
	}
	return agencies, nil
}

func (c *HTTPFeedClient) fetchOnce(ctx context.Context) ([]Agency, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/agencies", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	var agencies []Agency
	if err := json.NewDecoder(resp.Body).Decode(&agencies); err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}
	return agencies, nil
}

// Available answers the cheap health question without pulling data.
func (c *HTTPFeedClient) Available(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/agencies", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// MockFeedClient is a canned feed for tests and local development.
type MockFeedClient struct {
	Agencies []Agency
	Err      error
	Down     bool
}

func (m *MockFeedClient) FetchAgencies(_ context.Context) ([]Agency, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Agencies, nil
}

func (m *MockFeedClient) Available(_ context.Context) bool {
	return !m.Down && m.Err == nil
}
