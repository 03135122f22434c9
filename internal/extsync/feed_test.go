package extsync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govregistry/internal/platform/config"
	dErrors "govregistry/pkg/domain-errors"
)

func feedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func feedClient(baseURL string, timeout time.Duration) *HTTPFeedClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTPFeedClient(config.FeedConfig{BaseURL: baseURL, Timeout: timeout}, logger)
}

func TestFetchAgencies(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agencies", r.URL.Path)
		json.NewEncoder(w).Encode([]Agency{{ID: "gsa-1", Name: "General Services Administration", Acronym: "GSA"}})
	})

	agencies, err := feedClient(srv.URL, 2*time.Second).FetchAgencies(context.Background())
	require.NoError(t, err)
	require.Len(t, agencies, 1)
	assert.Equal(t, "GSA", agencies[0].Acronym)
}

func TestFetchAgenciesRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]Agency{{ID: "gsa-1", Name: "General Services Administration"}})
	})

	agencies, err := feedClient(srv.URL, 5*time.Second).FetchAgencies(context.Background())
	require.NoError(t, err)
	assert.Len(t, agencies, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestFetchAgenciesGivesUpWithinTimeout(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	start := time.Now()
	_, err := feedClient(srv.URL, 500*time.Millisecond).FetchAgencies(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExternalSource))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchAgenciesMalformedPayload(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	})

	_, err := feedClient(srv.URL, 500*time.Millisecond).FetchAgencies(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExternalSource))
}

func TestAvailable(t *testing.T) {
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {})

	client := feedClient(srv.URL, time.Second)
	assert.True(t, client.Available(context.Background()))

	srv.Close()
	assert.False(t, client.Available(context.Background()))

	assert.False(t, feedClient("", time.Second).Available(context.Background()))
}
