package extsync

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncRouter(feed FeedClient) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, _ := newCoordinator(feed)
	h := NewHandler(c, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestHandleTriggerSyncReturnsResult(t *testing.T) {
	router := newSyncRouter(sampleFeed())

	req := httptest.NewRequest(http.MethodPost, "/admin/sync/organizations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result SyncResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 0, result.Errors)
}

func TestHandleTriggerSyncDeadFeedStillResponds(t *testing.T) {
	router := newSyncRouter(&MockFeedClient{Down: true, Err: io.ErrUnexpectedEOF})

	req := httptest.NewRequest(http.MethodPost, "/admin/sync/organizations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result SyncResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 1, result.Errors)
	assert.NotEmpty(t, result.ErrorMessages)
}

func TestHandleSyncStatus(t *testing.T) {
	router := newSyncRouter(sampleFeed())

	req := httptest.NewRequest(http.MethodGet, "/admin/sync/organizations/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status SyncStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.ExternalSourceAvailable)
	assert.Equal(t, 0, status.TotalOrganizations)
}
