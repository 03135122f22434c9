package importer

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImportRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, _ := newPipeline()
	h := NewHandler(p, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func postCSV(router chi.Router, doc string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/import/organizations", strings.NewReader(doc))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleImportReturnsResult(t *testing.T) {
	router := newImportRouter()

	rec := postCSV(router, csvHeader+"\n"+
		"Department of Energy,DOE,executive,department,1,,,,,\n")
	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Added)
}

func TestHandleImportReportsRowFailuresInPayload(t *testing.T) {
	router := newImportRouter()

	rec := postCSV(router, csvHeader+"\n"+
		"House of Representatives,,congress,branch,,,,,,\n")
	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.False(t, result.Success)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, "branch", result.ValidationErrors[0].Field)
	assert.Equal(t, 2, result.ValidationErrors[0].Line)
}

func TestHandleImportEmptyBody(t *testing.T) {
	router := newImportRouter()

	rec := postCSV(router, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.False(t, result.Success)
}
