package entityvalidation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govregistry/internal/matching"
	"govregistry/internal/matching/cache"
	"govregistry/internal/organization/models"
	"govregistry/internal/organization/store"
)

type countingValidator struct {
	inner *matching.Engine
	calls int
}

func (c *countingValidator) ValidateEntityMention(ctx context.Context, text, hint string) (*matching.ValidationResult, error) {
	c.calls++
	return c.inner.ValidateEntityMention(ctx, text, hint)
}

func newBackingEngine(t *testing.T) *matching.Engine {
	t.Helper()
	s := store.NewInMemoryStore()
	now := time.Now()
	err := s.Save(context.Background(), &models.GovernmentOrganization{
		ID:             uuid.New(),
		OfficialName:   "Environmental Protection Agency",
		Acronym:        "EPA",
		Branch:         models.BranchExecutive,
		OrgType:        models.OrgTypeIndependentAgency,
		SourceOfRecord: models.SourceManual,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)
	return matching.NewEngine(s)
}

func TestValidateConsultsCacheBeforeEngine(t *testing.T) {
	validator := &countingValidator{inner: newBackingEngine(t)}
	svc := New(validator, WithCache(cache.NewMemory(time.Minute)))
	ctx := context.Background()

	first, err := svc.Validate(ctx, "EPA", "")
	require.NoError(t, err)
	assert.True(t, first.Matched)
	assert.Equal(t, 1, validator.calls)

	second, err := svc.Validate(ctx, "EPA", "")
	require.NoError(t, err)
	assert.True(t, second.Matched)
	assert.Equal(t, 1, validator.calls, "second call should be served from cache")
}

func TestValidateWithoutCacheStillWorks(t *testing.T) {
	svc := New(newBackingEngine(t))

	result, err := svc.Validate(context.Background(), "Environmental Protection Agency", "")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, matching.MatchExact, result.MatchType)
}

func TestHandleValidate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(newBackingEngine(t))
	h := NewHandler(svc, logger)
	router := chi.NewRouter()
	h.Register(router)

	body, _ := json.Marshal(map[string]string{"text": "EPA"})
	req := httptest.NewRequest(http.MethodPost, "/entities/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matched          bool    `json:"matched"`
		Confidence       float64 `json:"confidence"`
		StandardizedName string  `json:"standardized_name"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Matched)
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Equal(t, "Environmental Protection Agency", resp.StandardizedName)
}

func TestHandleValidateRequiresText(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(New(newBackingEngine(t)), logger)
	router := chi.NewRouter()
	h.Register(router)

	body, _ := json.Marshal(map[string]string{"text": ""})
	req := httptest.NewRequest(http.MethodPost, "/entities/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
