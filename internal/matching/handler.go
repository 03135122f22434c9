package matching

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"govregistry/internal/organization/models"
	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/httputil"
)

// Handler exposes the search surface.
type Handler struct {
	engine *Engine
	logger *slog.Logger
}

func NewHandler(engine *Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts search endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/search", func(r chi.Router) {
		r.Get("/exact", h.HandleExact)
		r.Get("/fuzzy", h.HandleFuzzy)
		r.Get("/text", h.HandleFullText)
	})
}

func (h *Handler) HandleExact(w http.ResponseWriter, r *http.Request) {
	query, ok := searchQuery(w, r)
	if !ok {
		return
	}
	org, err := h.engine.ExactMatch(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) HandleFuzzy(w http.ResponseWriter, r *http.Request) {
	query, ok := searchQuery(w, r)
	if !ok {
		return
	}
	orgs, err := h.engine.FuzzySearch(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeMatches(w, orgs)
}

func (h *Handler) HandleFullText(w http.ResponseWriter, r *http.Request) {
	query, ok := searchQuery(w, r)
	if !ok {
		return
	}
	orgs, err := h.engine.FullTextSearch(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeMatches(w, orgs)
}

func searchQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "query parameter q is required"))
		return "", false
	}
	return query, true
}

func writeMatches(w http.ResponseWriter, orgs []*models.GovernmentOrganization) {
	if orgs == nil {
		orgs = []*models.GovernmentOrganization{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"organizations": orgs,
		"count":         len(orgs),
	})
}
