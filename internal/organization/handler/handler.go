package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"govregistry/internal/organization/models"
	"govregistry/internal/organization/service"
	"govregistry/internal/organization/store"
	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/httputil"
	"govregistry/pkg/requestcontext"
)

// Service defines the registry operations the handler needs.
type Service interface {
	Create(ctx context.Context, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error)
	Update(ctx context.Context, id uuid.UUID, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error)
	List(ctx context.Context, filter store.Filter, page store.Page) ([]*models.GovernmentOrganization, error)
	Ancestors(ctx context.Context, id uuid.UUID) ([]*models.GovernmentOrganization, error)
	Descendants(ctx context.Context, id uuid.UUID) ([]*models.GovernmentOrganization, error)
	TopLevel(ctx context.Context) ([]*models.GovernmentOrganization, error)
	Hierarchy(ctx context.Context, id uuid.UUID) (*service.HierarchyView, error)
	Statistics(ctx context.Context) (*service.Statistics, error)
}

// Handler wires registry endpoints to the organization service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/organizations", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/top-level", h.HandleTopLevel)
		r.Get("/statistics", h.HandleStatistics)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/ancestors", h.HandleAncestors)
			r.Get("/descendants", h.HandleDescendants)
			r.Get("/hierarchy", h.HandleHierarchy)
		})
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[organizationRequest](w, r)
	if !ok {
		return
	}
	org, fieldErrs := req.toModel()
	if len(fieldErrs) > 0 {
		httputil.WriteError(w, dErrors.NewValidation("invalid organization", fieldErrs...))
		return
	}

	created, err := h.service.Create(ctx, org)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "organization created",
		"request_id", requestcontext.RequestID(ctx),
		"organization_id", created.ID,
		"official_name", created.OfficialName,
	)
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.Decode[organizationRequest](w, r)
	if !ok {
		return
	}
	org, fieldErrs := req.toModel()
	if len(fieldErrs) > 0 {
		httputil.WriteError(w, dErrors.NewValidation("invalid organization", fieldErrs...))
		return
	}

	updated, err := h.service.Update(ctx, id, org)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "organization updated",
		"request_id", requestcontext.RequestID(ctx),
		"organization_id", updated.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	dissolved, err := h.service.SoftDelete(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "organization dissolved",
		"request_id", requestcontext.RequestID(ctx),
		"organization_id", dissolved.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, dissolved)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		OrgType:      q.Get("org_type"),
		Branch:       q.Get("branch"),
		Jurisdiction: q.Get("jurisdiction"),
		ActiveOnly:   q.Get("active") == "true",
	}
	page := store.Page{
		Limit:  intQuery(q.Get("limit")),
		Offset: intQuery(q.Get("offset")),
	}

	orgs, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(orgs))
}

func (h *Handler) HandleTopLevel(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.TopLevel(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(orgs))
}

func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleAncestors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	orgs, err := h.service.Ancestors(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(orgs))
}

func (h *Handler) HandleDescendants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	orgs, err := h.service.Descendants(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(orgs))
}

func (h *Handler) HandleHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Hierarchy(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "organization id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// listResponse keeps empty collections as JSON arrays, never null.
func listResponse(orgs []*models.GovernmentOrganization) map[string]any {
	if orgs == nil {
		orgs = []*models.GovernmentOrganization{}
	}
	return map[string]any{
		"organizations": orgs,
		"count":         len(orgs),
	}
}
