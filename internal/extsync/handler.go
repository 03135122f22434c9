package extsync

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"govregistry/pkg/platform/httputil"
	"govregistry/pkg/requestcontext"
)

// Handler exposes the sync surface.
type Handler struct {
	coordinator *Coordinator
	logger      *slog.Logger
}

func NewHandler(coordinator *Coordinator, logger *slog.Logger) *Handler {
	return &Handler{coordinator: coordinator, logger: logger}
}

// Register mounts the sync endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/sync/organizations", h.HandleTriggerSync)
	r.Get("/admin/sync/organizations/status", h.HandleSyncStatus)
}

// HandleTriggerSync runs a sync and returns its result. Upstream
// failure is reported inside the result, not as an HTTP error.
func (h *Handler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result := h.coordinator.TriggerSync(ctx)

	h.logger.InfoContext(ctx, "sync triggered",
		"request_id", requestcontext.RequestID(ctx),
		"added", result.Added,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSyncStatus returns the registry totals and feed reachability.
func (h *Handler) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.coordinator.GetSyncStatus(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
