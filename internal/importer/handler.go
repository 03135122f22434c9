package importer

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/httputil"
	"govregistry/pkg/requestcontext"
)

// maxImportBytes bounds the accepted CSV document size.
const maxImportBytes = 20 << 20

// Handler exposes the import surface.
type Handler struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewHandler(pipeline *Pipeline, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, logger: logger}
}

// Register mounts the import endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/import/organizations", h.HandleImport)
}

// HandleImport accepts a CSV document as the request body and returns
// the import result. The result itself reports failures; the only HTTP
// errors are a missing body or an oversized document.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Body == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeImport, "request body is required"))
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	defer body.Close()

	result := h.pipeline.Import(ctx, body)

	h.logger.InfoContext(ctx, "csv import finished",
		"request_id", requestcontext.RequestID(ctx),
		"success", result.Success,
		"added", result.Added,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
