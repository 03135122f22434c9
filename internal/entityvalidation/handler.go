package entityvalidation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/httputil"
	"govregistry/pkg/requestcontext"
)

// Handler exposes mention validation over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the validation endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/entities/validate", h.HandleValidate)
}

type validateRequest struct {
	Text           string `json:"text"`
	EntityTypeHint string `json:"entity_type_hint"`
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[validateRequest](w, r)
	if !ok {
		return
	}
	if req.Text == "" {
		httputil.WriteError(w, dErrors.NewValidation("invalid validation request", dErrors.FieldError{
			Field:   "text",
			Message: "text is required",
		}))
		return
	}

	result, err := h.service.Validate(ctx, req.Text, req.EntityTypeHint)
	if err != nil {
		h.logger.ErrorContext(ctx, "entity validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
