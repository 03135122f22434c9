package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"govregistry/pkg/requestcontext"
)

// RequestMeta stamps each request's context with a request ID and receive time.
// Downstream code reads both through pkg/requestcontext so handlers and tests
// never touch the wall clock directly.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
