// Package httputil maps domain errors to HTTP responses and centralizes
// request decoding so handlers stay thin.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "govregistry/pkg/domain-errors"
)

// errorBody is the wire shape for every error response.
type errorBody struct {
	Error            string               `json:"error"`
	ErrorDescription string               `json:"error_description,omitempty"`
	FieldErrors      []dErrors.FieldError `json:"field_errors,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to an HTTP status and JSON body. Internal
// errors deliberately omit the description so infrastructure details never
// leak into responses.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}
	code = de.Code

	body := errorBody{Error: string(code)}
	switch code {
	case dErrors.CodeValidation:
		body.ErrorDescription = de.Message
		body.FieldErrors = de.Fields
		WriteJSON(w, http.StatusBadRequest, body)
	case dErrors.CodeNotFound:
		body.ErrorDescription = de.Message
		WriteJSON(w, http.StatusNotFound, body)
	case dErrors.CodeConflict:
		body.ErrorDescription = de.Message
		WriteJSON(w, http.StatusConflict, body)
	case dErrors.CodeImport:
		body.ErrorDescription = de.Message
		WriteJSON(w, http.StatusUnprocessableEntity, body)
	case dErrors.CodeExternalSource:
		body.ErrorDescription = de.Message
		WriteJSON(w, http.StatusBadGateway, body)
	case dErrors.CodeTimeout:
		body.ErrorDescription = de.Message
		WriteJSON(w, http.StatusGatewayTimeout, body)
	case dErrors.CodeIntegrity:
		// Integrity faults are server-side data corruption; keep the
		// taxonomy code but no internals.
		WriteJSON(w, http.StatusInternalServerError, body)
	default:
		body.Error = string(dErrors.CodeInternal)
		WriteJSON(w, http.StatusInternalServerError, body)
	}
}

// Decode parses the JSON request body into T, answering a validation error
// itself on malformed input. The bool result tells the handler to stop.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed JSON body"))
		return v, false
	}
	return v, true
}
