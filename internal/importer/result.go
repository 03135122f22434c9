package importer

import (
	dErrors "govregistry/pkg/domain-errors"
)

// Result reports a bulk import. Success is false whenever the input was
// empty or any row failed validation, even though valid rows in the same
// batch are still committed. Total always equals
// added + updated + skipped + errors.
type Result struct {
	Success          bool                 `json:"success"`
	Added            int                  `json:"added"`
	Updated          int                  `json:"updated"`
	Skipped          int                  `json:"skipped"`
	Errors           int                  `json:"errors"`
	Total            int                  `json:"total"`
	ValidationErrors []dErrors.FieldError `json:"validation_errors"`
	ErrorMessages    []string             `json:"error_messages"`
}

func newResult() *Result {
	return &Result{
		Success:          true,
		ValidationErrors: []dErrors.FieldError{},
		ErrorMessages:    []string{},
	}
}

func (r *Result) fail(message string) *Result {
	r.Success = false
	r.ErrorMessages = append(r.ErrorMessages, message)
	return r
}

func (r *Result) finish() *Result {
	r.Total = r.Added + r.Updated + r.Skipped + r.Errors
	if len(r.ValidationErrors) > 0 || len(r.ErrorMessages) > 0 {
		r.Success = false
	}
	return r
}
