package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and feed clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrCycle: a parent chain revisited a node during traversal
// - ErrUnavailable: external feed or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrCycle       = errors.New("hierarchy cycle")
	ErrUnavailable = errors.New("unavailable")
)
