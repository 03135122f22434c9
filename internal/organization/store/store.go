// Package store provides persistence for government organizations.
// Two implementations exist: an in-memory store for tests and small
// deployments, and a PostgreSQL store for production.
package store

import (
	"govregistry/pkg/platform/sentinel"
)

// ErrNotFound is returned when no organization matches a lookup.
var ErrNotFound = sentinel.ErrNotFound

// Filter narrows list queries. Zero values mean "no constraint".
type Filter struct {
	OrgType      string
	Branch       string
	Jurisdiction string
	ActiveOnly   bool
}

// Page bounds list queries. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}
