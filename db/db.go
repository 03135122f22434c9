// Package db carries the SQL schema so tests and tooling can bootstrap
// a database without shelling out to migration tooling.
package db

import _ "embed"

//go:embed schema.sql
var Schema string
