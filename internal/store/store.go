// Package store holds the Postgres, MongoDB, MinIO and Redis backends.
package store

import "errors"

// ErrNotFound is returned when a user or report does not exist.
var ErrNotFound = errors.New("not found")
