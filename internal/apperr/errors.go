// Package apperr defines sentinel errors shared across package boundaries.
package apperr

import "errors"

var ErrNotFound = errors.New("not found")
