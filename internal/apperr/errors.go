// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound marks every "absent" outcome: missing index record,
	// unknown version or target, missing document, readme or archive.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks malformed client input (versions, target
	// kinds, override keys, package names).
	ErrInvalidInput = errors.New("invalid input")
)
