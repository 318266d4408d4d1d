// Package apperr defines the error kinds surfaced by the service layer.
// Handlers translate these into HTTP status codes; services wrap store
// failures into ErrUnavailable rather than swallowing them.
package apperr

import "errors"

// Sentinel errors returned by services. Wrap with fmt.Errorf("%w: ...")
// to attach detail; check with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("dependency unavailable")
)
