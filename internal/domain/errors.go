package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrStorageUnavailable means the persistence collaborator could not be read
	// or written. It is never coerced into an empty result.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUnavailable marks transport/network failures talking to an upstream.
	ErrUnavailable = errors.New("upstream unavailable")
)
