// Package services holds the business logic between HTTP handlers and
// repositories: API key lifecycle, request authentication, and organization
// membership rules.
package services

import "errors"

// Sentinel errors for handler boundaries. Handlers map these to HTTP status
// codes with errors.Is; anything else is treated as an internal failure.
var (
	// ErrMissingCredential means the request carried no API key at all.
	ErrMissingCredential = errors.New("missing API key")

	// ErrInvalidCredential covers unknown, revoked, and expired keys alike.
	// The three cases are deliberately indistinguishable so responses cannot
	// be used as an oracle to probe key state.
	ErrInvalidCredential = errors.New("invalid API key")

	// ErrNotFound means the requested resource does not exist within the
	// caller's organization scope.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the authenticated user lacks the role the operation requires.
	ErrForbidden = errors.New("insufficient role")

	// ErrValidation wraps a caller input problem.
	ErrValidation = errors.New("validation failed")
)
