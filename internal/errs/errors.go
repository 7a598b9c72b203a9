// Package errs defines the error taxonomy shared across services. Sentinel
// values and typed errors let handlers map failures to HTTP statuses without
// string matching.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity id does not resolve. Handlers
// translate it to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when a role or ownership check fails.
// Handlers translate it to HTTP 403.
var ErrUnauthorized = errors.New("unauthorized")

// ErrRevisionLimitExceeded is returned when a revision request would push
// used revisions past the included allowance. The order is left unchanged.
var ErrRevisionLimitExceeded = errors.New("revision limit exceeded")

// ErrExclusiveAlreadySold is returned to the loser of an exclusive buyout
// race, and to any later purchase attempt on a sold-out track.
var ErrExclusiveAlreadySold = errors.New("exclusive license already sold")

// ErrGatewayTimeout means the payment gateway did not answer within the
// configured deadline. The charge may be retried with the same idempotency
// key; nothing has been marked paid.
var ErrGatewayTimeout = errors.New("payment gateway timeout")

// ErrGatewayDeclined is terminal for the attempted payment method.
var ErrGatewayDeclined = errors.New("payment declined")

// ErrVersionConflict means a concurrent writer updated the row first.
var ErrVersionConflict = errors.New("version conflict")

// ErrLocked means the per-entity mutation lock is held by another request.
var ErrLocked = errors.New("entity locked by another operation")

// InvalidStateError reports an operation attempted from a status that does
// not permit it. The entity is never modified.
type InvalidStateError struct {
	Op      string
	Current string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation %s not permitted from status %s", e.Op, e.Current)
}

// InvalidState builds an InvalidStateError; Current accepts any string-like
// status type.
func InvalidState[S ~string](op string, current S) *InvalidStateError {
	return &InvalidStateError{Op: op, Current: string(current)}
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}

// PricingError reports an unknown or unconfigured license tier.
type PricingError struct {
	MusicID string
	Tier    string
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("no price for tier %q on music %s", e.Tier, e.MusicID)
}

// IsPricing reports whether err is a PricingError.
func IsPricing(err error) bool {
	var pe *PricingError
	return errors.As(err, &pe)
}
