package turnstile

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("turnstile: not found")
	ErrAlreadyExists = errors.New("turnstile: already exists")
	ErrInvalidInput  = errors.New("turnstile: invalid input")
	ErrUnauthorized  = errors.New("turnstile: unauthorized")

	// Collection errors
	ErrCollectionNotFound = errors.New("turnstile: collection not found")
	ErrPolicyNotSet       = errors.New("turnstile: transfer policy not set")
	ErrStrategyNotFound   = errors.New("turnstile: pricing strategy not found")
	ErrFaceValueNotSet    = errors.New("turnstile: face value not set")

	// Transfer errors
	ErrCooldownActive   = errors.New("turnstile: transfer cooldown active")
	ErrEventStarted     = errors.New("turnstile: event already started")
	ErrPriceExceedsCap  = errors.New("turnstile: price exceeds cap")
	ErrProofRejected    = errors.New("turnstile: proof verification failed")
	ErrInsufficientHold = errors.New("turnstile: insufficient balance")

	// Check-in errors
	ErrNotHolder        = errors.New("turnstile: caller holds no units")
	ErrAlreadyCheckedIn = errors.New("turnstile: already checked in")

	// Store errors
	ErrStoreNotReady   = errors.New("turnstile: store not ready")
	ErrStoreClosed     = errors.New("turnstile: store is closed")
	ErrMigrationFailed = errors.New("turnstile: migration failed")
)

// PolicyViolation is returned when a transfer is rejected by the
// enforcement rules. Reason carries the human-readable cause and Err
// the matching sentinel for errors.Is classification.
type PolicyViolation struct {
	Reason string
	Err    error
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("turnstile: transfer rejected: %s", e.Reason)
}

func (e *PolicyViolation) Unwrap() error { return e.Err }

// NewPolicyViolation wraps a sentinel with a descriptive reason.
func NewPolicyViolation(sentinel error, reason string) *PolicyViolation {
	return &PolicyViolation{Reason: reason, Err: sentinel}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrStrategyNotFound)
}

// IsPolicyViolation returns true if the error is a transfer rejection.
func IsPolicyViolation(err error) bool {
	var pv *PolicyViolation
	return errors.As(err, &pv)
}

// IsAuthorization returns true if the error is an authorization failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotHolder)
}
