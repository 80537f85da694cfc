package negotiation

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionUnavailable marks a failed or timed out intent extraction.
	// The session recovers by negotiating with unknown signals.
	ErrExtractionUnavailable = errors.New("intent extraction unavailable")
	// ErrInvalidSignal marks an extracted value outside its domain. It is
	// recovered by clamping and only ever logged.
	ErrInvalidSignal = errors.New("invalid intent signal")
	// ErrCredentialService marks a failed credential issuance or update.
	ErrCredentialService = errors.New("credential service failure")
	// ErrNegotiation is matched by every error returned from Negotiate.
	ErrNegotiation = errors.New("negotiation failed")
	// ErrEmptyUserID is returned when a request carries no user id.
	ErrEmptyUserID = errors.New("empty user id")
	// ErrNoActivePlan is returned by Nudge when the user has no plan queued.
	ErrNoActivePlan = errors.New("no active plan")
)

// NegotiationError reports a negotiation that failed as a whole. The queue
// is left untouched.
type NegotiationError struct {
	UserID string
	Cause  error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation for %q failed: %v", e.UserID, e.Cause)
}

// Unwrap exposes both the cause and ErrNegotiation to errors.Is.
func (e *NegotiationError) Unwrap() []error {
	return []error{ErrNegotiation, e.Cause}
}
