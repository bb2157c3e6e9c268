/*
errors.go - Centralized error types for the calculation engine

PURPOSE:
  All engine error types in one place. The taxonomy follows how callers
  must react:

  InvalidTransition      user-correctable; surface as a rejection
  ConfigurationMismatch  the product is not ready; log and surface as
                         "product not ready" (unassigned designator,
                         unresolvable referent)
  AmbiguousConfiguration write-time validation failure; encountering one
                         at calculation time is an internal error, not a
                         user input problem

  The engine is deterministic and pure, so none of these are retried
  internally; a retry with unchanged input reproduces the same error.

USAGE:
  if errors.Is(err, portfolio.ErrBadConfiguration) {
      // surface "product not ready"
  }
*/
package portfolio

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when an action is not legal for the
	// case's current lifecycle state.
	ErrInvalidTransition = errors.New("action not legal in current state")

	// ErrBadConfiguration is returned when a charge's computation cannot be
	// completed: an account designator without an assignment, or a
	// proportional referent that cannot be resolved.
	ErrBadConfiguration = errors.New("product configuration incomplete")

	// ErrAmbiguousConfiguration is returned when reference data that must be
	// unique is not: duplicate loss-provision steps for one days-late value,
	// or non-ascending balance segments. This should have been rejected at
	// write time; at calculation time it is an internal error.
	ErrAmbiguousConfiguration = errors.New("ambiguous product configuration")

	// ErrMissingRequestedAmount is returned when an action requires a
	// requested amount (disbursement, payment) and none was supplied.
	ErrMissingRequestedAmount = errors.New("action requires a requested amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError reports an action attempted outside the
// transition table.
type InvalidTransitionError struct {
	State  State
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %s is not legal in state %s", e.Action, e.State)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ConfigurationError reports a charge whose computation failed because
// the product or case configuration is incomplete.
type ConfigurationError struct {
	ProductIdentifier string
	ChargeIdentifier  string
	Detail            string
}

func (e *ConfigurationError) Error() string {
	msg := "bad configuration"
	if e.ChargeIdentifier != "" {
		msg = fmt.Sprintf("%s: charge %q", msg, e.ChargeIdentifier)
	}
	if e.ProductIdentifier != "" {
		msg = fmt.Sprintf("%s: product %q", msg, e.ProductIdentifier)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return ErrBadConfiguration }

// AmbiguousConfigurationError reports reference data that violates a
// uniqueness invariant.
type AmbiguousConfigurationError struct {
	ProductIdentifier string
	Detail            string
}

func (e *AmbiguousConfigurationError) Error() string {
	return fmt.Sprintf("ambiguous configuration for product %q: %s", e.ProductIdentifier, e.Detail)
}

func (e *AmbiguousConfigurationError) Unwrap() error { return ErrAmbiguousConfiguration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrMissingRequestedAmount)
}

// IsInternalError returns true if the error indicates a bug or corrupted
// reference data rather than bad user input.
func IsInternalError(err error) bool {
	return errors.Is(err, ErrAmbiguousConfiguration)
}
