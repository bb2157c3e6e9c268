/*
charge.go - The symbolic charge-definition model

PURPOSE:
  A ChargeDefinition is the configured rule for computing one monetary
  effect of a lifecycle action. It says nothing about real accounts or
  real amounts until it is evaluated against a case: accounts are
  symbolic designators and PROPORTIONAL amounts are rates against a
  symbolic referent.

ACCRUAL:
  A charge whose AccrueAction differs from its ChargeAction builds up
  value in an accrual account on every occurrence of the accrue action,
  and transfers the accrued value out when the charge action occurs.
  Interest is the canonical example: it accrues daily under
  APPLY_INTEREST and is charged when a payment is accepted.

SEE ALSO:
  - segment.go: Balance-segment ranges a charge may be confined to
  - payment.go: Evaluation of charges into cost components
*/
package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STANDARD CHARGE IDENTIFIERS
// =============================================================================

const (
	ChargeInterest         = "interest"
	ChargeRepayPrincipal   = "repay-principal"
	ChargeRepayInterest    = "repay-interest"
	ChargeRepayFees        = "repay-fees"
	ChargeDisbursePayment  = "disburse-payment"
	ChargeDisbursementFee  = "disbursement-fee"
	ChargeProcessingFee    = "processing-fee"
	ChargeOriginationFee   = "loan-origination-fee"
	ChargeLateFee          = "late-fee"
	ChargeLossProvisioning = "loss-provisioning"
	ChargeWriteOff         = "write-off"
)

// =============================================================================
// CHARGE DEFINITION
// =============================================================================

type ChargeMethod string

const (
	MethodFixed        ChargeMethod = "FIXED"
	MethodProportional ChargeMethod = "PROPORTIONAL"
)

// SegmentRange confines a charge to one band of a balance segment set.
// FromSegment and ToSegment name segment identifiers within the set.
type SegmentRange struct {
	SegmentSetIdentifier string
	FromSegment          string
	ToSegment            string
}

// ChargeDefinition is the configuration data describing how one charge
// is computed.
//
// Invariants (enforced by Validate):
//   - a PROPORTIONAL charge has a proportional-to designator
//   - accrue action and accrual account designator come together or not
//     at all, except for charges that accrue at their own charge action
//     (loss provisioning)
//   - a segment reference names both a from and a to segment
type ChargeDefinition struct {
	Identifier string
	Name       string

	// The action that causes the charge to be charged.
	ChargeAction Action

	// The action that causes the charge to accrue before it is charged.
	// Nil for charges applied in one step.
	AccrueAction *Action

	// FIXED: an absolute amount. PROPORTIONAL: a rate as a percentage
	// (5.00 means five percent).
	Amount decimal.Decimal

	Method ChargeMethod

	// The referent the rate multiplies. Required for PROPORTIONAL.
	ProportionalTo *ProportionalDesignator

	FromAccountDesignator    AccountDesignator
	AccrualAccountDesignator *AccountDesignator
	ToAccountDesignator      AccountDesignator

	// For rates expressed per calendar unit (interest per year). When set,
	// one accrual occurrence covers one day of that unit.
	ForCycleSizeUnit *ChronoUnit

	// Optional confinement to a balance-segment band.
	Segments *SegmentRange

	// ReadOnly marks system-synthesized charges that cannot be edited.
	ReadOnly bool

	// ChargeOnTop charges are added to what the customer owes rather than
	// transferred out of the from side.
	ChargeOnTop bool
}

// Accrues reports whether the charge builds up in an accrual account
// before being charged.
func (c ChargeDefinition) Accrues() bool {
	return c.AccrueAction != nil && c.AccrualAccountDesignator != nil
}

// ProportionalOrder returns the application order of the charge's
// referent; FIXED charges apply first (order zero).
func (c ChargeDefinition) ProportionalOrder() int {
	if c.Method != MethodProportional || c.ProportionalTo == nil {
		return ProportionalToNothing.ApplicationOrder()
	}
	return c.ProportionalTo.ApplicationOrder()
}

// Validate checks the charge definition's internal invariants.
func (c ChargeDefinition) Validate() error {
	if c.Identifier == "" {
		return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: "charge identifier is required"}
	}
	switch c.Method {
	case MethodFixed, MethodProportional:
	default:
		return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: fmt.Sprintf("unknown charge method %q", c.Method)}
	}
	if c.Method == MethodProportional && c.ProportionalTo == nil {
		return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: "proportional charge requires a proportional-to designator"}
	}
	if (c.AccrueAction == nil) != (c.AccrualAccountDesignator == nil) {
		// Loss provisioning is the one charge that accrues without a
		// separate accrue action: it posts into its allowance account at
		// its own charge action.
		if !(c.AccrueAction == nil && c.Identifier == ChargeLossProvisioning) {
			return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: "accrue action and accrual account designator must both be present or both absent"}
		}
	}
	if c.Segments != nil {
		if c.Segments.SegmentSetIdentifier == "" {
			return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: "segment reference requires a segment set identifier"}
		}
		if (c.Segments.FromSegment == "") || (c.Segments.ToSegment == "") {
			return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: "segment reference requires both from and to segment identifiers"}
		}
	}
	if c.Amount.IsNegative() {
		return &ConfigurationError{ChargeIdentifier: c.Identifier, Detail: "charge amount must not be negative"}
	}
	return nil
}
