/*
provision.go - Loss provisioning lookup and charge synthesis

PURPOSE:
  Loss provisioning reserves a percentage of outstanding principal as a
  case ages into lateness. The product carries a table of steps mapping
  "days late" to a provisioning percentage; disbursement provisions at
  days late zero. On a match the engine synthesizes a read-only
  PROPORTIONAL charge against principal that builds the loss allowance.

UNIQUENESS:
  At most one step may exist per distinct days-late value. Duplicates
  must be rejected when the table is written; meeting one during a
  calculation is an internal error, not something a caller can fix.
*/
package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LOSS PROVISION STEP
// =============================================================================

// LossProvisionStep maps a days-late threshold to a provisioning
// percentage (0..100, two decimal places).
type LossProvisionStep struct {
	DaysLate   int
	Percentage decimal.Decimal
}

// ValidateLossProvisionSteps enforces the write-time invariants of a
// provision table: unique days-late values and percentages within
// [0, 100] at two-decimal precision.
func ValidateLossProvisionSteps(productID string, steps []LossProvisionStep) error {
	seen := make(map[int]bool, len(steps))
	for _, step := range steps {
		if seen[step.DaysLate] {
			return &AmbiguousConfigurationError{ProductIdentifier: productID,
				Detail: fmt.Sprintf("more than one loss provision step for %d days late", step.DaysLate)}
		}
		seen[step.DaysLate] = true
		if step.Percentage.IsNegative() || step.Percentage.GreaterThan(hundred) {
			return &AmbiguousConfigurationError{ProductIdentifier: productID,
				Detail: fmt.Sprintf("loss provision percentage %s is outside [0, 100]", step.Percentage)}
		}
		if step.Percentage.Exponent() < -2 {
			return &AmbiguousConfigurationError{ProductIdentifier: productID,
				Detail: fmt.Sprintf("loss provision percentage %s exceeds two decimal places", step.Percentage)}
		}
	}
	return nil
}

// FindProvisionForDaysLate looks up the unique step for the given
// days-late value. Zero matches means no provisioning this period. More
// than one match means the table escaped write-time validation and the
// calculation must stop.
func FindProvisionForDaysLate(productID string, steps []LossProvisionStep, daysLate int) (LossProvisionStep, bool, error) {
	var found *LossProvisionStep
	for i := range steps {
		if steps[i].DaysLate != daysLate {
			continue
		}
		if found != nil {
			return LossProvisionStep{}, false, &AmbiguousConfigurationError{ProductIdentifier: productID,
				Detail: fmt.Sprintf("more than one loss provision step for %d days late", daysLate)}
		}
		found = &steps[i]
	}
	if found == nil {
		return LossProvisionStep{}, false, nil
	}
	return *found, true, nil
}

// =============================================================================
// CHARGE SYNTHESIS
// =============================================================================

// SynthesizeProvisionCharge builds the read-only loss-provisioning
// charge for a matched step. The triggering action is MARK_LATE or
// DISBURSE; the charge provisions a percentage of outstanding principal
// into the general loss allowance.
func SynthesizeProvisionCharge(step LossProvisionStep, trigger Action) ChargeDefinition {
	proportionalTo := ProportionalToPrincipal
	accrual := AccountGeneralLossAllowance
	return ChargeDefinition{
		Identifier:               ChargeLossProvisioning,
		Name:                     "Loss provisioning",
		ChargeAction:             trigger,
		Amount:                   step.Percentage,
		Method:                   MethodProportional,
		ProportionalTo:           &proportionalTo,
		FromAccountDesignator:    AccountProductLossAllowance,
		AccrualAccountDesignator: &accrual,
		ToAccountDesignator:      AccountGeneralExpense,
		ReadOnly:                 true,
	}
}
