/*
Package products provides individual-lending product presets and
product-level validation on top of the portfolio engine.

PURPOSE:
  The engine computes whatever charges a product configures; this
  package supplies the standard configuration an individual loan
  product ships with, and the validation that must pass before a
  product may be activated for a case.

STANDARD CHARGE SET:
  loan-origination-fee  OPEN            rate on the maximum balance
  processing-fee        OPEN            fixed
  disburse-payment      DISBURSE        moves the requested amount to principal
  disbursement-fee      DISBURSE        rate on the requested amount
  interest              APPLY_INTEREST  accrues daily, charged on payment
  late-fee              MARK_LATE       accrues per lateness event, charged on payment
  repay-fees            ACCEPT_PAYMENT  settles fees owed
  repay-interest        ACCEPT_PAYMENT  settles interest owed
  repay-principal       ACCEPT_PAYMENT  settles principal
  write-off             WRITE_OFF       consumes the loss allowance

SEE ALSO:
  - portfolio/charge.go: The charge definition model
  - factory/: JSON configuration producing the same structures
*/
package products

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/lending-engine/portfolio"
)

// =============================================================================
// CHARGE CONFIG - Product-level knobs for the standard set
// =============================================================================

// ChargeConfig carries the rates and amounts of the standard individual
// loan charge set.
type ChargeConfig struct {
	// Annual nominal interest rate as a percentage. A case's own rate
	// overrides this at calculation time.
	InterestRate decimal.Decimal

	// Rate on the requested disbursement amount.
	DisbursementFeeRate decimal.Decimal

	// Rate on the case's maximum balance, charged when the case opens.
	OriginationFeeRate decimal.Decimal

	// Fixed processing fee charged when the case opens.
	ProcessingFee decimal.Decimal

	// Rate on the contractual repayment, accrued per lateness event.
	LateFeeRate decimal.Decimal
}

// DefaultChargeConfig returns the rates a fresh product starts with.
func DefaultChargeConfig() ChargeConfig {
	return ChargeConfig{
		InterestRate:        decimal.RequireFromString("5.00"),
		DisbursementFeeRate: decimal.RequireFromString("0.10"),
		OriginationFeeRate:  decimal.RequireFromString("1.00"),
		ProcessingFee:       decimal.RequireFromString("10.00"),
		LateFeeRate:         decimal.RequireFromString("2.00"),
	}
}

// =============================================================================
// STANDARD CHARGE SET
// =============================================================================

// IndividualLoanCharges builds the standard charge definitions for an
// individual loan product.
func IndividualLoanCharges(cfg ChargeConfig) []portfolio.ChargeDefinition {
	maximumBalance := portfolio.ProportionalToMaximumBalance
	requestedDisbursement := portfolio.ProportionalToRequestedDisbursement
	requestedRepayment := portfolio.ProportionalToRequestedRepayment
	contractualRepayment := portfolio.ProportionalToContractualRepayment
	runningBalance := portfolio.ProportionalToRunningBalance
	principal := portfolio.ProportionalToPrincipal

	applyInterest := portfolio.ActionApplyInterest
	markLate := portfolio.ActionMarkLate

	interestAccrual := portfolio.AccountInterestAccrual
	lateFeeAccrual := portfolio.AccountLateFeeAccrual

	hundredPercent := decimal.NewFromInt(100)
	perYear := portfolio.UnitYears

	return []portfolio.ChargeDefinition{
		{
			Identifier:            portfolio.ChargeOriginationFee,
			Name:                  "Loan origination fee",
			ChargeAction:          portfolio.ActionOpen,
			Amount:                cfg.OriginationFeeRate,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &maximumBalance,
			FromAccountDesignator: portfolio.AccountCustomerLoanFees,
			ToAccountDesignator:   portfolio.AccountOriginationFeeIncome,
			ChargeOnTop:           true,
		},
		{
			Identifier:            portfolio.ChargeProcessingFee,
			Name:                  "Processing fee",
			ChargeAction:          portfolio.ActionOpen,
			Amount:                cfg.ProcessingFee,
			Method:                portfolio.MethodFixed,
			FromAccountDesignator: portfolio.AccountCustomerLoanFees,
			ToAccountDesignator:   portfolio.AccountProcessingFeeIncome,
			ChargeOnTop:           true,
		},
		{
			Identifier:            portfolio.ChargeDisbursePayment,
			Name:                  "Disbursement",
			ChargeAction:          portfolio.ActionDisburse,
			Amount:                hundredPercent,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &requestedDisbursement,
			FromAccountDesignator: portfolio.AccountLoanFundsSource,
			ToAccountDesignator:   portfolio.AccountCustomerLoanPrincipal,
			ReadOnly:              true,
		},
		{
			Identifier:            portfolio.ChargeDisbursementFee,
			Name:                  "Disbursement fee",
			ChargeAction:          portfolio.ActionDisburse,
			Amount:                cfg.DisbursementFeeRate,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &requestedDisbursement,
			FromAccountDesignator: portfolio.AccountCustomerLoanFees,
			ToAccountDesignator:   portfolio.AccountDisbursementFeeIncome,
			ChargeOnTop:           true,
		},
		{
			Identifier:               portfolio.ChargeInterest,
			Name:                     "Interest",
			ChargeAction:             portfolio.ActionAcceptPayment,
			AccrueAction:             &applyInterest,
			Amount:                   cfg.InterestRate,
			Method:                   portfolio.MethodProportional,
			ProportionalTo:           &principal,
			FromAccountDesignator:    portfolio.AccountCustomerLoanInterest,
			AccrualAccountDesignator: &interestAccrual,
			ToAccountDesignator:      portfolio.AccountInterestIncome,
			ForCycleSizeUnit:         &perYear,
		},
		{
			Identifier:               portfolio.ChargeLateFee,
			Name:                     "Late fee",
			ChargeAction:             portfolio.ActionAcceptPayment,
			AccrueAction:             &markLate,
			Amount:                   cfg.LateFeeRate,
			Method:                   portfolio.MethodProportional,
			ProportionalTo:           &contractualRepayment,
			FromAccountDesignator:    portfolio.AccountCustomerLoanFees,
			AccrualAccountDesignator: &lateFeeAccrual,
			ToAccountDesignator:      portfolio.AccountLateFeeIncome,
		},
		{
			Identifier:            portfolio.ChargeRepayFees,
			Name:                  "Fee repayment",
			ChargeAction:          portfolio.ActionAcceptPayment,
			Amount:                hundredPercent,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &runningBalance,
			FromAccountDesignator: portfolio.AccountCustomerLoanFees,
			ToAccountDesignator:   portfolio.AccountEntry,
			ReadOnly:              true,
		},
		{
			Identifier:            portfolio.ChargeRepayInterest,
			Name:                  "Interest repayment",
			ChargeAction:          portfolio.ActionAcceptPayment,
			Amount:                hundredPercent,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &runningBalance,
			FromAccountDesignator: portfolio.AccountCustomerLoanInterest,
			ToAccountDesignator:   portfolio.AccountEntry,
			ReadOnly:              true,
		},
		{
			Identifier:            portfolio.ChargeRepayPrincipal,
			Name:                  "Principal repayment",
			ChargeAction:          portfolio.ActionAcceptPayment,
			Amount:                hundredPercent,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &requestedRepayment,
			FromAccountDesignator: portfolio.AccountCustomerLoanPrincipal,
			ToAccountDesignator:   portfolio.AccountLoanFundsSource,
			ReadOnly:              true,
		},
		{
			Identifier:            portfolio.ChargeWriteOff,
			Name:                  "Write off",
			ChargeAction:          portfolio.ActionWriteOff,
			Amount:                hundredPercent,
			Method:                portfolio.MethodProportional,
			ProportionalTo:        &runningBalance,
			FromAccountDesignator: portfolio.AccountCustomerLoanPrincipal,
			ToAccountDesignator:   portfolio.AccountGeneralLossAllowance,
			ReadOnly:              true,
		},
	}
}

// =============================================================================
// ACTIVATION VALIDATION
// =============================================================================

// RequiredDesignators returns every account designator referenced by the
// given charge definitions, in no particular order.
func RequiredDesignators(charges []portfolio.ChargeDefinition) []portfolio.AccountDesignator {
	set := make(map[portfolio.AccountDesignator]bool)
	for _, c := range charges {
		set[c.FromAccountDesignator] = true
		set[c.ToAccountDesignator] = true
		if c.AccrualAccountDesignator != nil {
			set[*c.AccrualAccountDesignator] = true
		}
	}
	out := make([]portfolio.AccountDesignator, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// ValidateAccountAssignments checks the activation invariant: every
// designator referenced by any charge attached to the case's product
// must be mapped to a real account before the product may be activated.
func ValidateAccountAssignments(charges []portfolio.ChargeDefinition, c portfolio.Case) error {
	for _, d := range RequiredDesignators(charges) {
		if _, ok := c.AccountAssignments[d]; !ok {
			return &portfolio.ConfigurationError{
				ProductIdentifier: c.ProductIdentifier,
				Detail:            fmt.Sprintf("designator %q has no account assignment", d),
			}
		}
	}
	return nil
}

// =============================================================================
// LEGACY PROVISION TOTAL
// =============================================================================

// ValidateProvisionTotal enforces the older product generation's rule
// that provisioning percentages across all steps sum to exactly 100.
// Newer products do not carry this constraint; apply it only where the
// product variant demands it.
func ValidateProvisionTotal(productID string, steps []portfolio.LossProvisionStep) error {
	total := decimal.Zero
	for _, s := range steps {
		total = total.Add(s.Percentage)
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		return &portfolio.AmbiguousConfigurationError{
			ProductIdentifier: productID,
			Detail:            fmt.Sprintf("loss provision percentages sum to %s, expected 100", total),
		}
	}
	return nil
}
