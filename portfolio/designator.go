/*
designator.go - Symbolic account designators and proportional referents

PURPOSE:
  Charges never reference real ledger accounts. They reference symbolic
  account designators ("customer-loan-principal", "loan-funds-source")
  that each case maps to concrete accounts, and symbolic proportional
  referents ("principal", "requested-repayment") that are resolved
  against the running-balance snapshot at computation time.

  Both are closed tagged enumerations with exhaustive resolvers, so an
  unresolvable reference is a visible configuration error rather than a
  silent map miss.

SEE ALSO:
  - balances.go: RunningBalances the referents resolve against
  - charge.go: ChargeDefinition referencing both designator kinds
*/
package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT DESIGNATOR - Symbolic account role
// =============================================================================

type AccountDesignator string

const (
	AccountCustomerLoanPrincipal AccountDesignator = "customer-loan-principal"
	AccountCustomerLoanInterest  AccountDesignator = "customer-loan-interest"
	AccountCustomerLoanFees      AccountDesignator = "customer-loan-fees"
	AccountLoanFundsSource       AccountDesignator = "loan-funds-source"
	AccountProcessingFeeIncome   AccountDesignator = "processing-fee-income"
	AccountOriginationFeeIncome  AccountDesignator = "origination-fee-income"
	AccountDisbursementFeeIncome AccountDesignator = "disbursement-fee-income"
	AccountInterestIncome        AccountDesignator = "interest-income"
	AccountInterestAccrual       AccountDesignator = "interest-accrual"
	AccountLateFeeIncome         AccountDesignator = "late-fee-income"
	AccountLateFeeAccrual        AccountDesignator = "late-fee-accrual"
	AccountProductLossAllowance  AccountDesignator = "product-loss-allowance"
	AccountGeneralLossAllowance  AccountDesignator = "general-loss-allowance"
	AccountGeneralExpense        AccountDesignator = "general-expense"
	AccountEntry                 AccountDesignator = "entry"
)

// KnownAccountDesignators lists every designator the engine understands.
func KnownAccountDesignators() []AccountDesignator {
	return []AccountDesignator{
		AccountCustomerLoanPrincipal,
		AccountCustomerLoanInterest,
		AccountCustomerLoanFees,
		AccountLoanFundsSource,
		AccountProcessingFeeIncome,
		AccountOriginationFeeIncome,
		AccountDisbursementFeeIncome,
		AccountInterestIncome,
		AccountInterestAccrual,
		AccountLateFeeIncome,
		AccountLateFeeAccrual,
		AccountProductLossAllowance,
		AccountGeneralLossAllowance,
		AccountGeneralExpense,
		AccountEntry,
	}
}

// customerSettlementAccounts are the designators a repayment settles
// against, in settlement order. Charges drawing on these during
// ACCEPT_PAYMENT are capped at the unallocated payment amount.
var customerSettlementAccounts = map[AccountDesignator]bool{
	AccountCustomerLoanFees:      true,
	AccountCustomerLoanInterest:  true,
	AccountCustomerLoanPrincipal: true,
}

// =============================================================================
// PROPORTIONAL DESIGNATOR - What a PROPORTIONAL charge's rate multiplies
// =============================================================================

// ProportionalDesignator selects the referent a PROPORTIONAL charge's
// rate is applied to. The numeric value is also the fixed order of
// application: lower-valued referents are resolved and applied first so
// later ones observe updated balances.
type ProportionalDesignator int

const (
	ProportionalToNothing ProportionalDesignator = iota
	ProportionalToMaximumBalance
	ProportionalToRunningBalance
	ProportionalToPrincipal
	ProportionalToRequestedDisbursement
	ProportionalToToAccount
	ProportionalToFromAccount
	ProportionalToRequestedRepayment
	ProportionalToContractualRepayment
)

var proportionalNames = map[ProportionalDesignator]string{
	ProportionalToNothing:               "not-proportional",
	ProportionalToMaximumBalance:        "maximum-balance",
	ProportionalToRunningBalance:        "running-balance",
	ProportionalToPrincipal:             "principal",
	ProportionalToRequestedDisbursement: "requested-disbursement",
	ProportionalToToAccount:             "to-account",
	ProportionalToFromAccount:           "from-account",
	ProportionalToRequestedRepayment:    "requested-repayment",
	ProportionalToContractualRepayment:  "contractual-repayment",
}

func (d ProportionalDesignator) String() string {
	if n, ok := proportionalNames[d]; ok {
		return n
	}
	return fmt.Sprintf("proportional-designator(%d)", int(d))
}

// ApplicationOrder returns the fixed order of application (0..8).
func (d ProportionalDesignator) ApplicationOrder() int { return int(d) }

// ParseProportionalDesignator maps a stored designator name back to its
// tagged value. Unknown names are a configuration error.
func ParseProportionalDesignator(name string) (ProportionalDesignator, error) {
	for d, n := range proportionalNames {
		if n == name {
			return d, nil
		}
	}
	return ProportionalToNothing, &ConfigurationError{
		Detail: fmt.Sprintf("unknown proportional designator %q", name),
	}
}

// =============================================================================
// REFERENT RESOLUTION
// =============================================================================

// ReferentContext is the snapshot a proportional referent resolves against.
type ReferentContext struct {
	Balances *RunningBalances

	// Case parameter: the configured maximum balance.
	MaximumBalance decimal.Decimal

	// The amount named in the current disbursement instruction.
	RequestedDisbursement decimal.Decimal

	// The still-unallocated part of the payment amount requested by the
	// caller. Maintained by the accept-payment builder as settlement
	// charges apply.
	RequestedRepayment decimal.Decimal

	// The payment amount the amortization schedule defines for this period.
	ContractualRepayment decimal.Decimal

	// Principal about to be credited by an in-flight disbursement. The
	// principal referent includes it until the credit actually posts,
	// so provisioning at disbursement sees the post-disbursement
	// principal.
	PrincipalAdjustment decimal.Decimal

	// The two sides of the charge under evaluation.
	From AccountDesignator
	To   AccountDesignator
}

// Referent resolves the designator to its absolute quantity. The switch is
// exhaustive over the closed enumeration; a designator outside it means
// corrupted configuration and resolves to an error, never a zero.
func (d ProportionalDesignator) Referent(ctx ReferentContext) (decimal.Decimal, error) {
	switch d {
	case ProportionalToNothing:
		return decimal.NewFromInt(1), nil
	case ProportionalToMaximumBalance:
		return ctx.MaximumBalance, nil
	case ProportionalToRunningBalance:
		return ctx.Balances.VerifiedBalance(ctx.From)
	case ProportionalToPrincipal:
		principal, err := ctx.Balances.VerifiedBalance(AccountCustomerLoanPrincipal)
		if err != nil {
			return decimal.Zero, err
		}
		return principal.Add(ctx.PrincipalAdjustment), nil
	case ProportionalToRequestedDisbursement:
		return ctx.RequestedDisbursement, nil
	case ProportionalToToAccount:
		return ctx.Balances.VerifiedBalance(ctx.To)
	case ProportionalToFromAccount:
		return ctx.Balances.VerifiedBalance(ctx.From)
	case ProportionalToRequestedRepayment:
		return ctx.RequestedRepayment, nil
	case ProportionalToContractualRepayment:
		return ctx.ContractualRepayment, nil
	default:
		return decimal.Zero, &ConfigurationError{
			Detail: fmt.Sprintf("unresolvable proportional designator %d", int(d)),
		}
	}
}
