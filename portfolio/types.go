/*
Package portfolio provides the charge and schedule calculation engine for
individual-lending loan products.

PURPOSE:
  This package contains the pure computation core of the lending system:
  the case lifecycle state machine, the symbolic charge-definition model,
  tiered balance-segment resolution, deterministic charge ordering, the
  per-action cost-component builder, and the planned-payment projector.

KEY CONCEPTS IN THIS FILE (types.go):
  - Case: One active loan instance of a product
  - CaseParameters: The negotiated terms (balance, term, payment cycle)
  - PaymentCycle: How often repayment falls due, with alignment rules
  - ChronoUnit: Calendar units used by terms, cycles and rate periods

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks, no hidden state. Same input, same output.
  2. Precision: decimal.Decimal everywhere, round-half-even at each
     monetary boundary (RoundBank).
  3. Type safety: Designators and actions are closed tagged values, not
     free-form strings.

SEE ALSO:
  - action.go: Lifecycle actions, execution ranks, state machine
  - charge.go: Charge definition model
  - payment.go: Cost-component builder
  - projector.go: Planned-payment projection
*/
package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHRONO UNIT - Calendar units for terms, cycles and rate periods
// =============================================================================

type ChronoUnit string

const (
	UnitYears  ChronoUnit = "years"
	UnitMonths ChronoUnit = "months"
	UnitWeeks  ChronoUnit = "weeks"
	UnitDays   ChronoUnit = "days"
)

// DaysIn returns the conventional day count of one unit. Interest
// convention is 365-day years and 30-day months.
func (u ChronoUnit) DaysIn() int {
	switch u {
	case UnitYears:
		return 365
	case UnitMonths:
		return 30
	case UnitWeeks:
		return 7
	default:
		return 1
	}
}

// =============================================================================
// TERM AND PAYMENT CYCLE
// =============================================================================

// TermRange is the negotiated maximum term of a case.
type TermRange struct {
	TemporalUnit ChronoUnit
	Maximum      int
}

// EndOfTerm returns the final day of the term counted from the given start.
func (t TermRange) EndOfTerm(startOfTerm time.Time) time.Time {
	switch t.TemporalUnit {
	case UnitYears:
		return startOfTerm.AddDate(t.Maximum, 0, 0)
	case UnitMonths:
		return startOfTerm.AddDate(0, t.Maximum, 0)
	case UnitWeeks:
		return startOfTerm.AddDate(0, 0, 7*t.Maximum)
	default:
		return startOfTerm.AddDate(0, 0, t.Maximum)
	}
}

// PaymentCycle describes how often a planned payment falls due.
//
// Alignment fields are optional:
//   - AlignmentDay: for monthly/yearly cycles the day of month (1-based,
//     clamped to month end); for weekly cycles the weekday (0 = Sunday).
//   - AlignmentWeek: for monthly cycles, which week of the month the
//     AlignmentDay weekday falls in (0-based; -1 = last).
//   - AlignmentMonth: for yearly cycles, the month (1-based).
type PaymentCycle struct {
	TemporalUnit   ChronoUnit
	Period         int
	AlignmentDay   *int
	AlignmentWeek  *int
	AlignmentMonth *int
}

// PeriodsPerYear returns how many payment periods fit in one year under
// the 365/30/7 day-count convention.
func (pc PaymentCycle) PeriodsPerYear() decimal.Decimal {
	period := pc.Period
	if period <= 0 {
		period = 1
	}
	unitDays := decimal.NewFromInt(int64(pc.TemporalUnit.DaysIn() * period))
	return daysPerYear.Div(unitDays)
}

// Validate rejects alignment values outside their calendar ranges, so a
// stored case can never feed the date derivation an alignment it cannot
// satisfy. Weekly alignment days are weekdays 0..6 (0 = Sunday); monthly
// and yearly alignment days are 1..31; alignment weeks are 0..4 or -1
// for the last occurrence; alignment months are 1..12.
func (pc PaymentCycle) Validate() error {
	switch pc.TemporalUnit {
	case UnitWeeks:
		if pc.AlignmentDay != nil && (*pc.AlignmentDay < 0 || *pc.AlignmentDay > 6) {
			return &ConfigurationError{
				Detail: fmt.Sprintf("weekly alignment day %d outside 0..6", *pc.AlignmentDay),
			}
		}
	case UnitMonths, UnitYears:
		if pc.AlignmentDay != nil && (*pc.AlignmentDay < 1 || *pc.AlignmentDay > 31) {
			return &ConfigurationError{
				Detail: fmt.Sprintf("alignment day %d outside 1..31", *pc.AlignmentDay),
			}
		}
		if pc.AlignmentWeek != nil && (*pc.AlignmentWeek < -1 || *pc.AlignmentWeek > 4) {
			return &ConfigurationError{
				Detail: fmt.Sprintf("alignment week %d outside -1..4", *pc.AlignmentWeek),
			}
		}
		if pc.AlignmentMonth != nil && (*pc.AlignmentMonth < 1 || *pc.AlignmentMonth > 12) {
			return &ConfigurationError{
				Detail: fmt.Sprintf("alignment month %d outside 1..12", *pc.AlignmentMonth),
			}
		}
	}
	return nil
}

// =============================================================================
// CASE - One loan instance of a product
// =============================================================================

// CaseParameters are the negotiated terms of one case.
type CaseParameters struct {
	CustomerIdentifier      string
	BalanceRangeMaximum     decimal.Decimal
	TermRange               TermRange
	PaymentCycle            PaymentCycle
	MinorCurrencyUnitDigits int32
}

// Scale returns the currency's fractional digits, defaulting to 2.
func (p CaseParameters) Scale() int32 {
	if p.MinorCurrencyUnitDigits <= 0 {
		return 2
	}
	return p.MinorCurrencyUnitDigits
}

// Case is one loan instance of a product: its lifecycle state, rate, terms,
// and the mapping from symbolic account designators to real ledger accounts.
//
// Invariant: every designator referenced by any charge definition attached
// to the case's product must be present in AccountAssignments before the
// case may be activated. See products.ValidateAccountAssignments.
type Case struct {
	Identifier        string
	ProductIdentifier string
	CurrentState      State

	// Annual nominal interest rate as a percentage (5.00 means 5%).
	InterestRate decimal.Decimal

	Parameters CaseParameters

	// Designator -> real account/ledger identifier.
	AccountAssignments map[AccountDesignator]string

	StartOfTerm *time.Time
	EndOfTerm   *time.Time
}

// AssignedDesignators returns the set of designators mapped on this case.
func (c Case) AssignedDesignators() []AccountDesignator {
	out := make([]AccountDesignator, 0, len(c.AccountAssignments))
	for d := range c.AccountAssignments {
		out = append(out, d)
	}
	return out
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// RoundMoney applies round-half-even at the currency's fractional digits.
// Every monetary computation boundary in this package goes through it;
// nothing is ever silently truncated.
func RoundMoney(v decimal.Decimal, scale int32) decimal.Decimal {
	return v.RoundBank(scale)
}

// Date truncates a timestamp to a UTC calendar date. The engine works in
// whole days; callers may pass timestamps but only the date is significant.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two timestamps fall on the same UTC calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
