/*
schedule.go - Scheduled charge assembly and deterministic ordering

PURPOSE:
  For a given lifecycle action and date, the assembler gathers every
  applicable charge definition (directly triggered, accruing under the
  action, and any synthesized loss-provisioning charge), resolves each
  one's balance-segment range, and orders them deterministically.

ORDERING:
  Charges scheduled on the same date sort by, ascending:
    1. the action's fixed execution rank
    2. presence of a resolved balance-segment range before absence, so
       segment-specific overrides are evaluated ahead of the unsegmented
       default and can veto or replace it
    3. the proportional referent's order of application, so
       interdependent referents observe balances already updated by
       earlier charges
    4. the charge identifier, as the final deterministic tie-break
  This guarantees that when several charges mutate the same account,
  later charges observe the balance left by earlier ones.

CYCLE DATES:
  This file also derives the payment-cycle boundary dates the projector
  walks, honoring the cycle's alignment rules.
*/
package portfolio

import (
	"context"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// SCHEDULED ACTION AND SCHEDULED CHARGE
// =============================================================================

// ScheduledAction is a point at which one or more charges may fire.
type ScheduledAction struct {
	Action Action
	When   time.Time
}

// ScheduledCharge pairs a scheduled action with one charge definition and
// its resolved balance-segment range, if any.
type ScheduledCharge struct {
	ScheduledAction ScheduledAction
	Charge          ChargeDefinition
	Range           *ChargeRange
}

// CompareScheduledCharges orders two scheduled charges for the same date.
// Negative means a sorts before b.
func CompareScheduledCharges(a, b ScheduledCharge) int {
	if r := a.ScheduledAction.Action.Rank() - b.ScheduledAction.Action.Rank(); r != 0 {
		return r
	}
	aRanged, bRanged := a.Range != nil, b.Range != nil
	if aRanged != bRanged {
		if aRanged {
			return -1
		}
		return 1
	}
	if r := a.Charge.ProportionalOrder() - b.Charge.ProportionalOrder(); r != 0 {
		return r
	}
	return strings.Compare(a.Charge.Identifier, b.Charge.Identifier)
}

// SortScheduledCharges sorts in place using CompareScheduledCharges.
func SortScheduledCharges(charges []ScheduledCharge) {
	sort.SliceStable(charges, func(i, j int) bool {
		return CompareScheduledCharges(charges[i], charges[j]) < 0
	})
}

// =============================================================================
// CHARGE ASSEMBLER
// =============================================================================

// ChargeAssembler gathers and orders the charges applicable to one
// lifecycle action.
type ChargeAssembler struct {
	Products ProductRepository
}

// ScheduledCharges collects every charge definition whose charge action
// equals the action, plus accruing charges whose accrue action equals
// the action, plus any synthesized loss-provisioning charge for the
// action and days-late value, resolves each one's range, and returns
// them in deterministic order.
//
// daysLate is meaningful for MARK_LATE; disbursement provisions at zero.
func (a *ChargeAssembler) ScheduledCharges(ctx context.Context, productID string, sa ScheduledAction, daysLate int) ([]ScheduledCharge, error) {
	defs, err := a.Products.ChargeDefinitions(ctx, productID)
	if err != nil {
		return nil, err
	}

	var out []ScheduledCharge
	for _, def := range defs {
		triggered := def.ChargeAction == sa.Action
		accruing := def.AccrueAction != nil && *def.AccrueAction == sa.Action
		if !triggered && !accruing {
			continue
		}
		sc, applies, err := a.resolve(ctx, productID, sa, def)
		if err != nil {
			return nil, err
		}
		if applies {
			out = append(out, sc)
		}
	}

	if sa.Action == ActionMarkLate || sa.Action == ActionDisburse {
		lateness := daysLate
		if sa.Action == ActionDisburse {
			lateness = 0
		}
		steps, err := a.Products.LossProvisionSteps(ctx, productID)
		if err != nil {
			return nil, err
		}
		step, found, err := FindProvisionForDaysLate(productID, steps, lateness)
		if err != nil {
			return nil, err
		}
		if found && !step.Percentage.IsZero() {
			out = append(out, ScheduledCharge{
				ScheduledAction: sa,
				Charge:          SynthesizeProvisionCharge(step, sa.Action),
			})
		}
	}

	SortScheduledCharges(out)
	return out, nil
}

// resolve looks up the charge's segment range. A charge with no segment
// reference is always in range; a reference into a set that does not
// contain the named segments means the charge does not apply.
func (a *ChargeAssembler) resolve(ctx context.Context, productID string, sa ScheduledAction, def ChargeDefinition) (ScheduledCharge, bool, error) {
	sc := ScheduledCharge{ScheduledAction: sa, Charge: def}
	if def.Segments == nil {
		return sc, true, nil
	}

	set, found, err := a.Products.BalanceSegmentSet(ctx, productID, def.Segments.SegmentSetIdentifier)
	if err != nil {
		return ScheduledCharge{}, false, err
	}
	if !found {
		return ScheduledCharge{}, false, nil
	}
	r, ok := ResolveChargeRange(set, *def.Segments)
	if !ok {
		return ScheduledCharge{}, false, nil
	}
	sc.Range = &r
	return sc, true, nil
}

// =============================================================================
// PAYMENT CYCLE DATES
// =============================================================================

// PaymentDates derives the payment-cycle boundary dates for a case: one
// date per cycle from the first boundary after disbursal through the end
// of term. The final date is always the end of term so the last planned
// payment settles the case exactly.
func PaymentDates(cycle PaymentCycle, term TermRange, initialDisbursalDate time.Time) []time.Time {
	endOfTerm := term.EndOfTerm(initialDisbursalDate)
	period := cycle.Period
	if period <= 0 {
		period = 1
	}

	// Each boundary is counted from the unaligned disbursal date and
	// aligned independently. Advancing from an aligned boundary would let
	// AddDate's month-end normalization skip months (an aligned Mar 31
	// plus one month is May 1).
	var dates []time.Time
	last := initialDisbursalDate
	for i := 1; ; i++ {
		boundary := alignCycleDate(cycle, cycleBoundary(cycle, period*i, initialDisbursalDate))
		if !boundary.Before(endOfTerm) {
			break
		}
		if !boundary.After(last) {
			continue
		}
		dates = append(dates, boundary)
		last = boundary
	}
	dates = append(dates, endOfTerm)
	return dates
}

// cycleBoundary adds a whole number of cycle units to the anchor date.
func cycleBoundary(cycle PaymentCycle, units int, from time.Time) time.Time {
	switch cycle.TemporalUnit {
	case UnitYears:
		return from.AddDate(units, 0, 0)
	case UnitMonths:
		return from.AddDate(0, units, 0)
	case UnitWeeks:
		return from.AddDate(0, 0, 7*units)
	default:
		return from.AddDate(0, 0, units)
	}
}

// alignCycleDate snaps a boundary to the cycle's alignment rules.
func alignCycleDate(cycle PaymentCycle, at time.Time) time.Time {
	switch cycle.TemporalUnit {
	case UnitWeeks:
		if cycle.AlignmentDay == nil {
			return at
		}
		// Alignment day is a weekday; move forward to it. The positive
		// modulo keeps the target in 0..6 even for values Go's % would
		// map below zero, which the weekday loop could never reach.
		target := time.Weekday(((*cycle.AlignmentDay % 7) + 7) % 7)
		for at.Weekday() != target {
			at = at.AddDate(0, 0, 1)
		}
		return at

	case UnitMonths, UnitYears:
		if cycle.TemporalUnit == UnitYears && cycle.AlignmentMonth != nil {
			month := time.Month(((*cycle.AlignmentMonth-1)%12 + 12) % 12 + 1)
			at = time.Date(at.Year(), month, at.Day(), 0, 0, 0, 0, time.UTC)
		}
		if cycle.AlignmentDay == nil {
			return at
		}
		if cycle.AlignmentWeek != nil {
			return alignToWeekdayInMonth(at, *cycle.AlignmentWeek, time.Weekday(((*cycle.AlignmentDay%7)+7)%7))
		}
		return alignToDayOfMonth(at, *cycle.AlignmentDay)

	default:
		return at
	}
}

// alignToDayOfMonth clamps a 1-based day to the month's length.
func alignToDayOfMonth(at time.Time, day int) time.Time {
	if day < 1 {
		day = 1
	}
	last := daysInMonth(at.Year(), at.Month())
	if day > last {
		day = last
	}
	return time.Date(at.Year(), at.Month(), day, 0, 0, 0, 0, time.UTC)
}

// alignToWeekdayInMonth finds the weekday in the 0-based week of the
// month; week -1 means the last occurrence.
func alignToWeekdayInMonth(at time.Time, week int, weekday time.Weekday) time.Time {
	first := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	if week >= 0 {
		d := first.AddDate(0, 0, offset+7*week)
		if d.Month() != at.Month() {
			d = d.AddDate(0, 0, -7)
		}
		return d
	}
	d := first.AddDate(0, 0, offset)
	for d.AddDate(0, 0, 7).Month() == at.Month() {
		d = d.AddDate(0, 0, 7)
	}
	return d
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
