/*
balances.go - Per-calculation running balances

PURPOSE:
  RunningBalances is the mutable accumulator one builder invocation works
  against: a mapping from account designator to current signed balance,
  seeded from the case's actual or simulated state and updated as each
  cost component is applied. Its lifetime is one calculation call; it is
  never shared across calls and never persisted.

ASSIGNMENT TRACKING:
  Besides balances, the accumulator knows which designators the case has
  mapped to real accounts. Resolving a referent against an unassigned
  designator is a configuration error, not a zero.
*/
package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RunningBalances maps account designators to current signed balances
// for the duration of one calculation.
type RunningBalances struct {
	balances map[AccountDesignator]decimal.Decimal
	deltas   map[AccountDesignator]decimal.Decimal
	assigned map[AccountDesignator]bool
}

// NewRunningBalances returns an empty accumulator with no designators
// assigned. Seed assignments and balances before building payments.
func NewRunningBalances() *RunningBalances {
	return &RunningBalances{
		balances: make(map[AccountDesignator]decimal.Decimal),
		deltas:   make(map[AccountDesignator]decimal.Decimal),
		assigned: make(map[AccountDesignator]bool),
	}
}

// ForCase returns an accumulator whose assigned set mirrors the case's
// account assignments. Balances start at zero; callers seed actual or
// simulated balances on top.
func ForCase(c Case) *RunningBalances {
	rb := NewRunningBalances()
	for d := range c.AccountAssignments {
		rb.assigned[d] = true
	}
	return rb
}

// Assign marks a designator as mapped to a real account.
func (rb *RunningBalances) Assign(d AccountDesignator) { rb.assigned[d] = true }

// Seed sets the starting balance of a designator without recording a
// delta. Seeding also assigns the designator.
func (rb *RunningBalances) Seed(d AccountDesignator, v decimal.Decimal) {
	rb.balances[d] = v
	rb.assigned[d] = true
}

// Assigned reports whether the case maps the designator to a real account.
func (rb *RunningBalances) Assigned(d AccountDesignator) bool { return rb.assigned[d] }

// Balance returns the current balance of a designator, zero if untouched.
func (rb *RunningBalances) Balance(d AccountDesignator) decimal.Decimal {
	return rb.balances[d]
}

// VerifiedBalance returns the balance of a designator, failing when the
// case has no account assigned for it.
func (rb *RunningBalances) VerifiedBalance(d AccountDesignator) (decimal.Decimal, error) {
	if !rb.assigned[d] {
		return decimal.Zero, &ConfigurationError{
			Detail: fmt.Sprintf("no account assigned for designator %q", d),
		}
	}
	return rb.balances[d], nil
}

// Adjust applies a signed delta to a designator's balance and records it
// for the calculation's net adjustment summary.
func (rb *RunningBalances) Adjust(d AccountDesignator, delta decimal.Decimal) {
	rb.balances[d] = rb.balances[d].Add(delta)
	rb.deltas[d] = rb.deltas[d].Add(delta)
}

// Adjustments returns the net signed delta per designator accumulated
// since seeding. This is what a ledger adapter books downstream.
func (rb *RunningBalances) Adjustments() map[AccountDesignator]decimal.Decimal {
	out := make(map[AccountDesignator]decimal.Decimal, len(rb.deltas))
	for d, v := range rb.deltas {
		if !v.IsZero() {
			out[d] = v
		}
	}
	return out
}

// Snapshot returns a copy of all non-zero balances.
func (rb *RunningBalances) Snapshot() map[AccountDesignator]decimal.Decimal {
	out := make(map[AccountDesignator]decimal.Decimal, len(rb.balances))
	for d, v := range rb.balances {
		if !v.IsZero() {
			out[d] = v
		}
	}
	return out
}

// Clone returns an independent copy. The projector uses this to carry
// simulated state from one projected period to the next without ever
// touching real ledger state.
func (rb *RunningBalances) Clone() *RunningBalances {
	out := NewRunningBalances()
	for d, v := range rb.balances {
		out.balances[d] = v
	}
	for d, v := range rb.deltas {
		out.deltas[d] = v
	}
	for d := range rb.assigned {
		out.assigned[d] = true
	}
	return out
}

// ResetAdjustments clears the delta record while keeping balances, so one
// accumulator can serve consecutive simulated periods with per-period
// adjustment summaries.
func (rb *RunningBalances) ResetAdjustments() {
	rb.deltas = make(map[AccountDesignator]decimal.Decimal)
}
