/*
projector.go - Planned payment projection

PURPOSE:
  Produces the forward amortization schedule for a case: one planned
  payment per payment-cycle boundary from the first cycle after
  disbursal through the end of term. Each entry is obtained by invoking
  the apply-interest and accept-payment builders against a purely
  simulated running-balance accumulator that carries state from one
  projected period to the next. Real ledger state is never touched.

PAGINATION:
  Callers request a zero-based page index and a page size. The engine is
  deterministic and the input set is fixed by (product, case, initial
  disbursal date), so the same triple always yields the same total page
  count and identical entries per page. Only the periods up to the end
  of the requested page are computed; the total count comes from the
  cycle dates alone, without materializing the whole sequence.
*/
package portfolio

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PLANNED PAYMENT
// =============================================================================

// PlannedPayment is a projected payment at one point in the schedule,
// together with the simulated post-payment customer balances.
type PlannedPayment struct {
	Date     time.Time
	Payment  Payment
	Balances map[AccountDesignator]decimal.Decimal
}

// PlannedPaymentPage is one bounded, date-ascending slice of the full
// projected sequence.
type PlannedPaymentPage struct {
	Elements      []PlannedPayment
	TotalPages    int
	TotalElements int
}

// =============================================================================
// PROJECTOR
// =============================================================================

// Projector computes planned-payment pages by repeated builder
// invocation across a simulated calendar.
type Projector struct {
	Engine *PaymentEngine
}

func NewProjector(products ProductRepository) *Projector {
	return &Projector{Engine: NewPaymentEngine(products)}
}

// PlannedPaymentsPage projects the amortization schedule for a case and
// returns the requested page. Interest accrues daily between cycle
// boundaries; each boundary settles the contractual repayment, and the
// final boundary settles whatever remains so the case closes at zero.
func (p *Projector) PlannedPaymentsPage(ctx context.Context, c Case, pageIndex, pageSize int, initialDisbursalDate time.Time) (PlannedPaymentPage, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	dates := PaymentDates(c.Parameters.PaymentCycle, c.Parameters.TermRange, initialDisbursalDate)
	total := len(dates)
	totalPages := (total + pageSize - 1) / pageSize

	page := PlannedPaymentPage{TotalPages: totalPages, TotalElements: total}
	first := pageIndex * pageSize
	if first >= total {
		return page, nil
	}
	last := first + pageSize
	if last > total {
		last = total
	}

	sim, simCase, err := p.seedSimulation(c)
	if err != nil {
		return PlannedPaymentPage{}, err
	}

	// Scheduled charges do not vary across the simulated calendar, so
	// assemble them once per action instead of once per day.
	interestCharges, err := p.Engine.Assembler.ScheduledCharges(ctx, c.ProductIdentifier,
		ScheduledAction{Action: ActionApplyInterest, When: initialDisbursalDate}, 0)
	if err != nil {
		return PlannedPaymentPage{}, err
	}
	paymentCharges, err := p.Engine.Assembler.ScheduledCharges(ctx, c.ProductIdentifier,
		ScheduledAction{Action: ActionAcceptPayment, When: initialDisbursalDate}, 0)
	if err != nil {
		return PlannedPaymentPage{}, err
	}

	interestBuilder, _ := BuilderForAction(ActionApplyInterest)
	paymentBuilder, _ := BuilderForAction(ActionAcceptPayment)

	contractual := AnnuityPayment(
		c.Parameters.BalanceRangeMaximum,
		c.InterestRate,
		c.Parameters.PaymentCycle,
		total,
		c.Parameters.Scale(),
	)

	previous := initialDisbursalDate
	for i := 0; i < last; i++ {
		due := dates[i]

		// Daily interest accrual across (previous, due].
		for day := previous.AddDate(0, 0, 1); !day.After(due); day = day.AddDate(0, 0, 1) {
			interestPayment, err := interestBuilder.Build(BuildInput{
				Case:     simCase,
				Charges:  interestCharges,
				When:     day,
				Balances: sim,
			})
			if err != nil {
				return PlannedPaymentPage{}, err
			}
			applyAdjustments(sim, interestPayment)
		}

		in := BuildInput{
			Case:                 simCase,
			Charges:              paymentCharges,
			When:                 due,
			Balances:             sim,
			ContractualRepayment: contractual,
		}
		if i == total-1 {
			// The final payment settles everything still owed.
			payoff := sim.Balance(AccountCustomerLoanPrincipal).
				Add(sim.Balance(AccountCustomerLoanInterest)).
				Add(sim.Balance(AccountCustomerLoanFees))
			in.RequestedAmount = &payoff
		}
		payment, err := paymentBuilder.Build(in)
		if err != nil {
			return PlannedPaymentPage{}, err
		}
		applyAdjustments(sim, payment)

		if i >= first {
			page.Elements = append(page.Elements, PlannedPayment{
				Date:     due,
				Payment:  payment,
				Balances: customerBalances(sim),
			})
		}
		previous = due
	}

	return page, nil
}

// seedSimulation prepares the simulated case and balances: the case is
// treated as active with every designator assigned, and the full
// negotiated balance is outstanding as principal.
func (p *Projector) seedSimulation(c Case) (*RunningBalances, Case, error) {
	simCase := c
	simCase.CurrentState = StateActive

	sim := NewRunningBalances()
	for _, d := range KnownAccountDesignators() {
		sim.Assign(d)
	}
	sim.Seed(AccountCustomerLoanPrincipal, c.Parameters.BalanceRangeMaximum)
	return sim, simCase, nil
}

func applyAdjustments(sim *RunningBalances, p Payment) {
	for d, delta := range p.BalanceAdjustments {
		sim.Adjust(d, delta)
	}
}

func customerBalances(sim *RunningBalances) map[AccountDesignator]decimal.Decimal {
	return map[AccountDesignator]decimal.Decimal{
		AccountCustomerLoanPrincipal: sim.Balance(AccountCustomerLoanPrincipal),
		AccountCustomerLoanInterest:  sim.Balance(AccountCustomerLoanInterest),
		AccountCustomerLoanFees:      sim.Balance(AccountCustomerLoanFees),
	}
}

// =============================================================================
// ANNUITY
// =============================================================================

var one = decimal.NewFromInt(1)

// AnnuityPayment computes the fixed per-period repayment that amortizes
// the principal over n periods at the case's annual rate:
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// with r the per-period rate under the 365-day convention. A zero rate
// degenerates to an even split.
func AnnuityPayment(principal, annualRatePercent decimal.Decimal, cycle PaymentCycle, n int, scale int32) decimal.Decimal {
	if n <= 0 || principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	periods := decimal.NewFromInt(int64(n))
	r := annualRatePercent.Div(hundred).Div(cycle.PeriodsPerYear())
	if r.IsZero() {
		return RoundMoney(principal.Div(periods), scale)
	}
	pow := one.Add(r).Pow(periods)
	payment := principal.Mul(r).Mul(pow).Div(pow.Sub(one))
	return RoundMoney(payment, scale)
}
