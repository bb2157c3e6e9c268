/*
payment.go - The per-action cost-component builder

PURPOSE:
  Computes, for one lifecycle action instance, the full set of cost
  components and resulting balance deltas. One builder variant exists
  per action, selected through a map keyed on the action tag; all
  variants share the same charge-application core and differ only in
  how they seed the referent context and cap settlement charges.

ALGORITHM (common to all variants):
  1. Obtain the action's scheduled charges in assembler order.
  2. For each charge: resolve the absolute amount (FIXED uses the amount
     directly; PROPORTIONAL clips the referent to the charge's balance
     segment range, multiplies by the rate, and scales per-unit rates to
     one day), produce a cost component, and apply the signed deltas to
     the working running balances.
  3. Accrual bookkeeping: an accruing charge contributes to its accrual
     account on each accrue-action occurrence, and the accrued value is
     transferred out when the charge action occurs.
  4. Return the assembled Payment: ordered components plus the net
     per-designator balance adjustments for the downstream ledger.

PURITY:
  The input balance snapshot is cloned before any mutation, so invoking
  a builder twice with identical inputs always yields an identical
  Payment. All rounding is round-half-even at the currency's fractional
  digits; nothing is truncated silently.

SEE ALSO:
  - schedule.go: ScheduledCharge assembly and ordering
  - balances.go: The per-calculation accumulator
  - projector.go: Repeated invocation across a simulated calendar
*/
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT - The output of one builder invocation
// =============================================================================

// CostComponent is one named monetary line item produced by a single
// charge's evaluation.
type CostComponent struct {
	ChargeIdentifier string
	Amount           decimal.Decimal
}

// Payment is the ordered set of cost components produced by one builder
// invocation, plus the aggregate per-designator balance adjustments the
// downstream ledger adapter books.
type Payment struct {
	Action             Action
	Date               time.Time
	CostComponents     []CostComponent
	BalanceAdjustments map[AccountDesignator]decimal.Decimal
}

// Component returns the component for a charge identifier, if present.
func (p Payment) Component(chargeID string) (CostComponent, bool) {
	for _, cc := range p.CostComponents {
		if cc.ChargeIdentifier == chargeID {
			return cc, true
		}
	}
	return CostComponent{}, false
}

// =============================================================================
// BUILD INPUT AND BUILDER INTERFACE
// =============================================================================

// BuildInput carries everything one builder invocation needs. Balances
// is a snapshot; builders clone it and never mutate the caller's copy.
type BuildInput struct {
	Case    Case
	Charges []ScheduledCharge
	When    time.Time

	Balances *RunningBalances

	// The amount named in the instruction, where the action takes one
	// (disbursement amount, payment amount). Nil when not applicable or
	// when a projection falls back to the contractual repayment.
	RequestedAmount *decimal.Decimal

	// The payment the amortization schedule defines for this period.
	ContractualRepayment decimal.Decimal
}

// PaymentBuilder computes the Payment for one action variant.
type PaymentBuilder interface {
	Action() Action
	Build(in BuildInput) (Payment, error)
}

// paymentBuilders maps each action tag to its variant. Actions without
// special seeding share the generic variant.
var paymentBuilders = map[Action]PaymentBuilder{
	ActionOpen:          genericBuilder{action: ActionOpen},
	ActionDeny:          genericBuilder{action: ActionDeny},
	ActionImport:        genericBuilder{action: ActionImport},
	ActionApprove:       genericBuilder{action: ActionApprove},
	ActionDisburse:      disburseBuilder{},
	ActionApplyInterest: genericBuilder{action: ActionApplyInterest},
	ActionAcceptPayment: acceptPaymentBuilder{},
	ActionMarkLate:      genericBuilder{action: ActionMarkLate},
	ActionMarkInArrears: genericBuilder{action: ActionMarkInArrears},
	ActionWriteOff:      genericBuilder{action: ActionWriteOff},
	ActionRecover:       genericBuilder{action: ActionRecover},
	ActionClose:         genericBuilder{action: ActionClose},
}

// BuilderForAction selects the variant for an action tag.
func BuilderForAction(a Action) (PaymentBuilder, bool) {
	b, ok := paymentBuilders[a]
	return b, ok
}

// =============================================================================
// SHARED CHARGE-APPLICATION CORE
// =============================================================================

type buildState struct {
	in    BuildInput
	work  *RunningBalances
	scale int32

	refCtx ReferentContext

	// Unallocated part of a requested repayment; only the accept-payment
	// variant caps against it.
	remaining     decimal.Decimal
	capSettlement bool
	components    []CostComponent
}

func newBuildState(action Action, in BuildInput) *buildState {
	balances := in.Balances
	if balances == nil {
		balances = ForCase(in.Case)
	}
	work := balances.Clone()
	work.ResetAdjustments()

	return &buildState{
		in:    in,
		work:  work,
		scale: in.Case.Parameters.Scale(),
		refCtx: ReferentContext{
			Balances:             work,
			MaximumBalance:       in.Case.Parameters.BalanceRangeMaximum,
			ContractualRepayment: in.ContractualRepayment,
		},
	}
}

func (s *buildState) payment(action Action) Payment {
	return Payment{
		Action:             action,
		Date:               s.in.When,
		CostComponents:     s.components,
		BalanceAdjustments: s.work.Adjustments(),
	}
}

// applyCharges runs the common algorithm over the assembled charges.
func (s *buildState) applyCharges() error {
	for _, sc := range s.in.Charges {
		if err := s.applyCharge(sc); err != nil {
			return err
		}
	}
	return nil
}

func (s *buildState) applyCharge(sc ScheduledCharge) error {
	def := sc.Charge
	action := sc.ScheduledAction.Action

	// Every designator the charge can touch must be assigned before
	// anything is booked. One unassigned designator aborts the whole
	// payment; partial component sets against missing accounts would
	// book asymmetric adjustments downstream.
	if err := s.verifyAssigned(def); err != nil {
		return err
	}

	// An accruing charge occurring at its accrue action builds up the
	// accrual; occurring at its charge action it transfers the accrued
	// value out.
	if def.Accrues() && *def.AccrueAction == action && def.ChargeAction != action {
		amount, err := s.resolveAmount(def, sc.Range, true)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			return nil
		}
		s.work.Adjust(*def.AccrualAccountDesignator, amount)
		s.work.Adjust(def.FromAccountDesignator, amount)
		s.components = append(s.components, CostComponent{ChargeIdentifier: def.Identifier, Amount: amount})
		return nil
	}

	if def.Accrues() && def.ChargeAction == action {
		accrued := s.work.Balance(*def.AccrualAccountDesignator)
		if accrued.IsZero() {
			return nil
		}
		s.work.Adjust(*def.AccrualAccountDesignator, accrued.Neg())
		s.work.Adjust(def.ToAccountDesignator, accrued)
		s.components = append(s.components, CostComponent{ChargeIdentifier: def.Identifier, Amount: accrued})
		return nil
	}

	amount, err := s.resolveAmount(def, sc.Range, false)
	if err != nil {
		return err
	}

	// Loss provisioning carries an accrual designator without an accrue
	// action: it builds its allowance at its own charge action.
	if def.AccrualAccountDesignator != nil {
		if amount.IsZero() {
			return nil
		}
		s.work.Adjust(*def.AccrualAccountDesignator, amount)
		s.work.Adjust(def.ToAccountDesignator, amount)
		s.components = append(s.components, CostComponent{ChargeIdentifier: def.Identifier, Amount: amount})
		return nil
	}

	// Settlement charges draw on what the customer owes and can consume
	// no more than the unallocated payment and no more than is owed.
	if s.capSettlement && !def.ChargeOnTop && customerSettlementAccounts[def.FromAccountDesignator] {
		owed := s.work.Balance(def.FromAccountDesignator)
		if amount.GreaterThan(owed) {
			amount = owed
		}
		if amount.GreaterThan(s.remaining) {
			amount = s.remaining
		}
		if amount.IsZero() || amount.IsNegative() {
			return nil
		}
		s.remaining = s.remaining.Sub(amount)
		s.refCtx.RequestedRepayment = s.remaining
	}

	if amount.IsZero() {
		return nil
	}

	if def.ChargeOnTop {
		s.work.Adjust(def.FromAccountDesignator, amount)
	} else {
		s.work.Adjust(def.FromAccountDesignator, amount.Neg())
	}
	s.work.Adjust(def.ToAccountDesignator, amount)
	s.components = append(s.components, CostComponent{ChargeIdentifier: def.Identifier, Amount: amount})

	// Once the principal credit of a disbursement has posted, the
	// principal referent no longer needs the pending adjustment.
	if !def.ChargeOnTop && def.ToAccountDesignator == AccountCustomerLoanPrincipal {
		s.refCtx.PrincipalAdjustment = decimal.Zero
	}
	return nil
}

// verifyAssigned fails when the case has no account assigned for any
// designator the charge adjusts.
func (s *buildState) verifyAssigned(def ChargeDefinition) error {
	touched := []AccountDesignator{def.FromAccountDesignator, def.ToAccountDesignator}
	if def.AccrualAccountDesignator != nil {
		touched = append(touched, *def.AccrualAccountDesignator)
	}
	for _, d := range touched {
		if !s.work.Assigned(d) {
			return &ConfigurationError{
				ProductIdentifier: s.in.Case.ProductIdentifier,
				ChargeIdentifier:  def.Identifier,
				Detail:            fmt.Sprintf("no account assigned for designator %q", d),
			}
		}
	}
	return nil
}

// resolveAmount computes a charge's absolute amount. Proportional
// referents are clipped to the charge's segment range before the rate is
// applied; per-unit rates are scaled to a single day for accruals.
func (s *buildState) resolveAmount(def ChargeDefinition, rng *ChargeRange, accruing bool) (decimal.Decimal, error) {
	if def.Method == MethodFixed {
		return RoundMoney(def.Amount, s.scale), nil
	}

	if def.ProportionalTo == nil {
		return decimal.Zero, &ConfigurationError{
			ProductIdentifier: s.in.Case.ProductIdentifier,
			ChargeIdentifier:  def.Identifier,
			Detail:            "proportional charge without a proportional-to designator",
		}
	}

	s.refCtx.From = def.FromAccountDesignator
	s.refCtx.To = def.ToAccountDesignator
	referent, err := def.ProportionalTo.Referent(s.refCtx)
	if err != nil {
		if ce, ok := err.(*ConfigurationError); ok {
			ce.ProductIdentifier = s.in.Case.ProductIdentifier
			ce.ChargeIdentifier = def.Identifier
		}
		return decimal.Zero, err
	}
	if rng != nil {
		referent = rng.Clip(referent)
	}

	// The interest charge is configured at the product level but the rate
	// is a property of the case.
	rate := def.Amount
	if def.Identifier == ChargeInterest && s.in.Case.InterestRate.IsPositive() {
		rate = s.in.Case.InterestRate
	}

	amount := referent.Mul(rate).Div(hundred)
	if accruing && def.ForCycleSizeUnit != nil {
		amount = amount.Div(decimal.NewFromInt(int64(def.ForCycleSizeUnit.DaysIn())))
	}
	return RoundMoney(amount, s.scale), nil
}

// =============================================================================
// BUILDER VARIANTS
// =============================================================================

// genericBuilder serves actions with no special seeding: charges are
// applied in assembler order against the snapshot as-is.
type genericBuilder struct{ action Action }

func (b genericBuilder) Action() Action { return b.action }

func (b genericBuilder) Build(in BuildInput) (Payment, error) {
	s := newBuildState(b.action, in)
	if err := s.applyCharges(); err != nil {
		return Payment{}, err
	}
	return s.payment(b.action), nil
}

// disburseBuilder seeds the requested disbursement and lets the
// principal referent observe the amount about to be credited, so that
// charges ordered ahead of the principal movement (loss provisioning)
// provision against the post-disbursement principal.
type disburseBuilder struct{}

func (disburseBuilder) Action() Action { return ActionDisburse }

func (disburseBuilder) Build(in BuildInput) (Payment, error) {
	if in.RequestedAmount == nil {
		return Payment{}, ErrMissingRequestedAmount
	}
	s := newBuildState(ActionDisburse, in)
	s.refCtx.RequestedDisbursement = *in.RequestedAmount
	s.refCtx.PrincipalAdjustment = *in.RequestedAmount
	if err := s.applyCharges(); err != nil {
		return Payment{}, err
	}
	return s.payment(ActionDisburse), nil
}

// acceptPaymentBuilder distributes a payment across what the customer
// owes: settlement charges are capped at the still-unallocated amount,
// in assembler order, so fees and interest settle before principal.
// When no amount is requested the contractual repayment is used.
type acceptPaymentBuilder struct{}

func (acceptPaymentBuilder) Action() Action { return ActionAcceptPayment }

func (acceptPaymentBuilder) Build(in BuildInput) (Payment, error) {
	s := newBuildState(ActionAcceptPayment, in)
	if in.RequestedAmount != nil {
		s.remaining = *in.RequestedAmount
	} else {
		s.remaining = in.ContractualRepayment
	}
	s.refCtx.RequestedRepayment = s.remaining
	s.capSettlement = true
	if err := s.applyCharges(); err != nil {
		return Payment{}, err
	}
	return s.payment(ActionAcceptPayment), nil
}

// =============================================================================
// PAYMENT ENGINE - Assembles charges and dispatches to the variant
// =============================================================================

// PaymentRequest names one lifecycle action instance to compute.
type PaymentRequest struct {
	Case   Case
	Action Action
	When   time.Time

	// Snapshot of actual or simulated balances. Nil seeds an empty
	// accumulator carrying the case's account assignments.
	Balances *RunningBalances

	RequestedAmount      *decimal.Decimal
	ContractualRepayment decimal.Decimal

	// Days late, for lateness-triggered provisioning.
	DaysLate int
}

// PaymentEngine wires the charge assembler to the builder variants. It
// is stateless and safe for concurrent use across cases.
type PaymentEngine struct {
	Assembler *ChargeAssembler
}

func NewPaymentEngine(products ProductRepository) *PaymentEngine {
	return &PaymentEngine{Assembler: &ChargeAssembler{Products: products}}
}

// BuildPayment validates the action against the case's lifecycle state,
// assembles the scheduled charges for the date, and computes the Payment.
func (e *PaymentEngine) BuildPayment(ctx context.Context, req PaymentRequest) (Payment, error) {
	if !req.Case.CurrentState.Permits(req.Action) {
		return Payment{}, &InvalidTransitionError{State: req.Case.CurrentState, Action: req.Action}
	}

	sa := ScheduledAction{Action: req.Action, When: req.When}
	charges, err := e.Assembler.ScheduledCharges(ctx, req.Case.ProductIdentifier, sa, req.DaysLate)
	if err != nil {
		return Payment{}, err
	}

	builder, ok := BuilderForAction(req.Action)
	if !ok {
		return Payment{}, &InvalidTransitionError{State: req.Case.CurrentState, Action: req.Action}
	}
	return builder.Build(BuildInput{
		Case:                 req.Case,
		Charges:              charges,
		When:                 req.When,
		Balances:             req.Balances,
		RequestedAmount:      req.RequestedAmount,
		ContractualRepayment: req.ContractualRepayment,
	})
}
