package portfolio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lending-engine/portfolio"
	"github.com/warp/lending-engine/portfolio/store"
	"github.com/warp/lending-engine/products"
)

func newTestProjector(t *testing.T) *portfolio.Projector {
	t.Helper()
	memory := store.NewMemory()
	err := memory.PutChargeDefinitions("individual-loan", products.IndividualLoanCharges(products.DefaultChargeConfig()))
	require.NoError(t, err)
	return portfolio.NewProjector(memory)
}

// =============================================================================
// PROJECTION TESTS
// =============================================================================

func TestPlannedPayments_Pagination(t *testing.T) {
	// GIVEN: A one-year monthly case, so 12 planned payments
	// WHEN: Requesting pages of 5
	// THEN: Three pages of 5, 5 and 2 elements, disjoint and contiguous

	projector := newTestProjector(t)
	c := newTestCase(portfolio.StateApproved)
	disbursal := portfolio.Date(2026, time.January, 15)

	var all []portfolio.PlannedPayment
	for index := 0; index < 3; index++ {
		page, err := projector.PlannedPaymentsPage(context.Background(), c, index, 5, disbursal)
		require.NoError(t, err)
		assert.Equal(t, 12, page.TotalElements)
		assert.Equal(t, 3, page.TotalPages)
		all = append(all, page.Elements...)
	}

	require.Len(t, all, 12)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].Date.After(all[i-1].Date),
			"planned payments must be strictly date-ascending across pages")
	}
}

func TestPlannedPayments_PageBeyondEndIsEmpty(t *testing.T) {
	projector := newTestProjector(t)
	c := newTestCase(portfolio.StateApproved)

	page, err := projector.PlannedPaymentsPage(context.Background(), c, 10, 5, portfolio.Date(2026, time.January, 15))
	require.NoError(t, err)
	assert.Empty(t, page.Elements)
	assert.Equal(t, 12, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
}

func TestPlannedPayments_FinalPaymentSettlesCase(t *testing.T) {
	// The final planned payment must clear everything owed so the case
	// projection ends at exactly zero.

	projector := newTestProjector(t)
	c := newTestCase(portfolio.StateApproved)

	page, err := projector.PlannedPaymentsPage(context.Background(), c, 2, 5, portfolio.Date(2026, time.January, 15))
	require.NoError(t, err)
	require.NotEmpty(t, page.Elements)

	final := page.Elements[len(page.Elements)-1]
	assert.True(t, final.Balances[portfolio.AccountCustomerLoanPrincipal].IsZero(),
		"principal after final payment should be zero, got %s",
		final.Balances[portfolio.AccountCustomerLoanPrincipal])
	assert.True(t, final.Balances[portfolio.AccountCustomerLoanInterest].IsZero(),
		"interest after final payment should be zero, got %s",
		final.Balances[portfolio.AccountCustomerLoanInterest])
}

func TestPlannedPayments_EveryPaymentCarriesInterestAndPrincipal(t *testing.T) {
	projector := newTestProjector(t)
	c := newTestCase(portfolio.StateApproved)

	page, err := projector.PlannedPaymentsPage(context.Background(), c, 0, 12, portfolio.Date(2026, time.January, 15))
	require.NoError(t, err)
	require.Len(t, page.Elements, 12)

	previousPrincipal := c.Parameters.BalanceRangeMaximum
	for i, planned := range page.Elements {
		_, hasInterest := planned.Payment.Component(portfolio.ChargeInterest)
		assert.True(t, hasInterest, "payment %d should settle accrued interest", i)

		repay, hasPrincipal := planned.Payment.Component(portfolio.ChargeRepayPrincipal)
		assert.True(t, hasPrincipal, "payment %d should repay principal", i)
		assert.True(t, repay.Amount.IsPositive())

		principal := planned.Balances[portfolio.AccountCustomerLoanPrincipal]
		assert.True(t, principal.LessThan(previousPrincipal),
			"principal must decline every period")
		previousPrincipal = principal
	}
}

func TestPlannedPayments_Deterministic(t *testing.T) {
	projector := newTestProjector(t)
	c := newTestCase(portfolio.StateApproved)
	disbursal := portfolio.Date(2026, time.January, 15)

	first, err := projector.PlannedPaymentsPage(context.Background(), c, 0, 12, disbursal)
	require.NoError(t, err)
	second, err := projector.PlannedPaymentsPage(context.Background(), c, 0, 12, disbursal)
	require.NoError(t, err)

	require.Equal(t, len(first.Elements), len(second.Elements))
	for i := range first.Elements {
		assert.True(t, first.Elements[i].Date.Equal(second.Elements[i].Date))
		a, b := first.Elements[i].Payment.CostComponents, second.Elements[i].Payment.CostComponents
		require.Equal(t, len(a), len(b))
		for j := range a {
			assert.Equal(t, a[j].ChargeIdentifier, b[j].ChargeIdentifier)
			assert.True(t, a[j].Amount.Equal(b[j].Amount))
		}
	}
}

// =============================================================================
// ANNUITY TESTS
// =============================================================================

func TestAnnuityPayment_ZeroRateSplitsEvenly(t *testing.T) {
	cycle := portfolio.PaymentCycle{TemporalUnit: portfolio.UnitMonths, Period: 1}
	payment := portfolio.AnnuityPayment(dec("1200"), dec("0"), cycle, 12, 2)
	if !payment.Equal(dec("100.00")) {
		t.Errorf("expected 100.00, got %s", payment)
	}
}

func TestAnnuityPayment_BoundedByInterestLoad(t *testing.T) {
	// At a positive rate the fixed payment exceeds the even split but
	// never by more than one full period's interest on the principal.
	cycle := portfolio.PaymentCycle{TemporalUnit: portfolio.UnitMonths, Period: 1}
	payment := portfolio.AnnuityPayment(dec("2000"), dec("5.00"), cycle, 12, 2)

	evenSplit := dec("2000").Div(dec("12"))
	if !payment.GreaterThan(evenSplit) {
		t.Errorf("payment %s should exceed the even split %s", payment, evenSplit)
	}
	ceiling := evenSplit.Add(dec("2000").Mul(dec("0.05")).Div(dec("12")))
	if !payment.LessThan(ceiling) {
		t.Errorf("payment %s should stay under %s", payment, ceiling)
	}
}

func TestAnnuityPayment_DegenerateInputs(t *testing.T) {
	cycle := portfolio.PaymentCycle{TemporalUnit: portfolio.UnitMonths, Period: 1}
	if !portfolio.AnnuityPayment(dec("0"), dec("5.00"), cycle, 12, 2).IsZero() {
		t.Error("zero principal must yield zero")
	}
	if !portfolio.AnnuityPayment(dec("1000"), dec("5.00"), cycle, 0, 2).IsZero() {
		t.Error("zero periods must yield zero")
	}
}
