package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lending-engine/portfolio"
	"github.com/warp/lending-engine/products"
	"github.com/warp/lending-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStore_ProductRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProduct(ctx, "individual-loan", "Individual Loan"))
	require.NoError(t, store.SaveProduct(ctx, "individual-loan", "Individual Loan v2"))

	got, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"individual-loan": "Individual Loan v2"}, got)
}

func TestStore_ChargeDefinitionsRoundTrip(t *testing.T) {
	// GIVEN: The full standard charge set with every nullable field shape
	// WHEN: Writing and reading it back
	// THEN: Every definition survives intact

	store := newTestStore(t)
	ctx := context.Background()

	defs := products.IndividualLoanCharges(products.DefaultChargeConfig())
	require.NoError(t, store.PutChargeDefinitions(ctx, "individual-loan", defs))

	got, err := store.ChargeDefinitions(ctx, "individual-loan")
	require.NoError(t, err)
	require.Len(t, got, len(defs))

	byID := make(map[string]portfolio.ChargeDefinition, len(got))
	for _, def := range got {
		byID[def.Identifier] = def
	}

	interest := byID[portfolio.ChargeInterest]
	require.NotNil(t, interest.AccrueAction)
	assert.Equal(t, portfolio.ActionApplyInterest, *interest.AccrueAction)
	require.NotNil(t, interest.AccrualAccountDesignator)
	assert.Equal(t, portfolio.AccountInterestAccrual, *interest.AccrualAccountDesignator)
	require.NotNil(t, interest.ForCycleSizeUnit)
	assert.Equal(t, portfolio.UnitYears, *interest.ForCycleSizeUnit)
	require.NotNil(t, interest.ProportionalTo)
	assert.Equal(t, portfolio.ProportionalToPrincipal, *interest.ProportionalTo)
	assert.True(t, interest.Amount.Equal(dec("5.00")))

	processing := byID[portfolio.ChargeProcessingFee]
	assert.Nil(t, processing.AccrueAction)
	assert.Nil(t, processing.ProportionalTo)
	assert.Nil(t, processing.ForCycleSizeUnit)
	assert.Equal(t, portfolio.MethodFixed, processing.Method)
	assert.True(t, processing.ChargeOnTop)

	disburse := byID[portfolio.ChargeDisbursePayment]
	assert.True(t, disburse.ReadOnly)
}

func TestStore_SegmentedChargeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	maximum := portfolio.ProportionalToMaximumBalance
	require.NoError(t, store.PutChargeDefinitions(ctx, "p", []portfolio.ChargeDefinition{{
		Identifier:            "tiered-fee",
		Name:                  "Tiered fee",
		ChargeAction:          portfolio.ActionOpen,
		Amount:                dec("1.00"),
		Method:                portfolio.MethodProportional,
		ProportionalTo:        &maximum,
		FromAccountDesignator: portfolio.AccountCustomerLoanFees,
		ToAccountDesignator:   portfolio.AccountOriginationFeeIncome,
		Segments: &portfolio.SegmentRange{
			SegmentSetIdentifier: "tiers", FromSegment: "mid", ToSegment: "high",
		},
	}}))

	got, err := store.ChargeDefinitions(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Segments)
	assert.Equal(t, "tiers", got[0].Segments.SegmentSetIdentifier)
	assert.Equal(t, "mid", got[0].Segments.FromSegment)
	assert.Equal(t, "high", got[0].Segments.ToSegment)
}

func TestStore_PutChargeDefinitionsValidates(t *testing.T) {
	store := newTestStore(t)
	err := store.PutChargeDefinitions(context.Background(), "p", []portfolio.ChargeDefinition{{
		Identifier: "broken",
		Method:     portfolio.MethodProportional,
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portfolio.ErrBadConfiguration))
}

func TestStore_BalanceSegmentSetOrderedByBound(t *testing.T) {
	// Segments are written out of order; reads come back bound-ascending.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutBalanceSegmentSet(ctx, portfolio.BalanceSegmentSet{
		Identifier:        "tiers",
		ProductIdentifier: "p",
		Segments: []portfolio.BalanceSegment{
			{Identifier: "low", LowerBound: dec("0")},
			{Identifier: "mid", LowerBound: dec("1000")},
			{Identifier: "high", LowerBound: dec("5000")},
		},
	}))

	set, found, err := store.BalanceSegmentSet(ctx, "p", "tiers")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, set.Segments, 3)
	assert.Equal(t, "low", set.Segments[0].Identifier)
	assert.Equal(t, "mid", set.Segments[1].Identifier)
	assert.Equal(t, "high", set.Segments[2].Identifier)

	_, found, err = store.BalanceSegmentSet(ctx, "p", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_LossProvisionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	steps := []portfolio.LossProvisionStep{
		{DaysLate: 0, Percentage: dec("1.00")},
		{DaysLate: 30, Percentage: dec("9.00")},
	}
	require.NoError(t, store.PutLossProvisionSteps(ctx, "p", steps))

	got, err := store.LossProvisionSteps(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].DaysLate)
	assert.True(t, got[1].Percentage.Equal(dec("9.00")))

	// Duplicates are rejected before anything is written.
	err = store.PutLossProvisionSteps(ctx, "p", []portfolio.LossProvisionStep{
		{DaysLate: 30, Percentage: dec("10")},
		{DaysLate: 30, Percentage: dec("20")},
	})
	require.Error(t, err)
}

func TestStore_CaseRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := 15
	start := portfolio.Date(2026, time.January, 15)
	end := portfolio.Date(2027, time.January, 15)
	c := portfolio.Case{
		Identifier:        "case-0001",
		ProductIdentifier: "individual-loan",
		CurrentState:      portfolio.StateActive,
		InterestRate:      dec("5.00"),
		Parameters: portfolio.CaseParameters{
			CustomerIdentifier:      "customer-0001",
			BalanceRangeMaximum:     dec("2000"),
			TermRange:               portfolio.TermRange{TemporalUnit: portfolio.UnitYears, Maximum: 1},
			PaymentCycle:            portfolio.PaymentCycle{TemporalUnit: portfolio.UnitMonths, Period: 1, AlignmentDay: &day},
			MinorCurrencyUnitDigits: 2,
		},
		AccountAssignments: map[portfolio.AccountDesignator]string{
			portfolio.AccountCustomerLoanPrincipal: "7310",
			portfolio.AccountCustomerLoanInterest:  "7320",
		},
		StartOfTerm: &start,
		EndOfTerm:   &end,
	}
	require.NoError(t, store.PutCase(ctx, c))

	got, found, err := store.Case(ctx, "individual-loan", "case-0001")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, portfolio.StateActive, got.CurrentState)
	assert.Equal(t, "customer-0001", got.Parameters.CustomerIdentifier)
	assert.True(t, got.InterestRate.Equal(dec("5.00")))
	assert.True(t, got.Parameters.BalanceRangeMaximum.Equal(dec("2000")))
	assert.Equal(t, portfolio.UnitYears, got.Parameters.TermRange.TemporalUnit)
	require.NotNil(t, got.Parameters.PaymentCycle.AlignmentDay)
	assert.Equal(t, 15, *got.Parameters.PaymentCycle.AlignmentDay)
	assert.Nil(t, got.Parameters.PaymentCycle.AlignmentWeek)
	require.NotNil(t, got.StartOfTerm)
	assert.True(t, got.StartOfTerm.Equal(start))
	require.NotNil(t, got.EndOfTerm)
	assert.True(t, got.EndOfTerm.Equal(end))
	assert.Equal(t, "7310", got.AccountAssignments[portfolio.AccountCustomerLoanPrincipal])
	assert.Equal(t, "7320", got.AccountAssignments[portfolio.AccountCustomerLoanInterest])

	_, found, err = store.Case(ctx, "individual-loan", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_CaseUpdateReplacesAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := portfolio.Case{
		Identifier:        "case-0002",
		ProductIdentifier: "p",
		CurrentState:      portfolio.StateCreated,
		InterestRate:      dec("5.00"),
		Parameters: portfolio.CaseParameters{
			BalanceRangeMaximum: dec("1000"),
			TermRange:           portfolio.TermRange{TemporalUnit: portfolio.UnitMonths, Maximum: 6},
			PaymentCycle:        portfolio.PaymentCycle{TemporalUnit: portfolio.UnitMonths, Period: 1},
		},
		AccountAssignments: map[portfolio.AccountDesignator]string{
			portfolio.AccountCustomerLoanPrincipal: "old",
		},
	}
	require.NoError(t, store.PutCase(ctx, c))

	c.CurrentState = portfolio.StatePending
	c.AccountAssignments = map[portfolio.AccountDesignator]string{
		portfolio.AccountCustomerLoanFees: "new",
	}
	require.NoError(t, store.PutCase(ctx, c))

	got, found, err := store.Case(ctx, "p", "case-0002")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, portfolio.StatePending, got.CurrentState)
	assert.Len(t, got.AccountAssignments, 1)
	assert.Equal(t, "new", got.AccountAssignments[portfolio.AccountCustomerLoanFees])

	ids, err := store.ListCases(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"case-0002"}, ids)
}

func TestStore_DrivesPaymentEngine(t *testing.T) {
	// The SQLite store must be usable wherever the memory store is.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutChargeDefinitions(ctx, "individual-loan",
		products.IndividualLoanCharges(products.DefaultChargeConfig())))

	engine := portfolio.NewPaymentEngine(store)
	c := portfolio.Case{
		Identifier:        "case-0003",
		ProductIdentifier: "individual-loan",
		CurrentState:      portfolio.StateActive,
		InterestRate:      dec("5.00"),
		Parameters: portfolio.CaseParameters{
			BalanceRangeMaximum: dec("2000"),
			TermRange:           portfolio.TermRange{TemporalUnit: portfolio.UnitYears, Maximum: 1},
			PaymentCycle:        portfolio.PaymentCycle{TemporalUnit: portfolio.UnitMonths, Period: 1},
		},
		AccountAssignments: map[portfolio.AccountDesignator]string{
			portfolio.AccountCustomerLoanPrincipal: "7310",
			portfolio.AccountInterestAccrual:       "7330",
			portfolio.AccountCustomerLoanInterest:  "7320",
			portfolio.AccountInterestIncome:        "7340",
		},
	}

	balances := portfolio.ForCase(c)
	balances.Seed(portfolio.AccountCustomerLoanPrincipal, dec("2000"))

	payment, err := engine.BuildPayment(ctx, portfolio.PaymentRequest{
		Case:     c,
		Action:   portfolio.ActionApplyInterest,
		When:     portfolio.Date(2026, time.February, 1),
		Balances: balances,
	})
	require.NoError(t, err)

	interest, ok := payment.Component(portfolio.ChargeInterest)
	require.True(t, ok)
	assert.True(t, interest.Amount.Equal(dec("0.27")))
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProduct(ctx, "p", "P"))
	require.NoError(t, store.PutChargeDefinitions(ctx, "p",
		products.IndividualLoanCharges(products.DefaultChargeConfig())))

	require.NoError(t, store.Reset(ctx))

	got, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	defs, err := store.ChargeDefinitions(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, defs)
}
