package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lending-engine/portfolio"
	"github.com/warp/lending-engine/portfolio/store"
	"github.com/warp/lending-engine/products"
)

func TestMemory_ChargeDefinitionsRoundTrip(t *testing.T) {
	memory := store.NewMemory()
	defs := products.IndividualLoanCharges(products.DefaultChargeConfig())
	require.NoError(t, memory.PutChargeDefinitions("individual-loan", defs))

	got, err := memory.ChargeDefinitions(context.Background(), "individual-loan")
	require.NoError(t, err)
	assert.Len(t, got, len(defs))

	// An unknown product resolves to no charges, not an error.
	got, err = memory.ChargeDefinitions(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_RejectsInvalidChargeDefinition(t *testing.T) {
	memory := store.NewMemory()
	err := memory.PutChargeDefinitions("p", []portfolio.ChargeDefinition{{
		Identifier: "broken",
		Method:     portfolio.MethodProportional,
		// Proportional without a referent designator.
	}})
	require.Error(t, err)
}

func TestMemory_SegmentSetLookup(t *testing.T) {
	memory := store.NewMemory()
	set := portfolio.BalanceSegmentSet{
		Identifier:        "tiers",
		ProductIdentifier: "p",
		Segments: []portfolio.BalanceSegment{
			{Identifier: "low", LowerBound: decimal.Zero},
			{Identifier: "high", LowerBound: decimal.NewFromInt(1000)},
		},
	}
	require.NoError(t, memory.PutBalanceSegmentSet(set))

	got, found, err := memory.BalanceSegmentSet(context.Background(), "p", "tiers")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got.Segments, 2)

	_, found, err = memory.BalanceSegmentSet(context.Background(), "p", "other")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_ProvisionValidationAtWriteTime(t *testing.T) {
	memory := store.NewMemory()
	err := memory.PutLossProvisionSteps("p", []portfolio.LossProvisionStep{
		{DaysLate: 30, Percentage: decimal.NewFromInt(10)},
		{DaysLate: 30, Percentage: decimal.NewFromInt(20)},
	})
	require.Error(t, err, "duplicate days-late steps must be rejected when written")
}

func TestMemory_CaseRoundTrip(t *testing.T) {
	memory := store.NewMemory()
	c := portfolio.Case{
		Identifier:        "case-1",
		ProductIdentifier: "p",
		CurrentState:      portfolio.StateCreated,
		AccountAssignments: map[portfolio.AccountDesignator]string{
			portfolio.AccountCustomerLoanPrincipal: "7310",
		},
	}
	memory.PutCase(c)

	got, found, err := memory.Case(context.Background(), "p", "case-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, portfolio.StateCreated, got.CurrentState)
	assert.Equal(t, "7310", got.AccountAssignments[portfolio.AccountCustomerLoanPrincipal])

	_, found, err = memory.Case(context.Background(), "p", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
