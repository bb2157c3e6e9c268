package portfolio_test

import (
	"errors"
	"testing"

	"github.com/warp/lending-engine/portfolio"
)

// =============================================================================
// PROVISION TABLE VALIDATION TESTS
// =============================================================================

func TestValidateLossProvisionSteps_ValidTable(t *testing.T) {
	steps := []portfolio.LossProvisionStep{
		{DaysLate: 0, Percentage: dec("1.00")},
		{DaysLate: 30, Percentage: dec("9.00")},
		{DaysLate: 60, Percentage: dec("30.00")},
		{DaysLate: 90, Percentage: dec("60.00")},
	}
	if err := portfolio.ValidateLossProvisionSteps("individual-loan", steps); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}
}

func TestValidateLossProvisionSteps_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		steps []portfolio.LossProvisionStep
	}{
		{"duplicate days late", []portfolio.LossProvisionStep{
			{DaysLate: 30, Percentage: dec("10")},
			{DaysLate: 30, Percentage: dec("20")},
		}},
		{"negative percentage", []portfolio.LossProvisionStep{
			{DaysLate: 30, Percentage: dec("-1")},
		}},
		{"percentage above 100", []portfolio.LossProvisionStep{
			{DaysLate: 30, Percentage: dec("100.01")},
		}},
		{"three decimal places", []portfolio.LossProvisionStep{
			{DaysLate: 30, Percentage: dec("9.125")},
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := portfolio.ValidateLossProvisionSteps("p", c.steps)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, portfolio.ErrAmbiguousConfiguration) {
				t.Errorf("expected ErrAmbiguousConfiguration, got %v", err)
			}
		})
	}
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestFindProvisionForDaysLate(t *testing.T) {
	steps := []portfolio.LossProvisionStep{
		{DaysLate: 0, Percentage: dec("1.00")},
		{DaysLate: 30, Percentage: dec("9.00")},
	}

	step, found, err := portfolio.FindProvisionForDaysLate("p", steps, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a match for 30 days late")
	}
	if !step.Percentage.Equal(dec("9.00")) {
		t.Errorf("expected 9.00, got %s", step.Percentage)
	}

	_, found, err = portfolio.FindProvisionForDaysLate("p", steps, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected no match for 15 days late")
	}
}

func TestFindProvisionForDaysLate_DuplicateIsInternal(t *testing.T) {
	// A table with duplicates escaped write-time validation. The lookup
	// must stop the calculation rather than pick one arbitrarily.
	steps := []portfolio.LossProvisionStep{
		{DaysLate: 30, Percentage: dec("10")},
		{DaysLate: 30, Percentage: dec("20")},
	}
	_, _, err := portfolio.FindProvisionForDaysLate("p", steps, 30)
	if err == nil {
		t.Fatal("expected error on duplicate steps")
	}
	if !portfolio.IsInternalError(err) {
		t.Errorf("expected internal error classification, got %v", err)
	}
}

// =============================================================================
// SYNTHESIS TESTS
// =============================================================================

func TestSynthesizeProvisionCharge(t *testing.T) {
	step := portfolio.LossProvisionStep{DaysLate: 30, Percentage: dec("9.00")}
	def := portfolio.SynthesizeProvisionCharge(step, portfolio.ActionMarkLate)

	if def.Identifier != portfolio.ChargeLossProvisioning {
		t.Errorf("unexpected identifier %q", def.Identifier)
	}
	if def.ChargeAction != portfolio.ActionMarkLate {
		t.Errorf("expected MARK_LATE trigger, got %s", def.ChargeAction)
	}
	if def.Method != portfolio.MethodProportional {
		t.Errorf("expected PROPORTIONAL, got %s", def.Method)
	}
	if def.ProportionalTo == nil || *def.ProportionalTo != portfolio.ProportionalToPrincipal {
		t.Error("expected charge proportional to principal")
	}
	if !def.Amount.Equal(dec("9.00")) {
		t.Errorf("expected amount 9.00, got %s", def.Amount)
	}
	if def.FromAccountDesignator != portfolio.AccountProductLossAllowance {
		t.Errorf("unexpected from designator %s", def.FromAccountDesignator)
	}
	if def.AccrualAccountDesignator == nil || *def.AccrualAccountDesignator != portfolio.AccountGeneralLossAllowance {
		t.Error("expected accrual in the general loss allowance")
	}
	if def.ToAccountDesignator != portfolio.AccountGeneralExpense {
		t.Errorf("unexpected to designator %s", def.ToAccountDesignator)
	}
	if !def.ReadOnly {
		t.Error("synthesized provision charge must be read-only")
	}
	if err := def.Validate(); err != nil {
		t.Errorf("synthesized charge failed validation: %v", err)
	}
}
