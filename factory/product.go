/*
Package factory provides JSON to Go product-configuration conversion.

PURPOSE:
  Converts JSON product definitions into portfolio charge definitions,
  balance segment sets, and loss provision steps. This enables product
  configuration without code changes - product managers can define loan
  products in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify products
  - Easy integration with admin UI
  - Version control for product definitions
  - Database storage of product configs

JSON SCHEMA:
  {
    "id": "individual-loan",
    "name": "Individual Loan",
    "charges": [
      {
        "identifier": "interest",
        "name": "Interest",
        "charge_action": "ACCEPT_PAYMENT",
        "accrue_action": "APPLY_INTEREST",
        "amount": "5.00",
        "method": "PROPORTIONAL",
        "proportional_to": "principal",
        "from_account_designator": "customer-loan-interest",
        "accrual_account_designator": "interest-accrual",
        "to_account_designator": "interest-income",
        "for_cycle_size_unit": "years"
      }
    ],
    "segment_sets": [
      {
        "identifier": "principal-tiers",
        "segments": [
          {"identifier": "small", "lower_bound": "0"},
          {"identifier": "large", "lower_bound": "5000"}
        ]
      }
    ],
    "loss_provision": [
      {"days_late": 1, "percentage": "10.00"}
    ]
  }

USAGE:
  f := factory.NewProductFactory()

  // From JSON string
  product, err := f.ParseProduct(jsonString)

  // From domain-specific preset (recommended)
  import "github.com/warp/lending-engine/products"
  jsonStr := products.IndividualLoanJSON("individual-loan", "Individual Loan", products.DefaultChargeConfig())
  product, err := f.ParseProduct(jsonStr)

SEE ALSO:
  - portfolio/charge.go: Charge definition type
  - products/individual.go: Go-based product configurations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/lending-engine/portfolio"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ProductJSON is the JSON representation of a loan product.
type ProductJSON struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Charges       []ChargeJSON        `json:"charges"`
	SegmentSets   []SegmentSetJSON    `json:"segment_sets,omitempty"`
	LossProvision []ProvisionStepJSON `json:"loss_provision,omitempty"`
}

// ChargeJSON represents one charge definition.
type ChargeJSON struct {
	Identifier               string            `json:"identifier"`
	Name                     string            `json:"name"`
	ChargeAction             string            `json:"charge_action"`
	AccrueAction             string            `json:"accrue_action,omitempty"`
	Amount                   string            `json:"amount"`
	Method                   string            `json:"method"`
	ProportionalTo           string            `json:"proportional_to,omitempty"`
	FromAccountDesignator    string            `json:"from_account_designator"`
	AccrualAccountDesignator string            `json:"accrual_account_designator,omitempty"`
	ToAccountDesignator      string            `json:"to_account_designator"`
	ForCycleSizeUnit         string            `json:"for_cycle_size_unit,omitempty"`
	Segments                 *SegmentRangeJSON `json:"segments,omitempty"`
	ReadOnly                 bool              `json:"read_only,omitempty"`
	ChargeOnTop              bool              `json:"charge_on_top,omitempty"`
}

// SegmentRangeJSON confines a charge to a band of a segment set.
type SegmentRangeJSON struct {
	SegmentSet  string `json:"segment_set"`
	FromSegment string `json:"from_segment"`
	ToSegment   string `json:"to_segment"`
}

// SegmentSetJSON represents a balance segment set.
type SegmentSetJSON struct {
	Identifier string        `json:"identifier"`
	Segments   []SegmentJSON `json:"segments"`
}

// SegmentJSON represents one segment boundary.
type SegmentJSON struct {
	Identifier string `json:"identifier"`
	LowerBound string `json:"lower_bound"`
}

// ProvisionStepJSON represents one loss-provisioning step.
type ProvisionStepJSON struct {
	DaysLate   int    `json:"days_late"`
	Percentage string `json:"percentage"`
}

// =============================================================================
// PRODUCT CONFIGURATION
// =============================================================================

// ProductConfiguration is the parsed, validated form of a product.
type ProductConfiguration struct {
	Identifier    string
	Name          string
	Charges       []portfolio.ChargeDefinition
	SegmentSets   []portfolio.BalanceSegmentSet
	LossProvision []portfolio.LossProvisionStep
}

// =============================================================================
// PRODUCT FACTORY
// =============================================================================

// ProductFactory converts JSON products to Go structs.
type ProductFactory struct{}

// NewProductFactory creates a new product factory.
func NewProductFactory() *ProductFactory {
	return &ProductFactory{}
}

// ParseProduct parses a JSON string into a ProductConfiguration.
func (f *ProductFactory) ParseProduct(jsonStr string) (*ProductConfiguration, error) {
	var pj ProductJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse product JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts ProductJSON to a validated ProductConfiguration.
func (f *ProductFactory) FromJSON(pj ProductJSON) (*ProductConfiguration, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("product id is required")
	}

	pc := &ProductConfiguration{
		Identifier: pj.ID,
		Name:       pj.Name,
	}

	for _, cj := range pj.Charges {
		def, err := parseCharge(cj)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", pj.ID, err)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		pc.Charges = append(pc.Charges, def)
	}

	for _, sj := range pj.SegmentSets {
		set, err := parseSegmentSet(pj.ID, sj)
		if err != nil {
			return nil, err
		}
		if err := set.Validate(); err != nil {
			return nil, err
		}
		pc.SegmentSets = append(pc.SegmentSets, set)
	}

	for _, lj := range pj.LossProvision {
		pct, err := decimal.NewFromString(lj.Percentage)
		if err != nil {
			return nil, fmt.Errorf("product %s: invalid provision percentage %q: %w", pj.ID, lj.Percentage, err)
		}
		pc.LossProvision = append(pc.LossProvision, portfolio.LossProvisionStep{
			DaysLate:   lj.DaysLate,
			Percentage: pct,
		})
	}
	if len(pc.LossProvision) > 0 {
		if err := portfolio.ValidateLossProvisionSteps(pj.ID, pc.LossProvision); err != nil {
			return nil, err
		}
	}

	return pc, nil
}

// ToJSON converts a ProductConfiguration back to its JSON representation.
func (f *ProductFactory) ToJSON(pc *ProductConfiguration) ProductJSON {
	pj := ProductJSON{
		ID:   pc.Identifier,
		Name: pc.Name,
	}

	for _, def := range pc.Charges {
		cj := ChargeJSON{
			Identifier:            def.Identifier,
			Name:                  def.Name,
			ChargeAction:          string(def.ChargeAction),
			Amount:                def.Amount.String(),
			Method:                string(def.Method),
			FromAccountDesignator: string(def.FromAccountDesignator),
			ToAccountDesignator:   string(def.ToAccountDesignator),
			ReadOnly:              def.ReadOnly,
			ChargeOnTop:           def.ChargeOnTop,
		}
		if def.AccrueAction != nil {
			cj.AccrueAction = string(*def.AccrueAction)
		}
		if def.ProportionalTo != nil {
			cj.ProportionalTo = def.ProportionalTo.String()
		}
		if def.AccrualAccountDesignator != nil {
			cj.AccrualAccountDesignator = string(*def.AccrualAccountDesignator)
		}
		if def.ForCycleSizeUnit != nil {
			cj.ForCycleSizeUnit = string(*def.ForCycleSizeUnit)
		}
		if def.Segments != nil {
			cj.Segments = &SegmentRangeJSON{
				SegmentSet:  def.Segments.SegmentSetIdentifier,
				FromSegment: def.Segments.FromSegment,
				ToSegment:   def.Segments.ToSegment,
			}
		}
		pj.Charges = append(pj.Charges, cj)
	}

	for _, set := range pc.SegmentSets {
		sj := SegmentSetJSON{Identifier: set.Identifier}
		for _, seg := range set.Segments {
			sj.Segments = append(sj.Segments, SegmentJSON{
				Identifier: seg.Identifier,
				LowerBound: seg.LowerBound.String(),
			})
		}
		pj.SegmentSets = append(pj.SegmentSets, sj)
	}

	for _, step := range pc.LossProvision {
		pj.LossProvision = append(pj.LossProvision, ProvisionStepJSON{
			DaysLate:   step.DaysLate,
			Percentage: step.Percentage.String(),
		})
	}

	return pj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseCharge(cj ChargeJSON) (portfolio.ChargeDefinition, error) {
	amount, err := decimal.NewFromString(cj.Amount)
	if err != nil {
		return portfolio.ChargeDefinition{}, fmt.Errorf("charge %s: invalid amount %q: %w", cj.Identifier, cj.Amount, err)
	}

	action, err := parseAction(cj.ChargeAction)
	if err != nil {
		return portfolio.ChargeDefinition{}, fmt.Errorf("charge %s: %w", cj.Identifier, err)
	}

	def := portfolio.ChargeDefinition{
		Identifier:            cj.Identifier,
		Name:                  cj.Name,
		ChargeAction:          action,
		Amount:                amount,
		Method:                portfolio.ChargeMethod(cj.Method),
		FromAccountDesignator: portfolio.AccountDesignator(cj.FromAccountDesignator),
		ToAccountDesignator:   portfolio.AccountDesignator(cj.ToAccountDesignator),
		ReadOnly:              cj.ReadOnly,
		ChargeOnTop:           cj.ChargeOnTop,
	}

	if cj.AccrueAction != "" {
		accrue, err := parseAction(cj.AccrueAction)
		if err != nil {
			return portfolio.ChargeDefinition{}, fmt.Errorf("charge %s: %w", cj.Identifier, err)
		}
		def.AccrueAction = &accrue
	}

	if cj.ProportionalTo != "" {
		prop, err := portfolio.ParseProportionalDesignator(cj.ProportionalTo)
		if err != nil {
			return portfolio.ChargeDefinition{}, fmt.Errorf("charge %s: %w", cj.Identifier, err)
		}
		def.ProportionalTo = &prop
	}

	if cj.AccrualAccountDesignator != "" {
		acc := portfolio.AccountDesignator(cj.AccrualAccountDesignator)
		def.AccrualAccountDesignator = &acc
	}

	if cj.ForCycleSizeUnit != "" {
		unit, err := parseChronoUnit(cj.ForCycleSizeUnit)
		if err != nil {
			return portfolio.ChargeDefinition{}, fmt.Errorf("charge %s: %w", cj.Identifier, err)
		}
		def.ForCycleSizeUnit = &unit
	}

	if cj.Segments != nil {
		def.Segments = &portfolio.SegmentRange{
			SegmentSetIdentifier: cj.Segments.SegmentSet,
			FromSegment:          cj.Segments.FromSegment,
			ToSegment:            cj.Segments.ToSegment,
		}
	}

	return def, nil
}

func parseSegmentSet(productID string, sj SegmentSetJSON) (portfolio.BalanceSegmentSet, error) {
	set := portfolio.BalanceSegmentSet{
		Identifier:        sj.Identifier,
		ProductIdentifier: productID,
	}
	for _, seg := range sj.Segments {
		bound, err := decimal.NewFromString(seg.LowerBound)
		if err != nil {
			return portfolio.BalanceSegmentSet{}, fmt.Errorf("segment set %s: invalid lower bound %q: %w", sj.Identifier, seg.LowerBound, err)
		}
		set.Segments = append(set.Segments, portfolio.BalanceSegment{
			Identifier: seg.Identifier,
			LowerBound: bound,
		})
	}
	return set, nil
}

func parseAction(s string) (portfolio.Action, error) {
	a := portfolio.Action(s)
	for _, known := range portfolio.Actions() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func parseChronoUnit(s string) (portfolio.ChronoUnit, error) {
	switch u := portfolio.ChronoUnit(s); u {
	case portfolio.UnitYears, portfolio.UnitMonths, portfolio.UnitWeeks, portfolio.UnitDays:
		return u, nil
	default:
		return "", fmt.Errorf("unknown chrono unit %q", s)
	}
}
