/*
json.go - JSON presets for individual-lending products

PURPOSE:
  Convenience functions that emit the JSON form of standard product
  configurations, ready to feed to factory.ParseProduct or to store as
  seed data.

SEE ALSO:
  - factory/product.go: The JSON parser these presets target
*/
package products

import (
	"encoding/json"

	"github.com/warp/lending-engine/portfolio"
)

// IndividualLoanJSON returns the JSON form of the standard individual
// loan product with the given charge configuration.
func IndividualLoanJSON(id, name string, cfg ChargeConfig) string {
	charges := make([]map[string]interface{}, 0)
	for _, def := range IndividualLoanCharges(cfg) {
		charges = append(charges, chargeJSON(def))
	}
	pj := map[string]interface{}{
		"id":      id,
		"name":    name,
		"charges": charges,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// SecuredLoanJSON returns the standard set plus a loss-provisioning
// ladder, for product variants that provision against late cases.
func SecuredLoanJSON(id, name string, cfg ChargeConfig, steps []portfolio.LossProvisionStep) string {
	charges := make([]map[string]interface{}, 0)
	for _, def := range IndividualLoanCharges(cfg) {
		charges = append(charges, chargeJSON(def))
	}
	provision := make([]map[string]interface{}, 0)
	for _, s := range steps {
		provision = append(provision, map[string]interface{}{
			"days_late":  s.DaysLate,
			"percentage": s.Percentage.String(),
		})
	}
	pj := map[string]interface{}{
		"id":             id,
		"name":           name,
		"charges":        charges,
		"loss_provision": provision,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

func chargeJSON(def portfolio.ChargeDefinition) map[string]interface{} {
	cj := map[string]interface{}{
		"identifier":              def.Identifier,
		"name":                    def.Name,
		"charge_action":           string(def.ChargeAction),
		"amount":                  def.Amount.String(),
		"method":                  string(def.Method),
		"from_account_designator": string(def.FromAccountDesignator),
		"to_account_designator":   string(def.ToAccountDesignator),
	}
	if def.AccrueAction != nil {
		cj["accrue_action"] = string(*def.AccrueAction)
	}
	if def.ProportionalTo != nil {
		cj["proportional_to"] = def.ProportionalTo.String()
	}
	if def.AccrualAccountDesignator != nil {
		cj["accrual_account_designator"] = string(*def.AccrualAccountDesignator)
	}
	if def.ForCycleSizeUnit != nil {
		cj["for_cycle_size_unit"] = string(*def.ForCycleSizeUnit)
	}
	if def.ReadOnly {
		cj["read_only"] = true
	}
	if def.ChargeOnTop {
		cj["charge_on_top"] = true
	}
	return cj
}
