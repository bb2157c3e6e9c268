/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes the API accepts and returns. DTOs keep the
  wire format decoupled from the engine types: monetary values travel
  as strings so precision never leaks through float64.

SEE ALSO:
  - handlers.go: Handlers producing/consuming these DTOs
*/
package api

// =============================================================================
// REQUESTS
// =============================================================================

// CreateCaseRequest creates a loan case under a product.
type CreateCaseRequest struct {
	Identifier          string            `json:"identifier,omitempty"`
	CustomerIdentifier  string            `json:"customer_identifier"`
	InterestRate        string            `json:"interest_rate"`
	BalanceRangeMaximum string            `json:"balance_range_maximum"`
	Term                TermDTO           `json:"term"`
	PaymentCycle        PaymentCycleDTO   `json:"payment_cycle"`
	MinorCurrencyDigits int32             `json:"minor_currency_digits,omitempty"`
	AccountAssignments  map[string]string `json:"account_assignments"`
}

// TermDTO is the negotiated maximum term.
type TermDTO struct {
	TemporalUnit string `json:"temporal_unit"`
	Maximum      int    `json:"maximum"`
}

// PaymentCycleDTO describes repayment frequency and alignment.
type PaymentCycleDTO struct {
	TemporalUnit   string `json:"temporal_unit"`
	Period         int    `json:"period"`
	AlignmentDay   *int   `json:"alignment_day,omitempty"`
	AlignmentWeek  *int   `json:"alignment_week,omitempty"`
	AlignmentMonth *int   `json:"alignment_month,omitempty"`
}

// ExecuteActionRequest applies a lifecycle action to a case.
type ExecuteActionRequest struct {
	Action string `json:"action"`
	// Date of the action, YYYY-MM-DD. Defaults to today.
	Date string `json:"date,omitempty"`
}

// PaymentPreviewRequest computes the cost components of one action
// against a supplied balance snapshot without applying anything.
type PaymentPreviewRequest struct {
	Action string `json:"action"`
	// Date of the action, YYYY-MM-DD. Defaults to today.
	Date string `json:"date,omitempty"`
	// The instructed amount, where the action takes one.
	RequestedAmount string `json:"requested_amount,omitempty"`
	// The amortization schedule's payment for the current period.
	ContractualRepayment string `json:"contractual_repayment,omitempty"`
	DaysLate             int    `json:"days_late,omitempty"`
	// Designator -> current balance.
	Balances map[string]string `json:"balances,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ProductDTO summarizes a stored product.
type ProductDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CaseDTO is the API view of a loan case.
type CaseDTO struct {
	Identifier          string            `json:"identifier"`
	ProductIdentifier   string            `json:"product_identifier"`
	CurrentState        string            `json:"current_state"`
	CustomerIdentifier  string            `json:"customer_identifier"`
	InterestRate        string            `json:"interest_rate"`
	BalanceRangeMaximum string            `json:"balance_range_maximum"`
	Term                TermDTO           `json:"term"`
	PaymentCycle        PaymentCycleDTO   `json:"payment_cycle"`
	MinorCurrencyDigits int32             `json:"minor_currency_digits"`
	AccountAssignments  map[string]string `json:"account_assignments"`
	StartOfTerm         string            `json:"start_of_term,omitempty"`
	EndOfTerm           string            `json:"end_of_term,omitempty"`
}

// ChargeDTO is the API view of a charge definition.
type ChargeDTO struct {
	Identifier        string `json:"identifier"`
	Name              string `json:"name"`
	ChargeAction      string `json:"charge_action"`
	AccrueAction      string `json:"accrue_action,omitempty"`
	Amount            string `json:"amount"`
	Method            string `json:"method"`
	ProportionalTo    string `json:"proportional_to,omitempty"`
	FromDesignator    string `json:"from_account_designator"`
	AccrualDesignator string `json:"accrual_account_designator,omitempty"`
	ToDesignator      string `json:"to_account_designator"`
	ForCycleSizeUnit  string `json:"for_cycle_size_unit,omitempty"`
	ReadOnly          bool   `json:"read_only,omitempty"`
	ChargeOnTop       bool   `json:"charge_on_top,omitempty"`
}

// ScheduledChargeDTO is one charge in the deterministic execution order
// for an action, with its resolved range bounds when confined.
type ScheduledChargeDTO struct {
	Action          string    `json:"action"`
	For             string    `json:"for"`
	Charge          ChargeDTO `json:"charge"`
	RangeLowerBound string    `json:"range_lower_bound,omitempty"`
	RangeUpperBound string    `json:"range_upper_bound,omitempty"`
}

// CostComponentDTO is one computed monetary effect.
type CostComponentDTO struct {
	ChargeIdentifier string `json:"charge_identifier"`
	Amount           string `json:"amount"`
}

// PaymentDTO is the full result of one builder invocation.
type PaymentDTO struct {
	Action             string             `json:"action"`
	Date               string             `json:"date"`
	CostComponents     []CostComponentDTO `json:"cost_components"`
	BalanceAdjustments map[string]string  `json:"balance_adjustments"`
}

// PlannedPaymentDTO is one projected installment.
type PlannedPaymentDTO struct {
	Date     string            `json:"date"`
	Payment  PaymentDTO        `json:"payment"`
	Balances map[string]string `json:"balances"`
}

// PlannedPaymentPageDTO is one page of the projection.
type PlannedPaymentPageDTO struct {
	Elements      []PlannedPaymentDTO `json:"elements"`
	TotalPages    int                 `json:"total_pages"`
	TotalElements int                 `json:"total_elements"`
}

// ActionsDTO lists the actions a case's state currently permits.
type ActionsDTO struct {
	CurrentState string   `json:"current_state"`
	Actions      []string `json:"actions"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
