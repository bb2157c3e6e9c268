/*
handlers.go - HTTP API handlers for the lending calculation engine

PURPOSE:
  Exposes the charge and schedule calculation engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the portfolio engine.

ENDPOINTS:
  Products:
    GET    /api/products                        List products
    POST   /api/products                        Create product from JSON config
    GET    /api/products/{pid}/charges          Charge definitions

  Cases:
    POST   /api/products/{pid}/cases            Create case
    GET    /api/products/{pid}/cases            List case identifiers
    GET    /api/products/{pid}/cases/{cid}      Case detail
    GET    /api/products/{pid}/cases/{cid}/actions
                                                Permitted next actions
    POST   /api/products/{pid}/cases/{cid}/actions
                                                Execute a lifecycle action
    GET    /api/products/{pid}/cases/{cid}/scheduledcharges?for_action=&days_late=
                                                Deterministic charge order
    POST   /api/products/{pid}/cases/{cid}/payments
                                                Payment preview (cost components)
    GET    /api/products/{pid}/cases/{cid}/plannedpayments?pageIndex=&size=&initialDisbursalDate=
                                                Planned-payment projection page

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad configuration
  - 404: Product/case not found
  - 409: Action not permitted in the current lifecycle state
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/lending-engine/factory"
	"github.com/warp/lending-engine/portfolio"
	"github.com/warp/lending-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Factory   *factory.ProductFactory
	Engine    *portfolio.PaymentEngine
	Projector *portfolio.Projector
	Log       zerolog.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Factory:   factory.NewProductFactory(),
		Engine:    portfolio.NewPaymentEngine(store),
		Projector: portfolio.NewProjector(store),
		Log:       log,
	}
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for id, name := range products {
		dtos = append(dtos, ProductDTO{ID: id, Name: name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct creates a product from its JSON configuration.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	pc, err := h.Factory.ParseProduct(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product configuration", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveProduct(ctx, pc.Identifier, pc.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}
	if err := h.Store.PutChargeDefinitions(ctx, pc.Identifier, pc.Charges); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save charge definitions", err)
		return
	}
	for _, set := range pc.SegmentSets {
		if err := h.Store.PutBalanceSegmentSet(ctx, set); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save segment set", err)
			return
		}
	}
	if len(pc.LossProvision) > 0 {
		if err := h.Store.PutLossProvisionSteps(ctx, pc.Identifier, pc.LossProvision); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save provision steps", err)
			return
		}
	}

	h.Log.Info().Str("product", pc.Identifier).Int("charges", len(pc.Charges)).Msg("product created")
	writeJSON(w, http.StatusCreated, ProductDTO{ID: pc.Identifier, Name: pc.Name})
}

// ListCharges returns a product's charge definitions.
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "pid")

	defs, err := h.Store.ChargeDefinitions(r.Context(), productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list charges", err)
		return
	}

	dtos := make([]ChargeDTO, len(defs))
	for i, def := range defs {
		dtos[i] = toChargeDTO(def)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CASE HANDLERS
// =============================================================================

// CreateCase creates a new case under a product.
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "pid")

	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := caseFromRequest(productID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid case", err)
		return
	}

	if err := h.Store.PutCase(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save case", err)
		return
	}

	h.Log.Info().Str("product", productID).Str("case", c.Identifier).Msg("case created")
	writeJSON(w, http.StatusCreated, toCaseDTO(c))
}

// ListCases returns the case identifiers of a product.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "pid")

	ids, err := h.Store.ListCases(r.Context(), productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cases", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetCase returns a single case.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCaseDTO(c))
}

// GetActions returns the actions the case's state currently permits.
func (h *Handler) GetActions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	actions := portfolio.NextActionsForState(c.CurrentState)
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	writeJSON(w, http.StatusOK, ActionsDTO{
		CurrentState: string(c.CurrentState),
		Actions:      names,
	})
}

// ExecuteAction transitions a case's lifecycle state.
func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	var req ExecuteActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	when, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	action := portfolio.Action(req.Action)
	next, err := portfolio.Transition(c.CurrentState, action)
	if err != nil {
		writeError(w, http.StatusConflict, "Action not permitted", err)
		return
	}

	c.CurrentState = next
	if action == portfolio.ActionOpen && c.StartOfTerm == nil {
		start := when
		end := c.Parameters.TermRange.EndOfTerm(start)
		c.StartOfTerm = &start
		c.EndOfTerm = &end
	}

	if err := h.Store.PutCase(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save case", err)
		return
	}

	h.Log.Info().
		Str("case", c.Identifier).
		Str("action", string(action)).
		Str("state", string(next)).
		Msg("lifecycle action executed")
	writeJSON(w, http.StatusOK, toCaseDTO(c))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// GetScheduledCharges returns the deterministic charge execution order
// for an action.
func (h *Handler) GetScheduledCharges(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	action := portfolio.Action(r.URL.Query().Get("for_action"))
	if action == "" {
		writeError(w, http.StatusBadRequest, "for_action query parameter is required", nil)
		return
	}
	daysLate, _ := strconv.Atoi(r.URL.Query().Get("days_late"))

	sa := portfolio.ScheduledAction{Action: action, When: time.Now().UTC()}
	charges, err := h.Engine.Assembler.ScheduledCharges(r.Context(), c.ProductIdentifier, sa, daysLate)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]ScheduledChargeDTO, len(charges))
	for i, sc := range charges {
		dto := ScheduledChargeDTO{
			Action: string(sc.ScheduledAction.Action),
			For:    sc.ScheduledAction.When.Format("2006-01-02"),
			Charge: toChargeDTO(sc.Charge),
		}
		if sc.Range != nil {
			dto.RangeLowerBound = sc.Range.LowerBound.String()
			if sc.Range.UpperBound != nil {
				dto.RangeUpperBound = sc.Range.UpperBound.String()
			}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PreviewPayment computes the cost components of one action against a
// supplied balance snapshot. Nothing is persisted.
func (h *Handler) PreviewPayment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	var req PaymentPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	when, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	balances := portfolio.ForCase(c)
	for designator, value := range req.Balances {
		amount, err := decimal.NewFromString(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid balance value", err)
			return
		}
		balances.Seed(portfolio.AccountDesignator(designator), amount)
	}

	preq := portfolio.PaymentRequest{
		Case:     c,
		Action:   portfolio.Action(req.Action),
		When:     when,
		Balances: balances,
		DaysLate: req.DaysLate,
	}
	if req.RequestedAmount != "" {
		amount, err := decimal.NewFromString(req.RequestedAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid requested_amount", err)
			return
		}
		preq.RequestedAmount = &amount
	}
	if req.ContractualRepayment != "" {
		amount, err := decimal.NewFromString(req.ContractualRepayment)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid contractual_repayment", err)
			return
		}
		preq.ContractualRepayment = amount
	}

	payment, err := h.Engine.BuildPayment(r.Context(), preq)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

// GetPlannedPayments returns one page of the planned-payment projection.
func (h *Handler) GetPlannedPayments(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	pageIndex, _ := strconv.Atoi(r.URL.Query().Get("pageIndex"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("size"))

	disbursal := time.Now().UTC()
	if raw := r.URL.Query().Get("initialDisbursalDate"); raw != "" {
		var err error
		disbursal, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid initialDisbursalDate (use YYYY-MM-DD)", err)
			return
		}
	}

	page, err := h.Projector.PlannedPaymentsPage(r.Context(), c, pageIndex, pageSize, disbursal)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dto := PlannedPaymentPageDTO{
		Elements:      make([]PlannedPaymentDTO, len(page.Elements)),
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}
	for i, pp := range page.Elements {
		balances := make(map[string]string, len(pp.Balances))
		for designator, value := range pp.Balances {
			balances[string(designator)] = value.String()
		}
		dto.Elements[i] = PlannedPaymentDTO{
			Date:     pp.Date.Format("2006-01-02"),
			Payment:  toPaymentDTO(pp.Payment),
			Balances: balances,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func (h *Handler) loadCase(w http.ResponseWriter, r *http.Request) (portfolio.Case, bool) {
	productID := chi.URLParam(r, "pid")
	caseID := chi.URLParam(r, "cid")

	c, found, err := h.Store.Case(r.Context(), productID, caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load case", err)
		return portfolio.Case{}, false
	}
	if !found {
		writeError(w, http.StatusNotFound, "Case not found", nil)
		return portfolio.Case{}, false
	}
	return c, true
}

func caseFromRequest(productID string, req CreateCaseRequest) (portfolio.Case, error) {
	rate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return portfolio.Case{}, err
	}
	maximum, err := decimal.NewFromString(req.BalanceRangeMaximum)
	if err != nil {
		return portfolio.Case{}, err
	}

	id := req.Identifier
	if id == "" {
		id = uuid.NewString()
	}

	cycle := portfolio.PaymentCycle{
		TemporalUnit:   portfolio.ChronoUnit(req.PaymentCycle.TemporalUnit),
		Period:         req.PaymentCycle.Period,
		AlignmentDay:   req.PaymentCycle.AlignmentDay,
		AlignmentWeek:  req.PaymentCycle.AlignmentWeek,
		AlignmentMonth: req.PaymentCycle.AlignmentMonth,
	}
	if err := cycle.Validate(); err != nil {
		return portfolio.Case{}, err
	}

	assignments := make(map[portfolio.AccountDesignator]string, len(req.AccountAssignments))
	for designator, account := range req.AccountAssignments {
		assignments[portfolio.AccountDesignator(designator)] = account
	}

	return portfolio.Case{
		Identifier:        id,
		ProductIdentifier: productID,
		CurrentState:      portfolio.StateCreated,
		InterestRate:      rate,
		Parameters: portfolio.CaseParameters{
			CustomerIdentifier:  req.CustomerIdentifier,
			BalanceRangeMaximum: maximum,
			TermRange: portfolio.TermRange{
				TemporalUnit: portfolio.ChronoUnit(req.Term.TemporalUnit),
				Maximum:      req.Term.Maximum,
			},
			PaymentCycle:            cycle,
			MinorCurrencyUnitDigits: req.MinorCurrencyDigits,
		},
		AccountAssignments: assignments,
	}, nil
}

func toCaseDTO(c portfolio.Case) CaseDTO {
	assignments := make(map[string]string, len(c.AccountAssignments))
	for designator, account := range c.AccountAssignments {
		assignments[string(designator)] = account
	}

	dto := CaseDTO{
		Identifier:          c.Identifier,
		ProductIdentifier:   c.ProductIdentifier,
		CurrentState:        string(c.CurrentState),
		CustomerIdentifier:  c.Parameters.CustomerIdentifier,
		InterestRate:        c.InterestRate.String(),
		BalanceRangeMaximum: c.Parameters.BalanceRangeMaximum.String(),
		Term: TermDTO{
			TemporalUnit: string(c.Parameters.TermRange.TemporalUnit),
			Maximum:      c.Parameters.TermRange.Maximum,
		},
		PaymentCycle: PaymentCycleDTO{
			TemporalUnit:   string(c.Parameters.PaymentCycle.TemporalUnit),
			Period:         c.Parameters.PaymentCycle.Period,
			AlignmentDay:   c.Parameters.PaymentCycle.AlignmentDay,
			AlignmentWeek:  c.Parameters.PaymentCycle.AlignmentWeek,
			AlignmentMonth: c.Parameters.PaymentCycle.AlignmentMonth,
		},
		MinorCurrencyDigits: c.Parameters.Scale(),
		AccountAssignments:  assignments,
	}
	if c.StartOfTerm != nil {
		dto.StartOfTerm = c.StartOfTerm.Format("2006-01-02")
	}
	if c.EndOfTerm != nil {
		dto.EndOfTerm = c.EndOfTerm.Format("2006-01-02")
	}
	return dto
}

func toChargeDTO(def portfolio.ChargeDefinition) ChargeDTO {
	dto := ChargeDTO{
		Identifier:     def.Identifier,
		Name:           def.Name,
		ChargeAction:   string(def.ChargeAction),
		Amount:         def.Amount.String(),
		Method:         string(def.Method),
		FromDesignator: string(def.FromAccountDesignator),
		ToDesignator:   string(def.ToAccountDesignator),
		ReadOnly:       def.ReadOnly,
		ChargeOnTop:    def.ChargeOnTop,
	}
	if def.AccrueAction != nil {
		dto.AccrueAction = string(*def.AccrueAction)
	}
	if def.ProportionalTo != nil {
		dto.ProportionalTo = def.ProportionalTo.String()
	}
	if def.AccrualAccountDesignator != nil {
		dto.AccrualDesignator = string(*def.AccrualAccountDesignator)
	}
	if def.ForCycleSizeUnit != nil {
		dto.ForCycleSizeUnit = string(*def.ForCycleSizeUnit)
	}
	return dto
}

func toPaymentDTO(p portfolio.Payment) PaymentDTO {
	components := make([]CostComponentDTO, len(p.CostComponents))
	for i, cc := range p.CostComponents {
		components[i] = CostComponentDTO{
			ChargeIdentifier: cc.ChargeIdentifier,
			Amount:           cc.Amount.String(),
		}
	}
	adjustments := make(map[string]string, len(p.BalanceAdjustments))
	for designator, delta := range p.BalanceAdjustments {
		adjustments[string(designator)] = delta.String()
	}
	return PaymentDTO{
		Action:             string(p.Action),
		Date:               p.Date.Format("2006-01-02"),
		CostComponents:     components,
		BalanceAdjustments: adjustments,
	}
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().UTC()
		return portfolio.Date(now.Year(), now.Month(), now.Day()), nil
	}
	return time.Parse("2006-01-02", raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to HTTP statuses: lifecycle
// violations are conflicts, configuration problems are bad requests,
// everything else is internal.
func writeEngineError(w http.ResponseWriter, err error) {
	var transition *portfolio.InvalidTransitionError
	if errors.As(err, &transition) {
		writeError(w, http.StatusConflict, "Action not permitted in current state", err)
		return
	}
	if portfolio.IsClientError(err) {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	if errors.Is(err, portfolio.ErrBadConfiguration) {
		writeError(w, http.StatusBadRequest, "Product not ready", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Calculation failed", err)
}
