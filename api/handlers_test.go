package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lending-engine/api"
	"github.com/warp/lending-engine/portfolio"
	"github.com/warp/lending-engine/products"
	"github.com/warp/lending-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	h := api.NewHandler(store, zerolog.Nop())
	server := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body string) (int, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func createStandardProduct(t *testing.T, server *httptest.Server) {
	t.Helper()
	jsonStr := products.IndividualLoanJSON("individual-loan", "Individual Loan", products.DefaultChargeConfig())
	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products", jsonStr)
	require.Equal(t, http.StatusCreated, status, "body: %s", body)
}

func createCaseRequest() string {
	charges := products.IndividualLoanCharges(products.DefaultChargeConfig())
	assignments := make(map[string]string)
	for _, d := range products.RequiredDesignators(charges) {
		assignments[string(d)] = "ledger." + string(d)
	}

	req := api.CreateCaseRequest{
		Identifier:          "case-0001",
		CustomerIdentifier:  "customer-0001",
		InterestRate:        "5.00",
		BalanceRangeMaximum: "2000",
		Term:                api.TermDTO{TemporalUnit: "years", Maximum: 1},
		PaymentCycle:        api.PaymentCycleDTO{TemporalUnit: "months", Period: 1},
		AccountAssignments:  assignments,
	}
	b, _ := json.Marshal(req)
	return string(b)
}

func createActiveCase(t *testing.T, server *httptest.Server) {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products/individual-loan/cases", createCaseRequest())
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	actionsURL := server.URL + "/api/products/individual-loan/cases/case-0001/actions"
	for _, action := range []string{"OPEN", "APPROVE", "DISBURSE"} {
		status, body := doJSON(t, http.MethodPost, actionsURL, `{"action": "`+action+`", "date": "2026-01-15"}`)
		require.Equal(t, http.StatusOK, status, "action %s: %s", action, body)
	}
}

// =============================================================================
// PRODUCT ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateAndListProducts(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/products", "")
	require.Equal(t, http.StatusOK, status)

	var dtos []api.ProductDTO
	require.NoError(t, json.Unmarshal(body, &dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "individual-loan", dtos[0].ID)
	assert.Equal(t, "Individual Loan", dtos[0].Name)

	status, body = doJSON(t, http.MethodGet, server.URL+"/api/products/individual-loan/charges", "")
	require.Equal(t, http.StatusOK, status)

	var charges []api.ChargeDTO
	require.NoError(t, json.Unmarshal(body, &charges))
	assert.Len(t, charges, 10)
}

func TestAPI_CreateProductRejectsBadConfig(t *testing.T) {
	server := newTestServer(t)

	status, _ := doJSON(t, http.MethodPost, server.URL+"/api/products", `{"name": "no id"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodPost, server.URL+"/api/products", `{"id": "p", "charges": [`)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// CASE LIFECYCLE TESTS
// =============================================================================

func TestAPI_CaseLifecycle(t *testing.T) {
	// GIVEN: A stored product
	// WHEN: Creating a case and walking OPEN -> APPROVE -> DISBURSE
	// THEN: State, permitted actions and term dates track each step

	server := newTestServer(t)
	createStandardProduct(t, server)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products/individual-loan/cases", createCaseRequest())
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	var created api.CaseDTO
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "case-0001", created.Identifier)
	assert.Equal(t, string(portfolio.StateCreated), created.CurrentState)

	base := server.URL + "/api/products/individual-loan/cases/case-0001"

	status, body = doJSON(t, http.MethodGet, base+"/actions", "")
	require.Equal(t, http.StatusOK, status)
	var actions api.ActionsDTO
	require.NoError(t, json.Unmarshal(body, &actions))
	assert.Equal(t, []string{"OPEN"}, actions.Actions)

	status, body = doJSON(t, http.MethodPost, base+"/actions", `{"action": "OPEN", "date": "2026-01-15"}`)
	require.Equal(t, http.StatusOK, status, "body: %s", body)
	var opened api.CaseDTO
	require.NoError(t, json.Unmarshal(body, &opened))
	assert.Equal(t, string(portfolio.StatePending), opened.CurrentState)
	assert.Equal(t, "2026-01-15", opened.StartOfTerm)
	assert.Equal(t, "2027-01-15", opened.EndOfTerm)

	status, body = doJSON(t, http.MethodPost, base+"/actions", `{"action": "APPROVE"}`)
	require.Equal(t, http.StatusOK, status, "body: %s", body)

	status, body = doJSON(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, status)
	var current api.CaseDTO
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, string(portfolio.StateApproved), current.CurrentState)
}

func TestAPI_CaseWithoutIdentifierGetsOne(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	req := `{
		"customer_identifier": "customer-0002",
		"interest_rate": "5.00",
		"balance_range_maximum": "1000",
		"term": {"temporal_unit": "months", "maximum": 6},
		"payment_cycle": {"temporal_unit": "months", "period": 1},
		"account_assignments": {}
	}`
	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products/individual-loan/cases", req)
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	var created api.CaseDTO
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.Identifier)
}

func TestAPI_IllegalActionConflicts(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products/individual-loan/cases", createCaseRequest())
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	status, _ = doJSON(t, http.MethodPost,
		server.URL+"/api/products/individual-loan/cases/case-0001/actions",
		`{"action": "DISBURSE"}`)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_UnknownCaseIs404(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	status, _ := doJSON(t, http.MethodGet, server.URL+"/api/products/individual-loan/cases/ghost", "")
	assert.Equal(t, http.StatusNotFound, status)
}

// =============================================================================
// CALCULATION ENDPOINT TESTS
// =============================================================================

func TestAPI_ScheduledCharges(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)
	createActiveCase(t, server)

	url := server.URL + "/api/products/individual-loan/cases/case-0001/scheduledcharges?for_action=ACCEPT_PAYMENT"
	status, body := doJSON(t, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, status, "body: %s", body)

	var charges []api.ScheduledChargeDTO
	require.NoError(t, json.Unmarshal(body, &charges))
	require.Len(t, charges, 5)
	assert.Equal(t, portfolio.ChargeRepayFees, charges[0].Charge.Identifier)
	assert.Equal(t, portfolio.ChargeLateFee, charges[4].Charge.Identifier)

	// The query parameter is mandatory.
	status, _ = doJSON(t, http.MethodGet,
		server.URL+"/api/products/individual-loan/cases/case-0001/scheduledcharges", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_PaymentPreview(t *testing.T) {
	// GIVEN: An active case with supplied simulated balances
	// WHEN: Previewing a 100 payment against 2000 principal, 10 interest
	// THEN: The split settles interest first without persisting anything

	server := newTestServer(t)
	createStandardProduct(t, server)
	createActiveCase(t, server)

	req := `{
		"action": "ACCEPT_PAYMENT",
		"date": "2026-02-15",
		"requested_amount": "100",
		"balances": {
			"customer-loan-principal": "2000",
			"customer-loan-interest": "10",
			"interest-accrual": "10"
		}
	}`
	url := server.URL + "/api/products/individual-loan/cases/case-0001/payments"
	status, body := doJSON(t, http.MethodPost, url, req)
	require.Equal(t, http.StatusOK, status, "body: %s", body)

	var payment api.PaymentDTO
	require.NoError(t, json.Unmarshal(body, &payment))
	assert.Equal(t, "ACCEPT_PAYMENT", payment.Action)

	amounts := make(map[string]string, len(payment.CostComponents))
	for _, cc := range payment.CostComponents {
		amounts[cc.ChargeIdentifier] = cc.Amount
	}
	assert.Equal(t, "10", amounts[portfolio.ChargeRepayInterest])
	assert.Equal(t, "90", amounts[portfolio.ChargeRepayPrincipal])
	assert.Equal(t, "-90", payment.BalanceAdjustments["customer-loan-principal"])
}

func TestAPI_PaymentPreviewIllegalAction(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products/individual-loan/cases", createCaseRequest())
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	// The case is still CREATED; a payment preview is not permitted.
	status, _ = doJSON(t, http.MethodPost,
		server.URL+"/api/products/individual-loan/cases/case-0001/payments",
		`{"action": "ACCEPT_PAYMENT", "requested_amount": "100"}`)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_PlannedPayments(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)
	createActiveCase(t, server)

	url := server.URL + "/api/products/individual-loan/cases/case-0001/plannedpayments" +
		"?pageIndex=0&size=5&initialDisbursalDate=2026-01-15"
	status, body := doJSON(t, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, status, "body: %s", body)

	var page api.PlannedPaymentPageDTO
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 12, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Elements, 5)
	assert.Equal(t, "2026-02-15", page.Elements[0].Date)
	assert.NotEmpty(t, page.Elements[0].Payment.CostComponents)
	assert.Contains(t, page.Elements[0].Balances, "customer-loan-principal")
}

// =============================================================================
// ADMIN TESTS
// =============================================================================

func TestAPI_Reset(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	status, _ := doJSON(t, http.MethodPost, server.URL+"/api/reset", "")
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/products", "")
	require.Equal(t, http.StatusOK, status)
	var dtos []api.ProductDTO
	require.NoError(t, json.Unmarshal(body, &dtos))
	assert.Empty(t, dtos)
}

func TestAPI_Healthz(t *testing.T) {
	server := newTestServer(t)
	status, _ := doJSON(t, http.MethodGet, server.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_CreateCaseRejectsBadAlignment(t *testing.T) {
	server := newTestServer(t)
	createStandardProduct(t, server)

	day := -1
	req := api.CreateCaseRequest{
		Identifier:          "case-bad-cycle",
		CustomerIdentifier:  "customer-0001",
		InterestRate:        "5.00",
		BalanceRangeMaximum: "2000",
		Term:                api.TermDTO{TemporalUnit: "years", Maximum: 1},
		PaymentCycle:        api.PaymentCycleDTO{TemporalUnit: "weeks", Period: 1, AlignmentDay: &day},
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/products/individual-loan/cases", string(b))
	assert.Equal(t, http.StatusBadRequest, status, "body: %s", body)
}
