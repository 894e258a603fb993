package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/services/consent"
	paymentsvc "github.com/kevin07696/openbanking-service/internal/services/payment"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148"

type fakePayments struct {
	initiated *paymentsvc.InitiateRequest
	admin     *paymentsvc.AdminRequest
	records   []*models.OutboundPayment
	stored    map[string]*models.OutboundPayment
	err       error
}

func (f *fakePayments) Initiate(ctx context.Context, req paymentsvc.InitiateRequest) ([]*models.OutboundPayment, error) {
	f.initiated = &req
	return f.records, f.err
}

func (f *fakePayments) Get(ctx context.Context, objectID string) (*models.OutboundPayment, error) {
	if p, ok := f.stored[objectID]; ok {
		return p, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (f *fakePayments) Sign(ctx context.Context, req paymentsvc.AdminRequest) error {
	f.admin = &req
	return f.err
}

func (f *fakePayments) Retry(ctx context.Context, req paymentsvc.AdminRequest) error {
	f.admin = &req
	return f.err
}

func (f *fakePayments) Cancel(ctx context.Context, req paymentsvc.AdminRequest) error {
	f.admin = &req
	return f.err
}

type fakeAccounts struct {
	req *consent.OptionsRequest
	err error
}

func (f *fakeAccounts) StartAccountOptions(ctx context.Context, req consent.OptionsRequest) error {
	f.req = &req
	if req.BicFi == "" {
		return domain.NewValidationError("bicFi", "The bank of the account must be selected.")
	}
	return f.err
}

type fakeDirectory struct {
	asked string
}

func (f *fakeDirectory) GetCountries(ctx context.Context) ([]models.Country, error) {
	return []models.Country{{IsoCode: "SE", Name: "Sweden"}, {IsoCode: "FI", Name: "Finland"}}, nil
}

func (f *fakeDirectory) GetCountry(ctx context.Context, isoCode string) (*models.Country, error) {
	return &models.Country{IsoCode: isoCode}, nil
}

func (f *fakeDirectory) GetCities(ctx context.Context, isoCountryCode string) ([]models.City, error) {
	return nil, nil
}

func (f *fakeDirectory) GetCity(ctx context.Context, cityID string) (*models.City, error) {
	return nil, nil
}

func (f *fakeDirectory) GetServiceProviders(ctx context.Context, isoCountryCode string) ([]models.ServiceProvider, error) {
	f.asked = isoCountryCode
	return []models.ServiceProvider{{BicFi: "ESSESESS", Name: "SEB"}}, nil
}

func (f *fakeDirectory) GetServiceProvider(ctx context.Context, bicFi string) (*models.ServiceProviderDetails, error) {
	return nil, nil
}

type handlerTest struct {
	payments  *fakePayments
	accounts  *fakeAccounts
	directory *fakeDirectory
	router    http.Handler
}

func setupHandlerTest(t *testing.T) *handlerTest {
	t.Helper()

	ht := &handlerTest{
		payments:  &fakePayments{stored: map[string]*models.OutboundPayment{}},
		accounts:  &fakeAccounts{},
		directory: &fakeDirectory{},
	}
	h := NewHandler(ht.payments, ht.accounts, ht.directory, false, zap.NewNop())
	ht.router = h.Router(func() []string { return []string{"test-key"} }, nil)
	return ht
}

func (ht *handlerTest) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "198.51.100.7:51234"
	req.Header.Set("X-API-Key", "test-key")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ht.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestInitiate_Accepted(t *testing.T) {
	ht := setupHandlerTest(t)
	ht.payments.records = []*models.OutboundPayment{{ObjectID: "rec-1"}, {ObjectID: "rec-2"}}

	rec := ht.do(http.MethodPost, "/api/v1/payments", `{
		"account": "hosting-account",
		"amount": "150.50",
		"currency": "SEK",
		"toBankAccount": "SE7280000810340009783242",
		"toBankAccountName": "Jane Doe",
		"message": "Payout",
		"personalNumber": "19900101-1234",
		"tabId": "tab-1",
		"splits": [
			{"bankAccount": "SE7280000810340009783242", "accountName": "Jane", "amount": "100", "description": "a"},
			{"bankAccount": "SE3550000000054910000003", "accountName": "John", "amount": "50.50", "description": "b"}
		]
	}`, "User-Agent", iphoneUA)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp InitiatePaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"rec-1", "rec-2"}, resp.ObjectIDs)

	req := ht.payments.initiated
	require.NotNil(t, req)
	assert.Equal(t, "198.51.100.7", req.ClientIP)
	assert.Equal(t, iphoneUA, req.UserAgent)
	assert.True(t, req.Instruction.FromMobileDevice)
	assert.True(t, decimal.RequireFromString("150.50").Equal(req.Instruction.Amount))
	assert.Equal(t, "19900101-1234", req.Instruction.PersonalNumber)
	assert.Len(t, req.Instruction.Splits, 2)
	assert.Equal(t, "tab-1", req.Instruction.TabID)
}

func TestInitiate_ExplicitDesktopOverridesUserAgent(t *testing.T) {
	ht := setupHandlerTest(t)

	rec := ht.do(http.MethodPost, "/api/v1/payments",
		`{"amount": "1", "currency": "SEK", "fromMobileDevice": false}`, "User-Agent", iphoneUA)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, ht.payments.initiated.Instruction.FromMobileDevice)
}

func TestInitiate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: domain.NewValidationError("amount", "Amount must be positive."), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "shutting down", err: domain.ErrShuttingDown, wantStatus: http.StatusServiceUnavailable, wantCode: "SHUTTING_DOWN"},
		{name: "storage failure", err: assert.AnError, wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
		{name: "bad json", body: `{"amount": `, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ht := setupHandlerTest(t)
			ht.payments.err = tt.err
			body := tt.body
			if body == "" {
				body = `{"amount": "1"}`
			}

			rec := ht.do(http.MethodPost, "/api/v1/payments", body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestInitiate_RequiresJSON(t *testing.T) {
	ht := setupHandlerTest(t)

	rec := ht.do(http.MethodPost, "/api/v1/payments", "", "Content-Type", "text/plain")

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Nil(t, ht.payments.initiated)
}

func TestGetPayment(t *testing.T) {
	ht := setupHandlerTest(t)
	paid := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ht.payments.stored["rec-1"] = &models.OutboundPayment{
		ObjectID:          "rec-1",
		Paid:              &paid,
		PaymentID:         "pay-1",
		TransactionStatus: models.PaymentACSC,
		Product:           models.ProductDomestic,
		Amount:            decimal.RequireFromString("99.90"),
		Currency:          "SEK",
	}

	rec := ht.do(http.MethodGet, "/api/v1/payments/rec-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pay-1", resp.PaymentID)
	assert.Equal(t, "ACSC", resp.TransactionStatus)
	assert.Equal(t, "domestic", resp.Product)
	assert.True(t, resp.Paid.Equal(paid))
	assert.Equal(t, "99.9", resp.Amount.String())

	rec = ht.do(http.MethodGet, "/api/v1/payments/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PAYMENT_NOT_FOUND", decodeError(t, rec).Code)
}

func TestAdminEndpoints(t *testing.T) {
	paths := []string{"/api/v1/payments/sign", "/api/v1/payments/retry", "/api/v1/payments/cancel"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			ht := setupHandlerTest(t)

			rec := ht.do(http.MethodPost, path,
				`{"objectIds": ["a", "b"], "tabId": "tab-9", "personalNumber": "199001011234"}`,
				"User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

			require.Equal(t, http.StatusAccepted, rec.Code)
			require.NotNil(t, ht.payments.admin)
			assert.Equal(t, []string{"a", "b"}, ht.payments.admin.ObjectIDs)
			assert.Equal(t, "tab-9", ht.payments.admin.TabID)
			assert.False(t, ht.payments.admin.FromMobileDevice)
		})
	}
}

func TestAdminEndpoints_Conflicts(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{domain.ErrPaymentAlreadyPaid, "PAYMENT_ALREADY_PAID"},
		{domain.ErrPaymentInBasket, "PAYMENT_IN_BASKET"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ht := setupHandlerTest(t)
			ht.payments.err = tt.err

			rec := ht.do(http.MethodPost, "/api/v1/payments/sign", `{"objectIds": ["a"]}`)

			assert.Equal(t, http.StatusConflict, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestAccountOptions(t *testing.T) {
	ht := setupHandlerTest(t)

	rec := ht.do(http.MethodPost, "/api/v1/accounts/options",
		`{"personalNumber": "199001011234", "bicFi": "ESSESESS", "tabId": "tab-2"}`,
		"User-Agent", "Mozilla/5.0 (Linux; Android 14; Pixel 8)")

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ESSESESS", ht.accounts.req.BicFi)
	assert.True(t, ht.accounts.req.FromMobileDevice)

	rec = ht.do(http.MethodPost, "/api/v1/accounts/options", `{"tabId": "tab-2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDirectory(t *testing.T) {
	ht := setupHandlerTest(t)

	rec := ht.do(http.MethodGet, "/api/v1/aspsp/countries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var countries []CountryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &countries))
	assert.Equal(t, []CountryResponse{{IsoCode: "SE", Name: "Sweden"}, {IsoCode: "FI", Name: "Finland"}}, countries)

	rec = ht.do(http.MethodGet, "/api/v1/aspsp/providers?country=se", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SE", ht.directory.asked)
	assert.Contains(t, rec.Body.String(), `"bicFi":"ESSESESS"`)

	rec = ht.do(http.MethodGet, "/api/v1/aspsp/providers", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	ht := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aspsp/countries", nil)
	rec := httptest.NewRecorder()
	ht.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoverer(t *testing.T) {
	h := NewHandler(nil, nil, nil, false, zap.NewNop())
	r := chi.NewRouter()
	r.Use(h.recoverer)
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIsMobileUserAgent(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{iphoneUA, true},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) Chrome/120 Mobile Safari/537.36", true},
		{"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", true},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) Safari/605.1.15", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMobileUserAgent(tt.ua), tt.ua)
	}
}
