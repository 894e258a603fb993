package openbanking

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
	"github.com/kevin07696/openbanking-service/test/mocks"
)

// fakeBank is an httptest server with a working token endpoint and pluggable API routes
type fakeBank struct {
	server    *httptest.Server
	mux       *http.ServeMux
	exchanges atomic.Int32
	lastScope atomic.Value
	expiresIn int

	// token replaces the default token endpoint when set
	token http.HandlerFunc
}

func newFakeBank(t *testing.T) *fakeBank {
	t.Helper()
	bank := &fakeBank{mux: http.NewServeMux(), expiresIn: 3600}

	bank.mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		if bank.token != nil {
			bank.token(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		n := bank.exchanges.Add(1)
		bank.lastScope.Store(r.PostForm.Get("scope"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": fmt.Sprintf("token-%d", n),
			"expires_in":   bank.expiresIn,
			"token_type":   "Bearer",
		})
	})

	bank.server = httptest.NewServer(bank.mux)
	t.Cleanup(bank.server.Close)
	return bank
}

func (b *fakeBank) handle(pattern string, handler http.HandlerFunc) {
	b.mux.HandleFunc(pattern, handler)
}

func (b *fakeBank) scope() string {
	s, _ := b.lastScope.Load().(string)
	return s
}

func setupClientTest(t *testing.T, bank *fakeBank) (*Client, *timeutil.ManualClock, *mocks.MockLogger) {
	t.Helper()
	clock := timeutil.NewManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	logger := mocks.NewMockLogger()

	client := NewClient(Config{
		Mode:        ModeSandbox,
		Credentials: Credentials{ClientID: "tpp-client", ClientSecret: "tpp-secret"},
		Purpose:     PurposePrivate,
		AuthBaseURL: bank.server.URL,
		APIBaseURL:  bank.server.URL,
	}, &http.Client{Timeout: 5 * time.Second}, logger, WithClock(clock))

	return client, clock, logger
}

func testOperation() *models.OperationContext {
	return models.NewOperationContext("203.0.113.10", "Mozilla/5.0", models.FlowDecoupled, "199001011234", "", "ESSESESS")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

var testLinks = map[string]interface{}{
	"self":   map[string]string{"href": "/psd2/consent/v1/consents/c-1"},
	"status": map[string]string{"href": "/psd2/consent/v1/consents/c-1/status"},
}

var testScaMethods = []map[string]string{
	{"authenticationType": "PUSH_OTP", "authenticationMethodId": "mbid", "name": "Mobile BankID"},
	{"authenticationType": "PUSH_OTP", "authenticationMethodId": "mbid_same_device", "name": "Mobile BankID on this device"},
	{"authenticationType": "VOICE_OTP", "authenticationMethodId": "voice", "name": "Unknown type"},
	{"authenticationMethodId": "incomplete"},
}
