package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsMux_Ready(t *testing.T) {
	accepting := true
	mux := NewMetricsMux(nil, func() bool { return accepting })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	accepting = false
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsMux_ExposesOpenBankingMetrics(t *testing.T) {
	RecordAPIRequest("GET", "200", 0.12)
	RecordAuthorization("payment", "succeeded", 3, 12)

	rec := httptest.NewRecorder()
	NewMetricsMux(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openbanking_api_requests_total")
	assert.Contains(t, rec.Body.String(), "openbanking_authorizations_total")
}
