package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	_ = c.Write(&m)
	return m.GetCounter().GetValue()
}

func TestHTTPMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMiddleware)
	r.Get("/api/v1/payments/{objectId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := counterValue(httpRequestsTotal.WithLabelValues("GET", "/api/v1/payments/{objectId}", "404"))
	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+id, nil))
	}

	after := counterValue(httpRequestsTotal.WithLabelValues("GET", "/api/v1/payments/{objectId}", "404"))
	assert.Equal(t, before+2, after)
}

func TestHTTPMiddleware_DefaultsToOK(t *testing.T) {
	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := counterValue(httpRequestsTotal.WithLabelValues("POST", "unmatched", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, before+1, counterValue(httpRequestsTotal.WithLabelValues("POST", "unmatched", "200")))
}
