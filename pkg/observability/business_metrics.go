package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bank API traffic
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openbanking_api_requests_total",
		Help: "Total number of requests sent to the open banking API",
	}, []string{
		"method", // GET, POST, PUT, DELETE
		"status", // HTTP status code, or "error" when no response
	})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openbanking_api_request_duration_seconds",
		Help:    "Duration of open banking API requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	// Token cache
	tokenCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openbanking_token_cache_hits_total",
		Help: "Total number of bearer token cache hits",
	})

	tokenCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openbanking_token_cache_misses_total",
		Help: "Total number of bearer token cache misses",
	}, []string{"reason"}) // expired, not_found

	tokenExchangeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openbanking_token_exchange_failures_total",
		Help: "Total number of failed client credentials exchanges",
	})

	// SCA authorizations
	authorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openbanking_authorizations_total",
		Help: "Total SCA authorizations by resource kind and outcome",
	}, []string{
		"resource", // consent, payment, basket
		"outcome",  // succeeded, failed, incomplete
	})

	authorizationPolls = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openbanking_authorization_polls",
		Help:    "Number of status polls per SCA authorization",
		Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"resource"})

	authorizationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openbanking_authorization_duration_seconds",
		Help:    "Wall-clock time from SCA start to verdict",
		Buckets: []float64{5, 15, 30, 60, 120, 180, 300, 600},
	}, []string{"resource", "outcome"})

	// Payment legs
	paymentLegsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openbanking_payment_legs_total",
		Help: "Total payment legs by product and final transaction status",
	}, []string{"product", "status"})

	// Push notifications
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openbanking_notifications_total",
		Help: "Total push notifications by event and delivery status",
	}, []string{
		"event",
		"status", // delivered, failed
	})

	circuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "openbanking_api_circuit_open",
		Help: "1 while the bank API circuit breaker is open",
	})
)

// RecordAPIRequest records one request to the bank API
func RecordAPIRequest(method, status string, seconds float64) {
	apiRequestsTotal.WithLabelValues(method, status).Inc()
	apiRequestDuration.WithLabelValues(method).Observe(seconds)
}

// RecordTokenCacheHit records a bearer token served from cache
func RecordTokenCacheHit() {
	tokenCacheHits.Inc()
}

// RecordTokenCacheMiss records a bearer token that had to be fetched
func RecordTokenCacheMiss(reason string) {
	tokenCacheMisses.WithLabelValues(reason).Inc()
}

// RecordTokenExchangeFailure records a failed token exchange
func RecordTokenExchangeFailure() {
	tokenExchangeFailures.Inc()
}

// RecordAuthorization records the verdict of one SCA authorization
func RecordAuthorization(resource, outcome string, polls int, seconds float64) {
	authorizationsTotal.WithLabelValues(resource, outcome).Inc()
	authorizationPolls.WithLabelValues(resource).Observe(float64(polls))
	authorizationDuration.WithLabelValues(resource, outcome).Observe(seconds)
}

// RecordPaymentLeg records the final bank status of one payment leg
func RecordPaymentLeg(product, status string) {
	paymentLegsTotal.WithLabelValues(product, status).Inc()
}

// RecordNotification records a push notification attempt
func RecordNotification(event, status string) {
	notificationsTotal.WithLabelValues(event, status).Inc()
}

// SetCircuitOpen flags whether the bank API circuit breaker is open
func SetCircuitOpen(open bool) {
	if open {
		circuitBreakerState.Set(1)
		return
	}
	circuitBreakerState.Set(0)
}
