package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, false, zap.NewNop())
	defer rl.Shutdown()
	handler := rl.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// different client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, false, zap.NewNop())
	defer rl.Shutdown()

	rl.getLimiter("10.0.0.1")
	assert.Equal(t, 0, rl.cleanup(time.Now()))
	assert.Equal(t, 1, rl.cleanup(time.Now().Add(10*time.Minute)))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:40000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "192.0.2.7", ClientIP(req, false))
	assert.Equal(t, "203.0.113.9", ClientIP(req, true))
}

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth([]string{"key-one", ""}, zap.NewNop())(okHandler)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "key-two", http.StatusUnauthorized},
		{"valid", "key-one", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/aspsp/countries", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPIKeyAuthFunc_Rotation(t *testing.T) {
	keys := []string{"old"}
	handler := APIKeyAuthFunc(func() []string { return keys }, zap.NewNop())(okHandler)

	call := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/x", nil)
		req.Header.Set(APIKeyHeader, key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("old"))

	keys = []string{"new"}
	assert.Equal(t, http.StatusUnauthorized, call("old"))
	assert.Equal(t, http.StatusNoContent, call("new"))
}
