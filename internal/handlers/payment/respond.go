package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	pkgerrors "github.com/kevin07696/openbanking-service/pkg/errors"
)

const maxBodyBytes = 1 << 20

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if ct := strings.ToLower(r.Header.Get("Content-Type")); !strings.Contains(ct, "application/json") {
		h.respondError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body", string(domain.ErrorCodeValidationFailed))
		return false
	}
	return true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	h.respondJSON(w, status, ErrorResponse{Success: false, Error: message, Code: code})
}

// respondServiceError maps a service error to a status. Internal details are
// logged, not returned.
func (h *Handler) respondServiceError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)

	var domainErr *domain.DomainError
	switch {
	case status == http.StatusServiceUnavailable:
		h.logger.Warn("Request refused during shutdown", zap.String("action", action))
		h.respondError(w, status, domain.ErrShuttingDown.Message, string(domain.ErrorCodeShuttingDown))
	case status == http.StatusBadGateway:
		h.logger.Error("Bank API request failed", zap.String("action", action), zap.Error(err))
		h.respondError(w, status, "bank API request failed", string(domain.GetErrorCode(err)))
	case status >= http.StatusInternalServerError:
		h.logger.Error("Request failed", zap.String("action", action), zap.Error(err))
		h.respondError(w, status, "internal server error", string(domain.ErrorCodeInternalError))
	case errors.As(err, &domainErr):
		h.logger.Info("Request refused", zap.String("action", action), zap.String("code", string(domainErr.Code)))
		h.respondError(w, status, domainErr.Message, string(domainErr.Code))
	default:
		h.respondError(w, status, err.Error(), "")
	}
}

func statusFor(err error) int {
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeValidationFailed:
		return http.StatusBadRequest
	case domain.ErrorCodePaymentNotFound:
		return http.StatusNotFound
	case domain.ErrorCodePaymentAlreadyPaid, domain.ErrorCodePaymentInBasket:
		return http.StatusConflict
	case domain.ErrorCodeShuttingDown:
		return http.StatusServiceUnavailable
	case domain.ErrorCodeAuthenticationFailed, domain.ErrorCodeTransport,
		domain.ErrorCodeProtocolDecode, domain.ErrorCodeUnrecognizedStatus:
		return http.StatusBadGateway
	}

	if _, ok := pkgerrors.AsAPIError(err); ok {
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error("Handler panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				h.respondError(w, http.StatusInternalServerError, "internal server error", string(domain.ErrorCodeInternalError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
