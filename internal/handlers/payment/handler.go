package payment

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/consent"
	paymentsvc "github.com/kevin07696/openbanking-service/internal/services/payment"
	"github.com/kevin07696/openbanking-service/pkg/middleware"
	"github.com/kevin07696/openbanking-service/pkg/observability"
)

// PaymentService is what the handlers need from the payment orchestration
type PaymentService interface {
	Initiate(ctx context.Context, req paymentsvc.InitiateRequest) ([]*models.OutboundPayment, error)
	Get(ctx context.Context, objectID string) (*models.OutboundPayment, error)
	Sign(ctx context.Context, req paymentsvc.AdminRequest) error
	Retry(ctx context.Context, req paymentsvc.AdminRequest) error
	Cancel(ctx context.Context, req paymentsvc.AdminRequest) error
}

// AccountService starts the account options flow
type AccountService interface {
	StartAccountOptions(ctx context.Context, req consent.OptionsRequest) error
}

// Handler serves the payment API over JSON
type Handler struct {
	payments   PaymentService
	accounts   AccountService
	directory  ports.DirectoryAPI
	trustProxy bool
	logger     *zap.Logger
}

// NewHandler creates the payment API handler
func NewHandler(payments PaymentService, accounts AccountService, directory ports.DirectoryAPI, trustProxy bool, logger *zap.Logger) *Handler {
	return &Handler{
		payments:   payments,
		accounts:   accounts,
		directory:  directory,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// Register mounts the API routes on r
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments", h.initiate)
		r.Get("/payments/{objectId}", h.get)
		r.Post("/payments/sign", h.sign)
		r.Post("/payments/retry", h.retry)
		r.Post("/payments/cancel", h.cancel)
		r.Post("/accounts/options", h.accountOptions)
		r.Get("/aspsp/countries", h.countries)
		r.Get("/aspsp/providers", h.providers)
	})
}

// Router builds the complete API: API key check and per-IP limiting in front of the routes
func (h *Handler) Router(apiKeys func() []string, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(h.recoverer)
	r.Use(observability.HTTPMiddleware)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}
	r.Use(middleware.APIKeyAuthFunc(apiKeys, h.logger))
	h.Register(r)
	return r
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiatePaymentRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	h.logger.Info("Payment initiation received",
		zap.String("account", req.Account),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
		zap.Int("splits", len(req.Splits)),
		zap.String("remote_addr", r.RemoteAddr),
	)

	records, err := h.payments.Initiate(r.Context(), paymentsvc.InitiateRequest{
		Instruction:  req.instruction(h.fromMobile(r, req.FromMobileDevice)),
		ClientIP:     middleware.ClientIP(r, h.trustProxy),
		UserAgent:    r.UserAgent(),
		CreditorBank: req.CreditorBank,
	})
	if err != nil {
		h.respondServiceError(w, "initiate payment", err)
		return
	}

	resp := InitiatePaymentResponse{ObjectIDs: make([]string, 0, len(records))}
	for _, rec := range records {
		resp.ObjectIDs = append(resp.ObjectIDs, rec.ObjectID)
	}
	h.respondJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.Get(r.Context(), chi.URLParam(r, "objectId"))
	if err != nil {
		h.respondServiceError(w, "get payment", err)
		return
	}
	h.respondJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) sign(w http.ResponseWriter, r *http.Request) {
	h.admin(w, r, "sign payments", h.payments.Sign)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	h.admin(w, r, "retry payments", h.payments.Retry)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.admin(w, r, "cancel payments", h.payments.Cancel)
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request, action string, run func(context.Context, paymentsvc.AdminRequest) error) {
	var req AdminPaymentRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	h.logger.Info("Payment administration received",
		zap.String("action", action),
		zap.Strings("object_ids", req.ObjectIDs),
	)

	err := run(r.Context(), paymentsvc.AdminRequest{
		ObjectIDs:        req.ObjectIDs,
		TabID:            req.TabID,
		TabIDs:           req.TabIDs,
		ClientIP:         middleware.ClientIP(r, h.trustProxy),
		UserAgent:        r.UserAgent(),
		PersonalNumber:   req.PersonalNumber,
		FromMobileDevice: h.fromMobile(r, req.FromMobileDevice),
		Redirect:         req.Redirect,
	})
	if err != nil {
		h.respondServiceError(w, action, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, AcceptedResponse{Accepted: true})
}

func (h *Handler) accountOptions(w http.ResponseWriter, r *http.Request) {
	var req AccountOptionsRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	err := h.accounts.StartAccountOptions(r.Context(), consent.OptionsRequest{
		PersonalNumber:   req.PersonalNumber,
		BicFi:            req.BicFi,
		TabID:            req.TabID,
		ClientIP:         middleware.ClientIP(r, h.trustProxy),
		UserAgent:        r.UserAgent(),
		FromMobileDevice: h.fromMobile(r, req.FromMobileDevice),
		Redirect:         req.Redirect,
	})
	if err != nil {
		h.respondServiceError(w, "account options", err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, AcceptedResponse{Accepted: true})
}

func (h *Handler) countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.directory.GetCountries(r.Context())
	if err != nil {
		h.respondServiceError(w, "list countries", err)
		return
	}

	resp := make([]CountryResponse, 0, len(countries))
	for _, c := range countries {
		resp = append(resp, CountryResponse{IsoCode: c.IsoCode, Name: c.Name})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) providers(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if country == "" {
		h.respondServiceError(w, "list providers", domain.NewValidationError("country", "A country code is required."))
		return
	}

	providers, err := h.directory.GetServiceProviders(r.Context(), country)
	if err != nil {
		h.respondServiceError(w, "list providers", err)
		return
	}

	resp := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, ProviderResponse{BicFi: p.BicFi, Name: p.Name, LogoURL: p.LogoURL})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// fromMobile honours an explicit flag and otherwise looks at the User-Agent
func (h *Handler) fromMobile(r *http.Request, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return IsMobileUserAgent(r.UserAgent())
}

var mobileMarkers = []string{"android", "iphone", "ipad", "ipod", "mobile", "opera mini", "iemobile", "blackberry"}

// IsMobileUserAgent reports whether a User-Agent belongs to a phone or tablet browser
func IsMobileUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}
