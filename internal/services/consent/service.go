package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	"github.com/kevin07696/openbanking-service/pkg/shutdown"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

const accountInfoMessage = "Select the account to pay from."

// API is what the account options flow needs from the bank
type API interface {
	ports.ConsentAPI
	ports.AccountAPI
}

// Config holds the account options settings
type Config struct {
	Flow         models.AuthorizationFlow
	Sandbox      bool
	PollInterval time.Duration
	Timeout      time.Duration
	OkURL        string
}

// OptionsRequest asks for the accounts a PSU can pay from at one bank
type OptionsRequest struct {
	PersonalNumber   string
	BicFi            string // the PSU's bank
	TabID            string
	ClientIP         string
	UserAgent        string
	FromMobileDevice bool
	Redirect         string
}

// AccountOption is one account offered to the PSU
type AccountOption struct {
	Account         string           `json:"Account"`
	ResourceID      string           `json:"ResourceId"`
	IBAN            string           `json:"Iban"`
	BBAN            string           `json:"Bban"`
	BIC             string           `json:"Bic"`
	Balance         *decimal.Decimal `json:"Balance,omitempty"`
	Currency        string           `json:"Currency"`
	CashAccountType string           `json:"CashAccountType"`
	Name            string           `json:"Name"`
	OwnerName       string           `json:"OwnerName"`
	Product         string           `json:"Product"`
	Status          string           `json:"Status"`
	Usage           string           `json:"Usage"`
}

// AccountInfoPayload is pushed as ShowAccountInfo
type AccountInfoPayload struct {
	AccountInfo []AccountOption `json:"AccountInfo"`
	Message     string          `json:"message"`
}

// FailedPayload is pushed as TransactionFailed
type FailedPayload struct {
	ErrorMessage string `json:"ErrorMessage"`
}

// Service lists a PSU's accounts through a short lived, SCA authorized consent
type Service struct {
	api        API
	authorizer *authorization.Authorizer
	notifier   ports.Notifier
	tracker    *shutdown.InFlightTracker
	clock      timeutil.Clock
	cfg        Config
	logger     *zap.Logger
}

// NewService creates the account options service
func NewService(api API, authorizer *authorization.Authorizer, notifier ports.Notifier, tracker *shutdown.InFlightTracker, clock timeutil.Clock, cfg Config, logger *zap.Logger) *Service {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Service{
		api:        api,
		authorizer: authorizer,
		notifier:   notifier,
		tracker:    tracker,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Service) operation(req OptionsRequest) *models.OperationContext {
	personalID := ""
	if !s.cfg.Sandbox {
		personalID = models.NormalizePersonalID(req.PersonalNumber)
	}
	return models.NewOperationContext(req.ClientIP, req.UserAgent, s.cfg.Flow, personalID, "", req.BicFi)
}

// AccountOptions authorizes a consent, reads the accounts with balances and pushes them
// to the requesting tab
func (s *Service) AccountOptions(ctx context.Context, req OptionsRequest) ([]AccountOption, error) {
	if req.BicFi == "" {
		return nil, domain.NewValidationError("bicFi", "The bank of the account must be selected.")
	}

	op := s.operation(req)
	flow := &consentFlow{
		api:    s.api,
		op:     op,
		clock:  s.clock,
		okURL:  s.cfg.OkURL,
		logger: s.logger.With(zap.String("bic", req.BicFi)),
	}

	_, err := s.authorizer.Run(ctx, flow, authorization.Options{
		PollInterval: s.cfg.PollInterval,
		Timeout:      s.cfg.Timeout,
		SameDevice:   req.FromMobileDevice,
		TabID:        req.TabID,
		Redirect:     req.Redirect,
	})
	if err != nil {
		return nil, err
	}

	accounts, err := s.api.GetAccounts(ctx, flow.consentID, true, op)
	if err != nil {
		return nil, fmt.Errorf("get accounts of consent %s: %w", flow.consentID, err)
	}

	options := make([]AccountOption, 0, len(accounts))
	for _, a := range accounts {
		options = append(options, toOption(a))
	}

	if req.TabID != "" {
		payload := AccountInfoPayload{AccountInfo: options, Message: accountInfoMessage}
		if err := s.notifier.Push(ctx, []string{req.TabID}, ports.EventShowAccountInfo, payload); err != nil {
			s.logger.Warn("Failed to push account information", zap.Error(err))
		}
	}
	return options, nil
}

// StartAccountOptions runs AccountOptions in the background. A failure is pushed to the
// tab as TransactionFailed.
func (s *Service) StartAccountOptions(ctx context.Context, req OptionsRequest) error {
	if req.BicFi == "" {
		return domain.NewValidationError("bicFi", "The bank of the account must be selected.")
	}

	started := s.tracker.Go(ctx, "consent.account_options", func(ctx context.Context) {
		if _, err := s.AccountOptions(ctx, req); err != nil {
			s.logger.Warn("Account options failed", zap.Error(err))
			if req.TabID == "" {
				return
			}
			payload := FailedPayload{ErrorMessage: domain.OutcomeOf(err).Message}
			if err := s.notifier.Push(ctx, []string{req.TabID}, ports.EventTransactionFailed, payload); err != nil {
				s.logger.Warn("Failed to push event", zap.Error(err))
			}
		}
	})
	if !started {
		return domain.ErrShuttingDown
	}
	return nil
}

func toOption(a models.AccountInformation) AccountOption {
	option := AccountOption{
		Account:         a.IBAN,
		ResourceID:      a.ResourceID,
		IBAN:            a.IBAN,
		BBAN:            a.BBAN,
		BIC:             a.BIC,
		Currency:        a.Currency,
		CashAccountType: a.CashAccountType,
		Name:            a.Name,
		OwnerName:       a.OwnerName,
		Product:         a.Product,
		Status:          a.Status,
		Usage:           a.Usage,
	}
	if b, ok := a.AvailableBalance(); ok {
		amount := b.Amount
		option.Balance = &amount
	}
	return option
}
