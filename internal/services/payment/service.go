package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	"github.com/kevin07696/openbanking-service/pkg/shutdown"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// Config holds the payment service settings
type Config struct {
	Flow           models.AuthorizationFlow
	OrganizationID string
	Sandbox        bool
	PollInterval   time.Duration
	Timeout        time.Duration
	Callbacks      Callbacks
}

// InitiateRequest is an end-user payment instruction plus the PSU context it arrived with
type InitiateRequest struct {
	Instruction  models.PaymentInstruction
	ClientIP     string
	UserAgent    string
	CreditorBank string // BIC of the receiving bank, informational
}

// AdminRequest selects stored payments for an administrative operation
type AdminRequest struct {
	ObjectIDs        []string
	TabID            string   // tab that shows the SCA challenge
	TabIDs           []string // tabs that follow payment updates, defaults to TabID
	ClientIP         string
	UserAgent        string
	PersonalNumber   string
	FromMobileDevice bool
	Redirect         string
}

func (r AdminRequest) watchers() []string {
	if len(r.TabIDs) > 0 {
		return r.TabIDs
	}
	if r.TabID != "" {
		return []string{r.TabID}
	}
	return nil
}

// Service runs outbound payments through SCA in the background
type Service struct {
	api        ports.PaymentInitiationAPI
	repo       ports.OutboundPaymentRepository
	notifier   ports.Notifier
	factory    *Factory
	authorizer *authorization.Authorizer
	tracker    *shutdown.InFlightTracker
	clock      timeutil.Clock
	cfg        Config
	logger     *zap.Logger
}

// NewService creates a payment service
func NewService(
	api ports.PaymentInitiationAPI,
	repo ports.OutboundPaymentRepository,
	notifier ports.Notifier,
	factory *Factory,
	authorizer *authorization.Authorizer,
	tracker *shutdown.InFlightTracker,
	clock timeutil.Clock,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Service{
		api:        api,
		repo:       repo,
		notifier:   notifier,
		factory:    factory,
		authorizer: authorizer,
		tracker:    tracker,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Service) operation(ip, userAgent, personalNumber string) *models.OperationContext {
	return models.NewOperationContext(ip, userAgent, s.cfg.Flow,
		NormalizePersonalNumber(personalNumber, s.cfg.Sandbox),
		NormalizePersonalNumber(s.cfg.OrganizationID, false),
		s.factory.account.BIC)
}

func (s *Service) options(tabID string, sameDevice bool, redirect string) authorization.Options {
	return authorization.Options{
		PollInterval: s.cfg.PollInterval,
		Timeout:      s.cfg.Timeout,
		SameDevice:   sameDevice,
		TabID:        tabID,
		Redirect:     redirect,
	}
}

// Initiate validates an instruction, stores one record per leg and authorizes the
// payments in the background. The stored records are returned immediately.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) ([]*models.OutboundPayment, error) {
	instr, err := ValidateInstruction(req.Instruction, s.cfg.Sandbox)
	if err != nil {
		return nil, err
	}

	records := s.factory.Records(instr, req.CreditorBank, s.clock.Now())
	for _, r := range records {
		if err := s.repo.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("store outbound payment: %w", err)
		}
	}

	op := s.operation(req.ClientIP, req.UserAgent, instr.PersonalNumber)
	flow := s.factory.New(records, op, s.cfg.Callbacks)

	started := s.tracker.Go(ctx, "payment.initiate", func(ctx context.Context) {
		s.runInitiation(ctx, flow, instr)
	})
	if !started {
		return nil, domain.ErrShuttingDown
	}
	return records, nil
}

func (s *Service) runInitiation(ctx context.Context, flow PaymentFlow, instr models.PaymentInstruction) {
	tabs := tabList(instr.TabID)
	opts := s.options(instr.TabID, instr.FromMobileDevice, instr.CallbackURL)
	opts.AfterPoll = func(ctx context.Context, _ authorization.Verdict) {
		s.push(ctx, tabs, ports.EventTransactionInProgress, nil)
	}

	_, err := s.authorizer.Run(ctx, flow, opts)
	outcome := domain.OutcomeOf(err)
	s.persist(ctx, flow.Payments(), outcome)

	if outcome.Succeeded() {
		total := flow.Payments()[0].Amount
		for _, p := range flow.Payments()[1:] {
			total = total.Add(p.Amount)
		}
		s.push(ctx, tabs, ports.EventTransactionCompleted, TransactionCompletedPayload{Amount: total, Currency: instr.Currency})
		return
	}
	s.push(ctx, tabs, ports.EventTransactionFailed, TransactionFailedPayload{ErrorMessage: outcome.Message})
}

// Sign authorizes stored payments: one on its own, several through a signing basket.
// Payments already paid, cancelled or in a basket are refused.
func (s *Service) Sign(ctx context.Context, req AdminRequest) error {
	payments, err := s.load(ctx, req.ObjectIDs)
	if err != nil {
		return err
	}
	if err := CanSign(payments); err != nil {
		return err
	}

	op := s.operation(req.ClientIP, req.UserAgent, req.PersonalNumber)
	flow := s.factory.New(payments, op, s.cfg.Callbacks)
	opts := s.options(req.TabID, req.FromMobileDevice, req.Redirect)

	started := s.tracker.Go(ctx, "payment.sign", func(ctx context.Context) {
		_, err := s.authorizer.Run(ctx, flow, opts)
		outcome := domain.OutcomeOf(err)
		s.persist(ctx, flow.Payments(), outcome)

		for _, p := range flow.Payments() {
			s.push(ctx, req.watchers(), ports.EventPaymentUpdated, updatedPayload(p))
		}
		if !outcome.Succeeded() {
			s.push(ctx, req.watchers(), ports.EventPaymentError, PaymentErrorPayload{Message: outcome.Message})
		}
	})
	if !started {
		return domain.ErrShuttingDown
	}
	return nil
}

// Retry deletes and recreates the bank initiation of stored payments, detaching them
// from any basket. The payments still need signing afterwards.
func (s *Service) Retry(ctx context.Context, req AdminRequest) error {
	payments, err := s.load(ctx, req.ObjectIDs)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if err := CanRetry(p); err != nil {
			return err
		}
	}

	op := s.operation(req.ClientIP, req.UserAgent, req.PersonalNumber)
	started := s.tracker.Go(ctx, "payment.retry", func(ctx context.Context) {
		var failures []string
		for _, p := range payments {
			if err := s.retry(ctx, p, op); err != nil {
				s.logger.Error("Failed to retry payment",
					zap.String("object_id", p.ObjectID),
					zap.Error(err),
				)
				failures = append(failures, domain.OutcomeOf(err).Message)
				continue
			}
			s.push(ctx, req.watchers(), ports.EventPaymentRetried, retriedPayload(p))
		}
		if len(failures) > 0 {
			s.push(ctx, req.watchers(), ports.EventPaymentError, PaymentErrorPayload{Message: strings.Join(failures, "\n")})
		}
	})
	if !started {
		return domain.ErrShuttingDown
	}
	return nil
}

func (s *Service) retry(ctx context.Context, p *models.OutboundPayment, op *models.OperationContext) error {
	if p.PaymentID != "" {
		if err := s.api.DeletePayment(ctx, p.Product, p.PaymentID, op); err != nil {
			s.logger.Warn("Failed to delete payment initiation before retry",
				zap.String("payment_id", p.PaymentID),
				zap.Error(err),
			)
		}
	}

	p.FromBankAccount = s.factory.account.IBAN
	p.FromBank = s.factory.account.BIC
	res, err := s.api.CreatePayment(ctx, p.InitiationRequest(), op)
	if err != nil {
		return fmt.Errorf("recreate payment %s: %w", p.ObjectID, err)
	}

	p.Updated = s.clock.Now()
	p.Paid = nil
	p.BasketID = ""
	p.PaymentID = res.PaymentID
	p.TransactionStatus = res.TransactionStatus
	p.Message = res.Message
	if len(res.Errors) > 0 {
		p.Message = models.MessageTexts(res.Errors)[0]
	}

	return s.repo.Update(ctx, p)
}

// Cancel deletes the bank initiation of stored payments and marks them cancelled
func (s *Service) Cancel(ctx context.Context, req AdminRequest) error {
	payments, err := s.load(ctx, req.ObjectIDs)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.IsPaid() {
			return domain.ErrPaymentAlreadyPaid
		}
	}

	op := s.operation(req.ClientIP, req.UserAgent, req.PersonalNumber)
	started := s.tracker.Go(ctx, "payment.cancel", func(ctx context.Context) {
		for _, p := range payments {
			if p.PaymentID != "" {
				if err := s.api.DeletePayment(ctx, p.Product, p.PaymentID, op); err != nil {
					s.logger.Error("Unable to delete payment initiation",
						zap.String("payment_id", p.PaymentID),
						zap.Error(err),
					)
				}
			}

			p.TransactionStatus = models.PaymentCANC
			p.Updated = s.clock.Now()
			if err := s.repo.Update(ctx, p); err != nil {
				s.logger.Error("Failed to store cancelled payment",
					zap.String("object_id", p.ObjectID),
					zap.Error(err),
				)
				continue
			}
			s.push(ctx, req.watchers(), ports.EventPaymentUpdated, updatedPayload(p))
		}
	})
	if !started {
		return domain.ErrShuttingDown
	}
	return nil
}

// Get returns one stored payment
func (s *Service) Get(ctx context.Context, objectID string) (*models.OutboundPayment, error) {
	return s.repo.Get(ctx, objectID)
}

func (s *Service) load(ctx context.Context, objectIDs []string) ([]*models.OutboundPayment, error) {
	if len(objectIDs) == 0 {
		return nil, domain.NewValidationError("objectIds", "No payments selected.")
	}
	payments, err := s.repo.GetMany(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	if len(payments) != len(objectIDs) {
		return nil, domain.ErrPaymentNotFound
	}
	return payments, nil
}

// persist stores the result of a flow on its records. A record is paid once its SCA
// succeeded and the bank did not reject or cancel it.
func (s *Service) persist(ctx context.Context, payments []*models.OutboundPayment, outcome domain.Outcome) {
	now := s.clock.Now()
	for _, p := range payments {
		p.Updated = now
		if outcome.Succeeded() && p.PaymentID != "" &&
			p.TransactionStatus != models.PaymentRJCT && p.TransactionStatus != models.PaymentCANC {
			paid := now
			p.Paid = &paid
		} else if !outcome.Succeeded() {
			p.Message = outcome.Message
		}

		if err := s.repo.Update(ctx, p); err != nil {
			s.logger.Error("Failed to store payment outcome",
				zap.String("object_id", p.ObjectID),
				zap.String("payment_id", p.PaymentID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) push(ctx context.Context, tabIDs []string, event ports.EventType, payload interface{}) {
	if len(tabIDs) == 0 {
		return
	}
	if err := s.notifier.Push(ctx, tabIDs, event, payload); err != nil {
		s.logger.Warn("Failed to push event",
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}

func tabList(tabID string) []string {
	if tabID == "" {
		return nil
	}
	return []string{tabID}
}
