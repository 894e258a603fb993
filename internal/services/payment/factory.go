package payment

import (
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// ServiceAccount is the bank account outbound payments are paid from
type ServiceAccount struct {
	IBAN string
	Name string
	BIC  string
}

// Callbacks are the redirect targets handed to the bank for redirect SCA
type Callbacks struct {
	OkURL  string
	NokURL string
}

// Factory turns instructions into payment records and records into flows
type Factory struct {
	api         ports.PaymentInitiationAPI
	repo        ports.OutboundPaymentRepository
	account     ServiceAccount
	concurrency int
	logger      *zap.Logger
}

// NewFactory creates a Factory. concurrency bounds the parallel bank calls of a bulk flow.
func NewFactory(api ports.PaymentInitiationAPI, repo ports.OutboundPaymentRepository, account ServiceAccount, concurrency int, logger *zap.Logger) *Factory {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Factory{
		api:         api,
		repo:        repo,
		account:     account,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Records builds one unsaved OutboundPayment per leg of a validated instruction
func (f *Factory) Records(in models.PaymentInstruction, creditorBank string, now time.Time) []*models.OutboundPayment {
	legs := in.Legs()
	records := make([]*models.OutboundPayment, len(legs))
	for i, leg := range legs {
		records[i] = &models.OutboundPayment{
			Created:           now,
			Updated:           now,
			Account:           in.Account,
			Product:           models.SelectProduct(f.account.IBAN, leg.BankAccount, in.Currency),
			Amount:            leg.Amount,
			Currency:          in.Currency,
			FromBankAccount:   f.account.IBAN,
			FromBank:          f.account.BIC,
			ToBankAccount:     leg.BankAccount,
			ToBank:            creditorBank,
			ToBankAccountName: leg.AccountName,
			TextMessage:       leg.Description,
		}
	}
	return records
}

// New picks the flow for the records: one payment is authorized on its own, several go
// through a signing basket.
func (f *Factory) New(payments []*models.OutboundPayment, op *models.OperationContext, cb Callbacks) PaymentFlow {
	base := flowBase{
		api:      f.api,
		op:       op,
		okURL:    cb.OkURL,
		nokURL:   cb.NokURL,
		payments: payments,
		logger:   f.logger,
	}

	if len(payments) == 1 {
		base.logger = f.logger.With(zap.String("flow", "single"))
		return &SinglePaymentFlow{flowBase: base}
	}

	base.logger = f.logger.With(zap.String("flow", "bulk"), zap.Int("legs", len(payments)))
	return &BulkPaymentFlow{
		flowBase:    base,
		repo:        f.repo,
		concurrency: f.concurrency,
	}
}
