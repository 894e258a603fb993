package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	"github.com/kevin07696/openbanking-service/pkg/observability"
)

// PaymentFlow is an authorization.Flow over one or more outbound payment records.
// The records are updated in memory as the flow progresses; persisting them is up to the caller.
type PaymentFlow interface {
	authorization.Flow
	Payments() []*models.OutboundPayment
}

type flowBase struct {
	api      ports.PaymentInitiationAPI
	op       *models.OperationContext
	okURL    string
	nokURL   string
	payments []*models.OutboundPayment
	logger   *zap.Logger
}

func (b *flowBase) Payments() []*models.OutboundPayment {
	return b.payments
}

// ensureCreated creates the payment at the bank unless a previous attempt already did
func (b *flowBase) ensureCreated(ctx context.Context, p *models.OutboundPayment) error {
	if p.PaymentID != "" {
		return nil
	}

	res, err := b.api.CreatePayment(ctx, p.InitiationRequest(), b.op)
	if err != nil {
		return fmt.Errorf("create %s payment to %s: %w", p.Product, p.ToBankAccount, err)
	}
	if len(res.Errors) > 0 {
		return domain.NewDomainError(domain.ErrorCodeTransactionRejected,
			models.MessageTexts(res.Errors)[0]).WithDetail("payment_id", res.PaymentID)
	}

	p.PaymentID = res.PaymentID
	p.TransactionStatus = res.TransactionStatus
	p.Message = res.Message

	b.logger.Info("Payment initiation created",
		zap.String("payment_id", p.PaymentID),
		zap.String("product", string(p.Product)),
		zap.String("status", string(p.TransactionStatus)),
	)
	return nil
}

// checkLeg fetches the bank status of a payment and records it on p
func (b *flowBase) checkLeg(ctx context.Context, p *models.OutboundPayment) (LegResult, error) {
	status, err := b.api.GetPaymentStatus(ctx, p.Product, p.PaymentID, b.op)
	if err != nil {
		return LegResult{}, fmt.Errorf("get status of payment %s: %w", p.PaymentID, err)
	}

	p.TransactionStatus = status.Status
	observability.RecordPaymentLeg(string(p.Product), string(status.Status))

	return LegResult{
		PaymentID: p.PaymentID,
		Amount:    p.Amount,
		Status:    status.Status,
		Messages:  status.Messages,
	}, nil
}

func selectMethod(res *models.AuthorizationResource, resourceID string, sameDevice bool) (*authorization.Session, error) {
	method, err := authorization.SelectMethod(res.AuthenticationMethods, sameDevice)
	if err != nil {
		return nil, err
	}
	return &authorization.Session{
		ResourceID:      resourceID,
		AuthorizationID: res.AuthorizationID,
		Method:          method,
	}, nil
}
