package payment

import (
	"context"
	"fmt"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
)

// SinglePaymentFlow authorizes one payment initiation directly
type SinglePaymentFlow struct {
	flowBase
}

var _ PaymentFlow = (*SinglePaymentFlow)(nil)

func (f *SinglePaymentFlow) payment() *models.OutboundPayment {
	return f.payments[0]
}

func (f *SinglePaymentFlow) Resource() string { return "payment" }

func (f *SinglePaymentFlow) StartAndSelectMethod(ctx context.Context, sameDevice bool) (*authorization.Session, error) {
	p := f.payment()
	if err := f.ensureCreated(ctx, p); err != nil {
		return nil, err
	}

	res, err := f.api.StartPaymentAuthorization(ctx, p.Product, p.PaymentID, f.op, f.okURL, f.nokURL)
	if err != nil {
		return nil, fmt.Errorf("start authorization of payment %s: %w", p.PaymentID, err)
	}
	return selectMethod(res, p.PaymentID, sameDevice)
}

func (f *SinglePaymentFlow) SubmitUserData(ctx context.Context, session *authorization.Session) (*models.PsuDataResponse, error) {
	return f.api.PutPaymentUserData(ctx, f.payment().Product, session.ResourceID, session.AuthorizationID, session.Method.MethodID, f.op)
}

func (f *SinglePaymentFlow) GetAuthorizationStatus(ctx context.Context, session *authorization.Session) (*models.AuthorizationStatus, error) {
	return f.api.GetPaymentAuthorizationStatus(ctx, f.payment().Product, session.ResourceID, session.AuthorizationID, f.op)
}

// OnFinalized reports the bank's own verdict on the payment before the SCA verdict,
// so a rejected payment is explained by the bank's reason.
func (f *SinglePaymentFlow) OnFinalized(ctx context.Context, session *authorization.Session, verdict authorization.Verdict) error {
	leg, err := f.checkLeg(ctx, f.payment())
	if err != nil {
		return err
	}

	switch {
	case len(leg.Messages) > 0:
		return domain.NewDomainError(domain.ErrorCodeTransactionRejected, models.MessageTexts(leg.Messages)[0]).
			WithDetail("payment_id", leg.PaymentID)
	case leg.Status == models.PaymentRJCT:
		return domain.ErrPaymentRejected
	case leg.Status == models.PaymentCANC:
		return domain.ErrPaymentCancelled
	}
	return authorization.Settle(verdict)
}

// Cleanup leaves the payment initiation in place so it can be signed again.
func (f *SinglePaymentFlow) Cleanup(ctx context.Context) {}
