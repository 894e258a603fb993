package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
)

// BulkPaymentFlow groups several payment initiations into a signing basket and authorizes
// them with a single SCA. Any failing leg fails the whole basket.
type BulkPaymentFlow struct {
	flowBase
	repo        ports.OutboundPaymentRepository
	concurrency int

	basketID string
}

var _ PaymentFlow = (*BulkPaymentFlow)(nil)

func (f *BulkPaymentFlow) Resource() string { return "basket" }

// BasketID returns the basket created by the flow, empty before creation or after cleanup
func (f *BulkPaymentFlow) BasketID() string { return f.basketID }

func (f *BulkPaymentFlow) StartAndSelectMethod(ctx context.Context, sameDevice bool) (*authorization.Session, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, p := range f.payments {
		g.Go(func() error {
			return f.ensureCreated(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paymentIDs := make([]string, len(f.payments))
	for i, p := range f.payments {
		paymentIDs[i] = p.PaymentID
	}

	basket, err := f.api.CreateBasket(ctx, paymentIDs, f.op, f.okURL, f.nokURL)
	if err != nil {
		return nil, fmt.Errorf("create basket of %d payments: %w", len(paymentIDs), err)
	}
	if len(basket.Errors) > 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeTransactionRejected, models.MessageTexts(basket.Errors)[0])
	}
	f.basketID = basket.BasketID
	f.logger.Info("Payment basket created",
		zap.String("basket_id", f.basketID),
		zap.Strings("payment_ids", paymentIDs),
	)

	for _, p := range f.payments {
		p.BasketID = f.basketID
		if err := f.repo.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("record basket on payment %s: %w", p.ObjectID, err)
		}
	}

	res, err := f.api.StartBasketAuthorization(ctx, f.basketID, f.op, f.okURL, f.nokURL)
	if err != nil {
		return nil, fmt.Errorf("start authorization of basket %s: %w", f.basketID, err)
	}
	return selectMethod(res, f.basketID, sameDevice)
}

func (f *BulkPaymentFlow) SubmitUserData(ctx context.Context, session *authorization.Session) (*models.PsuDataResponse, error) {
	return f.api.PutBasketUserData(ctx, session.ResourceID, session.AuthorizationID, session.Method.MethodID, f.op)
}

func (f *BulkPaymentFlow) GetAuthorizationStatus(ctx context.Context, session *authorization.Session) (*models.AuthorizationStatus, error) {
	return f.api.GetBasketAuthorizationStatus(ctx, session.ResourceID, session.AuthorizationID, f.op)
}

// OnFinalized requires a finished SCA, an accepted basket and then every leg accepted.
func (f *BulkPaymentFlow) OnFinalized(ctx context.Context, session *authorization.Session, verdict authorization.Verdict) error {
	if err := authorization.Settle(verdict); err != nil {
		return err
	}
	if verdict.Status != models.ScaFinalised && verdict.Status != models.ScaExempted {
		return domain.ErrAuthorizationFailed
	}

	basket, err := f.api.GetBasketStatus(ctx, session.ResourceID, f.op)
	if err != nil {
		return fmt.Errorf("get status of basket %s: %w", session.ResourceID, err)
	}
	if basket.Status == models.BasketRJCT {
		return domain.ErrBasketRejected
	}
	if len(basket.Messages) > 0 {
		return domain.NewDomainError(domain.ErrorCodeTransactionRejected, models.MessageTexts(basket.Messages)[0])
	}

	results := make([]LegResult, len(f.payments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, p := range f.payments {
		g.Go(func() error {
			leg, err := f.checkLeg(gctx, p)
			if err != nil {
				return err
			}
			results[i] = leg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	state := ComputeBasketState(results)
	if err := state.Err(); err != nil {
		f.logger.Warn("Basket signed but not every payment went through",
			zap.String("basket_id", session.ResourceID),
			zap.Int("legs", state.Legs),
			zap.Int("failed", state.Failures),
		)
		return err
	}
	return nil
}

// Cleanup deletes the basket and detaches its payments so they can be signed again.
func (f *BulkPaymentFlow) Cleanup(ctx context.Context) {
	if f.basketID == "" {
		return
	}
	logger := f.logger.With(zap.String("basket_id", f.basketID))

	if err := f.api.DeleteBasket(ctx, f.basketID, f.op); err != nil {
		logger.Error("Failed to delete payment basket", zap.Error(err))
	}
	if err := f.repo.ClearBasket(ctx, f.basketID); err != nil {
		logger.Error("Failed to clear basket from payments", zap.Error(err))
	}
	for _, p := range f.payments {
		p.BasketID = ""
	}
	f.basketID = ""
}
