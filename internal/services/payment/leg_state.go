package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// LegResult is the re-checked bank state of one payment leg
type LegResult struct {
	PaymentID string
	Amount    decimal.Decimal
	Status    models.PaymentStatus
	Messages  []models.TppMessage
}

// BasketState summarizes the legs of a signed basket.
// Computed by replaying the leg results in basket order.
type BasketState struct {
	Legs           int
	Accepted       int
	AcceptedAmount decimal.Decimal

	// First adverse leg, nil when every leg went through
	FirstFailure *LegResult
	Failures     int
}

// ComputeBasketState folds the leg results into a BasketState
func ComputeBasketState(results []LegResult) *BasketState {
	state := &BasketState{Legs: len(results), AcceptedAmount: decimal.Zero}

	for i := range results {
		leg := &results[i]
		if legFailed(leg) {
			state.Failures++
			if state.FirstFailure == nil {
				state.FirstFailure = leg
			}
			continue
		}
		state.Accepted++
		state.AcceptedAmount = state.AcceptedAmount.Add(leg.Amount)
	}

	return state
}

func legFailed(leg *LegResult) bool {
	return len(leg.Messages) > 0 ||
		leg.Status == models.PaymentRJCT ||
		leg.Status == models.PaymentCANC
}

// Err fails the whole basket when any leg failed, naming the first one
func (s *BasketState) Err() error {
	leg := s.FirstFailure
	if leg == nil {
		return nil
	}

	switch {
	case len(leg.Messages) > 0:
		return domain.NewDomainError(domain.ErrorCodeTransactionRejected,
			fmt.Sprintf("Payment %s: %s", leg.PaymentID, strings.Join(models.MessageTexts(leg.Messages), "\n"))).
			WithDetail("payment_id", leg.PaymentID).
			WithDetail("failed_legs", s.Failures)
	case leg.Status == models.PaymentCANC:
		return domain.NewDomainError(domain.ErrorCodeTransactionCancelled,
			fmt.Sprintf("Payment %s was cancelled.", leg.PaymentID)).
			WithDetail("payment_id", leg.PaymentID).
			WithDetail("failed_legs", s.Failures)
	default:
		return domain.NewDomainError(domain.ErrorCodeTransactionRejected,
			fmt.Sprintf("Payment %s was rejected.", leg.PaymentID)).
			WithDetail("payment_id", leg.PaymentID).
			WithDetail("failed_legs", s.Failures)
	}
}

// CanSign checks that stored payments may be put through SCA
func CanSign(payments []*models.OutboundPayment) error {
	if len(payments) == 0 {
		return domain.NewValidationError("objectIds", "No payments selected.")
	}
	for _, p := range payments {
		if p.InBasket() {
			return domain.ErrPaymentInBasket
		}
		if p.IsPaid() {
			return domain.ErrPaymentAlreadyPaid
		}
		if p.TransactionStatus == models.PaymentCANC {
			return domain.ErrPaymentCancelled
		}
	}
	return nil
}

// CanRetry checks that a stored payment may be recreated at the bank.
// Retrying detaches the payment from any basket it was in.
func CanRetry(p *models.OutboundPayment) error {
	if p.IsPaid() {
		return domain.ErrPaymentAlreadyPaid
	}
	return nil
}
