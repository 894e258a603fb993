package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

func leg(id string, amount int64, status models.PaymentStatus, texts ...string) LegResult {
	var messages []models.TppMessage
	for _, text := range texts {
		messages = append(messages, models.TppMessage{Category: "ERROR", Text: text})
	}
	return LegResult{PaymentID: id, Amount: decimal.NewFromInt(amount), Status: status, Messages: messages}
}

func TestComputeBasketState_AllAccepted(t *testing.T) {
	state := ComputeBasketState([]LegResult{
		leg("p-1", 100, models.PaymentACSC),
		leg("p-2", 50, models.PaymentACCP),
	})

	assert.Equal(t, 2, state.Legs)
	assert.Equal(t, 2, state.Accepted)
	assert.Equal(t, "150", state.AcceptedAmount.String())
	assert.Nil(t, state.FirstFailure)
	assert.NoError(t, state.Err())
}

func TestComputeBasketState_Empty(t *testing.T) {
	state := ComputeBasketState(nil)

	assert.Zero(t, state.Legs)
	assert.True(t, state.AcceptedAmount.IsZero())
	assert.NoError(t, state.Err())
}

func TestComputeBasketState_FirstFailureWins(t *testing.T) {
	tests := []struct {
		name    string
		legs    []LegResult
		code    domain.ErrorCode
		message string
	}{
		{
			name:    "rejected leg",
			legs:    []LegResult{leg("p-1", 100, models.PaymentACSC), leg("p-2", 50, models.PaymentRJCT), leg("p-3", 10, models.PaymentCANC)},
			code:    domain.ErrorCodeTransactionRejected,
			message: "Payment p-2 was rejected.",
		},
		{
			name:    "cancelled leg",
			legs:    []LegResult{leg("p-1", 100, models.PaymentCANC)},
			code:    domain.ErrorCodeTransactionCancelled,
			message: "Payment p-1 was cancelled.",
		},
		{
			name:    "messages on an accepted status",
			legs:    []LegResult{leg("p-1", 100, models.PaymentACSC, "Insufficient funds", "Try later")},
			code:    domain.ErrorCodeTransactionRejected,
			message: "Payment p-1: Insufficient funds\nTry later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := ComputeBasketState(tt.legs)

			err := state.Err()

			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, tt.code))
			assert.Equal(t, tt.message, domain.OutcomeOf(err).Message)
		})
	}
}

func TestComputeBasketState_CountsFailures(t *testing.T) {
	state := ComputeBasketState([]LegResult{
		leg("p-1", 100, models.PaymentRJCT),
		leg("p-2", 50, models.PaymentACSC),
		leg("p-3", 25, models.PaymentCANC),
	})

	assert.Equal(t, 2, state.Failures)
	assert.Equal(t, 1, state.Accepted)
	assert.Equal(t, "50", state.AcceptedAmount.String())
	assert.Equal(t, "p-1", state.FirstFailure.PaymentID)
}

func TestCanSign(t *testing.T) {
	paid := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, domain.IsDomainError(CanSign(nil), domain.ErrorCodeValidationFailed))
	assert.NoError(t, CanSign([]*models.OutboundPayment{{ObjectID: "a"}, {ObjectID: "b"}}))
	assert.ErrorIs(t, CanSign([]*models.OutboundPayment{{ObjectID: "a"}, {ObjectID: "b", BasketID: "basket-1"}}), domain.ErrPaymentInBasket)
	assert.ErrorIs(t, CanSign([]*models.OutboundPayment{{ObjectID: "a", Paid: &paid}}), domain.ErrPaymentAlreadyPaid)
	assert.ErrorIs(t, CanSign([]*models.OutboundPayment{{ObjectID: "a", TransactionStatus: models.PaymentCANC}}), domain.ErrPaymentCancelled)
}

func TestCanRetry(t *testing.T) {
	paid := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, CanRetry(&models.OutboundPayment{BasketID: "basket-1"}))
	assert.ErrorIs(t, CanRetry(&models.OutboundPayment{Paid: &paid}), domain.ErrPaymentAlreadyPaid)
}
