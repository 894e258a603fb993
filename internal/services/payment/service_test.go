package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

func TestService_InitiateSingle(t *testing.T) {
	f := setupServiceTest(t)

	records, err := f.service.Initiate(context.Background(), InitiateRequest{
		Instruction:  singleInstruction(),
		ClientIP:     "203.0.113.10",
		UserAgent:    "Mozilla/5.0",
		CreditorBank: "NDEASESS",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	f.wait(t)

	stored := f.repo.Stored(records[0].ObjectID)
	require.NotNil(t, stored)
	assert.Equal(t, "pay-1", stored.PaymentID)
	assert.Equal(t, models.PaymentACSC, stored.TransactionStatus)
	assert.True(t, stored.IsPaid())
	assert.Equal(t, models.ProductDomestic, stored.Product)

	assert.Equal(t, []ports.EventType{
		ports.EventShowQRCode,
		ports.EventTransactionInProgress,
		ports.EventTransactionCompleted,
	}, f.notifier.Events())

	pushes := f.notifier.Pushes()
	assert.Equal(t, []string{"tab-1"}, pushes[2].TabIDs)
	completed, ok := pushes[2].Payload.(TransactionCompletedPayload)
	require.True(t, ok)
	assert.Equal(t, "125.5", completed.Amount.String())
	assert.Equal(t, "SEK", completed.Currency)

	require.Len(t, f.bank.created, 1)
	assert.Equal(t, testAccount.IBAN, f.bank.created[0].DebtorIBAN)
	assert.Equal(t, "SE3550000000054910000003", f.bank.created[0].CreditorIBAN)
}

func TestService_InitiateBulkPartialFailure(t *testing.T) {
	f := setupServiceTest(t)
	f.bank.statusByCreditor["SE2222"] = models.PaymentRJCT

	records, err := f.service.Initiate(context.Background(), InitiateRequest{Instruction: bulkInstruction()})
	require.NoError(t, err)
	require.Len(t, records, 3)
	f.wait(t)

	events := f.notifier.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, ports.EventTransactionFailed, events[len(events)-1])
	assert.Equal(t, 1, f.notifier.Count(ports.EventTransactionInProgress))

	failed := f.notifier.Pushes()[len(events)-1].Payload.(TransactionFailedPayload)
	assert.Contains(t, failed.ErrorMessage, "was rejected.")

	assert.Equal(t, []string{"basket-1"}, f.bank.deletedBasketIDs())
	for _, r := range records {
		stored := f.repo.Stored(r.ObjectID)
		assert.Empty(t, stored.BasketID)
		assert.False(t, stored.IsPaid())
		assert.Equal(t, failed.ErrorMessage, stored.Message)
	}
}

func TestService_InitiateTimeout(t *testing.T) {
	f := setupServiceTest(t)
	f.bank.polls = []models.ScaStatus{models.ScaStarted}

	records, err := f.service.Initiate(context.Background(), InitiateRequest{Instruction: singleInstruction()})
	require.NoError(t, err)
	f.wait(t)

	events := f.notifier.Events()
	assert.Equal(t, ports.EventTransactionFailed, events[len(events)-1])
	failed := f.notifier.Pushes()[len(events)-1].Payload.(TransactionFailedPayload)
	assert.Equal(t, "Transaction took too long to complete.", failed.ErrorMessage)
	assert.False(t, f.repo.Stored(records[0].ObjectID).IsPaid())
}

func TestService_InitiateRejectsInvalidInstruction(t *testing.T) {
	f := setupServiceTest(t)
	in := singleInstruction()
	in.Message = "much too long"

	records, err := f.service.Initiate(context.Background(), InitiateRequest{Instruction: in})

	assert.Nil(t, records)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	assert.Empty(t, f.bank.created)
}

func TestService_InitiateDuringShutdown(t *testing.T) {
	f := setupServiceTest(t)
	f.wait(t)

	_, err := f.service.Initiate(context.Background(), InitiateRequest{Instruction: singleInstruction()})

	assert.ErrorIs(t, err, domain.ErrShuttingDown)
}

func TestService_SignSingleStoredPayment(t *testing.T) {
	f := setupServiceTest(t)
	payments := storedPayments(t, f, singleInstruction())

	err := f.service.Sign(context.Background(), AdminRequest{
		ObjectIDs: objectIDs(payments),
		TabID:     "admin-tab",
	})
	require.NoError(t, err)
	f.wait(t)

	stored := f.repo.Stored(payments[0].ObjectID)
	assert.True(t, stored.IsPaid())
	assert.Empty(t, stored.BasketID)

	require.Equal(t, 1, f.notifier.Count(ports.EventPaymentUpdated))
	assert.Zero(t, f.notifier.Count(ports.EventPaymentError))
	pushes := f.notifier.Pushes()
	updated := pushes[len(pushes)-1].Payload.(PaymentUpdatedPayload)
	assert.Equal(t, payments[0].ObjectID, updated.ObjectID)
	assert.True(t, updated.IsPaid)
	assert.Equal(t, models.PaymentACSC, updated.Status)
	assert.Equal(t, "2026-03-01", updated.UpdatedDate)
}

func TestService_SignBasketFailurePushesError(t *testing.T) {
	f := setupServiceTest(t)
	f.bank.polls = []models.ScaStatus{models.ScaFailed}
	payments := storedPayments(t, f, bulkInstruction())

	err := f.service.Sign(context.Background(), AdminRequest{
		ObjectIDs: objectIDs(payments),
		TabID:     "admin-tab",
		TabIDs:    []string{"admin-tab", "other-admin"},
	})
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, 3, f.notifier.Count(ports.EventPaymentUpdated))
	require.Equal(t, 1, f.notifier.Count(ports.EventPaymentError))
	pushes := f.notifier.Pushes()
	last := pushes[len(pushes)-1]
	assert.Equal(t, []string{"admin-tab", "other-admin"}, last.TabIDs)
	assert.Equal(t, "Authorization failed.", last.Payload.(PaymentErrorPayload).Message)

	for _, p := range payments {
		assert.Empty(t, f.repo.Stored(p.ObjectID).BasketID)
	}
}

func TestService_SignRefusesUnsignablePayments(t *testing.T) {
	f := setupServiceTest(t)
	payments := storedPayments(t, f, bulkInstruction())
	payments[1].BasketID = "basket-0"
	require.NoError(t, f.repo.Update(context.Background(), payments[1]))

	err := f.service.Sign(context.Background(), AdminRequest{ObjectIDs: objectIDs(payments)})
	assert.ErrorIs(t, err, domain.ErrPaymentInBasket)

	err = f.service.Sign(context.Background(), AdminRequest{ObjectIDs: []string{"missing"}})
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	err = f.service.Sign(context.Background(), AdminRequest{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))

	f.wait(t)
	assert.Empty(t, f.bank.created)
}

func TestService_Retry(t *testing.T) {
	f := setupServiceTest(t)
	payments := storedPayments(t, f, singleInstruction())
	payments[0].PaymentID = "old-payment"
	payments[0].BasketID = "basket-0"
	payments[0].TransactionStatus = models.PaymentRJCT
	require.NoError(t, f.repo.Update(context.Background(), payments[0]))
	f.clock.Advance(time.Hour)

	err := f.service.Retry(context.Background(), AdminRequest{ObjectIDs: objectIDs(payments), TabID: "admin-tab"})
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, []string{"old-payment"}, f.bank.deleted)
	stored := f.repo.Stored(payments[0].ObjectID)
	assert.Equal(t, "pay-1", stored.PaymentID)
	assert.Empty(t, stored.BasketID)
	assert.Equal(t, models.PaymentRCVD, stored.TransactionStatus)
	assert.Equal(t, f.clock.Now(), stored.Updated)

	require.Equal(t, []ports.EventType{ports.EventPaymentRetried}, f.notifier.Events())
	retried := f.notifier.Pushes()[0].Payload.(PaymentRetriedPayload)
	assert.Equal(t, "pay-1", retried.PaymentID)
	assert.Equal(t, "10:00:00", retried.UpdatedTime)
}

func TestService_RetryFailurePushesError(t *testing.T) {
	f := setupServiceTest(t)
	f.bank.createErr["SE3550000000054910000003"] = errBankDown
	payments := storedPayments(t, f, singleInstruction())

	require.NoError(t, f.service.Retry(context.Background(), AdminRequest{ObjectIDs: objectIDs(payments), TabID: "admin-tab"}))
	f.wait(t)

	assert.Equal(t, []ports.EventType{ports.EventPaymentError}, f.notifier.Events())
}

func TestService_RetryRefusesPaid(t *testing.T) {
	f := setupServiceTest(t)
	payments := storedPayments(t, f, singleInstruction())
	paid := f.clock.Now()
	payments[0].Paid = &paid
	require.NoError(t, f.repo.Update(context.Background(), payments[0]))

	err := f.service.Retry(context.Background(), AdminRequest{ObjectIDs: objectIDs(payments)})

	assert.ErrorIs(t, err, domain.ErrPaymentAlreadyPaid)
}

func TestService_Cancel(t *testing.T) {
	f := setupServiceTest(t)
	payments := storedPayments(t, f, bulkInstruction())
	payments[0].PaymentID = "pay-a"
	require.NoError(t, f.repo.Update(context.Background(), payments[0]))

	err := f.service.Cancel(context.Background(), AdminRequest{ObjectIDs: objectIDs(payments), TabID: "admin-tab"})
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, []string{"pay-a"}, f.bank.deleted)
	for _, p := range payments {
		assert.Equal(t, models.PaymentCANC, f.repo.Stored(p.ObjectID).TransactionStatus)
	}
	assert.Equal(t, 3, f.notifier.Count(ports.EventPaymentUpdated))
}

func TestService_Get(t *testing.T) {
	f := setupServiceTest(t)
	payments := storedPayments(t, f, singleInstruction())

	got, err := f.service.Get(context.Background(), payments[0].ObjectID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Andersson", got.ToBankAccountName)

	_, err = f.service.Get(context.Background(), "missing")
	assert.True(t, domain.IsNotFoundError(err))
}
