package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// Push payloads understood by the payment pages

type TransactionCompletedPayload struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type TransactionFailedPayload struct {
	ErrorMessage string `json:"ErrorMessage"`
}

type PaymentUpdatedPayload struct {
	ObjectID    string               `json:"objectId"`
	UpdatedDate string               `json:"updatedDate"`
	UpdatedTime string               `json:"updatedTime"`
	Status      models.PaymentStatus `json:"status"`
	IsPaid      bool                 `json:"isPaid"`
}

type PaymentRetriedPayload struct {
	ObjectID    string               `json:"objectId"`
	PaymentID   string               `json:"paymentId"`
	UpdatedDate string               `json:"updatedDate"`
	UpdatedTime string               `json:"updatedTime"`
	Status      models.PaymentStatus `json:"status"`
}

type PaymentErrorPayload struct {
	Message string `json:"message"`
}

func updatedPayload(p *models.OutboundPayment) PaymentUpdatedPayload {
	date, clock := stamp(p.Updated)
	return PaymentUpdatedPayload{
		ObjectID:    p.ObjectID,
		UpdatedDate: date,
		UpdatedTime: clock,
		Status:      p.TransactionStatus,
		IsPaid:      p.IsPaid(),
	}
}

func retriedPayload(p *models.OutboundPayment) PaymentRetriedPayload {
	date, clock := stamp(p.Updated)
	return PaymentRetriedPayload{
		ObjectID:    p.ObjectID,
		PaymentID:   p.PaymentID,
		UpdatedDate: date,
		UpdatedTime: clock,
		Status:      p.TransactionStatus,
	}
}

func stamp(t time.Time) (date, clock string) {
	t = t.UTC()
	return t.Format("2006-01-02"), t.Format("15:04:05")
}
