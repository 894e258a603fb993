package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutboundPayment is the persisted record of one payment leg sent to the bank
type OutboundPayment struct {
	ObjectID          string
	Created           time.Time
	Updated           time.Time
	Paid              *time.Time
	Account           string // hosting account that requested the payment
	PaymentID         string
	BasketID          string
	Message           string // last user-visible outcome message
	TransactionStatus PaymentStatus
	Product           PaymentProduct
	Amount            decimal.Decimal
	Currency          string
	FromBankAccount   string
	FromBank          string
	ToBankAccount     string
	ToBank            string
	ToBankAccountName string
	TextMessage       string // remittance text sent with the payment
}

// IsPaid reports whether the payment has been confirmed by the bank.
func (p *OutboundPayment) IsPaid() bool {
	return p.Paid != nil && !p.Paid.IsZero()
}

// InBasket reports whether the payment is grouped into a signing basket.
func (p *OutboundPayment) InBasket() bool {
	return p.BasketID != ""
}

// InitiationRequest rebuilds the bank request for this record.
func (p *OutboundPayment) InitiationRequest() PaymentInitiationRequest {
	return PaymentInitiationRequest{
		Product:          p.Product,
		Amount:           p.Amount,
		Currency:         p.Currency,
		DebtorIBAN:       p.FromBankAccount,
		DebtorCurrency:   p.Currency,
		CreditorIBAN:     p.ToBankAccount,
		CreditorCurrency: p.Currency,
		CreditorName:     p.ToBankAccountName,
		Message:          p.TextMessage,
	}
}

// SplitPaymentOption is one line of a bulk payment
type SplitPaymentOption struct {
	BankAccount string          `json:"bankAccount"`
	AccountName string          `json:"accountName"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// PaymentInstruction is a validated end-user request to pay out one or several legs
type PaymentInstruction struct {
	Account           string // hosting account
	Amount            decimal.Decimal
	Currency          string
	ToBankAccount     string
	ToBankAccountName string
	Message           string
	PersonalNumber    string
	TabID             string
	CallbackURL       string
	FromMobileDevice  bool
	Splits            []SplitPaymentOption
}

// Legs returns the transfers the instruction resolves to.
func (i PaymentInstruction) Legs() []SplitPaymentOption {
	if len(i.Splits) > 0 {
		return i.Splits
	}
	return []SplitPaymentOption{{
		BankAccount: i.ToBankAccount,
		AccountName: i.ToBankAccountName,
		Amount:      i.Amount,
		Description: i.Message,
	}}
}
