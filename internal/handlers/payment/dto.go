package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// InitiatePaymentRequest is the body of POST /payments
type InitiatePaymentRequest struct {
	Account           string                      `json:"account"`
	Amount            decimal.Decimal             `json:"amount"`
	Currency          string                      `json:"currency"`
	ToBankAccount     string                      `json:"toBankAccount"`
	ToBankAccountName string                      `json:"toBankAccountName"`
	CreditorBank      string                      `json:"creditorBank,omitempty"`
	Message           string                      `json:"message"`
	PersonalNumber    string                      `json:"personalNumber"`
	TabID             string                      `json:"tabId"`
	CallbackURL       string                      `json:"callbackUrl,omitempty"`
	FromMobileDevice  *bool                       `json:"fromMobileDevice,omitempty"`
	Splits            []models.SplitPaymentOption `json:"splits,omitempty"`
}

func (r InitiatePaymentRequest) instruction(fromMobile bool) models.PaymentInstruction {
	return models.PaymentInstruction{
		Account:           r.Account,
		Amount:            r.Amount,
		Currency:          r.Currency,
		ToBankAccount:     r.ToBankAccount,
		ToBankAccountName: r.ToBankAccountName,
		Message:           r.Message,
		PersonalNumber:    r.PersonalNumber,
		TabID:             r.TabID,
		CallbackURL:       r.CallbackURL,
		FromMobileDevice:  fromMobile,
		Splits:            r.Splits,
	}
}

// InitiatePaymentResponse lists the stored record of every leg
type InitiatePaymentResponse struct {
	ObjectIDs []string `json:"objectIds"`
}

// AdminPaymentRequest is the body of the sign, retry and cancel endpoints
type AdminPaymentRequest struct {
	ObjectIDs        []string `json:"objectIds"`
	TabID            string   `json:"tabId"`
	TabIDs           []string `json:"tabIds,omitempty"`
	PersonalNumber   string   `json:"personalNumber"`
	FromMobileDevice *bool    `json:"fromMobileDevice,omitempty"`
	Redirect         string   `json:"redirect,omitempty"`
}

// AccountOptionsRequest is the body of POST /accounts/options
type AccountOptionsRequest struct {
	PersonalNumber   string `json:"personalNumber"`
	BicFi            string `json:"bicFi"`
	TabID            string `json:"tabId"`
	FromMobileDevice *bool  `json:"fromMobileDevice,omitempty"`
	Redirect         string `json:"redirect,omitempty"`
}

type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// PaymentResponse is the JSON view of a stored outbound payment
type PaymentResponse struct {
	ObjectID          string          `json:"objectId"`
	Created           time.Time       `json:"created"`
	Updated           time.Time       `json:"updated"`
	Paid              *time.Time      `json:"paid,omitempty"`
	Account           string          `json:"account"`
	PaymentID         string          `json:"paymentId,omitempty"`
	BasketID          string          `json:"basketId,omitempty"`
	Message           string          `json:"message,omitempty"`
	TransactionStatus string          `json:"transactionStatus,omitempty"`
	Product           string          `json:"product"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	FromBankAccount   string          `json:"fromBankAccount"`
	FromBank          string          `json:"fromBank"`
	ToBankAccount     string          `json:"toBankAccount"`
	ToBank            string          `json:"toBank,omitempty"`
	ToBankAccountName string          `json:"toBankAccountName"`
	TextMessage       string          `json:"textMessage,omitempty"`
}

func toPaymentResponse(p *models.OutboundPayment) PaymentResponse {
	return PaymentResponse{
		ObjectID:          p.ObjectID,
		Created:           p.Created,
		Updated:           p.Updated,
		Paid:              p.Paid,
		Account:           p.Account,
		PaymentID:         p.PaymentID,
		BasketID:          p.BasketID,
		Message:           p.Message,
		TransactionStatus: string(p.TransactionStatus),
		Product:           string(p.Product),
		Amount:            p.Amount,
		Currency:          p.Currency,
		FromBankAccount:   p.FromBankAccount,
		FromBank:          p.FromBank,
		ToBankAccount:     p.ToBankAccount,
		ToBank:            p.ToBank,
		ToBankAccountName: p.ToBankAccountName,
		TextMessage:       p.TextMessage,
	}
}

type CountryResponse struct {
	IsoCode string `json:"isoCode"`
	Name    string `json:"name"`
}

type ProviderResponse struct {
	BicFi   string `json:"bicFi"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// ErrorResponse is written for every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}
