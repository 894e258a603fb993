package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentInitiationRequest is one funds transfer to create at the bank
type PaymentInitiationRequest struct {
	Product          PaymentProduct
	Amount           decimal.Decimal
	Currency         string
	DebtorIBAN       string
	DebtorCurrency   string
	CreditorIBAN     string
	CreditorCurrency string
	CreditorName     string
	Message          string // remittanceInformationUnstructured
}

// PaymentResource is a created payment initiation
type PaymentResource struct {
	PaymentID         string
	TransactionStatus PaymentStatus
	Links             Links
	Message           string
	Errors            []TppMessage
}

// PaymentTransactionStatus is the polled state of a payment initiation
type PaymentTransactionStatus struct {
	Status   PaymentStatus
	Messages []TppMessage
}

// BasketResource is a created signing basket grouping several payments
type BasketResource struct {
	BasketID          string
	TransactionStatus BasketStatus
	Links             Links
	Message           string
	Errors            []TppMessage
}

// BasketTransactionStatus is the polled state of a signing basket
type BasketTransactionStatus struct {
	Status   BasketStatus
	Messages []TppMessage
}

// SelectProduct picks the payment product for a transfer from debtorIBAN to creditorIBAN.
// Same country transfers are domestic, EUR transfers abroad go over SEPA.
func SelectProduct(debtorIBAN, creditorIBAN, currency string) PaymentProduct {
	if countryOf(debtorIBAN) != "" && countryOf(debtorIBAN) == countryOf(creditorIBAN) {
		return ProductDomestic
	}
	if strings.EqualFold(currency, "EUR") {
		return ProductSepaCreditTransfers
	}
	return ProductInternational
}

func countryOf(iban string) string {
	iban = strings.TrimSpace(iban)
	if len(iban) < 2 {
		return ""
	}
	return strings.ToUpper(iban[:2])
}
