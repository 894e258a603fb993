package models

import "time"

// AccountReference identifies an account by IBAN and optional currency
type AccountReference struct {
	IBAN     string
	Currency string
}

// ConsentRequest describes the access a consent asks for
type ConsentRequest struct {
	AccountIBAN       string
	Currency          string
	AllowBalance      bool
	AllowTransactions bool
	Recurring         bool
	ValidUntil        time.Time // date only
	FrequencyPerDay   int
	// AllowInitiatePayment marks the consent for later payment initiation (combinedServiceIndicator).
	AllowInitiatePayment bool
}

// ConsentResource is the result of creating a consent
type ConsentResource struct {
	ConsentID             string
	Status                ConsentStatus
	AuthenticationMethods []AuthenticationMethod
	Links                 Links
}

// ConsentDetails is the full consent as read back from the bank
type ConsentDetails struct {
	ConsentID          string
	Status             ConsentStatus
	AccountAccess      []AccountReference
	BalanceAccess      []AccountReference
	TransactionsAccess []AccountReference
	Recurring          bool
	ValidUntil         time.Time
	FrequencyPerDay    int
	LastActionDate     time.Time
}
