package models

import "github.com/shopspring/decimal"

// BalanceInterimAvailable is the balance type reported as the account's available balance.
const BalanceInterimAvailable = "interimAvailable"

// Balance is one balance entry of an account
type Balance struct {
	Amount              decimal.Decimal
	Currency            string
	BalanceType         string
	CreditLimitIncluded bool
}

// AccountInformation is an account visible through a consent
type AccountInformation struct {
	ResourceID      string
	IBAN            string
	BBAN            string
	Currency        string
	BIC             string
	Name            string
	OwnerName       string
	Product         string
	CashAccountType string
	Status          string
	Usage           string
	Balances        []Balance
}

// AvailableBalance returns the interim available balance, if reported.
func (a AccountInformation) AvailableBalance() (Balance, bool) {
	for _, b := range a.Balances {
		if b.BalanceType == BalanceInterimAvailable {
			return b, true
		}
	}
	return Balance{}, false
}
