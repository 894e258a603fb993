package openbanking

import (
	"context"
	"strconv"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/shopspring/decimal"
)

const accountsPath = "psd2/accountinformation/v1/accounts"

// GetAccounts lists the accounts visible through a consent. Accounts with an unreadable
// balance amount are left out.
func (c *Client) GetAccounts(ctx context.Context, consentID string, withBalance bool, op *models.OperationContext) ([]models.AccountInformation, error) {
	path := accountsPath + "?withBalance=" + strconv.FormatBool(withBalance)
	headers := op.WithHeaders(models.Header{Key: "Consent-ID", Value: consentID})

	body, err := c.get(ctx, FamilyAccountInformation, path, headers...)
	if err != nil {
		return nil, err
	}

	var resp accountsJSON
	if err := decode(body, "accounts", "list", &resp); err != nil {
		return nil, err
	}

	decoded := decodeEach[accountJSON](resp.Accounts)
	accounts := make([]models.AccountInformation, 0, len(decoded))
	for _, a := range decoded {
		accounts = append(accounts, a.toModel())
	}
	return accounts, nil
}

func (a *accountJSON) validate() string {
	for _, b := range a.Balances {
		if _, err := decimal.NewFromString(b.BalanceAmount.Amount); err != nil {
			return "balances.balanceAmount.amount"
		}
	}
	return ""
}

func (a accountJSON) toModel() models.AccountInformation {
	balances := make([]models.Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		// validated before conversion
		amount, _ := decimal.NewFromString(b.BalanceAmount.Amount)
		creditLimitIncluded := true
		if b.CreditLimitIncluded != nil {
			creditLimitIncluded = *b.CreditLimitIncluded
		}
		balances = append(balances, models.Balance{
			Amount:              amount,
			Currency:            b.BalanceAmount.Currency,
			BalanceType:         b.BalanceType,
			CreditLimitIncluded: creditLimitIncluded,
		})
	}

	return models.AccountInformation{
		ResourceID:      a.ResourceID,
		IBAN:            a.IBAN,
		BBAN:            a.BBAN,
		Currency:        a.Currency,
		BIC:             a.BIC,
		Name:            a.Name,
		OwnerName:       a.OwnerName,
		Product:         a.Product,
		CashAccountType: a.CashAccountType,
		Status:          a.Status,
		Usage:           a.Usage,
		Balances:        balances,
	}
}
