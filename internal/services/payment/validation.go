package payment

import (
	"strings"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// MaxTextMessageLength is the longest remittance text the bank accepts on an outbound payment
const MaxTextMessageLength = 10

const invalidSplitsMessage = "SplitPaymentOptions are not valid. Every option needs a bank account, an account name, a description and a positive amount."

// ValidateInstruction checks an end-user payment instruction and returns a normalized copy.
// Messages are trimmed and the personal number is reduced to digits (empty in sandbox).
func ValidateInstruction(in models.PaymentInstruction, sandbox bool) (models.PaymentInstruction, error) {
	out := in
	out.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	out.Message = strings.TrimSpace(in.Message)
	out.PersonalNumber = NormalizePersonalNumber(in.PersonalNumber, sandbox)

	if len(out.Currency) != 3 {
		return out, domain.NewValidationError("currency", "Currency must be a three letter ISO 4217 code.")
	}

	if len(in.Splits) > 0 {
		splits := make([]models.SplitPaymentOption, len(in.Splits))
		for i, s := range in.Splits {
			s.BankAccount = strings.TrimSpace(s.BankAccount)
			s.AccountName = strings.TrimSpace(s.AccountName)
			s.Description = strings.TrimSpace(s.Description)
			if s.BankAccount == "" || s.AccountName == "" || s.Description == "" || !s.Amount.IsPositive() {
				return out, domain.NewValidationError("splitPaymentOptions", invalidSplitsMessage).WithDetail("index", i)
			}
			if len(s.BankAccount) <= 2 {
				return out, domain.NewValidationError("splitPaymentOptions", "Invalid bank account.").WithDetail("index", i)
			}
			if len([]rune(s.Description)) > MaxTextMessageLength {
				return out, domain.NewValidationError("splitPaymentOptions", "Description cannot be longer than 10 characters.").WithDetail("index", i)
			}
			splits[i] = s
		}
		out.Splits = splits
		return out, nil
	}

	out.ToBankAccount = strings.TrimSpace(in.ToBankAccount)
	out.ToBankAccountName = strings.TrimSpace(in.ToBankAccountName)

	if !out.Amount.IsPositive() {
		return out, domain.NewValidationError("amount", "Amount must be positive.")
	}
	if len(out.ToBankAccount) <= 2 {
		return out, domain.NewValidationError("bankAccount", "Invalid bank account.")
	}
	if out.ToBankAccountName == "" {
		return out, domain.NewValidationError("accountName", "AccountName not available.")
	}
	if len([]rune(out.Message)) > MaxTextMessageLength {
		return out, domain.NewValidationError("message", "Message cannot be longer than 10 characters.")
	}
	return out, nil
}

// NormalizePersonalNumber strips separators from a personal identity number.
// The sandbox does not accept real identities, so it always gets an empty one.
func NormalizePersonalNumber(s string, sandbox bool) string {
	if sandbox {
		return ""
	}
	return models.NormalizePersonalID(s)
}
