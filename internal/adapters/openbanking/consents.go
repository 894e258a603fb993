package openbanking

import (
	"context"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

const consentsPath = "psd2/consent/v1/consents"

func consentPath(consentID string) string {
	return consentsPath + "/" + consentID
}

// CreateConsent asks for account information access. ValidUntil must be a date without time of day.
func (c *Client) CreateConsent(ctx context.Context, req models.ConsentRequest, op *models.OperationContext) (*models.ConsentResource, error) {
	if !timeutil.IsDateOnly(req.ValidUntil) {
		return nil, domain.NewValidationError("validUntil", "must be a date only")
	}

	body, err := c.post(ctx, FamilyAccountInformation, consentsPath, consentBody(req), op.Headers()...)
	if err != nil {
		return nil, err
	}

	var resp consentCreatedJSON
	if err := decode(body, "consent", "create", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseConsentStatus(*resp.ConsentStatus)
	if err != nil {
		return nil, err
	}

	return &models.ConsentResource{
		ConsentID:             *resp.ConsentID,
		Status:                status,
		AuthenticationMethods: authenticationMethods(resp.ScaMethods),
		Links:                 resp.Links.toModel(),
	}, nil
}

func consentBody(req models.ConsentRequest) consentRequestJSON {
	ref := accountRefJSON{IBAN: req.AccountIBAN, Currency: req.Currency}
	access := consentAccessJSON{
		Accounts:     []accountRefJSON{},
		Balances:     []accountRefJSON{},
		Transactions: []accountRefJSON{},
	}

	if req.AccountIBAN != "" {
		access.Accounts = append(access.Accounts, ref)
	}
	if req.AllowBalance {
		access.Balances = append(access.Balances, ref)
	}
	if req.AllowTransactions {
		access.Transactions = append(access.Transactions, ref)
	}

	return consentRequestJSON{
		Access:                   access,
		RecurringIndicator:       req.Recurring,
		ValidUntil:               timeutil.FormatDate(req.ValidUntil),
		FrequencyPerDay:          req.FrequencyPerDay,
		CombinedServiceIndicator: req.AllowInitiatePayment,
	}
}

// GetConsent reads back a consent with its granted access
func (c *Client) GetConsent(ctx context.Context, consentID string, op *models.OperationContext) (*models.ConsentDetails, error) {
	body, err := c.get(ctx, FamilyAccountInformation, consentPath(consentID), op.Headers()...)
	if err != nil {
		return nil, err
	}

	var resp consentJSON
	if err := decode(body, "consent", "get", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseConsentStatus(*resp.ConsentStatus)
	if err != nil {
		return nil, err
	}
	validUntil, err := timeutil.ParseDate(*resp.ValidUntil)
	if err != nil {
		return nil, domain.NewProtocolDecodeError("consent", "get", "validUntil")
	}
	lastAction, err := timeutil.ParseDate(*resp.LastActionDate)
	if err != nil {
		return nil, domain.NewProtocolDecodeError("consent", "get", "lastActionDate")
	}

	return &models.ConsentDetails{
		ConsentID:          *resp.ConsentID,
		Status:             status,
		AccountAccess:      accountRefs(resp.Access.Accounts),
		BalanceAccess:      accountRefs(resp.Access.Balances),
		TransactionsAccess: accountRefs(resp.Access.Transactions),
		Recurring:          *resp.RecurringIndicator,
		ValidUntil:         validUntil,
		FrequencyPerDay:    *resp.FrequencyPerDay,
		LastActionDate:     lastAction,
	}, nil
}

// GetConsentStatus returns the current consent status
func (c *Client) GetConsentStatus(ctx context.Context, consentID string, op *models.OperationContext) (models.ConsentStatus, error) {
	body, err := c.get(ctx, FamilyAccountInformation, consentPath(consentID)+"/status", op.Headers()...)
	if err != nil {
		return "", err
	}

	var resp consentStatusJSON
	if err := decode(body, "consent", "status", &resp); err != nil {
		return "", err
	}
	return models.ParseConsentStatus(*resp.ConsentStatus)
}

// DeleteConsent revokes a consent
func (c *Client) DeleteConsent(ctx context.Context, consentID string, op *models.OperationContext) error {
	return c.delete(ctx, FamilyAccountInformation, consentPath(consentID), op.Headers()...)
}

// StartConsentAuthorization starts an SCA attempt on the consent
func (c *Client) StartConsentAuthorization(ctx context.Context, consentID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error) {
	return c.startAuthorization(ctx, FamilyAccountInformation, "consent", consentPath(consentID), op.WithCallbacks(okURL, nokURL))
}

// GetConsentAuthorizationIDs lists the SCA attempts of the consent
func (c *Client) GetConsentAuthorizationIDs(ctx context.Context, consentID string, op *models.OperationContext) ([]string, error) {
	return c.authorizationIDs(ctx, FamilyAccountInformation, "consent", consentPath(consentID), op.Headers())
}

// GetConsentAuthorizationStatus polls one SCA attempt of the consent
func (c *Client) GetConsentAuthorizationStatus(ctx context.Context, consentID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error) {
	return c.authorizationStatus(ctx, FamilyAccountInformation, "consent", consentPath(consentID), authorizationID, op.Headers())
}

// PutConsentUserData selects the authentication method of an SCA attempt
func (c *Client) PutConsentUserData(ctx context.Context, consentID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error) {
	return c.putUserData(ctx, FamilyAccountInformation, "consent", consentPath(consentID), authorizationID, methodID, op.Headers())
}
