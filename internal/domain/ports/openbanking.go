package ports

import (
	"context"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// ConsentAPI covers the consent resource family
type ConsentAPI interface {
	CreateConsent(ctx context.Context, req models.ConsentRequest, op *models.OperationContext) (*models.ConsentResource, error)
	GetConsent(ctx context.Context, consentID string, op *models.OperationContext) (*models.ConsentDetails, error)
	GetConsentStatus(ctx context.Context, consentID string, op *models.OperationContext) (models.ConsentStatus, error)
	DeleteConsent(ctx context.Context, consentID string, op *models.OperationContext) error
	StartConsentAuthorization(ctx context.Context, consentID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error)
	GetConsentAuthorizationIDs(ctx context.Context, consentID string, op *models.OperationContext) ([]string, error)
	GetConsentAuthorizationStatus(ctx context.Context, consentID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error)
	PutConsentUserData(ctx context.Context, consentID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error)
}

// AccountAPI covers account information reads
type AccountAPI interface {
	GetAccounts(ctx context.Context, consentID string, withBalance bool, op *models.OperationContext) ([]models.AccountInformation, error)
}

// PaymentAPI covers the payment initiation resource family
type PaymentAPI interface {
	CreatePayment(ctx context.Context, req models.PaymentInitiationRequest, op *models.OperationContext) (*models.PaymentResource, error)
	DeletePayment(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) error
	GetPaymentStatus(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) (*models.PaymentTransactionStatus, error)
	StartPaymentAuthorization(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error)
	GetPaymentAuthorizationIDs(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) ([]string, error)
	GetPaymentAuthorizationStatus(ctx context.Context, product models.PaymentProduct, paymentID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error)
	PutPaymentUserData(ctx context.Context, product models.PaymentProduct, paymentID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error)
}

// BasketAPI covers the signing basket resource family
type BasketAPI interface {
	CreateBasket(ctx context.Context, paymentIDs []string, op *models.OperationContext, okURL, nokURL string) (*models.BasketResource, error)
	DeleteBasket(ctx context.Context, basketID string, op *models.OperationContext) error
	GetBasketStatus(ctx context.Context, basketID string, op *models.OperationContext) (*models.BasketTransactionStatus, error)
	StartBasketAuthorization(ctx context.Context, basketID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error)
	GetBasketAuthorizationIDs(ctx context.Context, basketID string, op *models.OperationContext) ([]string, error)
	GetBasketAuthorizationStatus(ctx context.Context, basketID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error)
	PutBasketUserData(ctx context.Context, basketID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error)
}

// PaymentInitiationAPI is what the payment flows need from the bank
type PaymentInitiationAPI interface {
	PaymentAPI
	BasketAPI
}

// DirectoryAPI covers the ASPSP information endpoints
type DirectoryAPI interface {
	GetCountries(ctx context.Context) ([]models.Country, error)
	GetCountry(ctx context.Context, isoCode string) (*models.Country, error)
	GetCities(ctx context.Context, isoCountryCode string) ([]models.City, error)
	GetCity(ctx context.Context, cityID string) (*models.City, error)
	GetServiceProviders(ctx context.Context, isoCountryCode string) ([]models.ServiceProvider, error)
	GetServiceProvider(ctx context.Context, bicFi string) (*models.ServiceProviderDetails, error)
}
