package openbanking

import (
	"context"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

const basketsPath = "psd2/paymentinitiation/v1/signing-baskets"

func basketPath(basketID string) string {
	return basketsPath + "/" + basketID
}

// CreateBasket groups payment initiations so they can be authorized with one SCA
func (c *Client) CreateBasket(ctx context.Context, paymentIDs []string, op *models.OperationContext, okURL, nokURL string) (*models.BasketResource, error) {
	body, err := c.post(ctx, FamilyPaymentInitiation, basketsPath+"/",
		basketRequestJSON{PaymentIDs: paymentIDs}, op.WithCallbacks(okURL, nokURL)...)
	if err != nil {
		return nil, err
	}

	var resp basketCreatedJSON
	if err := decode(body, "basket", "create", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseBasketStatus(*resp.TransactionStatus)
	if err != nil {
		return nil, err
	}

	return &models.BasketResource{
		BasketID:          *resp.BasketID,
		TransactionStatus: status,
		Links:             resp.Links.toModel(),
		Message:           resp.PsuMessage,
		Errors:            errorMessages(resp.TppMessages),
	}, nil
}

// DeleteBasket dissolves a signing basket. The payments in it survive.
func (c *Client) DeleteBasket(ctx context.Context, basketID string, op *models.OperationContext) error {
	return c.delete(ctx, FamilyPaymentInitiation, basketPath(basketID), op.Headers()...)
}

// GetBasketStatus returns the transaction status of a basket
func (c *Client) GetBasketStatus(ctx context.Context, basketID string, op *models.OperationContext) (*models.BasketTransactionStatus, error) {
	body, err := c.get(ctx, FamilyPaymentInitiation, basketPath(basketID)+"/status", op.Headers()...)
	if err != nil {
		return nil, err
	}

	var resp transactionStatusJSON
	if err := decode(body, "basket", "status", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseBasketStatus(*resp.TransactionStatus)
	if err != nil {
		return nil, err
	}
	return &models.BasketTransactionStatus{Status: status, Messages: errorMessages(resp.TppMessages)}, nil
}

// StartBasketAuthorization starts an SCA attempt on the basket
func (c *Client) StartBasketAuthorization(ctx context.Context, basketID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error) {
	return c.startAuthorization(ctx, FamilyPaymentInitiation, "basket", basketPath(basketID), op.WithCallbacks(okURL, nokURL))
}

// GetBasketAuthorizationIDs lists the SCA attempts of the basket
func (c *Client) GetBasketAuthorizationIDs(ctx context.Context, basketID string, op *models.OperationContext) ([]string, error) {
	return c.authorizationIDs(ctx, FamilyPaymentInitiation, "basket", basketPath(basketID), op.Headers())
}

// GetBasketAuthorizationStatus polls one SCA attempt of the basket
func (c *Client) GetBasketAuthorizationStatus(ctx context.Context, basketID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error) {
	return c.authorizationStatus(ctx, FamilyPaymentInitiation, "basket", basketPath(basketID), authorizationID, op.Headers())
}

// PutBasketUserData selects the authentication method of an SCA attempt
func (c *Client) PutBasketUserData(ctx context.Context, basketID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error) {
	return c.putUserData(ctx, FamilyPaymentInitiation, "basket", basketPath(basketID), authorizationID, methodID, op.Headers())
}
