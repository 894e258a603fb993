package openbanking

import (
	"context"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

const paymentsPath = "psd2/paymentinitiation/v1/payments"

func paymentPath(product models.PaymentProduct, paymentID string) string {
	return paymentsPath + "/" + string(product) + "/" + paymentID
}

// CreatePayment initiates a funds transfer. The payment still needs SCA before the bank executes it.
func (c *Client) CreatePayment(ctx context.Context, req models.PaymentInitiationRequest, op *models.OperationContext) (*models.PaymentResource, error) {
	payload := paymentRequestJSON{
		InstructedAmount: amountJSON{Currency: req.Currency, Amount: req.Amount.String()},
		DebtorAccount:    paymentAccountJSON{IBAN: req.DebtorIBAN, Currency: req.DebtorCurrency},
		CreditorName:     req.CreditorName,
		CreditorAccount:  paymentAccountJSON{IBAN: req.CreditorIBAN, Currency: req.CreditorCurrency},

		RemittanceInformationUnstructured: req.Message,
	}

	body, err := c.post(ctx, FamilyPaymentInitiation, paymentsPath+"/"+string(req.Product), payload, op.Headers()...)
	if err != nil {
		return nil, err
	}

	var resp paymentCreatedJSON
	if err := decode(body, "payment", "create", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParsePaymentStatus(*resp.TransactionStatus)
	if err != nil {
		return nil, err
	}

	return &models.PaymentResource{
		PaymentID:         *resp.PaymentID,
		TransactionStatus: status,
		Links:             resp.Links.toModel(),
		Message:           resp.PsuMessage,
		Errors:            errorMessages(resp.TppMessages),
	}, nil
}

// DeletePayment cancels a payment initiation
func (c *Client) DeletePayment(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) error {
	return c.delete(ctx, FamilyPaymentInitiation, paymentPath(product, paymentID), op.Headers()...)
}

// GetPaymentStatus returns the transaction status of a payment initiation
func (c *Client) GetPaymentStatus(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) (*models.PaymentTransactionStatus, error) {
	body, err := c.get(ctx, FamilyPaymentInitiation, paymentPath(product, paymentID)+"/status", op.Headers()...)
	if err != nil {
		return nil, err
	}

	var resp transactionStatusJSON
	if err := decode(body, "payment", "status", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParsePaymentStatus(*resp.TransactionStatus)
	if err != nil {
		return nil, err
	}
	return &models.PaymentTransactionStatus{Status: status, Messages: errorMessages(resp.TppMessages)}, nil
}

// StartPaymentAuthorization starts an SCA attempt on the payment
func (c *Client) StartPaymentAuthorization(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error) {
	return c.startAuthorization(ctx, FamilyPaymentInitiation, "payment", paymentPath(product, paymentID), op.WithCallbacks(okURL, nokURL))
}

// GetPaymentAuthorizationIDs lists the SCA attempts of the payment
func (c *Client) GetPaymentAuthorizationIDs(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) ([]string, error) {
	return c.authorizationIDs(ctx, FamilyPaymentInitiation, "payment", paymentPath(product, paymentID), op.Headers())
}

// GetPaymentAuthorizationStatus polls one SCA attempt of the payment
func (c *Client) GetPaymentAuthorizationStatus(ctx context.Context, product models.PaymentProduct, paymentID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error) {
	return c.authorizationStatus(ctx, FamilyPaymentInitiation, "payment", paymentPath(product, paymentID), authorizationID, op.Headers())
}

// PutPaymentUserData selects the authentication method of an SCA attempt
func (c *Client) PutPaymentUserData(ctx context.Context, product models.PaymentProduct, paymentID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error) {
	return c.putUserData(ctx, FamilyPaymentInitiation, "payment", paymentPath(product, paymentID), authorizationID, methodID, op.Headers())
}
