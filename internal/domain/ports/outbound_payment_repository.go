package ports

import (
	"context"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// OutboundPaymentRepository persists outbound payment records keyed by object id
type OutboundPaymentRepository interface {
	// Create inserts the record, assigning ObjectID, Created and Updated when empty
	Create(ctx context.Context, payment *models.OutboundPayment) error

	// Get returns domain.ErrPaymentNotFound when no record exists
	Get(ctx context.Context, objectID string) (*models.OutboundPayment, error)

	GetMany(ctx context.Context, objectIDs []string) ([]*models.OutboundPayment, error)

	FindByBasket(ctx context.Context, basketID string) ([]*models.OutboundPayment, error)

	// Update overwrites the mutable fields and bumps Updated
	Update(ctx context.Context, payment *models.OutboundPayment) error

	// ClearBasket removes the basket association from every record in the basket
	ClearBasket(ctx context.Context, basketID string) error
}
