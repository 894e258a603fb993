// Package memory keeps outbound payment records in process memory. It backs the
// service when no database is configured; records do not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// OutboundPaymentRepository stores copies of records, so callers never alias stored state
type OutboundPaymentRepository struct {
	mu      sync.RWMutex
	records map[string]models.OutboundPayment
	clock   timeutil.Clock
}

var _ ports.OutboundPaymentRepository = (*OutboundPaymentRepository)(nil)

// NewOutboundPaymentRepository creates an empty repository
func NewOutboundPaymentRepository(clock timeutil.Clock) *OutboundPaymentRepository {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &OutboundPaymentRepository{
		records: make(map[string]models.OutboundPayment),
		clock:   clock,
	}
}

func (r *OutboundPaymentRepository) Create(ctx context.Context, payment *models.OutboundPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment.ObjectID = uuid.NewString()
	now := r.clock.Now()
	if payment.Created.IsZero() {
		payment.Created = now
	}
	payment.Updated = now
	r.records[payment.ObjectID] = *payment
	return nil
}

func (r *OutboundPaymentRepository) Get(ctx context.Context, objectID string) (*models.OutboundPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.records[objectID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

// GetMany returns the records that exist, ordered by creation
func (r *OutboundPaymentRepository) GetMany(ctx context.Context, objectIDs []string) ([]*models.OutboundPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(objectIDs))
	var out []*models.OutboundPayment
	for _, id := range objectIDs {
		if p, ok := r.records[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, &p)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r *OutboundPaymentRepository) FindByBasket(ctx context.Context, basketID string) ([]*models.OutboundPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.OutboundPayment
	for _, p := range r.records {
		if basketID != "" && p.BasketID == basketID {
			p := p
			out = append(out, &p)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r *OutboundPaymentRepository) Update(ctx context.Context, payment *models.OutboundPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[payment.ObjectID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	payment.Created = stored.Created
	r.records[payment.ObjectID] = *payment
	return nil
}

func (r *OutboundPaymentRepository) ClearBasket(ctx context.Context, basketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.records {
		if basketID != "" && p.BasketID == basketID {
			p.BasketID = ""
			p.Updated = r.clock.Now()
			r.records[id] = p
		}
	}
	return nil
}

func sortByCreated(payments []*models.OutboundPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].Created.Equal(payments[j].Created) {
			return payments[i].Created.Before(payments[j].Created)
		}
		return payments[i].ObjectID < payments[j].ObjectID
	})
}
