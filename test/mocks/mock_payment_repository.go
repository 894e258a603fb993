package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// MockPaymentRepository is an in-memory ports.OutboundPaymentRepository.
// Records are copied in and out so callers cannot alias stored state.
type MockPaymentRepository struct {
	mu      sync.Mutex
	records map[string]models.OutboundPayment
	updates int
	cleared []string

	UpdateErr error
}

// NewMockPaymentRepository creates an empty repository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{records: make(map[string]models.OutboundPayment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.OutboundPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ObjectID == "" {
		payment.ObjectID = uuid.NewString()
	}
	m.records[payment.ObjectID] = *payment
	return nil
}

func (m *MockPaymentRepository) Get(ctx context.Context, objectID string) (*models.OutboundPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[objectID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *MockPaymentRepository) GetMany(ctx context.Context, objectIDs []string) ([]*models.OutboundPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.OutboundPayment
	for _, id := range objectIDs {
		if p, ok := m.records[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *MockPaymentRepository) FindByBasket(ctx context.Context, basketID string) ([]*models.OutboundPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.OutboundPayment
	for _, p := range m.records {
		if p.BasketID == basketID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *models.OutboundPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.records[payment.ObjectID]; !ok {
		return domain.ErrPaymentNotFound
	}
	m.records[payment.ObjectID] = *payment
	m.updates++
	return nil
}

func (m *MockPaymentRepository) ClearBasket(ctx context.Context, basketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.records {
		if p.BasketID == basketID {
			p.BasketID = ""
			m.records[id] = p
		}
	}
	m.cleared = append(m.cleared, basketID)
	return nil
}

// Stored returns a copy of the record with objectID, nil when absent
func (m *MockPaymentRepository) Stored(objectID string) *models.OutboundPayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[objectID]
	if !ok {
		return nil
	}
	return &p
}

// ClearedBaskets returns the basket ids passed to ClearBasket
func (m *MockPaymentRepository) ClearedBaskets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cleared...)
}
