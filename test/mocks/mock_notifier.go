package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// Push is one captured notifier call
type Push struct {
	TabIDs  []string
	Event   ports.EventType
	Payload interface{}
}

// MockNotifier records pushes instead of delivering them
type MockNotifier struct {
	mu     sync.Mutex
	pushes []Push
	Err    error
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Push implements ports.Notifier
func (m *MockNotifier) Push(ctx context.Context, tabIDs []string, event ports.EventType, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, Push{TabIDs: append([]string(nil), tabIDs...), Event: event, Payload: payload})
	return m.Err
}

// Pushes returns a snapshot of all pushes
func (m *MockNotifier) Pushes() []Push {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Push(nil), m.pushes...)
}

// Events returns the event types in push order
func (m *MockNotifier) Events() []ports.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]ports.EventType, len(m.pushes))
	for i, p := range m.pushes {
		events[i] = p.Event
	}
	return events
}

// Count returns how many pushes had the given event type
func (m *MockNotifier) Count(event ports.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.pushes {
		if p.Event == event {
			n++
		}
	}
	return n
}
