package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// Envelope is the wire form of one pushed event, shared by every transport
type Envelope struct {
	ID        string          `json:"id"`
	Event     ports.EventType `json:"event"`
	TabIDs    []string        `json:"tab_ids"`
	Payload   interface{}     `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func newEnvelope(tabIDs []string, event ports.EventType, payload interface{}, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Event:     event,
		TabIDs:    tabIDs,
		Payload:   payload,
		Timestamp: now.UTC(),
	}
}

func (e Envelope) marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Event, err)
	}
	return body, nil
}
