package ports

import "context"

// EventType names a push event understood by the end-user UI
type EventType string

const (
	EventShowQRCode            EventType = "ShowQRCode"
	EventOpenBankIDApp         EventType = "OpenBankIdApp"
	EventShowAccountInfo       EventType = "ShowAccountInfo"
	EventTransactionInProgress EventType = "TransactionInProgress"
	EventTransactionCompleted  EventType = "TransactionCompleted"
	EventTransactionFailed     EventType = "TransactionFailed"
	EventPaymentUpdated        EventType = "PaymentUpdated"
	EventPaymentRetried        EventType = "PaymentRetried"
	EventPaymentError          EventType = "PaymentError"
)

// Notifier pushes events to the browser tabs (or admin sessions) identified by tabIDs
type Notifier interface {
	Push(ctx context.Context, tabIDs []string, event EventType, payload interface{}) error
}
