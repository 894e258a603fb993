package notification

import (
	"context"
	"errors"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// Fanout pushes every event through all of its notifiers. It fails only when every
// notifier failed, so one healthy transport is enough to reach the tab.
type Fanout struct {
	notifiers []ports.Notifier
}

var _ ports.Notifier = (*Fanout)(nil)

// NewFanout combines notifiers; nil entries are skipped
func NewFanout(notifiers ...ports.Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

func (f *Fanout) Push(ctx context.Context, tabIDs []string, event ports.EventType, payload interface{}) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Push(ctx, tabIDs, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(f.notifiers) {
		return errors.Join(errs...)
	}
	return nil
}

// Discard drops every event; used when no transport is configured
type Discard struct{}

func (Discard) Push(ctx context.Context, tabIDs []string, event ports.EventType, payload interface{}) error {
	return nil
}
