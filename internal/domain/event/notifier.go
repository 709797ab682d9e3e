package event

import (
	"context"

	"fructus/pkg/logger"
)

// Notifier delivers lifecycle events to humans. Delivery is
// best-effort: a failed notification never fails the business
// operation that produced it.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Emit pushes events to the notifier, logging failures.
// Call it only after the owning transaction has committed.
func Emit(ctx context.Context, n Notifier, events ...Event) {
	if n == nil {
		return
	}
	for _, e := range events {
		if err := n.Notify(ctx, e); err != nil {
			logger.Warn(ctx, "event delivery failed",
				"event_type", e.Type,
				"event_id", e.ID,
				"error", err,
			)
		}
	}
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, e Event) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
