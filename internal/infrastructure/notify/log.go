// Package notify delivers domain events to the outside world: the
// structured log, and optionally a Kafka topic consumed by the bot
// front end. Delivery is best effort and happens after commit.
package notify

import (
	"context"

	"fructus/internal/domain/event"
	"fructus/pkg/logger"
)

// LogNotifier writes every event to the structured log. Always wired;
// it is the delivery of last resort when Kafka is off.
type LogNotifier struct{}

// NewLogNotifier creates a log notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify implements event.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, e event.Event) error {
	logger.Info(ctx, "domain event",
		"event_id", e.ID,
		"event_type", string(e.Type),
		"account_id", e.AccountID,
	)
	return nil
}
