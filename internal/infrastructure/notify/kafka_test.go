package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fructus/internal/core/id"
	"fructus/internal/domain/event"
)

func TestKafkaNotifier_ShutdownRefusesNewMessages(t *testing.T) {
	n := NewKafkaNotifier([]string{"localhost:9092"}, "events", 4)

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	cancel()
	n.WaitClosed()

	// A notify racing past shutdown must be refused with an error, not
	// crash the producer.
	err := n.Notify(context.Background(), event.New(event.TypeSaleRecorded, id.New(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shut down")
}

func TestKafkaNotifier_QueueFullDrops(t *testing.T) {
	// No writer loop running, so the second message finds the queue full.
	n := NewKafkaNotifier([]string{"localhost:9092"}, "events", 1)

	e := event.New(event.TypeSaleRecorded, id.New(), nil)
	require.NoError(t, n.Notify(context.Background(), e))

	err := n.Notify(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}
