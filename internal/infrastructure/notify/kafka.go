package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"fructus/internal/domain/event"
	"fructus/pkg/logger"
)

const producerName = "fructus-core"

// KafkaNotifier publishes event envelopes to a topic keyed by account
// id, so all events of one account stay ordered on a partition.
//
// The inbox channel is never closed: producers may race with shutdown,
// and a send on a closed channel panics. Shutdown instead flips closed
// under mu, after which Notify refuses new messages and the writer
// loop drains what is already queued.
type KafkaNotifier struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewKafkaNotifier creates the notifier. buf bounds the in-memory
// queue between commit and broker write.
func NewKafkaNotifier(brokers []string, topic string, buf int) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled, then flushes
// whatever is still queued.
func (n *KafkaNotifier) Start(ctx context.Context) {
	go func() {
		defer close(n.closeCh)
		for {
			select {
			case <-ctx.Done():
				// Stop intake first; everything enqueued before the
				// flag flipped is still in the channel and gets flushed.
				n.mu.Lock()
				n.closed = true
				n.mu.Unlock()
				for {
					select {
					case m := <-n.inbox:
						n.write(m)
					default:
						_ = n.w.Close()
						return
					}
				}
			case m := <-n.inbox:
				n.write(m)
			}
		}
	}()
}

func (n *KafkaNotifier) write(m kafka.Message) {
	if err := n.w.WriteMessages(context.Background(), m); err != nil {
		logger.Error(context.Background(), "kafka write failed", "error", err, "key", string(m.Key))
	}
}

// Notify implements event.Notifier. It enqueues and returns; a full
// queue drops the message rather than stalling the request path.
func (n *KafkaNotifier) Notify(ctx context.Context, e event.Event) error {
	env, err := event.Wrap(e, producerName)
	if err != nil {
		return fmt.Errorf("wrap event: %w", err)
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.AccountID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	// The closed check and the enqueue stay under one lock so no send
	// can slip in after the writer loop finished draining.
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("notifier is shut down, dropped %s", env.EventType)
	}
	select {
	case n.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("notifier queue full, dropped %s", env.EventType)
	}
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (n *KafkaNotifier) WaitClosed() { <-n.closeCh }
