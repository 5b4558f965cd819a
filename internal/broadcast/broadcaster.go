package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/varhub/internal/events"
)

// DefaultQueueSize is the outbound queue capacity used when none is given.
const DefaultQueueSize = 256

// publishTimeout bounds a single event bus publish from the dispatcher.
const publishTimeout = 5 * time.Second

// Notifier announces variable changes. Announcements never block and never
// report failure to the caller.
type Notifier interface {
	AnnounceChange(id, identifier string, oldValue *string, newValue string)
	AnnounceDeletion(id string)
}

type envelope struct {
	topic string
	event any
}

// Broadcaster queues announcements and delivers them, in order, to the hub
// and the event publisher from a single dispatcher goroutine.
type Broadcaster struct {
	hub       *Hub
	publisher events.Publisher
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan envelope
	done   chan struct{}
}

var _ Notifier = (*Broadcaster)(nil)

// New starts a broadcaster. A nil publisher is treated as a no-op and a
// non-positive queueSize selects DefaultQueueSize.
func New(hub *Hub, publisher events.Publisher, logger *slog.Logger, queueSize int) *Broadcaster {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	b := &Broadcaster{
		hub:       hub,
		publisher: publisher,
		logger:    logger,
		queue:     make(chan envelope, queueSize),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

// AnnounceChange queues a change notification. oldValue is nil for a create.
func (b *Broadcaster) AnnounceChange(id, identifier string, oldValue *string, newValue string) {
	b.enqueue(events.TopicVariableChanged, events.VariableChanged{
		ID:         id,
		Identifier: identifier,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}

// AnnounceDeletion queues a deletion notification.
func (b *Broadcaster) AnnounceDeletion(id string) {
	b.enqueue(events.TopicVariableDeleted, events.VariableDeleted{ID: id})
}

func (b *Broadcaster) enqueue(topic string, event any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("broadcaster closed, dropping event", "topic", topic)
		return
	}
	select {
	case b.queue <- envelope{topic: topic, event: event}:
	default:
		b.logger.Warn("broadcast queue full, dropping event", "topic", topic, "capacity", cap(b.queue))
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for env := range b.queue {
		b.dispatch(env)
	}
}

func (b *Broadcaster) dispatch(env envelope) {
	payload, err := json.Marshal(env.event)
	if err != nil {
		b.logger.Warn("failed to marshal event", "topic", env.topic, "error", err)
		return
	}
	if b.hub != nil {
		b.hub.Publish(&Event{Topic: env.topic, Data: payload})
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.publisher.Publish(ctx, env.topic, env.event); err != nil {
		b.logger.Warn("failed to publish event", "topic", env.topic, "error", err)
	}
}

// Close stops accepting announcements and waits until queued events have
// been delivered or ctx is done. Closing twice is harmless. The publisher is
// not closed.
func (b *Broadcaster) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
