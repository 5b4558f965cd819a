// Package broadcast fans variable change notifications out to connected
// real-time subscribers and to the event bus.
package broadcast

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/varhub/internal/events"
	"github.com/alfredjeanlab/varhub/internal/idgen"
)

// subscriberBuffer is the per-subscriber channel capacity. Events beyond it
// are dropped for that subscriber only.
const subscriberBuffer = 64

// Transport names for SubscriberInfo.
const (
	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

// Event is a single notification as delivered to subscribers.
type Event struct {
	Topic string
	Data  []byte // JSON-encoded payload
}

// Frame returns the envelope written to real-time clients.
func (e *Event) Frame() events.Frame {
	return events.Frame{
		Type:  events.MessageName(e.Topic),
		Topic: e.Topic,
		Data:  e.Data,
	}
}

// Subscriber is one connected real-time consumer.
type Subscriber struct {
	id          string
	transport   string
	remoteAddr  string
	connectedAt time.Time
	ch          chan *Event

	delivered atomic.Int64
	dropped   atomic.Int64
}

// ID returns the subscriber id.
func (s *Subscriber) ID() string { return s.id }

// Events returns the channel events are delivered on. It is never closed;
// callers stop reading after Unsubscribe.
func (s *Subscriber) Events() <-chan *Event { return s.ch }

// SubscriberInfo is a point-in-time view of a subscriber.
type SubscriberInfo struct {
	ID          string    `json:"id"`
	Transport   string    `json:"transport"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	Delivered   int64     `json:"delivered"`
	Dropped     int64     `json:"dropped"`
}

// Hub holds the set of connected subscribers. Connections register and
// unregister themselves; the hub only delivers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
	now  func() time.Time
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscriber]struct{}),
		now:  time.Now,
	}
}

// Subscribe registers a new subscriber. Call Unsubscribe when the connection ends.
func (h *Hub) Subscribe(transport, remoteAddr string) *Subscriber {
	s := &Subscriber{
		id:          idgen.MustGenerate(idgen.SubscriberPrefix),
		transport:   transport,
		remoteAddr:  remoteAddr,
		connectedAt: h.now().UTC(),
		ch:          make(chan *Event, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber. Unsubscribing twice is harmless.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Publish delivers evt to every subscriber without blocking.
func (h *Hub) Publish(evt *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- evt:
			s.delivered.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscribers returns a snapshot ordered by connection time.
func (h *Hub) Subscribers() []SubscriberInfo {
	h.mu.RLock()
	out := make([]SubscriberInfo, 0, len(h.subs))
	for s := range h.subs {
		out = append(out, SubscriberInfo{
			ID:          s.id,
			Transport:   s.transport,
			RemoteAddr:  s.remoteAddr,
			ConnectedAt: s.connectedAt,
			Delivered:   s.delivered.Load(),
			Dropped:     s.dropped.Load(),
		})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
