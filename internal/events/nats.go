package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Headers set on every bus message that concerns a single variable, so
// consumers can route or filter without decoding the payload.
const (
	HeaderVariableID = "Varhub-Variable-Id"
	HeaderIdentifier = "Varhub-Identifier"
)

// subscriptionBuffer is the channel capacity of one bus subscription.
const subscriptionBuffer = 64

var (
	_ Publisher  = (*NATSPublisher)(nil)
	_ Subscriber = (*NATSSubscriber)(nil)
)

// NATSPublisher puts variable events on NATS. The subject is the event
// topic and the body is the JSON payload.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("varhub-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := newBusMessage(topic, event)
	if err != nil {
		return err
	}
	return p.conn.PublishMsg(msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// newBusMessage encodes event for topic and tags it with the variable it
// concerns.
func newBusMessage(topic string, event any) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Data = data

	switch e := event.(type) {
	case VariableChanged:
		msg.Header.Set(HeaderVariableID, e.ID)
		msg.Header.Set(HeaderIdentifier, e.Identifier)
	case *VariableChanged:
		msg.Header.Set(HeaderVariableID, e.ID)
		msg.Header.Set(HeaderIdentifier, e.Identifier)
	case VariableDeleted:
		msg.Header.Set(HeaderVariableID, e.ID)
	case *VariableDeleted:
		msg.Header.Set(HeaderVariableID, e.ID)
	}
	return msg, nil
}

// NATSSubscriber reads variable events from NATS.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to NATS and keeps reconnecting forever. Extra
// options (disconnect and reconnect handlers) are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name("varhub-watch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers messages whose subject matches topic, which may use
// NATS wildcards such as TopicAll. A full channel drops messages.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	bridge := &subscription{ch: make(chan Message, subscriptionBuffer)}
	sub, err := s.conn.Subscribe(topic, bridge.deliver)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	bridge.sub = sub

	// Messages published on other connections are routed only once the
	// server has seen the subscription.
	if err := s.conn.Flush(); err != nil {
		bridge.cancel()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}
	return bridge.ch, bridge.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// subscription moves messages from a NATS callback onto a channel.
type subscription struct {
	sub  *nats.Subscription
	ch   chan Message
	once sync.Once

	mu     sync.Mutex
	closed bool
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Message{
		Topic:      msg.Subject,
		VariableID: msg.Header.Get(HeaderVariableID),
		Data:       msg.Data,
	}:
	default:
	}
}

// cancel unsubscribes, discards anything still buffered and closes the
// channel. It is safe to call more than once.
func (s *subscription) cancel() {
	s.once.Do(func() {
		_ = s.sub.Unsubscribe()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		for {
			select {
			case <-s.ch:
			default:
				close(s.ch)
				return
			}
		}
	})
}
