// Package feed is the row-level change feed for conversation messages.
// The service publishes an event after every committed message insert or
// read-state flip; chat screens subscribe to one conversation's subject
// and reconcile the events into their local transcript.
package feed

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Event is the wire envelope. Insert events carry only the message id;
// subscribers fetch the full row (with the sender projection) by id.
// Update events carry the new read flag, the single mutable field.
type Event struct {
	Op        Op     `msgpack:"o"`
	MessageID string `msgpack:"m"`
	IsRead    bool   `msgpack:"r"`
}

type Feed struct {
	conn *nats.Conn
}

func New(conn *nats.Conn) *Feed {
	return &Feed{conn: conn}
}

func subject(conversationID string) string {
	return "conversations." + conversationID + ".messages"
}

func (f *Feed) PublishInsert(conversationID, messageID string) error {
	return f.publish(conversationID, Event{
		Op:        OpInsert,
		MessageID: messageID,
	})
}

func (f *Feed) PublishRead(conversationID string, messageIDs []string) error {
	for _, messageID := range messageIDs {
		err := f.publish(conversationID, Event{
			Op:        OpUpdate,
			MessageID: messageID,
			IsRead:    true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) publish(conversationID string, ev Event) error {
	b, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("msgpack marshal feed event: %w", err)
	}

	if err := f.conn.Publish(subject(conversationID), b); err != nil {
		return fmt.Errorf("publish feed event: %w", err)
	}

	return nil
}

// Subscribe opens a change-feed subscription scoped to one conversation.
// Events arrive on Events() until Unsubscribe is called. Malformed or
// overflowing events are dropped; the feed is a hint stream, the store
// remains the source of truth.
func (f *Feed) Subscribe(conversationID string) (*Subscription, error) {
	ch := make(chan Event, 64)

	sub, err := f.conn.Subscribe(subject(conversationID), func(msg *nats.Msg) {
		var ev Event
		if err := msgpack.Unmarshal(msg.Data, &ev); err != nil {
			return
		}

		select {
		case ch <- ev:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to feed: %w", err)
	}

	return &Subscription{sub: sub, ch: ch}, nil
}

type Subscription struct {
	sub *nats.Subscription
	ch  chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Unsubscribe stops deliveries. The Events channel is left open so a
// late in-flight handler cannot panic on a closed channel; consumers
// stop reading on their own signal.
func (s *Subscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe from feed: %w", err)
	}
	return nil
}
