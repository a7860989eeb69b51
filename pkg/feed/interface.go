package feed

import (
	"context"
	"encoding/json"
	"time"
)

// Op identifies the row operation an event describes. The chat session only
// consumes inserts; other operations are carried for completeness.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Event is a row-level change notification. Row carries the new row's column
// values as delivered by the store; consumers that need joined data re-fetch
// the row by id.
type Event struct {
	Table     string          `json:"table"`
	Op        string          `json:"op"`
	Row       json.RawMessage `json:"row"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(table, op string, row interface{}) (*Event, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return &Event{
		Table:     table,
		Op:        op,
		Row:       data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// UnmarshalRow unmarshals the event row into the given struct.
func (e *Event) UnmarshalRow(v interface{}) error {
	return json.Unmarshal(e.Row, v)
}

// Publisher publishes change events to the feed.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscription is one consumer's handle on a feed channel. Several
// subscriptions may watch the same channel; closing one detaches only that
// consumer and its Events channel. Close is idempotent.
type Subscription interface {
	Events() <-chan *Event
	Close() error
}

// Subscriber consumes change events from the feed.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Feed combines Publisher and Subscriber.
type Feed interface {
	Publisher
	Subscriber
	Close() error
}
