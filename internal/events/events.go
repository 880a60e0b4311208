// Package events publishes record-change notifications for the wellness screens.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTopic receives every RecordChanged event.
const DefaultTopic = "wellness_record_events"

// Header keys carried by every Kafka message.
const (
	HeaderEventType = "event_type"
	HeaderUserID    = "user_id"
	HeaderDomain    = "domain"
)

// Action describes what happened to a record list.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionReset   Action = "reset"
)

// EventType is the value of the event_type header.
func (a Action) EventType() string {
	return "wellness.record." + string(a)
}

// RecordChanged is emitted after a record list write settles successfully.
type RecordChanged struct {
	EventID    string          `json:"event_id"`
	Domain     string          `json:"domain"`
	UserID     string          `json:"user_id"`
	Action     Action          `json:"action"`
	RecordID   int64           `json:"record_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Record     json.RawMessage `json:"record,omitempty"`
}

// NewRecordChanged builds an event with a fresh id. record may be nil.
func NewRecordChanged(domain, userID string, action Action, recordID int64, record any, now time.Time) (RecordChanged, error) {
	evt := RecordChanged{
		EventID:    uuid.NewString(),
		Domain:     domain,
		UserID:     userID,
		Action:     action,
		RecordID:   recordID,
		OccurredAt: now.UTC(),
	}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return RecordChanged{}, fmt.Errorf("encode record: %w", err)
		}
		evt.Record = raw
	}
	return evt, nil
}

// Publisher delivers record-change events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt RecordChanged) error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, RecordChanged) error { return nil }
