package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tracker/internal/core"
)

// EventType names a change to the transaction ledger.
type EventType string

const (
	EventCreated  EventType = "transaction.created"
	EventUpdated  EventType = "transaction.updated"
	EventDeleted  EventType = "transaction.deleted"
	EventCleared  EventType = "ledger.cleared"
	EventImported EventType = "ledger.imported"
)

// TransactionEvent is published after every ledger mutation. Transaction is
// set for created and updated events; deleted events carry only the ID.
type TransactionEvent struct {
	Type        EventType         `json:"type"`
	ID          string            `json:"id,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Count       int               `json:"count,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, t core.Transaction) *TransactionEvent {
	e := &TransactionEvent{Type: typ, ID: t.ID, Timestamp: time.Now().UTC()}
	if typ != EventDeleted {
		e.Transaction = &t
	}
	return e
}

// NewBulkEvent describes a clear or import affecting count transactions.
func NewBulkEvent(typ EventType, count int) *TransactionEvent {
	return &TransactionEvent{Type: typ, Count: count, Timestamp: time.Now().UTC()}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventCreated, EventUpdated:
		if e.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction", e.Type)
		}
	case EventDeleted:
		if e.ID == "" {
			return nil, fmt.Errorf("%s event without id", e.Type)
		}
	case EventCleared, EventImported:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
