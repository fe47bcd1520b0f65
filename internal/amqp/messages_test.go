package amqp

import (
	"testing"
	"time"

	"tracker/internal/core"
)

func TestNewTransactionEvent(t *testing.T) {
	tx := core.Transaction{ID: "abc", Date: core.NewDate(2024, 3, 15), Amount: 30, Category: "Food", Note: "dinner"}

	created := NewTransactionEvent(EventCreated, tx)
	if created.ID != "abc" || created.Transaction == nil || created.Transaction.Amount != 30 {
		t.Fatalf("created event = %+v", created)
	}
	if time.Since(created.Timestamp) > time.Minute {
		t.Fatalf("timestamp not recent: %v", created.Timestamp)
	}

	deleted := NewTransactionEvent(EventDeleted, tx)
	if deleted.Transaction != nil || deleted.ID != "abc" {
		t.Fatalf("deleted event should carry only the id: %+v", deleted)
	}
}

func TestTransactionEventJSON(t *testing.T) {
	tx := core.Transaction{ID: "abc", Date: core.NewDate(2024, 3, 15), Amount: 30, Category: "Food"}
	body, err := NewTransactionEvent(EventUpdated, tx).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("TransactionEventFromJSON() error = %v", err)
	}
	if got.Type != EventUpdated || !got.Transaction.Date.Equal(tx.Date) || got.Transaction.Category != "Food" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestTransactionEventFromJSONRejectsIncomplete(t *testing.T) {
	for _, body := range []string{
		`{"type":"transaction.created"}`,
		`{"type":"transaction.deleted"}`,
		`{"type":"transaction.created","transaction":{"id":"x","date":"2024-02-30","amount":1,"category":"c"}}`,
	} {
		if _, err := TransactionEventFromJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
	if _, err := TransactionEventFromJSON([]byte(`{"type":"ledger.imported","count":4}`)); err != nil {
		t.Errorf("bulk event rejected: %v", err)
	}
}
