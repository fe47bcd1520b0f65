package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"tracker/internal/config"
	"tracker/internal/core"
	"tracker/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	got, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPURL: "amqp://h", AMQPExchange: "e", AMQPQueue: "q"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "x.db" || got.AMQPQueue != "q" {
		t.Fatalf("FromAppConfig() = %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "postgres"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://h", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("Food\n# comment\nRent\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewFactory(testLogger()).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if res.Publisher != nil || res.Ready != nil {
		t.Fatalf("memory backend should have no publisher or probe: %+v", res)
	}
	cats, err := res.Store.ListCategories(context.Background())
	if err != nil || len(cats) != 2 || cats[1] != "Rent" {
		t.Fatalf("ListCategories() = %v, %v", cats, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	res, err := NewFactory(testLogger()).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if err := res.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	tx, err := core.NewTransaction(core.NewDate(2024, 3, 1), 5, "Food", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Store.AddTransactions(context.Background(), tx); err != nil {
		t.Fatalf("AddTransactions() error = %v", err)
	}
	got, err := res.Store.GetTransaction(context.Background(), tx.ID)
	if err != nil || got.Amount != 5 {
		t.Fatalf("GetTransaction() = %+v, %v", got, err)
	}
}

func TestUnreachableBrokerIsNotFatal(t *testing.T) {
	res, err := NewFactory(testLogger()).CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://127.0.0.1:1/", AMQPExchange: "e", AMQPQueue: "q",
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if res.Publisher != nil {
		t.Fatal("publisher should be nil when the broker is unreachable")
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
}
