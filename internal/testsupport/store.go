package testsupport

import (
	"context"
	"testing"
	"time"

	"oap/internal/config"
	"oap/internal/provision"
	"oap/internal/store"
	"oap/internal/store/backend"
)

// MustOpenStore opens the configured backend for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) store.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := backend.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("backend.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// NewRecord stores one record with every stage Not Started.
func NewRecord(t testing.TB, st store.Records, rec provision.Record) provision.Record {
	t.Helper()

	rec.ApplyDefaults(time.Now())
	created, err := st.CreateRecords(context.Background(), []provision.Record{rec})
	if err != nil {
		t.Fatalf("CreateRecords: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one created record, got %d", len(created))
	}
	return created[0]
}
