package mysql

import (
	"context"
	"os"
	"testing"

	"oap/internal/store"
	"oap/internal/store/storetest"
)

func TestMySQLStore(t *testing.T) {
	testDSN := os.Getenv("OAP_MYSQL_TEST_DSN")
	if testDSN == "" {
		t.Skip("OAP_MYSQL_TEST_DSN not set")
	}

	s, err := New(context.Background(), WithDSN(testDSN))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	storetest.TestStore(t, func(*testing.T) store.Store { return s })
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("expected error without dsn")
	}
}
