// Package sqlite opens the embedded SQLite record store.
//
// The database runs in WAL mode behind a single pooled connection, so the
// conditional stage UPDATE and batch inserts serialize on the connection
// while SQLITE_BUSY from other processes is absorbed by a short retry loop.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"oap/internal/store/sqlstore"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var dialect = sqlstore.Dialect{
	Name: "sqlite",
	UpsertUser: "INSERT INTO users (user_id, wwid, email, user_name, first_name, last_name, user_group) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT(user_id) DO UPDATE SET wwid = excluded.wwid, email = excluded.email, " +
		"user_name = excluded.user_name, first_name = excluded.first_name, " +
		"last_name = excluded.last_name, user_group = excluded.user_group",
	Retry: retryOnBusy,
}

// connPragmas are applied by the driver on every new connection.
var connPragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open creates or connects to the database at path.
func Open(path string) (*sqlstore.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlstore.New(db, dialect), nil
}

// isSQLiteBusy matches the driver's extended result code first and falls back
// to the message text for wrapped errors.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqliteBusyCode
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs op until it succeeds, fails with a non-busy error, or
// exhausts busyRetryAttempts. Backoff doubles up to busyRetryMaxBackoff.
func retryOnBusy(ctx context.Context, op func() error) error {
	err := op()
	backoff := busyRetryInitialBackoff
	for attempt := 1; attempt < busyRetryAttempts && isSQLiteBusy(err); attempt++ {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, busyRetryMaxBackoff)
		err = op()
	}
	return err
}
