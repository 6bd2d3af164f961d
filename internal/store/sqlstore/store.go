// Package sqlstore implements the record store over database/sql. The
// sqlite and mysql packages open a connection, apply their schema, and wrap
// it with New using a Dialect describing their differences.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect captures the statements and behaviours that differ per engine.
type Dialect struct {
	Name string
	// UpsertUser inserts or replaces a users row. Arguments follow
	// userColumns order.
	UpsertUser string
	// Retry wraps each unit of work, e.g. to ride out SQLITE_BUSY. Nil runs
	// the work once.
	Retry func(ctx context.Context, op func() error) error
}

// Store is a database/sql backed record store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an initialized database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the handle for backend specific maintenance.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the engine name.
func (s *Store) Dialect() string {
	return s.dialect.Name
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ensureContext(ctx))
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func (s *Store) retry(ctx context.Context, op func() error) error {
	if s.dialect.Retry == nil {
		return op()
	}
	return s.dialect.Retry(ctx, op)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := s.retry(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// txFunc runs inside a transaction opened by tx.
type txFunc func(ctx context.Context, tx *sql.Tx) error

// tx runs fn in a transaction, rolling back when fn fails and retrying the
// whole unit under the dialect's retry policy.
func (s *Store) tx(ctx context.Context, fn txFunc) error {
	ctx = ensureContext(ctx)
	return s.retry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("tx begin: %w", err)
		}
		if err := fn(ctx, tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				return fmt.Errorf("tx rollback: %w; while trying to handle error: %v", rbErr, err)
			}
			return fmt.Errorf("tx rolled back: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx commit: %w", err)
		}
		return nil
	})
}
