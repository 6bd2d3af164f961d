package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// layoutVersion is stored in PRAGMA user_version. Bump it when schema.sql
// changes shape.
const layoutVersion = 1

// ErrSchemaMismatch means the file was written by a different layout version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// migrate creates the tables on a fresh file and refuses files stamped with
// another layout version. A fresh file reports user_version 0.
func migrate(ctx context.Context, db *sql.DB) error {
	var stamped int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stamped); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	switch stamped {
	case layoutVersion:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w: file is at %d, binary expects %d", ErrSchemaMismatch, stamped, layoutVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", layoutVersion)); err != nil {
		return fmt.Errorf("stamp user_version: %w", err)
	}
	return tx.Commit()
}
