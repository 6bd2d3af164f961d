package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oap/internal/provision"
)

// InsertBatch creates a master sequence row and returns the id assigned by
// the insert. The id is never derived from a separate read.
func (s *Store) InsertBatch(ctx context.Context, userID string, createdAt time.Time) (provision.Batch, error) {
	batch := provision.Batch{UserID: userID, CreatedAt: createdAt.UTC().Truncate(time.Second)}
	err := s.tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO provision_batches (user_id, created_at) VALUES (?, ?)",
			userID, provision.FormatTime(batch.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read batch id: %w", err)
		}
		batch.GlobalID = id
		return nil
	})
	if err != nil {
		return provision.Batch{}, err
	}
	return batch, nil
}

// LatestBatch returns the most recently issued batch.
func (s *Store) LatestBatch(ctx context.Context) (provision.Batch, bool, error) {
	ctx = ensureContext(ctx)
	var (
		batch     provision.Batch
		createdAt string
	)
	err := s.retry(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT global_id, user_id, created_at FROM provision_batches ORDER BY global_id DESC LIMIT 1",
		).Scan(&batch.GlobalID, &batch.UserID, &createdAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return provision.Batch{}, false, nil
	}
	if err != nil {
		return provision.Batch{}, false, fmt.Errorf("latest batch: %w", err)
	}
	batch.CreatedAt, _ = provision.ParseTime(createdAt)
	return batch, true, nil
}
