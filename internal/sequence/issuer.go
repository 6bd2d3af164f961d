// Package sequence issues master sequence numbers. Each issue inserts a batch
// row and returns the id the store assigned to that row, so concurrent
// callers always receive distinct, increasing numbers.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oap/internal/logging"
	"oap/internal/provision"
	"oap/internal/store"
)

// ErrInvalidUser rejects an issue request without a user id.
var ErrInvalidUser = errors.New("user id is required")

// Issuer hands out global batch ids.
type Issuer struct {
	batches store.Batches
	now     func() time.Time
	logger  *slog.Logger
}

// NewIssuer wires an issuer over the batch store.
func NewIssuer(batches store.Batches, logger *slog.Logger) *Issuer {
	return &Issuer{
		batches: batches,
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "sequence"),
	}
}

// IssueNext records a new batch for userID and returns it.
func (i *Issuer) IssueNext(ctx context.Context, userID string) (provision.Batch, error) {
	const op = "sequence.issue"
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return provision.Batch{}, provision.Wrap(op, provision.KindInvalidInput, fmt.Errorf("%w: %w", ErrInvalidUser, provision.ErrInvalidInput))
	}
	batch, err := i.batches.InsertBatch(ctx, userID, i.now())
	if err != nil {
		return provision.Batch{}, provision.Wrap(op, provision.KindStoreUnavailable, err)
	}
	logging.WithContext(ctx, i.logger).Info("master sequence issued",
		logging.Int64("global_id", batch.GlobalID),
		logging.String("user_id", userID),
	)
	return batch, nil
}

// Latest returns the batch with the greatest id, if any.
func (i *Issuer) Latest(ctx context.Context) (provision.Batch, bool, error) {
	batch, ok, err := i.batches.LatestBatch(ctx)
	if err != nil {
		return provision.Batch{}, false, provision.Wrap("sequence.latest", provision.KindStoreUnavailable, err)
	}
	return batch, ok, nil
}
