// Package transition applies stage status changes to provisioning records.
//
// Each change is a single guarded write in the store: the new status lands
// only when the stage is not terminal and not already at that status. Guard
// misses, including a missing record or a lost race, are reported as
// not-applied outcomes rather than errors.
package transition

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"oap/internal/logging"
	"oap/internal/notifications"
	"oap/internal/provision"
	"oap/internal/store"
)

// Dispatcher hands payloads to the notification channel without blocking.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload notifications.Payload)
}

// Outcome reports whether a transition changed the record. Record is the
// state re-read after an applied write and zero otherwise; a concurrent
// writer may already have moved the stage again by then.
type Outcome struct {
	Applied bool
	ID      int64
	Stage   provision.Stage
	Status  provision.Status
	Record  provision.Record
}

// Manager applies stage transitions.
type Manager struct {
	records    store.Records
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewManager wires a manager. A nil dispatcher disables notifications.
func NewManager(records store.Records, dispatcher Dispatcher, logger *slog.Logger) *Manager {
	return &Manager{
		records:    records,
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "transition"),
	}
}

// ApplyTransition moves stage of record id to status. Stage and status are
// validated before the store is touched. An empty resultLink keeps the
// stored link.
func (m *Manager) ApplyTransition(ctx context.Context, id int64, stageName, statusName, resultLink string) (Outcome, error) {
	const op = "transition.apply"

	stage, ok := provision.ParseStage(stageName)
	if !ok {
		return Outcome{}, provision.Errorf(op, provision.KindInvalidStage, "%w: %q", provision.ErrInvalidStage, stageName)
	}
	status, ok := provision.ParseStatus(statusName)
	if !ok {
		return Outcome{}, provision.Errorf(op, provision.KindInvalidStatus, "%w: %q", provision.ErrInvalidStatus, statusName)
	}
	outcome := Outcome{ID: id, Stage: stage, Status: status}

	var link *string
	if trimmed := strings.TrimSpace(resultLink); trimmed != "" {
		link = &trimmed
	}

	ctx = logging.WithProvision(ctx, id, string(stage))
	logger := logging.WithContext(ctx, m.logger)

	applied, err := m.records.UpdateStage(ctx, id, stage, status, link)
	if err != nil {
		return Outcome{}, classify(ctx, op, err)
	}
	if !applied {
		logger.Debug("stage transition not applied",
			logging.String("requested_status", string(status)),
		)
		return outcome, nil
	}
	outcome.Applied = true

	// The re-read supplies contact fields only. Status and link come from
	// this write, so a later writer's status is never announced here.
	rec, err := m.records.GetRecord(ctx, id)
	if err != nil {
		// The write is committed; only the follow-up read failed.
		logging.WarnWithContext(logger, "re-read after stage update failed", "transition_reread_failed",
			logging.String(logging.FieldImpact, "requester not notified"),
			logging.Error(err),
		)
		return outcome, nil
	}
	outcome.Record = rec

	logger.Info("stage updated",
		logging.String("status", string(status)),
		logging.String("request_id", rec.RequestID),
	)

	if m.dispatcher != nil {
		m.dispatcher.Dispatch(ctx, payloadFor(rec, stage, status, link))
	}
	return outcome, nil
}

func payloadFor(rec provision.Record, stage provision.Stage, status provision.Status, link *string) notifications.Payload {
	resultLink := rec.Stage(stage).ResultLink
	if link != nil {
		resultLink = *link
	}
	return notifications.Payload{
		RequestID:            rec.RequestID,
		StageLabel:           stage.Label(),
		RecipientAddress:     rec.Email,
		RecipientDisplayName: rec.ExternalID,
		SUT:                  rec.SUT,
		NewStatus:            string(status),
		ResultLink:           resultLink,
	}
}

// classify marks a store failure as outcome-unknown when the caller's
// deadline or cancellation interrupted it: the write may have committed.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return provision.Wrap(op, provision.KindOutcomeUnknown, err)
	}
	return provision.Wrap(op, provision.KindStoreUnavailable, err)
}
