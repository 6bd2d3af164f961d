package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"oap/internal/identity"
	"oap/internal/logging"
	"oap/internal/provision"
	"oap/internal/store"
)

// Service creates records from entries.
type Service struct {
	records  store.Records
	resolver *identity.Resolver
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires intake. A nil resolver skips contact lookup.
func NewService(records store.Records, resolver *identity.Resolver, logger *slog.Logger) *Service {
	return &Service{
		records:  records,
		resolver: resolver,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "intake"),
	}
}

// Create validates entries, fills contact details from the users table, and
// stores every record in one transaction. All stages start Not Started.
func (s *Service) Create(ctx context.Context, entries []Entry) ([]provision.Record, error) {
	const op = "intake.create"
	if len(entries) == 0 {
		return nil, provision.Errorf(op, provision.KindInvalidInput, "%w: batch is empty", provision.ErrInvalidInput)
	}
	logger := logging.WithContext(ctx, s.logger)
	now := s.now()
	records := make([]provision.Record, 0, len(entries))
	for idx, entry := range entries {
		rec := entry.Record()
		if rec.RequestID == "" {
			return nil, provision.Errorf(op, provision.KindInvalidInput, "%w: entry %d has no requestId", provision.ErrInvalidInput, idx)
		}
		if name := entry.headerField(); name != "" {
			return nil, provision.Errorf(op, provision.KindInvalidInput, "%w: entry %d has a control character in %s", provision.ErrInvalidInput, idx, name)
		}
		if err := s.fillContact(ctx, &rec); err != nil {
			if provision.KindOf(err) != provision.KindNotFound {
				return nil, err
			}
			logging.WarnWithContext(logger, "requester not found in users table", "intake_unknown_user",
				logging.String("user_id", rec.UserID),
				logging.String("request_id", rec.RequestID),
				logging.String(logging.FieldImpact, "record will not receive stage notifications"),
				logging.String(logging.FieldErrorHint, "add the user with `oap user add`"),
			)
		}
		rec.ApplyDefaults(now)
		records = append(records, rec)
	}

	created, err := s.records.CreateRecords(ctx, records)
	if err != nil {
		return nil, provision.Wrap(op, provision.KindStoreUnavailable, fmt.Errorf("create records: %w", err))
	}
	logger.Info("batch accepted", logging.Int("records", len(created)))
	return created, nil
}

func (s *Service) fillContact(ctx context.Context, rec *provision.Record) error {
	if s.resolver == nil || rec.UserID == "" {
		return nil
	}
	if rec.Email != "" && rec.ExternalID != "" && rec.WWID != "" {
		return nil
	}
	contact, err := s.resolver.Resolve(ctx, rec.UserID)
	if err != nil {
		return err
	}
	if rec.Email == "" {
		rec.Email = contact.Email
	}
	if rec.ExternalID == "" {
		rec.ExternalID = contact.DisplayName
	}
	if rec.WWID == "" {
		rec.WWID = contact.WWID
	}
	return nil
}
