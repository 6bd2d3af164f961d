package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"oap/internal/provision"
	"oap/internal/query"
	"oap/internal/query/querysql"
)

var recordCompiler = querysql.Compiler{Table: recordsTable, Columns: recordColumns}

var insertRecordSQL = fmt.Sprintf(
	"INSERT INTO %s (%s) VALUES (%s)",
	recordsTable,
	strings.Join(recordColumns[1:], ", "),
	placeholders(len(recordColumns)-1),
)

// CreateRecords inserts records atomically.
func (s *Store) CreateRecords(ctx context.Context, records []provision.Record) ([]provision.Record, error) {
	created := make([]provision.Record, 0, len(records))
	err := s.tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		created = created[:0]
		for _, rec := range records {
			res, err := tx.ExecContext(ctx, insertRecordSQL, recordArgs(rec)...)
			if err != nil {
				return fmt.Errorf("insert record %q: %w", rec.RequestID, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("read record id: %w", err)
			}
			rec.ID = id
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func recordArgs(rec provision.Record) []any {
	return []any{
		rec.RequestID,
		rec.ExternalID,
		rec.WWID,
		rec.UserID,
		rec.Email,
		rec.Controller,
		rec.SUT,
		rec.Location,
		rec.Kit,
		rec.IFWIBinary,
		rec.BIOSFile,
		rec.WIMName,
		rec.WiFiName,
		rec.WiFiPassword,
		rec.SharePath,
		rec.ShareUser,
		rec.SharePassword,
		string(rec.IFWI.Status), nullableString(rec.IFWI.ResultLink),
		string(rec.BIOS.Status), nullableString(rec.BIOS.ResultLink),
		string(rec.OS.Status), nullableString(rec.OS.ResultLink),
		string(rec.E2E.Status), nullableString(rec.E2E.ResultLink),
		provision.FormatTime(rec.CreatedAt),
	}
}

// GetRecord fetches a single record by id.
func (s *Store) GetRecord(ctx context.Context, id int64) (provision.Record, error) {
	ctx = ensureContext(ctx)
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE provision_id = ?", strings.Join(recordColumns, ", "), recordsTable)
	var rec provision.Record
	err := s.retry(ctx, func() error {
		var scanErr error
		rec, scanErr = scanRecord(s.db.QueryRowContext(ctx, stmt, id))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return provision.Record{}, fmt.Errorf("record %d: %w", id, provision.ErrNotFound)
	}
	if err != nil {
		return provision.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// UpdateStage applies the guarded stage write as a single conditional UPDATE.
func (s *Store) UpdateStage(ctx context.Context, id int64, stage provision.Stage, status provision.Status, link *string) (bool, error) {
	statusCol := statusColumn(stage)
	linkCol := linkColumn(stage)
	terminals := stage.TerminalStatuses()

	stmt := fmt.Sprintf(
		"UPDATE %s SET %s = ?, %s = COALESCE(?, %s) WHERE provision_id = ? AND %s NOT IN (%s) AND %s <> ?",
		recordsTable, statusCol, linkCol, linkCol, statusCol, placeholders(len(terminals)), statusCol,
	)
	var linkArg any
	if link != nil {
		linkArg = *link
	}
	args := []any{string(status), linkArg, id}
	for _, terminal := range terminals {
		args = append(args, string(terminal))
	}
	args = append(args, string(status))

	res, err := s.exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("update %s stage of record %d: %w", stage, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// FindRecords runs a compiled spec.
func (s *Store) FindRecords(ctx context.Context, spec query.Spec) ([]provision.Record, error) {
	ctx = ensureContext(ctx)
	stmt, args, err := recordCompiler.Select(spec)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	var records []provision.Record
	err = s.retry(ctx, func() error {
		rows, queryErr := s.db.QueryContext(ctx, stmt, args...)
		if queryErr != nil {
			return queryErr
		}
		records, queryErr = scanRecords(rows)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	return records, nil
}

// CountRecords counts the rows matching filter.
func (s *Store) CountRecords(ctx context.Context, filter query.Predicate) (int, error) {
	ctx = ensureContext(ctx)
	stmt, args, err := recordCompiler.Count(filter)
	if err != nil {
		return 0, fmt.Errorf("compile count: %w", err)
	}
	var count int
	err = s.retry(ctx, func() error {
		return s.db.QueryRowContext(ctx, stmt, args...).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// ListRecordsWithUsers joins records with users sharing their WWID.
func (s *Store) ListRecordsWithUsers(ctx context.Context) ([]provision.RecordWithUser, error) {
	ctx = ensureContext(ctx)
	stmt := fmt.Sprintf(
		"SELECT %s, %s FROM %s r JOIN users u ON u.wwid = r.wwid ORDER BY r.provision_id ASC",
		prefixed("r", recordColumns), prefixed("u", userColumns), recordsTable,
	)
	var out []provision.RecordWithUser
	err := s.retry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = []provision.RecordWithUser{}
		for rows.Next() {
			var item provision.RecordWithUser
			dest, finish := recordDest(&item.Record)
			dest = append(dest, userDest(&item.User)...)
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("scan joined record: %w", err)
			}
			if err := finish(); err != nil {
				return err
			}
			out = append(out, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list records with users: %w", err)
	}
	return out, nil
}
