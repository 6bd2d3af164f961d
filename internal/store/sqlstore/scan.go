package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"oap/internal/provision"
)

const recordsTable = "provision_records"

// recordColumns is the select list for provision_records, in scan order.
var recordColumns = []string{
	"provision_id",
	"request_id",
	"external_id",
	"wwid",
	"user_id",
	"email",
	"controller",
	"sut",
	"location_type",
	"kit",
	"ifwi_bin",
	"bios_file",
	"wim_name",
	"wifi_name",
	"wifi_password",
	"share_path",
	"share_uid",
	"share_pwd",
	"ifwi_status",
	"ifwi_result_link",
	"bios_status",
	"bios_result_link",
	"os_status",
	"os_result_link",
	"e2e_status",
	"e2e_result_link",
	"created_at",
}

var userColumns = []string{
	"user_id",
	"wwid",
	"email",
	"user_name",
	"first_name",
	"last_name",
	"user_group",
}

func prefixed(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = alias + "." + col
	}
	return strings.Join(out, ", ")
}

func statusColumn(stage provision.Stage) string {
	return string(stage) + "_status"
}

func linkColumn(stage provision.Stage) string {
	return string(stage) + "_result_link"
}

type scanner interface {
	Scan(dest ...any) error
}

// recordDest returns scan targets for recordColumns plus a finisher that
// copies nullable values onto rec.
func recordDest(rec *provision.Record) ([]any, func() error) {
	var (
		ifwiStatus, biosStatus, osStatus, e2eStatus string
		ifwiLink, biosLink, osLink, e2eLink         sql.NullString
		createdAt                                   string
	)
	dest := []any{
		&rec.ID,
		&rec.RequestID,
		&rec.ExternalID,
		&rec.WWID,
		&rec.UserID,
		&rec.Email,
		&rec.Controller,
		&rec.SUT,
		&rec.Location,
		&rec.Kit,
		&rec.IFWIBinary,
		&rec.BIOSFile,
		&rec.WIMName,
		&rec.WiFiName,
		&rec.WiFiPassword,
		&rec.SharePath,
		&rec.ShareUser,
		&rec.SharePassword,
		&ifwiStatus, &ifwiLink,
		&biosStatus, &biosLink,
		&osStatus, &osLink,
		&e2eStatus, &e2eLink,
		&createdAt,
	}
	finish := func() error {
		rec.IFWI = provision.StageState{Status: provision.Status(ifwiStatus), ResultLink: ifwiLink.String}
		rec.BIOS = provision.StageState{Status: provision.Status(biosStatus), ResultLink: biosLink.String}
		rec.OS = provision.StageState{Status: provision.Status(osStatus), ResultLink: osLink.String}
		rec.E2E = provision.StageState{Status: provision.Status(e2eStatus), ResultLink: e2eLink.String}
		if createdAt != "" {
			t, ok := provision.ParseTime(createdAt)
			if !ok {
				return fmt.Errorf("parse created_at %q", createdAt)
			}
			rec.CreatedAt = t
		}
		return nil
	}
	return dest, finish
}

func scanRecord(row scanner) (provision.Record, error) {
	var rec provision.Record
	dest, finish := recordDest(&rec)
	if err := row.Scan(dest...); err != nil {
		return provision.Record{}, err
	}
	if err := finish(); err != nil {
		return provision.Record{}, err
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]provision.Record, error) {
	defer rows.Close()
	records := []provision.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func userDest(u *provision.User) []any {
	return []any{&u.UserID, &u.WWID, &u.Email, &u.UserName, &u.FirstName, &u.LastName, &u.UserGroup}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
