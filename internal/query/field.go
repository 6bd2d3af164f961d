package query

import (
	"strings"

	"oap/internal/provision"
)

// Field names a filterable record attribute.
type Field string

const (
	FieldRequestID  Field = "requestId"
	FieldExternalID Field = "externalId"
	FieldCreatedAt  Field = "createdAt"
	FieldController Field = "controller"
	FieldSUT        Field = "sut"
	FieldWWID       Field = "wwid"
	FieldIFWIStatus Field = "ifwiStatus"
	FieldBIOSStatus Field = "biosStatus"
	FieldOSStatus   Field = "osStatus"
	FieldE2EStatus  Field = "e2eStatus"
)

var fieldAliases = map[string]Field{
	"requestid":   FieldRequestID,
	"request_id":  FieldRequestID,
	"externalid":  FieldExternalID,
	"external_id": FieldExternalID,
	"createdat":   FieldCreatedAt,
	"created_at":  FieldCreatedAt,
	"create_at":   FieldCreatedAt,
	"controller":  FieldController,
	"sut":         FieldSUT,
	"wwid":        FieldWWID,
	"ifwistatus":  FieldIFWIStatus,
	"is_ifwi":     FieldIFWIStatus,
	"biosstatus":  FieldBIOSStatus,
	"is_bios":     FieldBIOSStatus,
	"osstatus":    FieldOSStatus,
	"is_os":       FieldOSStatus,
	"e2estatus":   FieldE2EStatus,
	"is_e2e":      FieldE2EStatus,
}

// ParseField resolves camelCase and legacy snake_case names.
func ParseField(name string) (Field, bool) {
	field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	return field, ok
}

// StatusField returns the field holding the status of stage.
func StatusField(stage provision.Stage) Field {
	switch stage {
	case provision.StageIFWI:
		return FieldIFWIStatus
	case provision.StageBIOS:
		return FieldBIOSStatus
	case provision.StageOS:
		return FieldOSStatus
	default:
		return FieldE2EStatus
	}
}

// Value returns the text form of field on rec, as a SQL backend would see it.
func Value(rec provision.Record, field Field) string {
	switch field {
	case FieldRequestID:
		return rec.RequestID
	case FieldExternalID:
		return rec.ExternalID
	case FieldCreatedAt:
		return provision.FormatTime(rec.CreatedAt)
	case FieldController:
		return rec.Controller
	case FieldSUT:
		return rec.SUT
	case FieldWWID:
		return rec.WWID
	case FieldIFWIStatus:
		return string(rec.IFWI.Status)
	case FieldBIOSStatus:
		return string(rec.BIOS.Status)
	case FieldOSStatus:
		return string(rec.OS.Status)
	case FieldE2EStatus:
		return string(rec.E2E.Status)
	}
	return ""
}
