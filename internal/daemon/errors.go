package daemon

import (
	"net/http"

	"oap/internal/provision"
)

const messageOutcomeUnknown = "transition outcome unknown"

// statusForError maps an operation error onto an HTTP status and the message
// returned to the client.
func statusForError(err error) (int, string) {
	switch provision.KindOf(err) {
	case provision.KindInvalidStage, provision.KindInvalidStatus, provision.KindInvalidInput:
		return http.StatusBadRequest, err.Error()
	case provision.KindNotFound:
		return http.StatusNotFound, "record not found"
	case provision.KindOutcomeUnknown:
		return http.StatusGatewayTimeout, messageOutcomeUnknown
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
