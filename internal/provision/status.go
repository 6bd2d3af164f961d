package provision

import "strings"

// Status is the state of a single provisioning stage.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusBlocked    Status = "Blocked"
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
)

var allStatuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusBlocked,
	StatusPass,
	StatusFail,
}

// statusAliases maps normalized spellings (lowercase, separators removed) to
// the canonical stored value.
var statusAliases = func() map[string]Status {
	aliases := make(map[string]Status, len(allStatuses))
	for _, status := range allStatuses {
		aliases[foldStatus(string(status))] = status
	}
	aliases["passed"] = StatusPass
	aliases["failed"] = StatusFail
	aliases["running"] = StatusInProgress
	return aliases
}()

func foldStatus(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(value)
}

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts user input into a known Status. Matching ignores case
// and word separators, so "in_progress", "InProgress", and "In Progress" are
// equivalent.
func ParseStatus(value string) (Status, bool) {
	folded := foldStatus(value)
	if folded == "" {
		return "", false
	}
	status, ok := statusAliases[folded]
	return status, ok
}

// IsActive reports whether the status counts toward a controller's active work.
func (s Status) IsActive() bool {
	return s == StatusInProgress || s == StatusBlocked
}

func (s Status) String() string { return string(s) }
