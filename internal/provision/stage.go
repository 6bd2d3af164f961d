package provision

import "strings"

// Stage names one of the four independently tracked provisioning steps.
type Stage string

const (
	StageIFWI Stage = "ifwi"
	StageBIOS Stage = "bios"
	StageOS   Stage = "os"
	StageE2E  Stage = "e2e"
)

var allStages = []Stage{StageIFWI, StageBIOS, StageOS, StageE2E}

var stageLabels = map[Stage]string{
	StageIFWI: "IFWI Provisioning",
	StageBIOS: "BIOS Update",
	StageOS:   "Imaging",
	StageE2E:  "E2E Provisioning",
}

// AllStages returns the stages in pipeline order.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage accepts the short stage keys and the legacy "is_" prefixed keys.
func ParseStage(value string) (Stage, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.TrimPrefix(key, "is_")
	stage := Stage(key)
	if _, ok := stageLabels[stage]; !ok {
		return "", false
	}
	return stage, true
}

// Label is the human readable name used in notifications.
func (s Stage) Label() string {
	return stageLabels[s]
}

// TerminalStatuses lists the statuses after which the stage accepts no further
// transitions. E2E may be re-driven after FAIL.
func (s Stage) TerminalStatuses() []Status {
	if s == StageE2E {
		return []Status{StatusPass}
	}
	return []Status{StatusPass, StatusFail}
}

// IsTerminal reports whether status locks the stage.
func (s Stage) IsTerminal(status Status) bool {
	for _, terminal := range s.TerminalStatuses() {
		if status == terminal {
			return true
		}
	}
	return false
}

// Accepts reports whether a stage currently at current may move to requested.
// Stores evaluate the same guard atomically; this form serves the in-memory
// backend and tests.
func (s Stage) Accepts(current, requested Status) bool {
	return !s.IsTerminal(current) && current != requested
}

func (s Stage) String() string { return string(s) }
