package provision

import (
	"strings"
	"time"
)

// TimeLayout is the persisted and searchable text form of record timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp, tolerating RFC 3339 input.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// StageState is the status and external result reference of one stage.
type StageState struct {
	Status     Status
	ResultLink string
}

// Record is one provisioning attempt for a SUT on a controller.
type Record struct {
	ID         int64
	RequestID  string
	ExternalID string
	WWID       string
	UserID     string
	Email      string

	Controller string
	SUT        string
	Location   string

	// Delivery metadata, opaque to the tracker.
	Kit           string
	IFWIBinary    string
	BIOSFile      string
	WIMName       string
	WiFiName      string
	WiFiPassword  string
	SharePath     string
	ShareUser     string
	SharePassword string

	IFWI StageState
	BIOS StageState
	OS   StageState
	E2E  StageState

	CreatedAt time.Time
}

// Stage returns the state of the given stage.
func (r Record) Stage(stage Stage) StageState {
	switch stage {
	case StageIFWI:
		return r.IFWI
	case StageBIOS:
		return r.BIOS
	case StageOS:
		return r.OS
	case StageE2E:
		return r.E2E
	}
	return StageState{}
}

// SetStage replaces the state of the given stage.
func (r *Record) SetStage(stage Stage, state StageState) {
	switch stage {
	case StageIFWI:
		r.IFWI = state
	case StageBIOS:
		r.BIOS = state
	case StageOS:
		r.OS = state
	case StageE2E:
		r.E2E = state
	}
}

// HasActiveStage reports whether any stage is in progress or blocked.
func (r Record) HasActiveStage() bool {
	for _, stage := range allStages {
		if r.Stage(stage).Status.IsActive() {
			return true
		}
	}
	return false
}

// ApplyDefaults fills unset stage statuses and the creation time.
func (r *Record) ApplyDefaults(now time.Time) {
	for _, stage := range allStages {
		state := r.Stage(stage)
		if state.Status == "" {
			state.Status = StatusNotStarted
			r.SetStage(stage, state)
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC().Truncate(time.Second)
	}
}

// Batch associates a global sequence id with the user who opened it.
type Batch struct {
	GlobalID  int64
	UserID    string
	CreatedAt time.Time
}

// User is the identity row a record is linked to by WWID.
type User struct {
	UserID    string
	WWID      string
	Email     string
	UserName  string
	FirstName string
	LastName  string
	UserGroup string
}

// DisplayName prefers the full name and falls back to the user name.
func (u User) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full != "" {
		return full
	}
	return u.UserName
}

// RecordWithUser pairs a record with the user sharing its WWID.
type RecordWithUser struct {
	Record Record
	User   User
}

// Controller is a test controller host in the shared pool.
type Controller struct {
	ID        int64
	Name      string
	Location  string
	CreatedAt time.Time
}

// Platform is a hardware platform family.
type Platform struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
