package provision_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"oap/internal/provision"
)

func TestParseStageAcceptsLegacyKeys(t *testing.T) {
	cases := map[string]provision.Stage{
		"ifwi":    provision.StageIFWI,
		"is_bios": provision.StageBIOS,
		" OS ":    provision.StageOS,
		"IS_E2E":  provision.StageE2E,
	}
	for input, want := range cases {
		got, ok := provision.ParseStage(input)
		if !ok || got != want {
			t.Fatalf("ParseStage(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	for _, bad := range []string{"", "bogus", "is_", "firmware"} {
		if _, ok := provision.ParseStage(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestParseStatusNormalizesSpelling(t *testing.T) {
	cases := map[string]provision.Status{
		"PASS":        provision.StatusPass,
		"pass":        provision.StatusPass,
		"Fail":        provision.StatusFail,
		"In Progress": provision.StatusInProgress,
		"in_progress": provision.StatusInProgress,
		"InProgress":  provision.StatusInProgress,
		"blocked":     provision.StatusBlocked,
		"not-started": provision.StatusNotStarted,
	}
	for input, want := range cases {
		got, ok := provision.ParseStatus(input)
		if !ok || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	if _, ok := provision.ParseStatus("done"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestStageLabels(t *testing.T) {
	want := map[provision.Stage]string{
		provision.StageIFWI: "IFWI Provisioning",
		provision.StageBIOS: "BIOS Update",
		provision.StageOS:   "Imaging",
		provision.StageE2E:  "E2E Provisioning",
	}
	for stage, label := range want {
		if stage.Label() != label {
			t.Fatalf("stage %s label = %q, want %q", stage, stage.Label(), label)
		}
	}
}

func TestStageAcceptsGuard(t *testing.T) {
	tests := []struct {
		stage     provision.Stage
		current   provision.Status
		requested provision.Status
		want      bool
	}{
		{provision.StageIFWI, provision.StatusInProgress, provision.StatusBlocked, true},
		{provision.StageIFWI, provision.StatusInProgress, provision.StatusInProgress, false},
		{provision.StageIFWI, provision.StatusPass, provision.StatusInProgress, false},
		{provision.StageBIOS, provision.StatusFail, provision.StatusInProgress, false},
		{provision.StageOS, provision.StatusFail, provision.StatusPass, false},
		{provision.StageE2E, provision.StatusFail, provision.StatusInProgress, true},
		{provision.StageE2E, provision.StatusFail, provision.StatusPass, true},
		{provision.StageE2E, provision.StatusPass, provision.StatusFail, false},
		{provision.StageE2E, provision.StatusNotStarted, provision.StatusNotStarted, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s_to_%s", tt.stage, tt.current, tt.requested), func(t *testing.T) {
			if got := tt.stage.Accepts(tt.current, tt.requested); got != tt.want {
				t.Fatalf("Accepts = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordApplyDefaults(t *testing.T) {
	now := time.Date(2024, 5, 3, 10, 0, 0, 500, time.UTC)
	rec := provision.Record{BIOS: provision.StageState{Status: provision.StatusBlocked}}
	rec.ApplyDefaults(now)

	if rec.IFWI.Status != provision.StatusNotStarted || rec.E2E.Status != provision.StatusNotStarted {
		t.Fatalf("expected unset stages to default to Not Started, got %+v", rec)
	}
	if rec.BIOS.Status != provision.StatusBlocked {
		t.Fatalf("expected existing status to be kept, got %q", rec.BIOS.Status)
	}
	if got := provision.FormatTime(rec.CreatedAt); got != "2024-05-03 10:00:00" {
		t.Fatalf("unexpected created at %q", got)
	}
	if !(provision.Record{OS: provision.StageState{Status: provision.StatusBlocked}}).HasActiveStage() {
		t.Fatal("expected blocked stage to count as active")
	}
	if rec.HasActiveStage() != true {
		t.Fatal("expected record with blocked BIOS to be active")
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("handler: %w", provision.Wrap("apply", provision.KindStoreUnavailable, errors.New("boom")))
	if provision.KindOf(err) != provision.KindStoreUnavailable {
		t.Fatalf("unexpected kind %q", provision.KindOf(err))
	}
	if provision.KindOf(fmt.Errorf("x: %w", provision.ErrInvalidStage)) != provision.KindInvalidStage {
		t.Fatal("expected sentinel to map to invalid stage")
	}
	if provision.KindOf(errors.New("plain")) != "" {
		t.Fatal("expected plain errors to carry no kind")
	}
}
