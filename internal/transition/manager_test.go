package transition_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"oap/internal/notifications"
	"oap/internal/provision"
	"oap/internal/store"
	"oap/internal/store/inmem"
	"oap/internal/transition"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []notifications.Payload
}

func (r *recordingDispatcher) Dispatch(_ context.Context, p notifications.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func seed(t *testing.T, st store.Records) provision.Record {
	t.Helper()
	rec := provision.Record{
		RequestID:  "REQ-100",
		ExternalID: "jane doe",
		Email:      "jane@example.com",
		Controller: "ctrl-1",
		SUT:        "sut-9",
	}
	rec.ApplyDefaults(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	created, err := st.CreateRecords(context.Background(), []provision.Record{rec})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return created[0]
}

func newManager(t *testing.T) (*transition.Manager, *inmem.Store, *recordingDispatcher, provision.Record) {
	t.Helper()
	st := inmem.New()
	rec := seed(t, st)
	disp := &recordingDispatcher{}
	return transition.NewManager(st, disp, nil), st, disp, rec
}

func TestApplyTransitionUpdatesAndNotifies(t *testing.T) {
	m, _, disp, rec := newManager(t)

	out, err := m.ApplyTransition(context.Background(), rec.ID, "bios", "In Progress", "")
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if !out.Applied {
		t.Fatal("expected transition to apply")
	}
	if out.Record.BIOS.Status != provision.StatusInProgress {
		t.Fatalf("unexpected re-read status: %q", out.Record.BIOS.Status)
	}
	if disp.count() != 1 {
		t.Fatalf("expected one notification, got %d", disp.count())
	}
	p := disp.payloads[0]
	if p.StageLabel != "BIOS Update" || p.RecipientAddress != "jane@example.com" || p.RecipientDisplayName != "jane doe" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.NewStatus != "In Progress" || p.SUT != "sut-9" || p.RequestID != "REQ-100" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestApplyTransitionIsIdempotent(t *testing.T) {
	m, _, disp, rec := newManager(t)
	ctx := context.Background()

	if out, err := m.ApplyTransition(ctx, rec.ID, "os", "Blocked", ""); err != nil || !out.Applied {
		t.Fatalf("first apply: %+v %v", out, err)
	}
	out, err := m.ApplyTransition(ctx, rec.ID, "is_os", "blocked", "")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if out.Applied {
		t.Fatal("expected repeated status to be a no-op")
	}
	if disp.count() != 1 {
		t.Fatalf("expected a single notification, got %d", disp.count())
	}
}

func TestTerminalStatusLocksStage(t *testing.T) {
	m, st, _, rec := newManager(t)
	ctx := context.Background()

	if _, err := m.ApplyTransition(ctx, rec.ID, "ifwi", "FAIL", "http://r/1"); err != nil {
		t.Fatalf("fail ifwi: %v", err)
	}
	for _, status := range []string{"In Progress", "PASS", "Not Started"} {
		out, err := m.ApplyTransition(ctx, rec.ID, "ifwi", status, "")
		if err != nil {
			t.Fatalf("apply %s: %v", status, err)
		}
		if out.Applied {
			t.Fatalf("expected FAIL to lock ifwi, but %s applied", status)
		}
	}
	got, err := st.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.IFWI.Status != provision.StatusFail || got.IFWI.ResultLink != "http://r/1" {
		t.Fatalf("unexpected ifwi state: %+v", got.IFWI)
	}
}

func TestE2ECanBeRedrivenAfterFail(t *testing.T) {
	m, _, _, rec := newManager(t)
	ctx := context.Background()

	steps := []struct {
		status string
		want   bool
	}{
		{"FAIL", true},
		{"In Progress", true},
		{"PASS", true},
		{"In Progress", false},
	}
	for _, step := range steps {
		out, err := m.ApplyTransition(ctx, rec.ID, "e2e", step.status, "")
		if err != nil {
			t.Fatalf("apply %s: %v", step.status, err)
		}
		if out.Applied != step.want {
			t.Fatalf("e2e -> %s: applied=%v want %v", step.status, out.Applied, step.want)
		}
	}
}

func TestEmptyResultLinkKeepsExisting(t *testing.T) {
	m, _, _, rec := newManager(t)
	ctx := context.Background()

	if _, err := m.ApplyTransition(ctx, rec.ID, "os", "In Progress", "http://logs/1"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	out, err := m.ApplyTransition(ctx, rec.ID, "os", "PASS", "  ")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if out.Record.OS.ResultLink != "http://logs/1" {
		t.Fatalf("expected link to be kept, got %q", out.Record.OS.ResultLink)
	}
}

func TestMissingRecordIsNoop(t *testing.T) {
	m, _, disp, _ := newManager(t)
	out, err := m.ApplyTransition(context.Background(), 9999, "bios", "PASS", "")
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if out.Applied || disp.count() != 0 {
		t.Fatalf("expected no-op for missing record: %+v", out)
	}
}

// racingRecords lets another writer move the same stage between the guarded
// write and the follow-up read.
type racingRecords struct {
	*inmem.Store
	raced  bool
	stage  provision.Stage
	status provision.Status
	link   string
}

func (r *racingRecords) GetRecord(ctx context.Context, id int64) (provision.Record, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.Store.UpdateStage(ctx, id, r.stage, r.status, &r.link); err != nil {
			return provision.Record{}, err
		}
	}
	return r.Store.GetRecord(ctx, id)
}

func TestNotificationCarriesRequestedStatus(t *testing.T) {
	st := inmem.New()
	rec := seed(t, st)
	records := &racingRecords{Store: st, stage: provision.StageIFWI, status: provision.StatusPass, link: "http://other/run"}
	disp := &recordingDispatcher{}
	m := transition.NewManager(records, disp, nil)

	out, err := m.ApplyTransition(context.Background(), rec.ID, "ifwi", "Blocked", "")
	if err != nil || !out.Applied {
		t.Fatalf("apply blocked: %+v %v", out, err)
	}
	if disp.count() != 1 {
		t.Fatalf("expected one notification, got %d", disp.count())
	}
	p := disp.payloads[0]
	if p.NewStatus != "Blocked" {
		t.Fatalf("expected notified status Blocked, got %q", p.NewStatus)
	}
	if p.RequestID != "REQ-100" || p.RecipientAddress != "jane@example.com" {
		t.Fatalf("unexpected contact fields: %+v", p)
	}
	if out.Record.IFWI.Status != provision.StatusPass {
		t.Fatalf("expected re-read to observe the racing write, got %q", out.Record.IFWI.Status)
	}

	records.raced = false
	records.stage = provision.StageOS
	records.status = provision.StatusFail
	out, err = m.ApplyTransition(context.Background(), rec.ID, "os", "In Progress", "http://mine/run")
	if err != nil || !out.Applied {
		t.Fatalf("apply os: %+v %v", out, err)
	}
	p = disp.payloads[1]
	if p.NewStatus != "In Progress" || p.ResultLink != "http://mine/run" {
		t.Fatalf("expected this write's status and link, got %+v", p)
	}
}

func TestNotificationKeepsStoredLinkWhenNoneGiven(t *testing.T) {
	m, _, disp, rec := newManager(t)
	ctx := context.Background()

	if _, err := m.ApplyTransition(ctx, rec.ID, "os", "In Progress", "http://logs/7"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, err := m.ApplyTransition(ctx, rec.ID, "os", "PASS", ""); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if disp.count() != 2 {
		t.Fatalf("expected two notifications, got %d", disp.count())
	}
	if p := disp.payloads[1]; p.NewStatus != "PASS" || p.ResultLink != "http://logs/7" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

type failingRecords struct {
	store.Records
	err   error
	calls int
}

func (f *failingRecords) UpdateStage(ctx context.Context, _ int64, _ provision.Stage, _ provision.Status, _ *string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	<-ctx.Done()
	return false, ctx.Err()
}

func TestInvalidInputNeverTouchesStore(t *testing.T) {
	records := &failingRecords{err: errors.New("should not be called")}
	m := transition.NewManager(records, nil, nil)

	_, err := m.ApplyTransition(context.Background(), 1, "firmware", "PASS", "")
	if !errors.Is(err, provision.ErrInvalidStage) || provision.KindOf(err) != provision.KindInvalidStage {
		t.Fatalf("expected invalid stage, got %v", err)
	}
	_, err = m.ApplyTransition(context.Background(), 1, "bios", "DONE", "")
	if !errors.Is(err, provision.ErrInvalidStatus) || provision.KindOf(err) != provision.KindInvalidStatus {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if records.calls != 0 {
		t.Fatalf("store called %d times", records.calls)
	}
}

func TestStoreFailuresAreClassified(t *testing.T) {
	m := transition.NewManager(&failingRecords{err: errors.New("connection refused")}, nil, nil)
	_, err := m.ApplyTransition(context.Background(), 1, "bios", "PASS", "")
	if provision.KindOf(err) != provision.KindStoreUnavailable {
		t.Fatalf("expected store_unavailable, got %v (%s)", err, provision.KindOf(err))
	}

	m = transition.NewManager(&failingRecords{}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.ApplyTransition(ctx, 1, "bios", "PASS", "")
	if provision.KindOf(err) != provision.KindOutcomeUnknown {
		t.Fatalf("expected outcome_unknown, got %v (%s)", err, provision.KindOf(err))
	}
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	m, _, disp, rec := newManager(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.ApplyTransition(ctx, rec.ID, "bios", "PASS", "")
			if err != nil {
				t.Errorf("ApplyTransition: %v", err)
				return
			}
			if out.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if applied != 1 {
		t.Fatalf("expected exactly one applied transition, got %d", applied)
	}
	if disp.count() != 1 {
		t.Fatalf("expected one notification, got %d", disp.count())
	}
}

func TestIFWIBlockedScenario(t *testing.T) {
	m, st, _, rec := newManager(t)
	ctx := context.Background()

	out, err := m.ApplyTransition(ctx, rec.ID, "is_ifwi", "Blocked", "")
	if err != nil || !out.Applied {
		t.Fatalf("apply blocked: %+v %v", out, err)
	}
	got, err := st.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.IFWI.Status != provision.StatusBlocked {
		t.Fatalf("expected ifwi Blocked, got %q", got.IFWI.Status)
	}
	for _, other := range []provision.StageState{got.BIOS, got.OS, got.E2E} {
		if other.Status != provision.StatusNotStarted {
			t.Fatalf("expected other stages untouched, got %+v", got)
		}
	}
	if !got.HasActiveStage() {
		t.Fatal("expected record to be active")
	}
}
