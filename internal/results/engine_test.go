package results_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"oap/internal/provision"
	"oap/internal/results"
	"oap/internal/store/inmem"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func seed(t *testing.T, st *inmem.Store, recs ...provision.Record) []provision.Record {
	t.Helper()
	for i := range recs {
		recs[i].ApplyDefaults(base.Add(time.Duration(i) * time.Minute))
	}
	created, err := st.CreateRecords(context.Background(), recs)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func ids(items []provision.Record) []int64 {
	out := make([]int64, 0, len(items))
	for _, rec := range items {
		out = append(out, rec.ID)
	}
	return out
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueryFiltersAndDefaultSort(t *testing.T) {
	st := inmem.New()
	seed(t, st,
		provision.Record{RequestID: "R-001", ExternalID: "alice"},
		provision.Record{RequestID: "R-002", ExternalID: "bob"},
		provision.Record{RequestID: "R-003", ExternalID: "alicia"},
		provision.Record{RequestID: "X-004", ExternalID: "alice"},
	)
	engine := results.NewEngine(st, nil)

	page, err := engine.Query(context.Background(), results.Request{
		Filters: []results.Filter{{Name: "request_id", Text: "r-"}, {Name: "externalId", Text: "ALI"}, {Name: "sut", Text: "ignored"}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := ids(page.Items); !sameIDs(got, []int64{3, 1}) {
		t.Fatalf("unexpected ids: %v", got)
	}
	if page.TotalPages != 1 || page.HasPrev || page.HasNext {
		t.Fatalf("unexpected window: %+v", page)
	}
}

func TestQuerySortsByExternalIDAscending(t *testing.T) {
	st := inmem.New()
	seed(t, st,
		provision.Record{RequestID: "R-1", ExternalID: "carol"},
		provision.Record{RequestID: "R-2", ExternalID: "alice"},
		provision.Record{RequestID: "R-3", ExternalID: "bob"},
	)
	engine := results.NewEngine(st, nil)
	page, err := engine.Query(context.Background(), results.Request{
		Sorts: []results.SortRequest{{Name: "external_id", Order: "ASC"}, {Name: "requestId", Order: "desc"}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := ids(page.Items); !sameIDs(got, []int64{2, 3, 1}) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestQueryUnknownSortFallsBackToRequestIDDesc(t *testing.T) {
	st := inmem.New()
	seed(t, st,
		provision.Record{RequestID: "R-2", Controller: "c-a"},
		provision.Record{RequestID: "R-3", Controller: "c-c"},
		provision.Record{RequestID: "R-1", Controller: "c-b"},
	)
	engine := results.NewEngine(st, nil)

	for _, name := range []string{"controller", "sut", "no_such_field"} {
		page, err := engine.Query(context.Background(), results.Request{
			Sorts: []results.SortRequest{{Name: name, Order: "asc"}},
		})
		if err != nil {
			t.Fatalf("sort %q: %v", name, err)
		}
		var got []string
		for _, rec := range page.Items {
			got = append(got, rec.RequestID)
		}
		if strings.Join(got, ",") != "R-3,R-2,R-1" {
			t.Fatalf("sort %q: expected requestId desc, got %v", name, got)
		}
	}

	page, err := engine.Search(context.Background(), results.SearchRequest{
		Sorts: []results.SortRequest{{Name: "controller", Order: "asc"}},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Items) != 3 || page.Items[0].RequestID != "R-3" {
		t.Fatalf("unexpected search order: %+v", page.Items)
	}
}

func TestQueryPaginationPartitionsResults(t *testing.T) {
	st := inmem.New()
	var recs []provision.Record
	for i := 1; i <= 7; i++ {
		recs = append(recs, provision.Record{RequestID: fmt.Sprintf("R-%02d", i)})
	}
	seed(t, st, recs...)
	engine := results.NewEngine(st, nil)

	seen := map[int64]bool{}
	for page := 1; page <= 3; page++ {
		got, err := engine.Query(context.Background(), results.Request{Page: page, PageSize: 3})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if got.TotalPages != 3 || got.HasPrev != (page > 1) || got.HasNext != (page < 3) {
			t.Fatalf("page %d window: %+v", page, got)
		}
		for _, id := range ids(got.Items) {
			if seen[id] {
				t.Fatalf("id %d returned twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 distinct ids, got %d", len(seen))
	}

	beyond, err := engine.Query(context.Background(), results.Request{Page: 9, PageSize: 3})
	if err != nil {
		t.Fatalf("beyond: %v", err)
	}
	if beyond.Items == nil || len(beyond.Items) != 0 {
		t.Fatalf("expected empty non-nil page, got %#v", beyond.Items)
	}

	clamped, err := engine.Query(context.Background(), results.Request{Page: -2})
	if err != nil {
		t.Fatalf("clamped: %v", err)
	}
	if clamped.Page != 1 || len(clamped.Items) != 7 {
		t.Fatalf("expected page 1 with default size, got %+v", clamped)
	}
}

func TestSearchRequiresTermInEveryField(t *testing.T) {
	st := inmem.New()
	seed(t, st,
		provision.Record{RequestID: "LAB-7", ExternalID: "lab user", Controller: "lab-ctrl", SUT: "lab-sut"},
		provision.Record{RequestID: "LAB-8", ExternalID: "someone", Controller: "lab-ctrl", SUT: "lab-sut"},
	)
	engine := results.NewEngine(st, nil)

	page, err := engine.Search(context.Background(), results.SearchRequest{Term: "lab"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// createdAt never contains "lab", so nothing matches.
	if len(page.Items) != 0 {
		t.Fatalf("expected no matches, got %v", ids(page.Items))
	}

	page, err = engine.Search(context.Background(), results.SearchRequest{Term: ""})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected empty term to match all, got %v", ids(page.Items))
	}
}

func TestListingModes(t *testing.T) {
	st := inmem.New()
	var recs []provision.Record
	for i := 1; i <= 12; i++ {
		recs = append(recs, provision.Record{RequestID: fmt.Sprintf("R-%02d", i)})
	}
	seed(t, st, recs...)
	engine := results.NewEngine(st, nil)

	full, err := engine.Listing(context.Background(), nil)
	if err != nil {
		t.Fatalf("full listing: %v", err)
	}
	if len(full.Items) != 12 || full.TotalPages != 12 {
		t.Fatalf("expected full listing with totalPages=count, got %d items totalPages=%d", len(full.Items), full.TotalPages)
	}
	if full.Items[0].ID != 12 {
		t.Fatalf("expected newest first, got %d", full.Items[0].ID)
	}

	page := 2
	second, err := engine.Listing(context.Background(), &page)
	if err != nil {
		t.Fatalf("paged listing: %v", err)
	}
	if got := ids(second.Items); !sameIDs(got, []int64{2, 1}) {
		t.Fatalf("unexpected second page: %v", got)
	}
	if second.TotalPages != 2 || !second.HasPrev || second.HasNext {
		t.Fatalf("unexpected window: %+v", second)
	}
}

func TestLatestForPicksGreatestRequestID(t *testing.T) {
	st := inmem.New()
	seed(t, st,
		provision.Record{RequestID: "R-010", SUT: "sut-a1", Controller: "ctrl-east"},
		provision.Record{RequestID: "R-030", SUT: "sut-a1", Controller: "ctrl-east-2"},
		provision.Record{RequestID: "R-020", SUT: "sut-a1", Controller: "ctrl-east"},
		provision.Record{RequestID: "R-099", SUT: "sut-b", Controller: "ctrl-east"},
	)
	engine := results.NewEngine(st, nil)

	rec, ok, err := engine.LatestFor(context.Background(), "a1", "east")
	if err != nil {
		t.Fatalf("LatestFor: %v", err)
	}
	if !ok || rec.RequestID != "R-030" {
		t.Fatalf("expected R-030, got %+v (ok=%v)", rec, ok)
	}

	_, ok, err = engine.LatestFor(context.Background(), "missing", "east")
	if err != nil || ok {
		t.Fatalf("expected no match, got ok=%v err=%v", ok, err)
	}
}

func TestActiveForMatchesControllerExactly(t *testing.T) {
	st := inmem.New()
	created := seed(t, st,
		provision.Record{RequestID: "R-1", Controller: "ctrl-1"},
		provision.Record{RequestID: "R-2", Controller: "ctrl-1"},
		provision.Record{RequestID: "R-3", Controller: "ctrl-10"},
		provision.Record{RequestID: "R-4", Controller: "ctrl-1"},
	)
	ctx := context.Background()
	mustUpdate := func(id int64, stage provision.Stage, status provision.Status) {
		t.Helper()
		if _, err := st.UpdateStage(ctx, id, stage, status, nil); err != nil {
			t.Fatalf("UpdateStage: %v", err)
		}
	}
	mustUpdate(created[0].ID, provision.StageIFWI, provision.StatusBlocked)
	mustUpdate(created[1].ID, provision.StageE2E, provision.StatusPass)
	mustUpdate(created[2].ID, provision.StageOS, provision.StatusInProgress)
	mustUpdate(created[3].ID, provision.StageE2E, provision.StatusInProgress)

	engine := results.NewEngine(st, nil)
	active, err := engine.ActiveFor(ctx, "ctrl-1")
	if err != nil {
		t.Fatalf("ActiveFor: %v", err)
	}
	if got := ids(active); !sameIDs(got, []int64{created[3].ID, created[0].ID}) {
		t.Fatalf("unexpected active ids: %v", got)
	}

	blank, err := engine.ActiveFor(ctx, "")
	if err != nil {
		t.Fatalf("ActiveFor blank: %v", err)
	}
	if blank == nil || len(blank) != 0 {
		t.Fatalf("expected empty non-nil list for blank controller, got %v", blank)
	}

	unassigned := seed(t, st, provision.Record{RequestID: "R-5"})
	mustUpdate(unassigned[0].ID, provision.StageBIOS, provision.StatusBlocked)
	blank, err = engine.ActiveFor(ctx, "")
	if err != nil {
		t.Fatalf("ActiveFor blank: %v", err)
	}
	if got := ids(blank); !sameIDs(got, []int64{unassigned[0].ID}) {
		t.Fatalf("expected only the record without a controller, got %v", got)
	}
}

func TestUserListingAndGet(t *testing.T) {
	st := inmem.New()
	ctx := context.Background()
	if err := st.PutUser(ctx, provision.User{UserID: "u1", WWID: "W1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	created := seed(t, st,
		provision.Record{RequestID: "R-1", WWID: "W1"},
		provision.Record{RequestID: "R-2", WWID: "W-unknown"},
	)
	engine := results.NewEngine(st, nil)

	rows, err := engine.UserListing(ctx)
	if err != nil {
		t.Fatalf("UserListing: %v", err)
	}
	if len(rows) != 1 || rows[0].Record.ID != created[0].ID || rows[0].User.Email != "u1@example.com" {
		t.Fatalf("unexpected join rows: %+v", rows)
	}

	rec, err := engine.Get(ctx, created[1].ID)
	if err != nil || rec.RequestID != "R-2" {
		t.Fatalf("Get: %+v %v", rec, err)
	}
	if _, err := engine.Get(ctx, 404); provision.KindOf(err) != provision.KindNotFound {
		t.Fatalf("expected not found kind, got %v", err)
	}
}
