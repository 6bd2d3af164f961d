// Package storetest is the conformance suite every store backend runs.
//
// Tests tag the rows they create with a random marker and filter on it, so
// the suite also works against a shared MySQL database that already holds
// data from earlier runs.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oap/internal/provision"
	"oap/internal/query"
	"oap/internal/store"
)

// TestStore runs the full suite. newStore may return the same instance on
// every call.
func TestStore(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("TransitionGuard", func(t *testing.T) { testTransitionGuard(t, newStore(t)) })
	t.Run("E2ERedrive", func(t *testing.T) { testE2ERedrive(t, newStore(t)) })
	t.Run("ResultLink", func(t *testing.T) { testResultLink(t, newStore(t)) })
	t.Run("ConcurrentSameStage", func(t *testing.T) { testConcurrentSameStage(t, newStore(t)) })
	t.Run("ConcurrentStagesIndependent", func(t *testing.T) { testConcurrentStagesIndependent(t, newStore(t)) })
	t.Run("FindAndCount", func(t *testing.T) { testFindAndCount(t, newStore(t)) })
	t.Run("PagePartition", func(t *testing.T) { testPagePartition(t, newStore(t)) })
	t.Run("Batches", func(t *testing.T) { testBatches(t, newStore(t)) })
	t.Run("UsersAndJoin", func(t *testing.T) { testUsersAndJoin(t, newStore(t)) })
	t.Run("Inventory", func(t *testing.T) { testInventory(t, newStore(t)) })
}

func newTag() string {
	return "t" + uuid.NewString()[:8]
}

func seed(t *testing.T, s store.Store, records ...provision.Record) []provision.Record {
	t.Helper()
	now := time.Now()
	for i := range records {
		records[i].ApplyDefaults(now)
	}
	created, err := s.CreateRecords(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, created, len(records))
	return created
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag()
	created := seed(t, s,
		provision.Record{RequestID: tag + "-1", ExternalID: "alice", Controller: tag, SUT: "SUT1", Email: "alice@example.com", Kit: "kit-a"},
		provision.Record{RequestID: tag + "-2", ExternalID: "bob", Controller: tag, SUT: "SUT2"},
	)
	assert.NotZero(t, created[0].ID)
	assert.Greater(t, created[1].ID, created[0].ID)

	got, err := s.GetRecord(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tag+"-1", got.RequestID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "kit-a", got.Kit)
	assert.Equal(t, provision.StatusNotStarted, got.IFWI.Status)
	assert.Equal(t, provision.StatusNotStarted, got.E2E.Status)
	assert.Equal(t, created[0].CreatedAt.Unix(), got.CreatedAt.Unix())

	_, err = s.GetRecord(ctx, created[1].ID+1_000_000)
	assert.ErrorIs(t, err, provision.ErrNotFound)
}

func testTransitionGuard(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := seed(t, s, provision.Record{RequestID: newTag()})[0]

	applied, err := s.UpdateStage(ctx, rec.ID, provision.StageIFWI, provision.StatusInProgress, nil)
	require.NoError(t, err)
	assert.True(t, applied, "first transition applies")

	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageIFWI, provision.StatusInProgress, nil)
	require.NoError(t, err)
	assert.False(t, applied, "re-applying the same status is a no-op")

	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageIFWI, provision.StatusPass, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	for _, next := range []provision.Status{provision.StatusInProgress, provision.StatusFail, provision.StatusBlocked} {
		applied, err = s.UpdateStage(ctx, rec.ID, provision.StageIFWI, next, nil)
		require.NoError(t, err)
		assert.False(t, applied, "PASS is terminal for ifwi (requested %s)", next)
	}

	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageBIOS, provision.StatusFail, nil)
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageBIOS, provision.StatusInProgress, nil)
	require.NoError(t, err)
	assert.False(t, applied, "FAIL is terminal for bios")

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, provision.StatusPass, got.IFWI.Status)
	assert.Equal(t, provision.StatusFail, got.BIOS.Status)

	applied, err = s.UpdateStage(ctx, rec.ID+1_000_000, provision.StageOS, provision.StatusInProgress, nil)
	require.NoError(t, err)
	assert.False(t, applied, "missing record is a no-op")
}

func testE2ERedrive(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := seed(t, s, provision.Record{RequestID: newTag(), E2E: provision.StageState{Status: provision.StatusFail}})[0]

	applied, err := s.UpdateStage(ctx, rec.ID, provision.StageE2E, provision.StatusInProgress, nil)
	require.NoError(t, err)
	assert.True(t, applied, "e2e accepts a transition after FAIL")

	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageE2E, provision.StatusPass, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageE2E, provision.StatusFail, nil)
	require.NoError(t, err)
	assert.False(t, applied, "PASS stays terminal for e2e")
}

func testResultLink(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := seed(t, s, provision.Record{RequestID: newTag()})[0]

	link := "https://tws.example/run/1"
	applied, err := s.UpdateStage(ctx, rec.ID, provision.StageOS, provision.StatusInProgress, &link)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = s.UpdateStage(ctx, rec.ID, provision.StageOS, provision.StatusPass, nil)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, provision.StatusPass, got.OS.Status)
	assert.Equal(t, link, got.OS.ResultLink, "nil link keeps the stored link")
	assert.Empty(t, got.IFWI.ResultLink)
}

func testConcurrentSameStage(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := seed(t, s, provision.Record{RequestID: newTag()})[0]

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.UpdateStage(ctx, rec.ID, provision.StageBIOS, provision.StatusBlocked, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				applied++
			}
		}()
	}
	wg.Wait()
	require.Empty(t, errs)
	assert.Equal(t, 1, applied, "exactly one concurrent caller wins the guard")
}

func testConcurrentStagesIndependent(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := seed(t, s, provision.Record{RequestID: newTag()})[0]

	var wg sync.WaitGroup
	results := make([]bool, len(provision.AllStages()))
	errs := make([]error, len(provision.AllStages()))
	for i, stage := range provision.AllStages() {
		wg.Add(1)
		go func(i int, stage provision.Stage) {
			defer wg.Done()
			results[i], errs[i] = s.UpdateStage(ctx, rec.ID, stage, provision.StatusInProgress, nil)
		}(i, stage)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i])
	}

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	for _, stage := range provision.AllStages() {
		assert.Equal(t, provision.StatusInProgress, got.Stage(stage).Status, "stage %s", stage)
	}
}

func testFindAndCount(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag()
	seed(t, s,
		provision.Record{RequestID: tag + "-100", ExternalID: "alice", Controller: tag + "-C1", SUT: "SUT1"},
		provision.Record{RequestID: tag + "-101", ExternalID: "ALICE2", Controller: tag + "-C1", SUT: "SUT1"},
		provision.Record{RequestID: tag + "-102", ExternalID: "bob", Controller: tag + "-C1", SUT: "SUT1"},
		provision.Record{RequestID: tag + "-103", ExternalID: "50%_off", Controller: tag + "-C2", SUT: "SUT9"},
	)

	byTag := query.Contains{Field: query.FieldRequestID, Text: tag}
	all, err := s.FindRecords(ctx, query.Spec{Filter: byTag, Sort: query.DefaultSort})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, tag+"-103", all[0].RequestID, "default sort is requestId desc")
	assert.Equal(t, tag+"-100", all[3].RequestID)

	alices := query.And{Predicates: []query.Predicate{byTag, query.Contains{Field: query.FieldExternalID, Text: "alice"}}}
	count, err := s.CountRecords(ctx, alices)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "substring match folds ASCII case")

	literal := query.And{Predicates: []query.Predicate{byTag, query.Contains{Field: query.FieldExternalID, Text: "%_"}}}
	count, err = s.CountRecords(ctx, literal)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "LIKE wildcards in input match literally")

	latest, err := s.FindRecords(ctx, query.Spec{
		Filter: query.ContainsAll("", query.FieldSUT, query.FieldController),
		Sort:   query.Sort{Field: query.SortRequestID, Order: query.Asc},
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	active := query.And{Predicates: []query.Predicate{
		query.Equals{Field: query.FieldController, Value: tag + "-C2"},
		query.In{Field: query.FieldIFWIStatus, Values: []string{string(provision.StatusNotStarted)}},
	}}
	found, err := s.FindRecords(ctx, query.Spec{Filter: active, Sort: query.DefaultSort})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "50%_off", found[0].ExternalID)
}

func testPagePartition(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag()
	records := make([]provision.Record, 0, 23)
	for i := 0; i < 23; i++ {
		// Duplicate request ids exercise the id tiebreaker.
		records = append(records, provision.Record{RequestID: fmt.Sprintf("%s-%02d", tag, i/2), Controller: tag})
	}
	seed(t, s, records...)

	filter := query.Equals{Field: query.FieldController, Value: tag}
	total, err := s.CountRecords(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 23, total)

	for _, ordering := range []query.Sort{query.DefaultSort, {Field: query.SortRequestID, Order: query.Asc}} {
		window := query.Paginate(total, 1, 5)
		require.Equal(t, 5, window.TotalPages)

		seen := map[int64]bool{}
		var ordered []provision.Record
		for page := 1; page <= window.TotalPages; page++ {
			w := query.Paginate(total, page, 5)
			items, err := s.FindRecords(ctx, query.Spec{Filter: filter, Sort: ordering, Limit: w.PageSize, Offset: w.Offset})
			require.NoError(t, err)
			for _, item := range items {
				assert.False(t, seen[item.ID], "record %d appears twice", item.ID)
				seen[item.ID] = true
			}
			ordered = append(ordered, items...)
		}
		assert.Len(t, seen, 23, "pages cover every record")
		assert.True(t, isSorted(ordered, ordering), "pages concatenate in sort order")

		w := query.Paginate(total, window.TotalPages+1, 5)
		beyond, err := s.FindRecords(ctx, query.Spec{Filter: filter, Sort: ordering, Limit: w.PageSize, Offset: w.Offset})
		require.NoError(t, err)
		assert.Empty(t, beyond)
	}
}

func isSorted(records []provision.Record, s query.Sort) bool {
	return sort.SliceIsSorted(records, func(i, j int) bool {
		return query.Less(records[i], records[j], s)
	})
}

func testBatches(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			batch, err := s.InsertBatch(ctx, fmt.Sprintf("user-%d", i), time.Now())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids = append(ids, batch.GlobalID)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	require.Len(t, ids, n)

	unique := map[int64]struct{}{}
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, n, "global ids are never duplicated")

	first, err := s.InsertBatch(ctx, "seq", time.Now())
	require.NoError(t, err)
	second, err := s.InsertBatch(ctx, "seq", time.Now())
	require.NoError(t, err)
	assert.Greater(t, second.GlobalID, first.GlobalID)
	for _, id := range ids {
		assert.Greater(t, first.GlobalID, id)
	}

	latest, ok, err := s.LatestBatch(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.GlobalID, latest.GlobalID)
	assert.Equal(t, "seq", latest.UserID)
}

func testUsersAndJoin(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag()
	user := provision.User{UserID: tag, WWID: tag + "-wwid", Email: "u@example.com", FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, s.PutUser(ctx, user))

	user.Email = "ada@example.com"
	require.NoError(t, s.PutUser(ctx, user))

	got, err := s.GetUser(ctx, tag)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	_, err = s.GetUser(ctx, tag+"-missing")
	assert.ErrorIs(t, err, provision.ErrNotFound)
	assert.Error(t, s.PutUser(ctx, provision.User{}))

	rec := seed(t, s,
		provision.Record{RequestID: tag + "-1", WWID: tag + "-wwid"},
		provision.Record{RequestID: tag + "-2", WWID: tag + "-other"},
	)[0]

	joined, err := s.ListRecordsWithUsers(ctx)
	require.NoError(t, err)
	var mine []provision.RecordWithUser
	for _, item := range joined {
		if item.User.UserID == tag {
			mine = append(mine, item)
		}
	}
	require.Len(t, mine, 1)
	assert.Equal(t, rec.ID, mine[0].Record.ID)
	assert.Equal(t, "Lovelace", mine[0].User.LastName)
}

func testInventory(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag()

	c, err := s.CreateController(ctx, provision.Controller{Name: tag + "-ctrl", Location: "lab-1"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	_, err = s.CreateController(ctx, provision.Controller{Name: tag + "-ctrl"})
	assert.Error(t, err, "controller names are unique")

	p, err := s.CreatePlatform(ctx, provision.Platform{Name: tag + "-plat"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	controllers, err := s.ListControllers(ctx)
	require.NoError(t, err)
	assert.True(t, containsName(controllers, tag+"-ctrl", func(c provision.Controller) string { return c.Name }))

	platforms, err := s.ListPlatforms(ctx)
	require.NoError(t, err)
	assert.True(t, containsName(platforms, tag+"-plat", func(p provision.Platform) string { return p.Name }))
}

func containsName[T any](items []T, name string, get func(T) string) bool {
	for _, item := range items {
		if get(item) == name {
			return true
		}
	}
	return false
}
