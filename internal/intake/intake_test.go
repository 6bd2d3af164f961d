package intake_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oap/internal/identity"
	"oap/internal/intake"
	"oap/internal/provision"
	"oap/internal/store/inmem"
)

func TestReadFileYAMLMapping(t *testing.T) {
	entries, err := intake.ReadFile(filepath.Join("testdata", "batch.yaml"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "REQ-2001", entries[0].RequestID)
	assert.Equal(t, "bios_v42.bin", entries[0].BIOSFile)
	assert.Equal(t, "override@example.com", entries[1].Email)
}

func TestDecodeYAMLList(t *testing.T) {
	entries, err := intake.DecodeYAML([]byte("- requestId: R-1\n  sut: s1\n- requestId: R-2\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].SUT)

	_, err = intake.DecodeYAML([]byte("just a string"))
	assert.ErrorIs(t, err, provision.ErrInvalidInput)
}

func TestReadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"requestId":"R-9","controller":"c","wifiPassword":" keep "}]`), 0o644))

	entries, err := intake.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	rec := entries[0].Record()
	assert.Equal(t, "R-9", rec.RequestID)
	assert.Equal(t, " keep ", rec.WiFiPassword)
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	_, err := intake.DecodeJSON(strings.NewReader(`{"requestId":`))
	assert.ErrorIs(t, err, provision.ErrInvalidInput)
}

func TestCreateFillsContactAndDefaults(t *testing.T) {
	st := inmem.New()
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, provision.User{UserID: "jdoe", WWID: "W-1", Email: "jdoe@example.com", FirstName: "Jane", LastName: "Doe"}))

	entries, err := intake.ReadFile(filepath.Join("testdata", "batch.yaml"))
	require.NoError(t, err)

	svc := intake.NewService(st, identity.NewResolver(st), nil)
	created, err := svc.Create(ctx, entries)
	require.NoError(t, err)
	require.Len(t, created, 2)

	first := created[0]
	assert.NotZero(t, first.ID)
	assert.Equal(t, "jdoe@example.com", first.Email)
	assert.Equal(t, "Jane Doe", first.ExternalID)
	assert.Equal(t, "W-1", first.WWID)
	assert.False(t, first.CreatedAt.IsZero())
	for _, stage := range provision.AllStages() {
		assert.Equal(t, provision.StatusNotStarted, first.Stage(stage).Status)
	}
	assert.Equal(t, "override@example.com", created[1].Email)
}

func TestCreateKeepsUnknownUsers(t *testing.T) {
	st := inmem.New()
	svc := intake.NewService(st, identity.NewResolver(st), nil)
	created, err := svc.Create(context.Background(), []intake.Entry{{RequestID: "R-1", UserID: "ghost"}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Empty(t, created[0].Email)
}

func TestCreateRejectsInvalidBatches(t *testing.T) {
	svc := intake.NewService(inmem.New(), nil, nil)

	_, err := svc.Create(context.Background(), nil)
	assert.True(t, errors.Is(err, provision.ErrInvalidInput))

	_, err = svc.Create(context.Background(), []intake.Entry{{RequestID: "R-1"}, {RequestID: " "}})
	require.Error(t, err)
	assert.Equal(t, provision.KindInvalidInput, provision.KindOf(err))
	assert.Contains(t, err.Error(), "entry 1")
}

func TestCreateRejectsControlCharacters(t *testing.T) {
	st := inmem.New()
	svc := intake.NewService(st, nil, nil)

	_, err := svc.Create(context.Background(), []intake.Entry{
		{RequestID: "R-1"},
		{RequestID: "R1\r\nBcc: victim@evil.example"},
	})
	require.Error(t, err)
	assert.Equal(t, provision.KindInvalidInput, provision.KindOf(err))
	assert.Contains(t, err.Error(), "entry 1")
	assert.Contains(t, err.Error(), "requestId")

	_, err = svc.Create(context.Background(), []intake.Entry{{RequestID: "R-2", SUT: "sut\n9"}})
	assert.ErrorContains(t, err, "sut")

	n, err := st.CountRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected batches must not store anything")
}
