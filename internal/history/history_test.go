package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()

	first, err := s.Record(ctx, Event{SessionID: "s1", Kind: KindResolve, Path: "/dumps/sm", Outcome: "ok", Subject: "SM"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = s.Record(ctx, Event{SessionID: "s1", Kind: KindRip, Path: "/dumps/a.bin", Outcome: "Success", Subject: "garc", Artifact: "/dumps/a_garc"})
	require.NoError(t, err)
	_, err = s.Record(ctx, Event{SessionID: "s1", Kind: KindRip, Path: "/dumps/b.bin", Outcome: "UnrecognizedFormat"})
	require.NoError(t, err)

	events, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/dumps/b.bin", events[0].Path)
	assert.Equal(t, "/dumps/a.bin", events[1].Path)
	assert.Equal(t, KindRip, events[1].Kind)
	assert.Equal(t, "/dumps/a_garc", events[1].Artifact)
	assert.True(t, events[1].CreatedAt.Equal(base.Add(2*time.Second)))

	none, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRequiresKindAndPath(t *testing.T) {
	s := openStore(t)
	_, err := s.Record(context.Background(), Event{Kind: KindRip})
	require.Error(t, err)
	_, err = s.Record(context.Background(), Event{Path: "/x"})
	require.Error(t, err)
}

func TestReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), Event{SessionID: "s", Kind: KindResolve, Path: "/d", Outcome: "ok"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	events, err := again.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, path, again.Path())
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE schema_version SET version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}
