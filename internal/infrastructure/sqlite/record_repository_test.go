package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

func newTestRepo(t *testing.T) (*DB, *RecordRepository) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, db.RecordRepository()
}

func TestRecordRepository_ReadMissingCollection(t *testing.T) {
	_, repo := newTestRepo(t)

	_, err := repo.ReadUserRecords(context.Background(), "alice", "view")
	require.ErrorIs(t, err, element.ErrNotFound)
}

func TestRecordRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	records := map[string]element.Record{
		"hoststatus": {
			"name":         "hoststatus",
			"title":        "Host status",
			"public":       true,
			"single_infos": []any{"host"},
			"context":      map[string]any{"host": map[string]any{"host": "web01"}},
		},
		"empty": {},
	}
	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "view", records))

	got, err := repo.ReadUserRecords(ctx, "alice", "view")
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestRecordRepository_WriteIsFullSnapshot(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "view", map[string]element.Record{
		"a": {"title": "A"}, "b": {"title": "B"},
	}))
	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "view", map[string]element.Record{
		"b": {"title": "B2"},
	}))
	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "dashboard", map[string]element.Record{
		"main": {"title": "Main"},
	}))

	got, err := repo.ReadUserRecords(ctx, "alice", "view")
	require.NoError(t, err)
	require.Equal(t, map[string]element.Record{"b": {"title": "B2"}}, got)
}

func TestRecordRepository_EmptySnapshotKeepsCollection(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	require.NoError(t, repo.WriteUserRecords(ctx, "bob", "view", map[string]element.Record{}))
	got, err := repo.ReadUserRecords(ctx, "bob", "view")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRecordRepository_ListKnownUsers(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	users, err := repo.ListKnownUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	for _, u := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.WriteUserRecords(ctx, u, "view", nil))
	}
	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "dashboard", nil))

	users, err = repo.ListKnownUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, users)
}

func TestRecordRepository_CorruptRow(t *testing.T) {
	ctx := context.Background()
	db, repo := newTestRepo(t)

	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "view", map[string]element.Record{"a": {"title": "A"}}))
	_, err := db.conn.Exec(`UPDATE user_records SET data = '{"title": ' WHERE name = 'a'`)
	require.NoError(t, err)

	_, err = repo.ReadUserRecords(ctx, "alice", "view")
	require.ErrorIs(t, err, element.ErrConfigCorrupt)
	var corrupt *element.ConfigCorruptError
	require.ErrorAs(t, err, &corrupt)
	require.Equal(t, "alice", corrupt.User)
	require.Contains(t, corrupt.Path, "alice/view/a")
}

func TestRecordRepository_LoadsIntoStore(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)
	require.NoError(t, repo.WriteUserRecords(ctx, "alice", "graph", map[string]element.Record{
		"cpu": {"title": "CPU"},
	}))

	typ, err := element.NewBuilder("graph").Overridable().Build()
	require.NoError(t, err)
	store := element.NewStore(typ, repo, testutil.Permissions())
	require.NoError(t, store.Load(ctx))

	inst, err := store.Get(element.Key{Owner: "alice", Name: "cpu"})
	require.NoError(t, err)
	require.Equal(t, "CPU", inst.Title())
}
