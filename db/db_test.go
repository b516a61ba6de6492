package db_test

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/rxplay/db"
	"go.hackfix.me/rxplay/db/migrator"
	"go.hackfix.me/rxplay/db/models"
	"go.hackfix.me/rxplay/db/queries"
	"go.hackfix.me/rxplay/db/types"
)

// newTestDB opens a uniquely named in-memory database. The clock advances by
// one second on every call.
func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	var tick atomic.Int64
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	timeNow := func() time.Time {
		return start.Add(time.Duration(tick.Add(1)) * time.Second)
	}

	// Not using just :memory: so that all connections share the same database.
	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:rxplay-%x?mode=memory&cache=shared", rndName), timeNow)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))

	return d
}

func TestDBInit(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)

	version, err := queries.Version(t.Context(), d)
	require.NoError(t, err)
	assert.True(t, version.Valid)
	assert.Equal(t, "test", version.V)

	// Running it again doesn't reapply migrations, nor overwrite the version.
	err = d.Init("other", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	version, err = queries.Version(t.Context(), d)
	require.NoError(t, err)
	assert.Equal(t, "test", version.V)

	var count int
	err = d.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM _migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDBMigrate(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	logger := slog.New(slog.DiscardHandler)

	tables := func() []string {
		rows, err := d.QueryContext(t.Context(),
			`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
		require.NoError(t, err)
		defer rows.Close()
		var names []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())
		return names
	}

	assert.Equal(t, []string{"_meta", "_migrations", "uploads"}, tables())

	require.NoError(t, d.Migrate(migrator.MigrationDown, migrator.TargetAll, logger))
	assert.Equal(t, []string{"_migrations"}, tables())

	// Rolling back again is a no-op.
	require.NoError(t, d.Migrate(migrator.MigrationDown, "0001", logger))

	require.NoError(t, d.Migrate(migrator.MigrationUp, "0001", logger))
	assert.Equal(t, []string{"_meta", "_migrations", "uploads"}, tables())

	err := d.Migrate(migrator.MigrationUp, "0002", logger)
	assert.EqualError(t, err, "unknown migration target '0002'")
}

func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("ok/save_load_delete", func(t *testing.T) {
		t.Parallel()

		d := newTestDB(t)
		ctx := t.Context()

		u := &models.Upload{
			ID: "abc", Name: "file", Filename: "a.txt", Size: 5,
			Digest: "digest", Path: "/uploads/abc",
		}
		require.NoError(t, u.Save(ctx, d))
		assert.False(t, u.CreatedAt.IsZero())

		loaded := &models.Upload{ID: "abc"}
		require.NoError(t, loaded.Load(ctx, d))
		assert.Equal(t, u.Filename, loaded.Filename)
		assert.Equal(t, u.Size, loaded.Size)
		assert.Equal(t, u.Digest, loaded.Digest)
		assert.Equal(t, u.Path, loaded.Path)
		assert.True(t, u.CreatedAt.Equal(loaded.CreatedAt))

		count, total, err := queries.UploadStats(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, int64(5), total)

		require.NoError(t, u.Delete(ctx, d))
		err = loaded.Load(ctx, d)
		assert.ErrorIs(t, err, types.ErrNoResult)

		err = u.Delete(ctx, d)
		assert.EqualError(t, err, "upload with ID 'abc' doesn't exist")
	})

	t.Run("err/duplicate", func(t *testing.T) {
		t.Parallel()

		d := newTestDB(t)
		u := &models.Upload{ID: "dup", Name: "file", Size: -1, Digest: "x", Path: "/uploads/dup"}
		require.NoError(t, u.Save(t.Context(), d))

		u2 := &models.Upload{ID: "dup", Name: "file", Size: -1, Digest: "x", Path: "/uploads/other"}
		err := u2.Save(t.Context(), d)
		assert.ErrorIs(t, err, types.ErrDuplicate)
		assert.EqualError(t, err, "upload with ID 'dup' already exists")
	})

	t.Run("err/no_id", func(t *testing.T) {
		t.Parallel()

		d := newTestDB(t)
		err := (&models.Upload{}).Save(t.Context(), d)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
		assert.EqualError(t, err, "invalid input: upload ID must be set")
	})
}

func TestUploads(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := t.Context()

	for i, size := range []int64{10, -1, 30} {
		u := &models.Upload{
			ID: fmt.Sprintf("id%d", i), Name: "file", Size: size,
			Digest: "x", Path: fmt.Sprintf("/uploads/id%d", i),
		}
		require.NoError(t, u.Save(ctx, d))
	}

	tests := []struct {
		name   string
		filter *types.Filter
		expIDs []string
	}{
		{name: "ok/all", expIDs: []string{"id2", "id1", "id0"}},
		{name: "ok/limit", filter: &types.Filter{Limit: 2}, expIDs: []string{"id2", "id1"}},
		{name: "ok/where", filter: types.NewFilter("u.size > ?", 0), expIDs: []string{"id2", "id0"}},
		{
			name:   "ok/and",
			filter: types.NewFilter("u.size > ?", 0).And(&types.Filter{Where: "1=1", Limit: 1}),
			expIDs: []string{"id2"},
		},
		{name: "ok/no_match", filter: types.NewFilter("u.id = ?", "nope"), expIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uploads, err := models.Uploads(ctx, d, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(uploads))
			for _, u := range uploads {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.expIDs, ids)
		})
	}

	count, total, err := queries.UploadStats(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(40), total)
}
