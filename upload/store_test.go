package upload_test

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/rxplay/db"
	"go.hackfix.me/rxplay/db/types"
	"go.hackfix.me/rxplay/models"
	"go.hackfix.me/rxplay/upload"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	var tick atomic.Int64
	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:rxplay-%x?mode=memory&cache=shared", rndName),
		func() time.Time { return timeNow.Add(time.Duration(tick.Add(1)) * time.Second) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))

	return d
}

func newTestStore(t *testing.T, fs vfs.FileSystem, opts ...upload.Option) *upload.Store {
	t.Helper()

	m, err := metrics.New(metrics.DefaultConfig("test"), &metrics.BlackholeSink{})
	require.NoError(t, err)

	var n atomic.Int32
	opts = append([]upload.Option{
		upload.WithLogger(slog.New(slog.DiscardHandler)),
		upload.WithMetrics(m),
		upload.WithIDGenerator(func() string { return fmt.Sprintf("upload%d", n.Add(1)) }),
	}, opts...)
	s, err := upload.NewStore(fs, "/uploads", newTestDB(t), opts...)
	require.NoError(t, err)

	return s
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)

	tests := []struct {
		name   string
		fs     vfs.FileSystem
		dir    string
		d      types.Querier
		opts   []upload.Option
		expErr string
	}{
		{name: "ok/valid", fs: memoryfs.New(), dir: "/data/uploads", d: d},
		{name: "err/no_fs", dir: "/uploads", d: d, expErr: "upload filesystem is required"},
		{name: "err/no_db", fs: memoryfs.New(), dir: "/uploads", expErr: "upload database is required"},
		{name: "err/no_dir", fs: memoryfs.New(), d: d, expErr: "upload directory is required"},
		{
			name: "err/invalid_max_size", fs: memoryfs.New(), dir: "/uploads", d: d,
			opts:   []upload.Option{upload.WithMaxSize(0)},
			expErr: "maximum upload size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := upload.NewStore(tt.fs, tt.dir, tt.d, tt.opts...)
			if tt.expErr != "" {
				assert.EqualError(t, err, tt.expErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			fi, err := tt.fs.Stat(tt.dir)
			require.NoError(t, err)
			assert.True(t, fi.IsDir())
		})
	}
}

func TestStoreSave(t *testing.T) {
	t.Parallel()

	t.Run("ok/stored", func(t *testing.T) {
		t.Parallel()

		fs := memoryfs.New()
		s := newTestStore(t, fs)

		content := []byte("hello, upload")
		up, err := s.Save(t.Context(), models.FilePart{
			Name: "file", Filename: "hello.txt", Size: int64(len(content)),
			Content: bytes.NewReader(content),
		})
		require.NoError(t, err)

		assert.Equal(t, "upload1", up.ID)
		assert.Equal(t, "/uploads/upload1", up.Path)
		assert.Equal(t, "hello.txt", up.Filename)
		assert.Equal(t, int64(len(content)), up.Size)
		sum := sha256.Sum256(content)
		assert.Equal(t, base58.Encode(sum[:]), up.Digest)

		stored, err := vfs.ReadFile(fs, up.Path)
		require.NoError(t, err)
		assert.Equal(t, content, stored)

		loaded, f, err := s.Open(t.Context(), up.ID)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, up.Digest, loaded.Digest)

		_, _, err = s.Open(t.Context(), "missing")
		var nferr *models.NotFoundError
		require.ErrorAs(t, err, &nferr)
		assert.Equal(t, "upload missing", nferr.Error())
	})

	t.Run("ok/unknown_size", func(t *testing.T) {
		t.Parallel()

		s := newTestStore(t, memoryfs.New())
		up, err := s.Save(t.Context(), models.FilePart{
			Name: "file", Size: -1, Content: strings.NewReader("abc"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-1), up.Size)
	})

	t.Run("err/too_large", func(t *testing.T) {
		t.Parallel()

		fs := memoryfs.New()
		s := newTestStore(t, fs, upload.WithMaxSize(4))
		_, err := s.Save(t.Context(), models.FilePart{
			Name: "file", Size: 5, Content: strings.NewReader("12345"),
		})
		require.ErrorIs(t, err, upload.ErrTooLarge)

		_, err = fs.Stat("/uploads/upload1")
		assert.True(t, vfs.IsErrNotExist(err))
	})

	t.Run("err/read", func(t *testing.T) {
		t.Parallel()

		fs := memoryfs.New()
		s := newTestStore(t, fs)
		errRead := errors.New("connection reset")
		_, err := s.Save(t.Context(), models.FilePart{
			Name: "file", Size: 10, Content: &failingReader{err: errRead},
		})
		require.ErrorIs(t, err, errRead)

		_, err = fs.Stat("/uploads/upload1")
		assert.True(t, vfs.IsErrNotExist(err))
	})

	t.Run("err/duplicate_record", func(t *testing.T) {
		t.Parallel()

		fs := memoryfs.New()
		s := newTestStore(t, fs, upload.WithIDGenerator(func() string { return "same" }))
		_, err := s.Save(t.Context(), models.FilePart{Name: "file", Size: 1, Content: strings.NewReader("a")})
		require.NoError(t, err)

		// The file exists, so it's rejected before reaching the database, and
		// the existing file is kept.
		_, err = s.Save(t.Context(), models.FilePart{Name: "file", Size: 1, Content: strings.NewReader("b")})
		require.Error(t, err)
		stored, err := vfs.ReadFile(fs, "/uploads/same")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), stored)
	})

	t.Run("err/no_content", func(t *testing.T) {
		t.Parallel()

		s := newTestStore(t, memoryfs.New())
		_, err := s.Save(t.Context(), models.FilePart{Name: "file"})
		assert.EqualError(t, err, "upload has no content")
	})
}

func TestStoreList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, memoryfs.New())
	for _, c := range []string{"a", "bb", "ccc"} {
		_, err := s.Save(t.Context(), models.FilePart{
			Name: "file", Size: int64(len(c)), Content: strings.NewReader(c),
		})
		require.NoError(t, err)
	}

	all, err := s.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "upload3", all[0].ID)
	assert.Equal(t, "upload1", all[2].ID)

	recent, err := s.List(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "upload3", recent[0].ID)
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	s := newTestStore(t, fs)
	for _, c := range []string{"a", "bb"} {
		_, err := s.Save(t.Context(), models.FilePart{
			Name: "file", Size: int64(len(c)), Content: strings.NewReader(c),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		id     string
		expErr string
	}{
		{name: "ok/deleted", id: "upload1"},
		{name: "err/already_deleted", id: "upload1", expErr: "upload upload1"},
		{name: "err/missing", id: "missing", expErr: "upload missing"},
	}

	// Subtests share the store, so they run in order.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Delete(t.Context(), tt.id)
			if tt.expErr != "" {
				var nferr *models.NotFoundError
				require.ErrorAs(t, err, &nferr)
				assert.Equal(t, tt.expErr, nferr.Error())
				return
			}
			require.NoError(t, err)

			_, err = fs.Stat("/uploads/" + tt.id)
			assert.True(t, vfs.IsErrNotExist(err))
			_, _, err = s.Open(t.Context(), tt.id)
			var nferr *models.NotFoundError
			assert.ErrorAs(t, err, &nferr)
		})
	}

	remaining, err := s.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "upload2", remaining[0].ID)

	stored, err := vfs.ReadFile(fs, "/uploads/upload2")
	require.NoError(t, err)
	assert.Equal(t, []byte("bb"), stored)
}

func TestStoreMaxSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []upload.Option
		exp  int64
	}{
		{name: "ok/default", exp: upload.DefaultMaxSize},
		{name: "ok/custom", opts: []upload.Option{upload.WithMaxSize(1024)}, exp: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestStore(t, memoryfs.New(), tt.opts...)
			assert.Equal(t, tt.exp, s.MaxSize())
		})
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
