// Package upload stores files received by the upload endpoint. The content is
// written to a filesystem, and a record of each upload is kept in the
// database.
package upload

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/mr-tron/base58"

	dbm "go.hackfix.me/rxplay/db/models"
	"go.hackfix.me/rxplay/db/types"
	"go.hackfix.me/rxplay/models"
)

// ErrTooLarge is returned when the uploaded content exceeds the maximum size.
var ErrTooLarge = errors.New("upload exceeds the maximum size")

// Store writes uploaded files to a filesystem, and records them in the
// database.
type Store struct {
	fs      vfs.FileSystem
	dir     string
	db      types.Querier
	maxSize int64
	idGen   func() string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStore returns a new Store that writes files to dir on fs.
func NewStore(fs vfs.FileSystem, dir string, d types.Querier, opts ...Option) (*Store, error) {
	if fs == nil {
		return nil, errors.New("upload filesystem is required")
	}
	if d == nil {
		return nil, errors.New("upload database is required")
	}
	if dir == "" {
		return nil, errors.New("upload directory is required")
	}

	s := &Store{fs: fs, dir: dir, db: d}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating upload directory: %w", err)
	}

	return s, nil
}

// Save writes the content of part to the filesystem, and records it in the
// database. The stored file is removed if the upload can't be recorded.
func (s *Store) Save(ctx context.Context, part models.FilePart) (_ *dbm.Upload, rerr error) {
	if part.Content == nil {
		return nil, errors.New("upload has no content")
	}

	start := time.Now()
	id := s.idGen()
	path := filepath.Join(s.dir, id)
	logger := s.logger.With("id", id, "name", part.Name, "filename", part.Filename)

	if _, err := s.fs.Stat(path); err == nil {
		s.metrics.IncrCounter([]string{"upload", "failed"}, 1)
		return nil, fmt.Errorf("upload file '%s' already exists", path)
	}
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		s.metrics.IncrCounter([]string{"upload", "failed"}, 1)
		return nil, fmt.Errorf("failed creating upload file: %w", err)
	}

	defer func() {
		if rerr != nil {
			s.metrics.IncrCounter([]string{"upload", "failed"}, 1)
			if err := s.fs.Remove(path); err != nil && !vfs.IsErrNotExist(err) {
				logger.Warn("failed removing stored upload", "error", err)
			}
		}
	}()

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hash), io.LimitReader(part.Content, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed writing upload file: %w", err)
	}
	if n > s.maxSize {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, s.maxSize)
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	up := &dbm.Upload{
		ID:       id,
		Name:     part.Name,
		Filename: part.Filename,
		Size:     part.Size,
		Digest:   base58.Encode(hash.Sum(nil)),
		Path:     path,
	}
	if err = up.Save(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed recording upload: %w", err)
	}

	s.metrics.IncrCounter([]string{"upload", "stored"}, 1)
	s.metrics.IncrCounter([]string{"upload", "bytes"}, float32(n))
	s.metrics.MeasureSince([]string{"upload", "save"}, start)
	logger.Debug("stored upload", "declared_size", part.Size, "written", n, "digest", up.Digest)

	return up, nil
}

// List returns the most recent upload records, newest first. A limit of 0
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]*dbm.Upload, error) {
	uploads, err := dbm.Uploads(ctx, s.db, &types.Filter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed listing uploads: %w", err)
	}
	return uploads, nil
}

// Open returns the stored content of the upload with the given ID. It returns
// a models.NotFoundError if there's no such upload.
func (s *Store) Open(ctx context.Context, id string) (*dbm.Upload, vfs.File, error) {
	up := &dbm.Upload{ID: id}
	if err := up.Load(ctx, s.db); err != nil {
		if errors.Is(err, types.ErrNoResult) {
			return nil, nil, models.NewNotFoundError("upload %s", id)
		}
		return nil, nil, err
	}

	f, err := s.fs.Open(up.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed opening upload file: %w", err)
	}

	return up, f, nil
}

// Delete removes the upload record with the given ID, and its stored content.
// It returns a models.NotFoundError if there's no such upload.
func (s *Store) Delete(ctx context.Context, id string) error {
	up := &dbm.Upload{ID: id}
	if err := up.Load(ctx, s.db); err != nil {
		if errors.Is(err, types.ErrNoResult) {
			return models.NewNotFoundError("upload %s", id)
		}
		return err
	}

	if err := up.Delete(ctx, s.db); err != nil {
		if errors.Is(err, types.ErrNoResult) {
			return models.NewNotFoundError("upload %s", id)
		}
		return fmt.Errorf("failed deleting upload record: %w", err)
	}

	if err := s.fs.Remove(up.Path); err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed removing upload file: %w", err)
	}

	s.metrics.IncrCounter([]string{"upload", "deleted"}, 1)
	s.logger.Debug("deleted upload", "id", id, "path", up.Path)

	return nil
}

// MaxSize returns the maximum number of bytes stored per upload.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}
