package models

import (
	"context"
	"fmt"
	"time"

	"go.hackfix.me/rxplay/db/types"
)

// Upload is the record of a file received by the upload endpoint.
type Upload struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Name is the form field name of the uploaded part.
	Name     string `json:"name"`
	Filename string `json:"filename"`
	// Size is the declared content length, or -1 if it was unknown.
	Size int64 `json:"size"`
	// Digest is the base58 encoded SHA-256 hash of the stored content.
	Digest string `json:"digest"`
	// Path is the location of the content on the upload filesystem.
	Path string `json:"path"`
}

// Save inserts the upload record in the database. The ID must be set.
func (u *Upload) Save(ctx context.Context, d types.Querier) error {
	if u.ID == "" {
		return types.InvalidInput("upload ID must be set")
	}

	timeNow := d.TimeNow().UTC()
	_, err := d.ExecContext(ctx, `INSERT INTO uploads
		(id, created_at, name, filename, size, digest, path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, timeNow, u.Name, u.Filename, u.Size, u.Digest, u.Path)
	if err != nil {
		return types.Err("upload", fmt.Sprintf("ID '%s'", u.ID), err)
	}
	u.CreatedAt = timeNow

	return nil
}

// Load the upload record with the set ID from the database.
func (u *Upload) Load(ctx context.Context, d types.Querier) error {
	if u.ID == "" {
		return types.InvalidInput("upload ID must be set")
	}

	uploads, err := Uploads(ctx, d, types.NewFilter("u.id = ?", u.ID))
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		return types.NoResult("upload", fmt.Sprintf("ID '%s'", u.ID))
	}
	*u = *uploads[0]

	return nil
}

// Delete removes the upload record from the database. It returns an error if
// the record doesn't exist.
func (u *Upload) Delete(ctx context.Context, d types.Querier) error {
	if u.ID == "" {
		return types.InvalidInput("upload ID must be set")
	}

	filterStr := fmt.Sprintf("ID '%s'", u.ID)
	res, err := d.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, u.ID)
	if err != nil {
		return types.Err("upload", filterStr, err)
	}

	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	} else if n == 0 {
		return types.NoResult("upload", filterStr)
	}

	return nil
}

// Uploads returns upload records from the database, newest first. An optional
// filter can be passed to limit the results.
func Uploads(ctx context.Context, d types.Querier, filter *types.Filter) (uploads []*Upload, rerr error) {
	where, limit, args := filter.Clauses()
	query := fmt.Sprintf(`SELECT
			u.id, u.created_at, u.name, u.filename, u.size, u.digest, u.path
		FROM uploads u %s
		ORDER BY u.created_at DESC, u.id DESC %s`, where, limit)

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed loading uploads: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("failed closing uploads rows: %w", err)
		}
	}()

	uploads = make([]*Upload, 0)
	for rows.Next() {
		var u Upload
		err = rows.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Filename, &u.Size, &u.Digest, &u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed scanning upload data: %w", err)
		}
		uploads = append(uploads, &u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over uploads rows: %w", err)
	}

	return uploads, nil
}
