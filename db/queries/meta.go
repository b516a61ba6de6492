package queries

import (
	"context"
	"database/sql"
	"errors"

	"go.hackfix.me/rxplay/db/types"
)

// Version returns the application version the database was initialized with.
// If the returned sql.Null value is invalid, the database hasn't been
// initialized.
func Version(ctx context.Context, d types.Querier) (sql.Null[string], error) {
	var version sql.Null[string]
	err := d.QueryRowContext(ctx, `SELECT version FROM _meta`).
		Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return version, err
	}

	return version, nil
}

// UploadStats returns the number of stored uploads, and their total declared
// size. Uploads of unknown size are not included in the total.
func UploadStats(ctx context.Context, d types.Querier) (count int, totalSize int64, err error) {
	err = d.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN size > 0 THEN size ELSE 0 END), 0) FROM uploads`).
		Scan(&count, &totalSize)
	return
}
