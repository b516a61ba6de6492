package types

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"
)

// Querier exposes only methods for running SQL queries, and some helper functions.
type Querier interface {
	NewContext() context.Context
	TimeNow() time.Time
	ExecContext(ctx context.Context, sql string, arguments ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Filter narrows down the rows returned by a query.
type Filter struct {
	Where string
	Args  []any
	// Limit caps the number of returned rows. 0 means no limit.
	Limit int
}

// NewFilter creates a new query filter.
func NewFilter(where string, args ...any) *Filter {
	return &Filter{Where: where, Args: args}
}

// And joins f2 with f1 using an AND condition. The lowest non-zero limit is
// kept.
func (f1 *Filter) And(f2 *Filter) *Filter {
	limit := f1.Limit
	if f2.Limit > 0 && (limit == 0 || f2.Limit < limit) {
		limit = f2.Limit
	}
	return &Filter{
		Where: fmt.Sprintf("(%s) AND (%s)", f1.Where, f2.Where),
		Args:  slices.Concat(f1.Args, f2.Args),
		Limit: limit,
	}
}

// Clauses renders the filter as a WHERE clause and a LIMIT clause, which is
// empty if no limit is set. A nil filter matches all rows.
func (f1 *Filter) Clauses() (where, limit string, args []any) {
	if f1 == nil || f1.Where == "" {
		where = "WHERE 1=1"
	} else {
		where = fmt.Sprintf("WHERE %s", f1.Where)
	}
	if f1 == nil {
		return where, "", nil
	}
	if f1.Limit > 0 {
		limit = fmt.Sprintf("LIMIT %d", f1.Limit)
	}
	return where, limit, f1.Args
}
