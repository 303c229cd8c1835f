package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface the repositories depend on.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// ErrSQLMarker rejects queries without a leading --sql <uuid> line.
var ErrSQLMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// pgxQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SQLRunner executes audited inline SQL. Every statement is identified in
// the logs by its marker instead of its text.
type SQLRunner struct {
	db     pgxQuerier
	logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return newSQLRunner(pool, logger)
}

func newSQLRunner(db pgxQuerier, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{db: db, logger: logger.With().Str("component", "sql").Logger()}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, stmt, err := splitMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.db.Exec(ctx, stmt, args...)
	r.trace(marker, "exec", start, err).Int64("rows", tag.RowsAffected()).Send()
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, stmt, err := splitMarker(query)
	if err != nil {
		return failedRow{err: err}
	}
	return &tracedRow{
		row:    r.db.QueryRow(ctx, stmt, args...),
		runner: r,
		marker: marker,
		start:  time.Now(),
	}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, stmt, err := splitMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		r.trace(marker, "query", start, err).Send()
		return nil, err
	}
	return &tracedRows{Rows: rows, runner: r, marker: marker, start: start}, nil
}

// trace starts a log event for one statement. Failures log at error level,
// pgx.ErrNoRows included only at debug.
func (r *SQLRunner) trace(marker, op string, start time.Time, err error) *zerolog.Event {
	var ev *zerolog.Event
	switch {
	case err == nil, errors.Is(err, pgx.ErrNoRows):
		ev = r.logger.Debug()
	default:
		ev = r.logger.Error().Err(err)
	}
	return ev.Str("sql", marker).Str("op", op).Dur("elapsed", time.Since(start))
}

type tracedRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (t *tracedRow) Scan(dest ...any) error {
	err := t.row.Scan(dest...)
	t.runner.trace(t.marker, "query_row", t.start, err).Send()
	return err
}

type tracedRows struct {
	pgx.Rows
	runner *SQLRunner
	marker string
	start  time.Time
	n      int
}

func (t *tracedRows) Next() bool {
	ok := t.Rows.Next()
	if ok {
		t.n++
	}
	return ok
}

func (t *tracedRows) Close() {
	t.Rows.Close()
	t.runner.trace(t.marker, "query", t.start, t.Rows.Err()).Int("rows", t.n).Send()
}

type failedRow struct {
	err error
}

func (f failedRow) Scan(...any) error {
	return f.err
}

// splitMarker returns the marker uuid and the statement without its marker line.
func splitMarker(query string) (string, string, error) {
	head, body, _ := strings.Cut(strings.TrimSpace(query), "\n")
	m := markerRegexp.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return "", "", ErrSQLMarker
	}
	return m[1], body, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
