package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type recordingQuerier struct {
	sql  string
	args []any
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql, q.args = sql, args
	return failedRow{err: pgx.ErrNoRows}
}

func (q *recordingQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	return nil, errors.New("boom")
}

const markedQuery = "--sql 0d73b162-d07f-4616-8f43-372df156e0f5\nselect 1 where $1::int > 0;"

func TestSplitMarker(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		marker  string
		stmt    string
		wantErr bool
	}{
		{name: "valid", query: markedQuery, marker: "0d73b162-d07f-4616-8f43-372df156e0f5", stmt: "select 1 where $1::int > 0;"},
		{name: "leading whitespace", query: "\n  " + markedQuery, marker: "0d73b162-d07f-4616-8f43-372df156e0f5", stmt: "select 1 where $1::int > 0;"},
		{name: "missing", query: "select 1;", wantErr: true},
		{name: "bad uuid", query: "--sql 1234\nselect 1;", wantErr: true},
		{name: "empty", query: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, stmt, err := splitMarker(tc.query)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if marker != tc.marker || stmt != tc.stmt {
				t.Fatalf("got (%q, %q)", marker, stmt)
			}
		})
	}
}

func TestSQLRunnerStripsMarker(t *testing.T) {
	db := &recordingQuerier{}
	r := newSQLRunner(db, zerolog.Nop())

	tag, err := r.Exec(t.Context(), markedQuery, 1)
	if err != nil || tag.RowsAffected() != 1 {
		t.Fatalf("Exec = %v, %v", tag, err)
	}
	if db.sql != "select 1 where $1::int > 0;" || len(db.args) != 1 {
		t.Fatalf("executed %q %v", db.sql, db.args)
	}

	if err := r.QueryRow(t.Context(), markedQuery, 1).Scan(new(int)); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("QueryRow err = %v", err)
	}
	if _, err := r.Query(t.Context(), markedQuery, 1); err == nil {
		t.Fatalf("Query should surface driver error")
	}
}

func TestSQLRunnerRejectsUnmarked(t *testing.T) {
	db := &recordingQuerier{}
	r := newSQLRunner(db, zerolog.Nop())
	if _, err := r.Exec(t.Context(), "delete from edit_history"); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("Exec err = %v", err)
	}
	if err := r.QueryRow(t.Context(), "select 1").Scan(); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("QueryRow err = %v", err)
	}
	if db.sql != "" {
		t.Fatalf("unmarked query reached the database: %q", db.sql)
	}
}
