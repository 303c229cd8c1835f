package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"glowstudio/internal/domain"
	"glowstudio/internal/sqlinline"
)

type historyTestSQL struct {
	execQuery string
	execArgs  []any
	items     []domain.HistoryItem
	listArgs  []any
}

func (h *historyTestSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	h.execQuery = query
	h.execArgs = args
	return pgconn.CommandTag{}, nil
}

func (h *historyTestSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if query != sqlinline.QSelectHistoryItem {
		return errRow{err: fmt.Errorf("unexpected query: %s", query)}
	}
	for _, item := range h.items {
		if item.ID == args[0] {
			return itemRow{item: item}
		}
	}
	return errRow{err: pgx.ErrNoRows}
}

func (h *historyTestSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if query != sqlinline.QListHistoryBySession {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	h.listArgs = args
	return &historyRows{items: h.items}, nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type itemRow struct{ item domain.HistoryItem }

func (r itemRow) Scan(dest ...any) error { return scanItem(r.item, dest) }

func scanItem(item domain.HistoryItem, dest []any) error {
	if len(dest) != 8 {
		return fmt.Errorf("unexpected scan args: %d", len(dest))
	}
	*dest[0].(*string) = item.ID
	*dest[1].(*string) = item.SessionID
	*dest[2].(*string) = item.ImageURL
	*dest[3].(*string) = item.StorageKey
	*dest[4].(*string) = item.Prompt
	*dest[5].(*string) = item.MIMEType
	*dest[6].(*int64) = item.Bytes
	*dest[7].(*time.Time) = item.CreatedAt
	return nil
}

type historyRows struct {
	items []domain.HistoryItem
	idx   int
}

func (r *historyRows) Close()                                       {}
func (r *historyRows) Err() error                                   { return nil }
func (r *historyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *historyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *historyRows) Values() ([]any, error)                       { return nil, errors.New("not supported") }
func (r *historyRows) RawValues() [][]byte                          { return nil }
func (r *historyRows) Conn() *pgx.Conn                              { return nil }

func (r *historyRows) Next() bool {
	if r.idx >= len(r.items) {
		return false
	}
	r.idx++
	return true
}

func (r *historyRows) Scan(dest ...any) error {
	return scanItem(r.items[r.idx-1], dest)
}

func TestHistoryRepositorySave(t *testing.T) {
	db := &historyTestSQL{}
	repo := NewHistoryRepository(db)
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	item := &domain.HistoryItem{ID: "0b3c", SessionID: "s1", ImageURL: "/static/k", StorageKey: "k", Prompt: "hat", MIMEType: "image/png", Bytes: 12, CreatedAt: created}
	if err := repo.Save(context.Background(), item); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if db.execQuery != sqlinline.QInsertHistoryItem {
		t.Fatalf("unexpected query: %s", db.execQuery)
	}
	if len(db.execArgs) != 8 || db.execArgs[0] != "0b3c" || db.execArgs[7] != created {
		t.Fatalf("unexpected args: %v", db.execArgs)
	}
	if err := repo.Save(context.Background(), nil); err == nil {
		t.Fatal("Save(nil) should fail")
	}
}

func TestHistoryRepositoryList(t *testing.T) {
	db := &historyTestSQL{items: []domain.HistoryItem{
		{ID: "b", SessionID: "s1", Prompt: "second"},
		{ID: "a", SessionID: "s1", Prompt: "first"},
	}}
	items, err := NewHistoryRepository(db).ListBySession(context.Background(), "s1", 20)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(items) != 2 || items[0].Prompt != "second" {
		t.Fatalf("items = %+v", items)
	}
	if db.listArgs[0] != "s1" || db.listArgs[1] != 20 {
		t.Fatalf("list args = %v", db.listArgs)
	}
}

func TestHistoryRepositoryGet(t *testing.T) {
	db := &historyTestSQL{items: []domain.HistoryItem{{ID: "a", SessionID: "s1"}}}
	repo := NewHistoryRepository(db)
	item, err := repo.Get(context.Background(), "a")
	if err != nil || item.SessionID != "s1" {
		t.Fatalf("Get = %+v, %v", item, err)
	}
	if _, err := repo.Get(context.Background(), "zz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing Get = %v", err)
	}
}

func TestEnsureSchemaUsesMarkedQuery(t *testing.T) {
	db := &historyTestSQL{}
	if err := NewHistoryRepository(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if db.execQuery != sqlinline.QEnsureHistorySchema {
		t.Fatal("EnsureSchema should run the schema query")
	}
}
