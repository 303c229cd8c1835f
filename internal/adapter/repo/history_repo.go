package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"glowstudio/internal/domain"
	"glowstudio/internal/infra"
	"glowstudio/internal/sqlinline"
)

// HistoryRepositoryPG implements domain.HistoryRepository on PostgreSQL.
type HistoryRepositoryPG struct {
	db infra.SQLExecutor
}

// NewHistoryRepository constructs a repository over the given executor.
func NewHistoryRepository(db infra.SQLExecutor) *HistoryRepositoryPG {
	return &HistoryRepositoryPG{db: db}
}

// EnsureSchema creates the history table when missing.
func (r *HistoryRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, sqlinline.QEnsureHistorySchema)
	return err
}

// Save inserts one history item.
func (r *HistoryRepositoryPG) Save(ctx context.Context, item *domain.HistoryItem) error {
	if item == nil {
		return errors.New("history item is required")
	}
	_, err := r.db.Exec(ctx, sqlinline.QInsertHistoryItem,
		item.ID, item.SessionID, item.ImageURL, item.StorageKey, item.Prompt, item.MIMEType, item.Bytes, item.CreatedAt)
	return err
}

// ListBySession returns the newest items of a session.
func (r *HistoryRepositoryPG) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.HistoryItem, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListHistoryBySession, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.HistoryItem, 0)
	for rows.Next() {
		var item domain.HistoryItem
		if err := rows.Scan(&item.ID, &item.SessionID, &item.ImageURL, &item.StorageKey, &item.Prompt, &item.MIMEType, &item.Bytes, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get loads one item by id.
func (r *HistoryRepositoryPG) Get(ctx context.Context, id string) (*domain.HistoryItem, error) {
	var item domain.HistoryItem
	err := r.db.QueryRow(ctx, sqlinline.QSelectHistoryItem, id).
		Scan(&item.ID, &item.SessionID, &item.ImageURL, &item.StorageKey, &item.Prompt, &item.MIMEType, &item.Bytes, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

var _ domain.HistoryRepository = (*HistoryRepositoryPG)(nil)
