package domain

import "context"

// HistoryRepository persists the generation history. Items are returned newest first.
type HistoryRepository interface {
	Save(ctx context.Context, item *HistoryItem) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]HistoryItem, error)
	Get(ctx context.Context, id string) (*HistoryItem, error)
}
