// Package history records successful generations and serves them back.
package history

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"glowstudio/internal/domain"
	"glowstudio/internal/storage"
	"glowstudio/pkg/zip"
)

// DefaultLimit caps listings when the caller passes no limit.
const DefaultLimit = 50

// Store is the byte storage used for history images.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// Service writes generated images to storage and indexes them in the
// repository.
type Service struct {
	repo   domain.HistoryRepository
	store  Store
	limit  int
	now    func() time.Time
	logger zerolog.Logger
}

// NewService builds a history service. limit bounds list and archive sizes.
func NewService(repo domain.HistoryRepository, store Store, limit int, logger zerolog.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{repo: repo, store: store, limit: limit, now: time.Now, logger: logger}
}

// Record stores img and appends it to the session history.
func (s *Service) Record(ctx context.Context, sessionID, prompt string, img domain.ImageSource) error {
	if img.IsZero() {
		return domain.ErrEmptyImage
	}
	id := uuid.NewString()
	key, err := s.store.Write(ctx, storage.HistoryKey(sessionID, id, img.Extension()), img.Data)
	if err != nil {
		return fmt.Errorf("history: store image: %w", err)
	}
	item := &domain.HistoryItem{
		ID:         id,
		SessionID:  sessionID,
		ImageURL:   s.store.URL(key),
		StorageKey: key,
		Prompt:     prompt,
		MIMEType:   img.MIMEType,
		Bytes:      int64(len(img.Data)),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Save(ctx, item); err != nil {
		return fmt.Errorf("history: save item: %w", err)
	}
	s.logger.Info().Str("session_id", sessionID).Str("history_id", id).Str("key", key).Msg("history recorded")
	return nil
}

// List returns up to limit items of a session, newest first.
func (s *Service) List(ctx context.Context, sessionID string, limit int) ([]domain.HistoryItem, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	return s.repo.ListBySession(ctx, sessionID, limit)
}

// Archive writes every stored image of a session into w as a zip file and
// returns the number of entries. Items whose bytes are gone are skipped.
func (s *Service) Archive(ctx context.Context, sessionID string, w io.Writer) (int, error) {
	items, err := s.List(ctx, sessionID, s.limit)
	if err != nil {
		return 0, err
	}
	entries := make([]zip.Entry, 0, len(items))
	for _, item := range items {
		data, err := s.store.Read(ctx, item.StorageKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("history_id", item.ID).Msg("history image unavailable")
			continue
		}
		entries = append(entries, zip.Entry{
			Filename: fmt.Sprintf("glowstudio-edit-%d.%s", item.CreatedAt.UnixMilli(), domain.ExtensionForMIME(item.MIMEType)),
			Modified: item.CreatedAt,
			Data:     data,
		})
	}
	if err := zip.Write(w, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// MemoryRepository keeps history in process memory. It is used when no
// database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]domain.HistoryItem
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]domain.HistoryItem)}
}

func (r *MemoryRepository) Save(ctx context.Context, item *domain.HistoryItem) error {
	if item == nil || strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("history: item id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = *item
	return nil
}

func (r *MemoryRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.HistoryItem, error) {
	r.mu.RLock()
	out := make([]domain.HistoryItem, 0)
	for _, item := range r.items {
		if item.SessionID == sessionID {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*domain.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

var _ domain.HistoryRepository = (*MemoryRepository)(nil)
