package domain

import "time"

// HistoryItem records one successful generation.
type HistoryItem struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ImageURL   string    `json:"image_url"`
	StorageKey string    `json:"storage_key"`
	Prompt     string    `json:"prompt"`
	MIMEType   string    `json:"mime_type"`
	Bytes      int64     `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
