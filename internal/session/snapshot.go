package session

import (
	"time"

	"glowstudio/internal/domain"
)

// Snapshot is an immutable view of a session after a transition. Version
// grows by one per transition so observers can drop out-of-order copies.
type Snapshot struct {
	SessionID    string               `json:"session_id"`
	Version      uint64               `json:"version"`
	Status       domain.SessionStatus `json:"status"`
	Original     *domain.ImageView    `json:"original,omitempty"`
	Working      *domain.ImageView    `json:"working,omitempty"`
	Generated    *domain.ImageView    `json:"generated,omitempty"`
	ActiveFilter string               `json:"active_filter"`
	ErrorMessage string               `json:"error_message,omitempty"`
	ErrorKind    domain.FailureKind   `json:"error_kind,omitempty"`
	LastPrompt   string               `json:"last_prompt,omitempty"`
	Locale       string               `json:"locale"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Check reports the first violated session invariant, or nil.
func (s Snapshot) Check() error {
	switch {
	case (s.Status == domain.StatusIdle) != (s.Original == nil):
		return errInvariant("status is IDLE iff no original image")
	case s.Original != nil && s.Working == nil:
		return errInvariant("working image missing while original is set")
	case s.Status == domain.StatusProcessing && s.Generated != nil:
		return errInvariant("generated image present while processing")
	case s.Status == domain.StatusSuccess && (s.Generated == nil || s.ErrorMessage != ""):
		return errInvariant("success without generated image or with error")
	case s.Status == domain.StatusError && s.ErrorMessage == "":
		return errInvariant("error status without message")
	case s.Working != nil && s.Original != nil && s.Working.ID != s.Original.ID && s.Working.ParentID != s.Original.ID:
		return errInvariant("working image not derived from original")
	}
	return nil
}

type errInvariant string

func (e errInvariant) Error() string { return "session invariant: " + string(e) }
