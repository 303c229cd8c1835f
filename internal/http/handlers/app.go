package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"glowstudio/internal/domain"
	"glowstudio/internal/history"
	"glowstudio/internal/i18n"
	"glowstudio/internal/imaging"
	"glowstudio/internal/infra"
	"glowstudio/internal/middleware"
	"glowstudio/internal/providers/prompt"
	"glowstudio/internal/session"
	"glowstudio/internal/storage"
)

// App carries the dependencies shared by every handler.
type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Sessions *session.Manager
	Filters  *imaging.Engine
	Enhancer prompt.Enhancer
	History  *history.Service
	Store    *storage.FileStore
	// Country resolves visitor countries for locale detection; may be nil.
	Country middleware.CountryLookup
}

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Session *session.Snapshot `json:"session,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

// writeDomainError maps core errors to HTTP responses. snap, when given, is
// returned so clients can resync after a rejected operation.
func (a *App) writeDomainError(w http.ResponseWriter, r *http.Request, err error, snap *session.Snapshot) {
	locale := middleware.LocaleFromContext(r.Context())
	if snap != nil {
		locale = snap.Locale
	}
	resp := errorResponse{Session: snap}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		code, resp.Error, resp.Message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrEmptyImage), errors.Is(err, domain.ErrNotImage):
		code, resp.Error, resp.Message = http.StatusBadRequest, "invalid_image", i18n.Message(locale, i18n.InvalidImage)
	case errors.Is(err, domain.ErrEmptyPrompt):
		code, resp.Error, resp.Message = http.StatusBadRequest, "empty_prompt", i18n.Message(locale, i18n.EmptyPrompt)
	case errors.Is(err, domain.ErrNoImage):
		code, resp.Error, resp.Message = http.StatusBadRequest, "no_image", i18n.Message(locale, i18n.NoImage)
	case errors.Is(err, domain.ErrUnknownFilter):
		code, resp.Error, resp.Message = http.StatusBadRequest, "unknown_filter", i18n.Message(locale, i18n.UnknownFilter)
	case errors.Is(err, domain.ErrGenerationInFlight):
		code, resp.Error, resp.Message = http.StatusConflict, "busy", i18n.Message(locale, i18n.Busy)
	case errors.Is(err, domain.ErrStaleFilter), errors.Is(err, domain.ErrSuperseded):
		code, resp.Error, resp.Message = http.StatusConflict, "superseded", err.Error()
	default:
		resp.Error, resp.Message = "internal", i18n.Message(locale, i18n.ErrorGeneric)
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	a.json(w, code, resp)
}

// session resolves the {id} path parameter, writing a 404 when unknown.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	ctrl, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, r, err, nil)
		return nil, false
	}
	return ctrl, true
}

func (a *App) maxUploadBytes() int64 {
	if a.Config == nil || a.Config.MaxUploadBytes <= 0 {
		return 15 << 20
	}
	return a.Config.MaxUploadBytes
}
