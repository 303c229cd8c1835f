package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"glowstudio/internal/domain"
	"glowstudio/internal/imaging"
	"glowstudio/internal/middleware"
	"glowstudio/internal/providers/prompt"
	"glowstudio/internal/session"
)

type createSessionRequest struct {
	Locale string `json:"locale"`
}

type filterRequest struct {
	FilterID string `json:"filter_id"`
}

type generateRequest struct {
	Prompt  string `json:"prompt"`
	Enhance bool   `json:"enhance"`
}

type localeRequest struct {
	Locale string `json:"locale"`
}

type generateResponse struct {
	Session     session.Snapshot        `json:"session"`
	Enhancement *prompt.EnhanceResponse `json:"enhancement,omitempty"`
}

// CreateSession starts an idle session in the request locale unless the body
// names another.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	ctrl := a.Sessions.Create(locale)
	a.json(w, http.StatusCreated, ctrl.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, ctrl.Snapshot())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.Sessions.Delete(ctrl.ID()); err != nil {
		a.writeDomainError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectImage accepts either a multipart form with an "image" file or a raw
// image body.
func (a *App) SelectImage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())
	data, err := a.readUpload(r, "image")
	if err != nil {
		a.uploadError(w, r, err)
		return
	}
	img, err := imaging.Ingest(data, domain.OriginUpload)
	if err != nil {
		snap := ctrl.Snapshot()
		a.writeDomainError(w, r, err, &snap)
		return
	}
	snap, err := ctrl.SelectImage(img)
	if err != nil {
		a.writeDomainError(w, r, err, &snap)
		return
	}
	a.json(w, http.StatusOK, snap)
}

func (a *App) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	filterID := strings.TrimSpace(req.FilterID)
	if filterID == "" {
		filterID = imaging.IdentityFilterID
	}
	snap, err := ctrl.ApplyFilter(r.Context(), filterID)
	if err != nil {
		a.writeDomainError(w, r, err, &snap)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// Generate submits a prompt and blocks until the outcome is known. A failed
// generation is reported through the ERROR snapshot with status 200.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes()*2)

	var req generateRequest
	var reference *domain.ImageSource
	if isMultipart(r) {
		if err := r.ParseMultipartForm(a.maxUploadBytes()); err != nil {
			a.uploadError(w, r, err)
			return
		}
		req.Prompt = r.FormValue("prompt")
		req.Enhance = r.FormValue("enhance") == "true"
		if file, _, err := r.FormFile("reference"); err == nil {
			data, readErr := io.ReadAll(file)
			file.Close()
			if readErr != nil {
				a.uploadError(w, r, readErr)
				return
			}
			ref, err := imaging.Ingest(data, domain.OriginReference)
			if err != nil {
				snap := ctrl.Snapshot()
				a.writeDomainError(w, r, err, &snap)
				return
			}
			reference = &ref
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	var enhancement *prompt.EnhanceResponse
	text := req.Prompt
	if req.Enhance && strings.TrimSpace(text) != "" {
		res := prompt.Improve(r.Context(), a.Enhancer, prompt.EnhanceRequest{Prompt: text, Locale: ctrl.Locale()})
		enhancement = &res
		text = res.Prompt
	}

	snap, err := ctrl.Submit(r.Context(), text, reference)
	if err != nil {
		a.writeDomainError(w, r, err, &snap)
		return
	}
	a.json(w, http.StatusOK, generateResponse{Session: snap, Enhancement: enhancement})
}

func (a *App) DismissError(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, ctrl.DismissError())
}

func (a *App) ResetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, ctrl.Reset())
}

func (a *App) SetLocale(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	var req localeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Locale) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "locale is required")
		return
	}
	a.json(w, http.StatusOK, ctrl.SetLocale(req.Locale))
}

func (a *App) readUpload(r *http.Request, field string) ([]byte, error) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(a.maxUploadBytes()); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile(field)
		if err != nil {
			return nil, domain.ErrEmptyImage
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

func (a *App) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
		return
	}
	if errors.Is(err, domain.ErrEmptyImage) {
		a.writeDomainError(w, r, err, nil)
		return
	}
	zerolog.Ctx(r.Context()).Warn().Err(err).Msg("read upload failed")
	a.error(w, http.StatusBadRequest, "bad_request", "invalid upload")
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}
