package handlers

import (
	"net/http"
	"strconv"

	"glowstudio/internal/domain"
	"glowstudio/internal/imaging"
)

type filterItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	CSS  string `json:"css"`
}

type previewItem struct {
	FilterID string `json:"filter_id"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	DataURL  string `json:"data_url"`
}

const maxPreviewSize = 512

// ListFilters returns the preset catalog in display order.
func (a *App) ListFilters(w http.ResponseWriter, r *http.Request) {
	presets := a.Filters.Catalog().List()
	items := make([]filterItem, 0, len(presets))
	for _, p := range presets {
		items = append(items, filterItem{ID: p.ID, Name: p.Name, CSS: p.CSS})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// FilterPreviews renders every preset as a thumbnail of the session's
// original image.
func (a *App) FilterPreviews(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	src, ok := ctrl.Image(domain.SlotOriginal)
	if !ok {
		snap := ctrl.Snapshot()
		a.writeDomainError(w, r, domain.ErrNoImage, &snap)
		return
	}
	size := imaging.DefaultPreviewSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPreviewSize {
			a.error(w, http.StatusBadRequest, "bad_request", "size must be between 1 and 512")
			return
		}
		size = n
	}
	previews, err := a.Filters.Previews(r.Context(), src, size)
	if err != nil {
		a.writeDomainError(w, r, err, nil)
		return
	}
	items := make([]previewItem, 0, len(previews))
	for _, p := range previews {
		items = append(items, previewItem{
			FilterID: p.FilterID,
			Name:     p.Name,
			MIMEType: p.Image.MIMEType,
			Width:    p.Image.Width,
			Height:   p.Image.Height,
			DataURL:  p.Image.PreviewURL(),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
