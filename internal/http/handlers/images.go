package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"glowstudio/internal/domain"
)

// Image serves the raw bytes held in one session slot.
func (a *App) Image(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	slot, valid := domain.ParseImageSlot(chi.URLParam(r, "slot"))
	if !valid {
		a.error(w, http.StatusBadRequest, "bad_request", "slot must be original, working or generated")
		return
	}
	img, ok := ctrl.Image(slot)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no image in slot")
		return
	}
	writeImage(w, img, "")
}

// Download exports the displayed image as an attachment. Without a slot the
// generated image wins over the working image.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.session(w, r)
	if !ok {
		return
	}
	var (
		img   domain.ImageSource
		found bool
		slot  domain.ImageSlot
	)
	if v := r.URL.Query().Get("slot"); v != "" {
		parsed, valid := domain.ParseImageSlot(v)
		if !valid {
			a.error(w, http.StatusBadRequest, "bad_request", "slot must be original, working or generated")
			return
		}
		slot = parsed
		img, found = ctrl.Image(slot)
	} else {
		slot = domain.SlotGenerated
		if img, found = ctrl.Image(slot); !found {
			slot = domain.SlotWorking
			img, found = ctrl.Image(slot)
		}
	}
	if !found {
		snap := ctrl.Snapshot()
		a.writeDomainError(w, r, domain.ErrNoImage, &snap)
		return
	}
	writeImage(w, img, DownloadName(slot, img, time.Now()))
}

// DownloadName names an exported image after its role and the export time.
func DownloadName(slot domain.ImageSlot, img domain.ImageSource, at time.Time) string {
	prefix := "glowstudio-source"
	if slot == domain.SlotGenerated {
		prefix = "glowstudio-edit"
	}
	return fmt.Sprintf("%s-%d.%s", prefix, at.UnixMilli(), img.Extension())
}

func writeImage(w http.ResponseWriter, img domain.ImageSource, attachment string) {
	h := w.Header()
	h.Set("Content-Type", img.MIMEType)
	h.Set("Content-Length", strconv.Itoa(len(img.Data)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if attachment != "" {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
