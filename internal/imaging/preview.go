package imaging

import (
	"context"
	"image"

	"golang.org/x/image/draw"

	"glowstudio/internal/domain"
)

// DefaultPreviewSize bounds the longest edge of a preset thumbnail.
const DefaultPreviewSize = 160

// Preview is a thumbnail of one preset applied to an image.
type Preview struct {
	FilterID string             `json:"filter_id"`
	Name     string             `json:"name"`
	Image    domain.ImageSource `json:"-"`
}

// Previews scales src down once and renders every preset over the
// thumbnail, in catalog order.
func (e *Engine) Previews(ctx context.Context, src domain.ImageSource, size int) ([]Preview, error) {
	if src.IsZero() {
		return nil, domain.ErrEmptyImage
	}
	if size <= 0 {
		size = DefaultPreviewSize
	}
	img, _, err := decode(src.Data)
	if err != nil {
		return nil, err
	}
	thumb := scaleToFit(img, size)
	presets := e.catalog.List()
	out := make([]Preview, 0, len(presets))
	for _, p := range presets {
		rendered, err := render(ctx, thumb, compile(p.Adjustments))
		if err != nil {
			return nil, err
		}
		data, mime, err := encode(rendered, "image/png")
		if err != nil {
			return nil, err
		}
		b := rendered.Bounds()
		out = append(out, Preview{
			FilterID: p.ID,
			Name:     p.Name,
			Image: domain.ImageSource{
				MIMEType: mime,
				Data:     data,
				Width:    b.Dx(),
				Height:   b.Dy(),
				Origin:   domain.OriginFilter,
				FilterID: p.ID,
				ParentID: src.ID,
			},
		})
	}
	return out, nil
}

func scaleToFit(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
