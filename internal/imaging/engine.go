package imaging

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"glowstudio/internal/domain"
)

// Engine applies catalog presets to images.
type Engine struct {
	catalog *Catalog
	logger  zerolog.Logger
}

// NewEngine constructs an Engine over the given catalog.
func NewEngine(catalog *Catalog, logger zerolog.Logger) *Engine {
	return &Engine{catalog: catalog, logger: logger.With().Str("component", "imaging").Logger()}
}

// Catalog exposes the preset table.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Apply renders the preset identified by filterID over src. The identity
// preset returns src itself. Every other preset decodes src, runs the
// adjustment chain and re-encodes in src's mime type (PNG when that type
// cannot be written).
func (e *Engine) Apply(ctx context.Context, src domain.ImageSource, filterID string) (domain.ImageSource, error) {
	preset, ok := e.catalog.Lookup(filterID)
	if !ok {
		return domain.ImageSource{}, fmt.Errorf("%w: %q", domain.ErrUnknownFilter, filterID)
	}
	if preset.IsIdentity() {
		return src, nil
	}
	if src.IsZero() {
		return domain.ImageSource{}, domain.ErrEmptyImage
	}
	start := time.Now()
	img, _, err := decode(src.Data)
	if err != nil {
		return domain.ImageSource{}, err
	}
	out, err := render(ctx, img, compile(preset.Adjustments))
	if err != nil {
		return domain.ImageSource{}, err
	}
	data, mime, err := encode(out, src.MIMEType)
	if err != nil {
		return domain.ImageSource{}, err
	}
	e.logger.Debug().
		Str("filter", preset.ID).
		Str("mime", mime).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("filter applied")
	b := out.Bounds()
	return domain.ImageSource{
		ID:       uuid.NewString(),
		MIMEType: mime,
		Data:     data,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Origin:   domain.OriginFilter,
		FilterID: preset.ID,
		ParentID: src.ID,
		Metadata: src.Metadata,
	}, nil
}

// render runs the compiled chain over every pixel. Alpha is preserved.
func render(ctx context.Context, img image.Image, steps []step) (*image.NRGBA, error) {
	dst := toNRGBA(img)
	b := dst.Bounds()
	for y := 0; y < b.Dy(); y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			r := float64(row[i]) / 255
			g := float64(row[i+1]) / 255
			bl := float64(row[i+2]) / 255
			for _, s := range steps {
				r, g, bl = s.apply(r, g, bl)
			}
			row[i] = toByte(r)
			row[i+1] = toByte(g)
			row[i+2] = toByte(bl)
		}
	}
	return dst, nil
}

func toByte(v float64) uint8 {
	return uint8(v*255 + 0.5)
}
