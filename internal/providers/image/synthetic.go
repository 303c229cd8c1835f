package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"glowstudio/internal/domain"
)

// SyntheticGenerator produces deterministic edits without calling a model.
// It is used when no Gemini key is configured so local runs and CI exercise
// the full session flow.
type SyntheticGenerator struct {
	logger zerolog.Logger
}

func NewSyntheticGenerator(logger zerolog.Logger) *SyntheticGenerator {
	return &SyntheticGenerator{logger: logger.With().Str("component", "synthetic_image").Logger()}
}

// Generate tints the source toward a colour derived from the prompt and
// draws diagonal accent lines over it. The output is always PNG.
func (s *SyntheticGenerator) Generate(ctx context.Context, req GenerateRequest) (domain.ImageSource, error) {
	if err := req.Validate(); err != nil {
		return domain.ImageSource{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ImageSource{}, &GenerationError{Kind: KindTransport, Message: "Request interrupted", Err: err}
	}
	refID := ""
	if req.Reference != nil {
		refID = req.Reference.ID
	}
	seed := deterministicSeed(req.Image.ID, req.Prompt, refID)

	src, _, err := stdimage.Decode(bytes.NewReader(req.Image.Data))
	if err != nil {
		return domain.ImageSource{}, &GenerationError{Kind: KindUnknown, Message: "Source image could not be decoded", Err: err}
	}
	data, w, h, err := renderSynthetic(src, seed)
	if err != nil {
		return domain.ImageSource{}, &GenerationError{Kind: KindUnknown, Message: "Synthetic render failed", Err: err}
	}

	s.logger.Debug().
		Str("session_id", req.SessionID).
		Str("seed", seed).
		Msg("generated synthetic image")

	return domain.ImageSource{
		ID:       uuid.NewString(),
		MIMEType: "image/png",
		Data:     data,
		Width:    w,
		Height:   h,
		Origin:   domain.OriginGenerated,
		ParentID: req.Image.ID,
	}, nil
}

func renderSynthetic(src stdimage.Image, seed string) ([]byte, int, int, error) {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)

	tint := colorFromSeed(seed, 0)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = blend(img.Pix[i], tint.R)
		img.Pix[i+1] = blend(img.Pix[i+1], tint.G)
		img.Pix[i+2] = blend(img.Pix[i+2], tint.B)
	}

	accent := colorFromSeed(seed, 1)
	step := max(16, width/16)
	for x0 := 0; x0 < width+height; x0 += step {
		for y := 0; y < height; y++ {
			x := x0 - y
			if x < 0 || x >= width {
				continue
			}
			img.Set(x, y, accent)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), width, height, nil
}

func blend(base, tint uint8) uint8 {
	return uint8((int(base)*7 + int(tint)*3) / 10)
}

func colorFromSeed(seed string, shift int) color.NRGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.NRGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

var _ Generator = (*SyntheticGenerator)(nil)
