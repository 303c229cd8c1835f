package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// JPEGQuality matches the default quality browsers use for canvas exports.
const JPEGQuality = 92

func decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: decode: %w", err)
	}
	return img, format, nil
}

// toNRGBA returns a non-premultiplied copy of img with bounds starting at 0,0.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// OutputMIME returns the mime type an encode of the given source type
// produces. Only JPEG and PNG can be written; everything else becomes PNG.
func OutputMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

func encode(img image.Image, mime string) ([]byte, string, error) {
	out := OutputMIME(mime)
	var buf bytes.Buffer
	var err error
	if out == "image/jpeg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", fmt.Errorf("imaging: encode %s: %w", out, err)
	}
	return buf.Bytes(), out, nil
}

// Dimensions returns the pixel size of an encoded image, or zeros when the
// header cannot be read.
func Dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// FormatMIME maps an image.Decode format name to its mime type.
func FormatMIME(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return ""
}
