package imaging

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/evanoberholster/imagemeta"
	"github.com/google/uuid"

	"glowstudio/internal/domain"
)

// Ingest validates uploaded bytes and builds an ImageSource. The bytes must
// decode as PNG, JPEG, GIF or WebP and the mime type is taken from the
// decoded format, never from the client. Anything else returns
// domain.ErrNotImage.
func Ingest(data []byte, origin domain.ImageOrigin) (domain.ImageSource, error) {
	if len(data) == 0 {
		return domain.ImageSource{}, domain.ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.ImageSource{}, fmt.Errorf("%w: %v", domain.ErrNotImage, err)
	}
	mime := FormatMIME(format)
	if mime == "" || cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.ImageSource{}, domain.ErrNotImage
	}
	return domain.ImageSource{
		ID:       uuid.NewString(),
		MIMEType: mime,
		Data:     data,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Origin:   origin,
		Metadata: ReadMetadata(data),
	}, nil
}

// ReadMetadata extracts camera and capture-date fields from EXIF. Images
// without EXIF (PNG exports, screenshots) yield a zero value.
func ReadMetadata(data []byte) (meta domain.ImageMetadata) {
	defer func() {
		if recover() != nil {
			meta = domain.ImageMetadata{}
		}
	}()
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.ImageMetadata{}
	}
	meta = domain.ImageMetadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		meta.TakenAt = t
	} else if t := exifData.CreateDate(); !t.IsZero() {
		meta.TakenAt = t
	}
	return meta
}
