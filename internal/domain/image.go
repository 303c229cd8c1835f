package domain

import (
	"encoding/base64"
	"strings"
	"time"
)

// ImageOrigin records how an ImageSource came to exist.
type ImageOrigin string

const (
	OriginUpload    ImageOrigin = "upload"
	OriginFilter    ImageOrigin = "filter"
	OriginGenerated ImageOrigin = "generated"
	OriginReference ImageOrigin = "reference"
)

// ImageMetadata carries the EXIF fields captured when an image is ingested.
type ImageMetadata struct {
	CameraMake  string    `json:"camera_make,omitempty"`
	CameraModel string    `json:"camera_model,omitempty"`
	TakenAt     time.Time `json:"taken_at,omitempty"`
}

// IsZero reports whether no metadata was captured.
func (m ImageMetadata) IsZero() bool {
	return m.CameraMake == "" && m.CameraModel == "" && m.TakenAt.IsZero()
}

// ImageSource is an immutable image value. Derived images (filtered or
// generated) are new values pointing at their parent through ParentID.
type ImageSource struct {
	ID       string
	MIMEType string
	Data     []byte
	Width    int
	Height   int
	Origin   ImageOrigin
	FilterID string
	ParentID string
	Metadata ImageMetadata
}

// IsZero reports whether the value holds no image bytes.
func (s ImageSource) IsZero() bool {
	return len(s.Data) == 0
}

// EncodedPayload returns the base64 form of the image bytes, the shape sent to
// the generation service.
func (s ImageSource) EncodedPayload() string {
	return base64.StdEncoding.EncodeToString(s.Data)
}

// PreviewURL returns a data URL for display. It is built from the same bytes
// as EncodedPayload.
func (s ImageSource) PreviewURL() string {
	return "data:" + s.MIMEType + ";base64," + s.EncodedPayload()
}

// Extension maps the mime type to a file extension without the dot.
func (s ImageSource) Extension() string {
	return ExtensionForMIME(s.MIMEType)
}

// ExtensionForMIME maps an image mime type to a file extension.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "png"
	}
}

// IsImageMIME reports whether the media type names an image.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

// ImageView is the JSON projection of an ImageSource. Bytes are served
// separately so snapshots stay small.
type ImageView struct {
	ID       string         `json:"id"`
	MIMEType string         `json:"mime_type"`
	Bytes    int            `json:"bytes"`
	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Origin   ImageOrigin    `json:"origin"`
	FilterID string         `json:"filter_id,omitempty"`
	ParentID string         `json:"parent_id,omitempty"`
	Metadata *ImageMetadata `json:"metadata,omitempty"`
}

// View returns the JSON projection of s, or nil for an empty value.
func (s *ImageSource) View() *ImageView {
	if s == nil || s.IsZero() {
		return nil
	}
	v := &ImageView{
		ID:       s.ID,
		MIMEType: s.MIMEType,
		Bytes:    len(s.Data),
		Width:    s.Width,
		Height:   s.Height,
		Origin:   s.Origin,
		FilterID: s.FilterID,
		ParentID: s.ParentID,
	}
	if !s.Metadata.IsZero() {
		meta := s.Metadata
		v.Metadata = &meta
	}
	return v
}
