package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"glowstudio/internal/domain"
)

// GenerateRequest is one edit instruction against a source image.
type GenerateRequest struct {
	Image     domain.ImageSource
	Prompt    string
	Reference *domain.ImageSource
	SessionID string
}

// Validate checks the input constraints shared by every provider.
func (r GenerateRequest) Validate() error {
	if r.Image.IsZero() {
		return domain.ErrNoImage
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return domain.ErrEmptyPrompt
	}
	return nil
}

// Generator is the contract implemented by all image providers. A call
// yields exactly one image or a *GenerationError.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (domain.ImageSource, error)
}

// ErrorKind tags why a generation failed.
type ErrorKind string

const (
	KindRefused   ErrorKind = "refused"
	KindTransport ErrorKind = "transport"
	KindNoContent ErrorKind = "no_content"
	KindTextOnly  ErrorKind = "text_only"
	KindUnknown   ErrorKind = "unknown"
)

// GenerationError is the typed failure returned by providers.
type GenerationError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Reason     string
	Err        error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Reason != "" {
		fmt.Fprintf(&b, " (finishReason=%s)", e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, domain.ErrProviderFailure) match any provider failure.
func (e *GenerationError) Is(target error) bool {
	return target == domain.ErrProviderFailure
}

// KindOf returns the tag of a provider error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindUnknown
}
