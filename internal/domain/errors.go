package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotImage           = errors.New("file is not an image")
	ErrEmptyImage         = errors.New("image payload is empty")
	ErrNoImage            = errors.New("no image selected")
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrUnknownFilter      = errors.New("unknown filter")
	ErrGenerationInFlight = errors.New("generation already in progress")
	ErrStaleFilter        = errors.New("filter result superseded")
	ErrSuperseded         = errors.New("generation result superseded")
	ErrProviderFailure    = errors.New("provider failure")
)
