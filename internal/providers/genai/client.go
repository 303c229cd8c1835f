package genai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "google.golang.org/genai"
)

const (
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultTextModel  = "gemini-2.5-flash"
)

// ErrMissingAPIKey is returned when a client is requested without credentials.
var ErrMissingAPIKey = errors.New("genai: api key is required")

// ContentGenerator is the part of the SDK's Models service the providers use.
// Tests substitute it with canned responses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*sdk.Content, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error)
}

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewContentGenerator builds an SDK client against the Gemini API backend.
func NewContentGenerator(ctx context.Context, opts Options) (ContentGenerator, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := &sdk.ClientConfig{
		APIKey:     key,
		Backend:    sdk.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = sdk.HTTPOptions{BaseURL: base}
	}
	client, err := sdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// APIStatus extracts the HTTP status code carried by an SDK error. The SDK
// returns APIError by value; the pointer form is matched as well.
func APIStatus(err error) (int, string, bool) {
	var apiErr sdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *sdk.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

// FirstText returns the first non-blank text part of the first candidate.
func FirstText(resp *sdk.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && strings.TrimSpace(part.Text) != "" {
			return part.Text
		}
	}
	return ""
}
