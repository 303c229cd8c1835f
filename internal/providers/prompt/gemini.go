package prompt

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "google.golang.org/genai"

	"glowstudio/internal/providers/genai"
)

type GeminiOptions struct {
	Client     genai.ContentGenerator
	Model      string
	Timeout    time.Duration
	Fallback   Enhancer
	OnFallback func(reason string, err error)
}

// GeminiEnhancer rewrites instructions with a Gemini text model.
type GeminiEnhancer struct {
	client     genai.ContentGenerator
	model      string
	timeout    time.Duration
	fallback   Enhancer
	onFallback func(reason string, err error)
}

const geminiDefaultTimeout = 15 * time.Second

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	if opts.Client == nil {
		return nil, errors.New("gemini enhancer: client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = genai.DefaultTextModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	return &GeminiEnhancer{
		client:     opts.Client,
		model:      model,
		timeout:    timeout,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *GeminiEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return g.useFallback(ctx, req, "empty_prompt", nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := float32(enhanceTemperature)
	config := &sdk.GenerateContentConfig{
		SystemInstruction: &sdk.Content{Parts: []*sdk.Part{{Text: systemInstruction}}},
		Temperature:       &temperature,
	}
	contents := []*sdk.Content{{Role: "user", Parts: []*sdk.Part{{Text: req.Prompt}}}}

	resp, err := g.client.GenerateContent(callCtx, g.model, contents, config)
	if err != nil {
		return g.useFallback(ctx, req, "http_request", err)
	}
	text := cleanEnhanced(genai.FirstText(resp))
	if text == "" {
		return g.useFallback(ctx, req, "empty_response", errors.New("empty response"))
	}
	return &EnhanceResponse{Original: req.Prompt, Prompt: text, Provider: geminiProviderName}, nil
}

func (g *GeminiEnhancer) useFallback(ctx context.Context, req EnhanceRequest, reason string, fallbackErr error) (*EnhanceResponse, error) {
	if g.onFallback != nil {
		g.onFallback(reason, fallbackErr)
	}
	var fallback Enhancer = NewStaticEnhancer()
	if g.fallback != nil {
		fallback = g.fallback
	}
	res, err := fallback.Enhance(ctx, req)
	if res != nil && res.FallbackReason == "" {
		res.FallbackReason = reason
	}
	return res, err
}

var _ Enhancer = (*GeminiEnhancer)(nil)
