package prompt

import (
	"context"
	"strings"
)

// EnhanceRequest carries the user's instruction to rewrite.
type EnhanceRequest struct {
	Prompt string
	Locale string
}

// EnhanceResponse is a rewritten instruction. FallbackReason is set when a
// provider could not answer and a fallback produced the text.
type EnhanceResponse struct {
	Original       string `json:"original"`
	Prompt         string `json:"prompt"`
	Provider       string `json:"provider"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Enhancer rewrites a short instruction into a richer one.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
}

// StaticEnhancer returns the instruction unchanged.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	return &EnhanceResponse{Original: req.Prompt, Prompt: req.Prompt, Provider: staticProviderName}, nil
}

// Improve runs e and never fails: a blank instruction, an error, a nil or an
// empty response all yield the original text unchanged.
func Improve(ctx context.Context, e Enhancer, req EnhanceRequest) EnhanceResponse {
	original := EnhanceResponse{Original: req.Prompt, Prompt: req.Prompt, Provider: staticProviderName}
	if strings.TrimSpace(req.Prompt) == "" {
		original.FallbackReason = "empty_prompt"
		return original
	}
	if e == nil {
		original.FallbackReason = "no_enhancer"
		return original
	}
	res, err := safeEnhance(ctx, e, req)
	if err != nil {
		original.FallbackReason = "error"
		return original
	}
	if res == nil || strings.TrimSpace(res.Prompt) == "" {
		original.FallbackReason = "empty_response"
		return original
	}
	out := *res
	out.Original = req.Prompt
	out.Prompt = strings.TrimSpace(res.Prompt)
	return out
}

func safeEnhance(ctx context.Context, e Enhancer, req EnhanceRequest) (res *EnhanceResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errPanicked
		}
	}()
	return e.Enhance(ctx, req)
}

var _ Enhancer = (*StaticEnhancer)(nil)
