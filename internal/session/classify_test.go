package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	sdk "google.golang.org/genai"

	"glowstudio/internal/domain"
	imagegen "glowstudio/internal/providers/image"
)

type apiErrorClient struct {
	err error
}

func (c apiErrorClient) GenerateContent(ctx context.Context, model string, contents []*sdk.Content, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error) {
	return nil, c.err
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{name: "nil", err: nil, want: domain.FailureNone},
		{name: "tagged refusal", err: &imagegen.GenerationError{Kind: imagegen.KindRefused, Message: "x"}, want: domain.FailureSafety},
		{name: "tagged 400", err: &imagegen.GenerationError{Kind: imagegen.KindTransport, Message: "x", StatusCode: 400}, want: domain.FailureSafety},
		{name: "safety marker", err: errors.New("candidate SAFETY"), want: domain.FailureSafety},
		{name: "blocked marker", err: errors.New("prompt blocked"), want: domain.FailureSafety},
		{name: "markers are case sensitive", err: errors.New("Blocked by upstream"), want: domain.FailureGeneric},
		{name: "finish reason marker", err: errors.New("finishReason=OTHER"), want: domain.FailureSafety},
		{name: "status 400", err: errors.New("status 400"), want: domain.FailureSafety},
		{name: "embedded number", err: errors.New("payload of 14000 bytes"), want: domain.FailureGeneric},
		{name: "text only", err: &imagegen.GenerationError{Kind: imagegen.KindTextOnly, Message: "Model returned text instead of image: hello"}, want: domain.FailureGeneric},
		{name: "transport 503", err: &imagegen.GenerationError{Kind: imagegen.KindTransport, Message: "unavailable", StatusCode: 503}, want: domain.FailureGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyGeminiAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{name: "bad request", err: sdk.APIError{Code: 400, Message: "Request contains an invalid argument.", Status: "INVALID_ARGUMENT"}, want: domain.FailureSafety},
		{name: "unavailable", err: sdk.APIError{Code: 503, Message: "The model is overloaded.", Status: "UNAVAILABLE"}, want: domain.FailureGeneric},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen, err := imagegen.NewGeminiGenerator(imagegen.GeminiOptions{Client: apiErrorClient{err: tc.err}, Logger: zerolog.Nop()})
			if err != nil {
				t.Fatalf("NewGeminiGenerator: %v", err)
			}
			_, genErr := gen.Generate(context.Background(), imagegen.GenerateRequest{Image: sampleImage(), Prompt: "edit"})
			var tagged *imagegen.GenerationError
			if !errors.As(genErr, &tagged) || tagged.StatusCode != tc.err.(sdk.APIError).Code {
				t.Fatalf("err = %v, want status %d tagged", genErr, tc.err.(sdk.APIError).Code)
			}
			if got := Classify(genErr); got != tc.want {
				t.Fatalf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}
