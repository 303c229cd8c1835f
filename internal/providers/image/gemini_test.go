package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	sdk "google.golang.org/genai"

	"glowstudio/internal/domain"
)

type fakeContentGenerator struct {
	resp     *sdk.GenerateContentResponse
	err      error
	model    string
	contents []*sdk.Content
	calls    int
}

func (f *fakeContentGenerator) GenerateContent(ctx context.Context, model string, contents []*sdk.Content, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	return f.resp, f.err
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, 6, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func candidateWith(parts ...*sdk.Part) *sdk.GenerateContentResponse {
	return &sdk.GenerateContentResponse{Candidates: []*sdk.Candidate{{Content: &sdk.Content{Role: "model", Parts: parts}}}}
}

func newTestGenerator(t *testing.T, fake *fakeContentGenerator) *GeminiGenerator {
	t.Helper()
	gen, err := NewGeminiGenerator(GeminiOptions{Client: fake, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewGeminiGenerator: %v", err)
	}
	return gen
}

func TestGeminiGeneratorRequestParts(t *testing.T) {
	out := samplePNG(t)
	fake := &fakeContentGenerator{resp: candidateWith(
		&sdk.Part{Text: "here you go"},
		&sdk.Part{InlineData: &sdk.Blob{MIMEType: "image/png", Data: out}},
		&sdk.Part{InlineData: &sdk.Blob{MIMEType: "image/jpeg", Data: []byte("second")}},
	)}
	gen := newTestGenerator(t, fake)

	src := domain.ImageSource{ID: "src", MIMEType: "image/jpeg", Data: []byte("primary")}
	ref := &domain.ImageSource{ID: "ref", MIMEType: "image/png", Data: []byte("reference")}
	got, err := gen.Generate(context.Background(), GenerateRequest{Image: src, Prompt: "add sunglasses", Reference: ref})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if fake.model != "gemini-2.5-flash-image" {
		t.Fatalf("model = %q", fake.model)
	}
	if len(fake.contents) != 1 || len(fake.contents[0].Parts) != 3 {
		t.Fatalf("unexpected contents: %+v", fake.contents)
	}
	parts := fake.contents[0].Parts
	if parts[0].InlineData == nil || string(parts[0].InlineData.Data) != "primary" || parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("first part must be the source image: %+v", parts[0])
	}
	if parts[1].InlineData == nil || string(parts[1].InlineData.Data) != "reference" {
		t.Fatalf("second part must be the reference image: %+v", parts[1])
	}
	if parts[2].Text != "add sunglasses" {
		t.Fatalf("last part must be the instruction: %+v", parts[2])
	}

	if !bytes.Equal(got.Data, out) || got.MIMEType != "image/png" {
		t.Fatalf("expected the first image part, got mime %q", got.MIMEType)
	}
	if got.Origin != domain.OriginGenerated || got.ParentID != "src" || got.Width != 6 || got.Height != 4 {
		t.Fatalf("unexpected result: %+v", got.View())
	}
}

func TestGeminiGeneratorOmitsMissingReference(t *testing.T) {
	fake := &fakeContentGenerator{resp: candidateWith(&sdk.Part{InlineData: &sdk.Blob{Data: samplePNG(t)}})}
	gen := newTestGenerator(t, fake)

	got, err := gen.Generate(context.Background(), GenerateRequest{
		Image:  domain.ImageSource{ID: "a", MIMEType: "image/png", Data: []byte("x")},
		Prompt: "make it pop",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(fake.contents[0].Parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(fake.contents[0].Parts))
	}
	if got.MIMEType != "image/png" {
		t.Fatalf("missing mime must default to image/png, got %q", got.MIMEType)
	}
}

func TestGeminiGeneratorFailures(t *testing.T) {
	tests := []struct {
		name     string
		resp     *sdk.GenerateContentResponse
		err      error
		kind     ErrorKind
		contains string
	}{
		{
			name:     "no candidates",
			resp:     &sdk.GenerateContentResponse{},
			kind:     KindNoContent,
			contains: "No content generated",
		},
		{
			name:     "text only",
			resp:     candidateWith(&sdk.Part{Text: "I can't edit that photo."}),
			kind:     KindTextOnly,
			contains: "Model returned text instead of image: I can't edit that photo.",
		},
		{
			name:     "empty parts",
			resp:     candidateWith(&sdk.Part{}),
			kind:     KindNoContent,
			contains: "Model response did not contain an image.",
		},
		{
			name: "prompt blocked",
			resp: &sdk.GenerateContentResponse{PromptFeedback: &sdk.GenerateContentResponsePromptFeedback{
				BlockReason: sdk.BlockedReason("SAFETY"),
			}},
			kind:     KindRefused,
			contains: "finishReason=SAFETY",
		},
		{
			name: "safety finish without parts",
			resp: &sdk.GenerateContentResponse{Candidates: []*sdk.Candidate{{
				FinishReason: sdk.FinishReason("IMAGE_SAFETY"),
			}}},
			kind:     KindRefused,
			contains: "Generation blocked",
		},
		{
			name:     "transport",
			err:      errors.New("dial tcp: connection refused"),
			kind:     KindTransport,
			contains: "connection refused",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeContentGenerator{resp: tc.resp, err: tc.err}
			gen := newTestGenerator(t, fake)
			_, err := gen.Generate(context.Background(), GenerateRequest{
				Image:  domain.ImageSource{MIMEType: "image/png", Data: []byte("x")},
				Prompt: "edit",
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tc.kind {
				t.Fatalf("kind = %q, want %q (err %v)", KindOf(err), tc.kind, err)
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.contains)
			}
			if !errors.Is(err, domain.ErrProviderFailure) {
				t.Fatal("provider errors must match ErrProviderFailure")
			}
		})
	}
}

func TestGeminiGeneratorTagsAPIStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "value", err: sdk.APIError{Code: 400, Message: "bad", Status: "INVALID_ARGUMENT"}, want: 400},
		{name: "pointer", err: &sdk.APIError{Code: 503, Message: "overloaded"}, want: 503},
		{name: "wrapped value", err: fmt.Errorf("models.generateContent: %w", sdk.APIError{Code: 400}), want: 400},
		{name: "plain", err: errors.New("dial tcp: connection refused"), want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := newTestGenerator(t, &fakeContentGenerator{err: tc.err})
			_, err := gen.Generate(context.Background(), GenerateRequest{
				Image:  domain.ImageSource{MIMEType: "image/png", Data: []byte("x")},
				Prompt: "edit",
			})
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err = %v, want *GenerationError", err)
			}
			if genErr.Kind != KindTransport || genErr.StatusCode != tc.want {
				t.Fatalf("kind=%q status=%d, want transport/%d", genErr.Kind, genErr.StatusCode, tc.want)
			}
		})
	}
}

func TestGeminiGeneratorValidatesInput(t *testing.T) {
	fake := &fakeContentGenerator{}
	gen := newTestGenerator(t, fake)

	_, err := gen.Generate(context.Background(), GenerateRequest{Image: domain.ImageSource{MIMEType: "image/png", Data: []byte("x")}, Prompt: "  "})
	if !errors.Is(err, domain.ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}
	_, err = gen.Generate(context.Background(), GenerateRequest{Prompt: "edit"})
	if !errors.Is(err, domain.ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
	if fake.calls != 0 {
		t.Fatalf("client called %d times for invalid input", fake.calls)
	}
}

func TestSyntheticGeneratorIsDeterministic(t *testing.T) {
	gen := NewSyntheticGenerator(zerolog.Nop())
	req := GenerateRequest{
		Image:  domain.ImageSource{ID: "img-1", MIMEType: "image/png", Data: samplePNG(t)},
		Prompt: "retro film look",
	}
	first, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("same input produced different output")
	}
	if first.ID == second.ID {
		t.Fatal("each result needs its own id")
	}
	if first.Width != 6 || first.Height != 4 || first.MIMEType != "image/png" {
		t.Fatalf("unexpected result: %+v", first.View())
	}

	req.Prompt = "something else"
	third, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bytes.Equal(first.Data, third.Data) {
		t.Fatal("different prompts produced identical output")
	}
}
