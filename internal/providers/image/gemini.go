package image

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	sdk "google.golang.org/genai"

	"glowstudio/internal/domain"
	"glowstudio/internal/imaging"
	"glowstudio/internal/providers/genai"
)

// refusalReasons are finish reasons that mean the model declined the request.
var refusalReasons = map[string]struct{}{
	"SAFETY":                   {},
	"PROHIBITED_CONTENT":       {},
	"BLOCKLIST":                {},
	"SPII":                     {},
	"IMAGE_SAFETY":             {},
	"IMAGE_PROHIBITED_CONTENT": {},
}

type GeminiOptions struct {
	Client genai.ContentGenerator
	Model  string
	Logger zerolog.Logger
}

// GeminiGenerator edits images with a Gemini image model.
type GeminiGenerator struct {
	client genai.ContentGenerator
	model  string
	logger zerolog.Logger
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.Client == nil {
		return nil, errors.New("gemini generator: client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = genai.DefaultImageModel
	}
	return &GeminiGenerator{
		client: opts.Client,
		model:  model,
		logger: opts.Logger.With().Str("component", "gemini_image").Logger(),
	}, nil
}

// Model returns the configured model identifier.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the source image, the optional reference and the
// instruction, in that order, and returns the first image part of the
// first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (domain.ImageSource, error) {
	if err := req.Validate(); err != nil {
		return domain.ImageSource{}, err
	}

	parts := []*sdk.Part{{InlineData: &sdk.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data}}}
	if req.Reference != nil && !req.Reference.IsZero() {
		parts = append(parts, &sdk.Part{InlineData: &sdk.Blob{MIMEType: req.Reference.MIMEType, Data: req.Reference.Data}})
	}
	parts = append(parts, &sdk.Part{Text: req.Prompt})
	contents := []*sdk.Content{{Role: "user", Parts: parts}}

	start := time.Now()
	resp, err := g.client.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		g.logger.Warn().Err(err).Str("session_id", req.SessionID).Dur("took", time.Since(start)).Msg("generate content failed")
		return domain.ImageSource{}, transportError(err)
	}

	out, err := g.extract(resp, req)
	if err != nil {
		g.logger.Warn().Err(err).Str("session_id", req.SessionID).Str("kind", string(KindOf(err))).Msg("no image in response")
		return domain.ImageSource{}, err
	}
	g.logger.Info().
		Str("session_id", req.SessionID).
		Str("model", g.model).
		Str("mime", out.MIMEType).
		Int("bytes", len(out.Data)).
		Dur("took", time.Since(start)).
		Msg("image generated")
	return out, nil
}

func (g *GeminiGenerator) extract(resp *sdk.GenerateContentResponse, req GenerateRequest) (domain.ImageSource, error) {
	if resp == nil {
		return domain.ImageSource{}, &GenerationError{Kind: KindNoContent, Message: "No content generated"}
	}
	if fb := resp.PromptFeedback; fb != nil {
		reason := string(fb.BlockReason)
		if reason != "" && reason != "BLOCKED_REASON_UNSPECIFIED" {
			msg := "Prompt blocked"
			if detail := strings.TrimSpace(fb.BlockReasonMessage); detail != "" {
				msg += ": " + detail
			}
			return domain.ImageSource{}, &GenerationError{Kind: KindRefused, Message: msg, Reason: reason}
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return domain.ImageSource{}, &GenerationError{Kind: KindNoContent, Message: "No content generated"}
	}
	cand := resp.Candidates[0]
	finish := string(cand.FinishReason)
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		if _, refused := refusalReasons[finish]; refused {
			return domain.ImageSource{}, &GenerationError{Kind: KindRefused, Message: "Generation blocked", Reason: finish}
		}
		return domain.ImageSource{}, &GenerationError{Kind: KindNoContent, Message: "No content generated", Reason: finish}
	}

	for _, part := range cand.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := coalesce(part.InlineData.MIMEType, "image/png")
		width, height := imaging.Dimensions(part.InlineData.Data)
		return domain.ImageSource{
			ID:       uuid.NewString(),
			MIMEType: mime,
			Data:     part.InlineData.Data,
			Width:    width,
			Height:   height,
			Origin:   domain.OriginGenerated,
			ParentID: req.Image.ID,
		}, nil
	}

	if _, refused := refusalReasons[finish]; refused {
		return domain.ImageSource{}, &GenerationError{Kind: KindRefused, Message: "Generation blocked", Reason: finish}
	}
	for _, part := range cand.Content.Parts {
		if part != nil && strings.TrimSpace(part.Text) != "" {
			return domain.ImageSource{}, &GenerationError{
				Kind:    KindTextOnly,
				Message: "Model returned text instead of image: " + strings.TrimSpace(part.Text),
			}
		}
	}
	return domain.ImageSource{}, &GenerationError{Kind: KindNoContent, Message: "Model response did not contain an image."}
}

func transportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTransport, Message: "Request interrupted", Err: err}
	}
	if code, _, ok := genai.APIStatus(err); ok {
		return &GenerationError{
			Kind:       KindTransport,
			Message:    fmt.Sprintf("Gemini request failed with status %d", code),
			StatusCode: code,
			Err:        err,
		}
	}
	return &GenerationError{Kind: KindTransport, Message: "Gemini request failed", Err: err}
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Generator = (*GeminiGenerator)(nil)
