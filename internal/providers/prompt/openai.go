package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Fallback     Enhancer
	OnFallback   func(reason string, err error)
	OnWarning    func(reason, detail string)
}

// OpenAIEnhancer rewrites instructions with an OpenAI chat model.
type OpenAIEnhancer struct {
	client     openai.Client
	model      string
	fallback   Enhancer
	onFallback func(reason string, err error)
}

const openAIDefaultTimeout = 15 * time.Second

const defaultOpenAIModel = "gpt-4o-mini"

var openAIModelCanonical = map[string]string{
	"gpt-4o-mini":  "gpt-4o-mini",
	"gpt-4o":       "gpt-4o",
	"gpt-4.1-mini": "gpt-4.1-mini",
}

var openAIModelAliases = map[string]string{
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt4.1-mini":            "gpt-4.1-mini",
	"gpt-41-mini":            "gpt-4.1-mini",
}

func NewOpenAIEnhancer(opts OpenAIOptions) (*OpenAIEnhancer, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("openai api key is required")
	}
	modelInput := strings.TrimSpace(opts.Model)
	normalizedModel, normalizationReason := normalizeOpenAIModel(modelInput)
	if normalizationReason != "" && opts.OnWarning != nil {
		detail := fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), normalizedModel)
		opts.OnWarning("model_"+normalizationReason, detail)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAIDefaultTimeout}
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base+"/"))
	}
	if org := strings.TrimSpace(opts.Organization); org != "" {
		reqOpts = append(reqOpts, option.WithOrganization(org))
	}
	return &OpenAIEnhancer{
		client:     openai.NewClient(reqOpts...),
		model:      normalizedModel,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (o *OpenAIEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return o.useFallback(ctx, req, "empty_prompt", nil)
	}
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(enhanceTemperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(req.Prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return o.useFallback(ctx, req, fmt.Sprintf("http_%d", apiErr.StatusCode), err)
		}
		return o.useFallback(ctx, req, "http_request", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return o.useFallback(ctx, req, "empty_choices", errors.New("no choices"))
	}
	text := cleanEnhanced(completion.Choices[0].Message.Content)
	if text == "" {
		return o.useFallback(ctx, req, "empty_response", errors.New("empty response"))
	}
	return &EnhanceResponse{Original: req.Prompt, Prompt: text, Provider: openAIProviderName}, nil
}

func (o *OpenAIEnhancer) useFallback(ctx context.Context, req EnhanceRequest, reason string, fallbackErr error) (*EnhanceResponse, error) {
	if o.onFallback != nil {
		o.onFallback(reason, fallbackErr)
	}
	var fallback Enhancer = NewStaticEnhancer()
	if o.fallback != nil {
		fallback = o.fallback
	}
	res, err := fallback.Enhance(ctx, req)
	if res != nil && res.FallbackReason == "" {
		res.FallbackReason = reason
	}
	return res, err
}

var _ Enhancer = (*OpenAIEnhancer)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
