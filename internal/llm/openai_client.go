package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// openAIBackend generates text through the chat completions API.
type openAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates an OpenAI (or OpenAI-compatible, via BaseURL) backend.
func NewOpenAIBackend(cfg ProviderConfig) (Backend, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIBackend{client: openai.NewClient(reqOpts...)}, nil
}

func (b *openAIBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	var message openai.ChatCompletionMessageParamUnion
	if len(opts.Images) == 0 {
		message = openai.UserMessage(prompt)
	} else {
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(opts.Images)+1)
		parts = append(parts, openai.TextContentPart(prompt))
		for _, img := range opts.Images {
			dataURL := "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}))
		}
		message = openai.UserMessage(parts)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{message},
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
