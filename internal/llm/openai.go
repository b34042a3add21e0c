package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider calls the chat completions API with a JSON-only prompt.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *openai.Client
}

func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIProvider{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		baseURL: strings.TrimSpace(baseURL),
		timeout: timeout,
	}
}

func (p *OpenAIProvider) ensureClient() error {
	if p.apiKey == "" {
		return ErrNoAPIKey
	}
	if p.client == nil {
		opts := []option.RequestOption{option.WithAPIKey(p.apiKey), option.WithMaxRetries(1)}
		if p.baseURL != "" {
			opts = append(opts, option.WithBaseURL(p.baseURL))
		}
		c := openai.NewClient(opts...)
		p.client = &c
	}
	return nil
}

func (p *OpenAIProvider) SuggestLayout(ctx context.Context, req LayoutRequest) (LayoutResponse, error) {
	if err := p.ensureClient(); err != nil {
		return LayoutResponse{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := sonic.MarshalString(req)
	if err != nil {
		return LayoutResponse{}, err
	}
	text, err := p.complete(ctx, layoutSystemPrompt, "Input JSON:\n"+payload)
	if err != nil {
		return LayoutResponse{}, err
	}
	var out LayoutResponse
	if err := decodeJSON(text, &out); err != nil {
		return LayoutResponse{}, fmt.Errorf("openai: parse layout: %w", err)
	}
	return out, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, system, user string) (string, error) {
	model := p.model
	if model == "" {
		model = "gpt-4o-mini"
	}
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
