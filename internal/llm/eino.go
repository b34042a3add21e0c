package llm

import (
	"context"
	"fmt"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// EinoProvider runs the layout prompt through an eino chain: chat template
// followed by a chat model.
type EinoProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewEinoProvider compiles the chain around cm.
func NewEinoProvider(ctx context.Context, cm model.BaseChatModel) (*EinoProvider, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(layoutSystemPrompt),
		schema.UserMessage(layoutUserTemplate),
	)
	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("eino: compile layout chain: %w", err)
	}
	return &EinoProvider{chain: chain}, nil
}

// NewEinoOpenAIProvider wires the chain to an OpenAI-compatible endpoint.
func NewEinoOpenAIProvider(ctx context.Context, opts Options) (*EinoProvider, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	cfg := &einoopenai.ChatModelConfig{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Model:   modelName,
		Timeout: opts.Timeout,
	}
	cm, err := einoopenai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("eino: create chat model: %w", err)
	}
	return NewEinoProvider(ctx, cm)
}

func (p *EinoProvider) SuggestLayout(ctx context.Context, req LayoutRequest) (LayoutResponse, error) {
	msg, err := p.chain.Invoke(ctx, req.templateVars())
	if err != nil {
		return LayoutResponse{}, fmt.Errorf("eino: %w", err)
	}
	var out LayoutResponse
	if err := decodeJSON(msg.Content, &out); err != nil {
		return LayoutResponse{}, fmt.Errorf("eino: parse layout: %w", err)
	}
	return out, nil
}
