package anthropic

import (
	"context"
	"fmt"
	"strings"

	"kb-agent/pkg/llm"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 4096

// Provider implements llm.LLMProvider using the Anthropic Messages API.
type Provider struct {
	client sdk.Client
	model  sdk.Model
}

var _ llm.LLMProvider = &Provider{}

// NewProvider creates a client for the given model. An empty apiKey falls
// back to the SDK's ANTHROPIC_API_KEY environment lookup.
func NewProvider(apiKey, model string, extra ...option.RequestOption) *Provider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	return &Provider{
		client: sdk.NewClient(opts...),
		model:  sdk.Model(model),
	}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (llm.Message, error) {
	opts := llm.ApplyOptions(llm.Options{MaxTokens: defaultMaxTokens}, options...)

	model := p.model
	if opts.Model != "" {
		model = sdk.Model(opts.Model)
	}

	// System messages go in the top-level system field; the rest keep their order.
	var system []sdk.TextBlockParam
	var messages []sdk.MessageParam
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, sdk.TextBlockParam{Type: "text", Text: msg.Content})
		case llm.RoleAssistant:
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}

	params := sdk.MessageNewParams{
		Model:     model,
		MaxTokens: int64(opts.MaxTokens),
		System:    system,
		Messages:  messages,
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Message{}, fmt.Errorf("anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return llm.Message{}, fmt.Errorf("no text content in response")
	}

	return llm.Message{Role: llm.RoleAssistant, Content: text.String()}, nil
}
