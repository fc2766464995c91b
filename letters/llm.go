package letters

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You draft formal consumer complaint letters for UK, EU and US consumers. " +
	"Write in plain, firm, polite English. Cite only the laws you are given. " +
	"Do not invent facts, dates, reference numbers or amounts. Return the letter as Markdown only."

// DefaultModel is used when no model is configured
const DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

// LLMCaller generates Markdown from a prompt
type LLMCaller interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// AnthropicMessager is the part of the Anthropic client the caller uses
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicCaller calls the Anthropic Messages API
type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropicCaller creates a caller for apiKey. An empty model uses DefaultModel.
func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newAnthropicCaller(&c.Messages, model), nil
}

func newAnthropicCaller(messages AnthropicMessager, model string) *AnthropicCaller {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &AnthropicCaller{messages: messages, model: model}
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   2048,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.3),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
