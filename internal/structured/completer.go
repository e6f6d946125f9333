package structured

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/barscout/barscout-cli/pkg/anthropic"
	"github.com/barscout/barscout-cli/pkg/openai"
)

// CompletionRequest is a single-turn prompt.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the model's reply.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer is the LLM capability behind the Extractor.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OpenAICompleter adapts an OpenAI chat client.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a Completer over client for model.
func NewOpenAICompleter(client openai.Client, model string) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := c.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:       c.model,
		System:      req.System,
		User:        req.Prompt,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &Completion{
		Text:         resp.Content,
		InputTokens:  resp.PromptTokens,
		OutputTokens: resp.CompletionTokens,
	}, nil
}

// AnthropicCompleter adapts an Anthropic messages client.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a Completer over client for model.
func NewAnthropicCompleter(client anthropic.Client, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, model: model}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temp := req.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	return &Completion{
		Text:         resp.Text(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// Provider names accepted by NewCompleter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderKeys carries the credentials and endpoints NewCompleter may need.
type ProviderKeys struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	AnthropicBaseURL string
}

// NewCompleter builds the Completer for provider.
func NewCompleter(provider, model string, keys ProviderKeys) (Completer, error) {
	switch provider {
	case ProviderOpenAI:
		var opts []openai.Option
		if keys.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(keys.OpenAIBaseURL))
		}
		return NewOpenAICompleter(openai.NewClient(keys.OpenAIKey, opts...), model), nil
	case ProviderAnthropic:
		var opts []anthropic.Option
		if keys.AnthropicBaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(keys.AnthropicBaseURL))
		}
		return NewAnthropicCompleter(anthropic.NewClient(keys.AnthropicKey, opts...), model), nil
	default:
		return nil, eris.Errorf("structured: unknown provider %q", provider)
	}
}
