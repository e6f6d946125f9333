package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/barscout/barscout-cli/pkg/anthropic"
	"github.com/barscout/barscout-cli/pkg/openai"
)

type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.ChatResponse), args.Error(1)
}

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestOpenAICompleter(t *testing.T) {
	client := &mockOpenAIClient{}
	client.On("ChatCompletion", mock.Anything, openai.ChatRequest{
		Model:       "gpt-4o-mini",
		System:      "sys",
		User:        "prompt",
		Temperature: 0.5,
		MaxTokens:   100,
	}).Return(&openai.ChatResponse{Content: "[]", PromptTokens: 12, CompletionTokens: 3}, nil)

	c := NewOpenAICompleter(client, "gpt-4o-mini")
	got, err := c.Complete(context.Background(), CompletionRequest{System: "sys", Prompt: "prompt", Temperature: 0.5, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, &Completion{Text: "[]", InputTokens: 12, OutputTokens: 3}, got)
	client.AssertExpectations(t)
}

func TestOpenAICompleter_Error(t *testing.T) {
	client := &mockOpenAIClient{}
	client.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewOpenAICompleter(client, "gpt-4o").Complete(context.Background(), CompletionRequest{Prompt: "p"})
	assert.EqualError(t, err, "boom")
}

func TestAnthropicCompleter(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 2048 &&
			req.System == "sys" &&
			len(req.Messages) == 1 && req.Messages[0].Content == "prompt" &&
			req.Temperature != nil && *req.Temperature == 0
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "[{"}, {Type: "text", Text: "}]"}},
		Usage:   anthropic.TokenUsage{InputTokens: 20, OutputTokens: 4},
	}, nil)

	c := NewAnthropicCompleter(client, "claude-haiku-4-5-20251001")
	got, err := c.Complete(context.Background(), CompletionRequest{System: "sys", Prompt: "prompt"})
	require.NoError(t, err)
	assert.Equal(t, &Completion{Text: "[{}]", InputTokens: 20, OutputTokens: 4}, got)
	client.AssertExpectations(t)
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(ProviderOpenAI, "gpt-3.5-turbo", ProviderKeys{OpenAIKey: "sk"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompleter{}, c)

	c, err = NewCompleter(ProviderAnthropic, "claude-haiku-4-5-20251001", ProviderKeys{AnthropicKey: "k", AnthropicBaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicCompleter{}, c)

	_, err = NewCompleter("mistral", "x", ProviderKeys{})
	assert.ErrorContains(t, err, `unknown provider "mistral"`)
}
