package openai

import (
	"context"

	"ai-tutor-be/pkg/llm"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

var _ llm.LLMProvider = &OpenAIProvider{}

// NewOpenAIProvider also serves OpenAI-compatible gateways through baseURL.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Resolve(llm.Options{Temperature: 0.7, Model: p.model}, opts...)

	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, m := range history {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	})
	if err != nil {
		return "", goerr.Wrap(err, "chat completion failed", goerr.V("model", options.Model))
	}
	if len(resp.Choices) == 0 {
		return "", goerr.New("empty choices from openai", goerr.V("model", options.Model))
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
