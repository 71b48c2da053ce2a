package factory

import (
	"context"
	"fmt"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/llm/anthropic"
	"ai-tutor-be/pkg/llm/gemini"
	"ai-tutor-be/pkg/llm/ollama"
	"ai-tutor-be/pkg/llm/openai"
)

func NewLLMProvider(ctx context.Context, cfg config.LLMConfig) (llm.LLMProvider, error) {
	var (
		provider llm.LLMProvider
		err      error
	)

	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		provider = ollama.NewOllamaProvider(baseURL, cfg.Model)
	case "gemini":
		provider, err = gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		provider = openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "anthropic":
		provider = anthropic.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return llm.NewBreakerProvider("llm-"+cfg.Provider, provider), nil
}
