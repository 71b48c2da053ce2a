package factory

import (
	"context"
	"fmt"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/pkg/embedding"
	"ai-tutor-be/pkg/embedding/huggingface"
	"ai-tutor-be/pkg/embedding/jina"
	"ai-tutor-be/pkg/embedding/openai"
)

// NewProviderFactory returns the lazy constructor for the configured provider.
func NewProviderFactory(cfg config.EmbeddingConfig, dimension int) embedding.ProviderFactory {
	return func(ctx context.Context) (embedding.EmbeddingProvider, error) {
		switch cfg.Provider {
		case "jina", "":
			if cfg.APIKey == "" {
				return nil, fmt.Errorf("jina embedding requires EMBEDDING_API_KEY")
			}
			return jina.NewJinaProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, dimension), nil
		case "ollama":
			return embedding.NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model), nil
		case "gemini":
			return embedding.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, dimension)
		case "openai":
			return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, dimension)
		case "huggingface":
			return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
		default:
			return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
		}
	}
}
