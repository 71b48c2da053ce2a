package openai

import (
	"context"

	"ai-tutor-be/pkg/embedding"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

func NewOpenAIProvider(apiKey, baseURL, model string, dimension int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, goerr.New("openai embedding requires an API key")
	}
	if model == "" {
		model = string(openai.LargeEmbedding3)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: dimension,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.RawEmbedding, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimension,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embeddings", goerr.V("model", p.model))
	}
	if len(resp.Data) == 0 {
		return nil, goerr.New("empty embeddings from openai", goerr.V("model", p.model))
	}

	return &embedding.RawEmbedding{Values: resp.Data[0].Embedding, Model: p.model}, nil
}
