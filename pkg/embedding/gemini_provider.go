package embedding

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int32
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, dimension int) (EmbeddingProvider, error) {
	if apiKey == "" {
		return nil, goerr.New("gemini embedding requires an API key")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	return &GeminiProvider{
		client:    client,
		model:     model,
		dimension: int32(dimension),
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*RawEmbedding, error) {
	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if p.dimension > 0 {
		cfg.OutputDimensionality = &p.dimension
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, genai.Text(text), cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", p.model))
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, goerr.New("empty embeddings from gemini", goerr.V("model", p.model))
	}

	return &RawEmbedding{Values: resp.Embeddings[0].Values, Model: p.model}, nil
}
