package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ai-tutor-be/pkg/embedding"

	"github.com/m-mizutani/goerr/v2"
)

type JinaProvider struct {
	apiKey    string
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type embeddingRequest struct {
	Model         string   `json:"model"`
	Input         []string `json:"input"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

func NewJinaProvider(apiKey, baseURL, model string, dimension int) *JinaProvider {
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1/embeddings"
	}
	if model == "" {
		model = "jina-embeddings-v3"
	}
	return &JinaProvider{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client:    &http.Client{},
	}
}

func (p *JinaProvider) Name() string { return "jina:" + p.model }

func (p *JinaProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.RawEmbedding, error) {
	reqBody := embeddingRequest{
		Model:         p.model,
		Input:         []string{text},
		Task:          jinaTask(taskType),
		Dimensions:    p.dimension,
		EmbeddingType: "float",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "jina request failed", goerr.V("model", p.model))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("jina api error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(bodyBytes)))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode jina response")
	}
	if len(jinaResp.Data) == 0 {
		return nil, goerr.New("empty embeddings from jina api", goerr.V("detail", jinaResp.Detail))
	}

	return &embedding.RawEmbedding{Values: jinaResp.Data[0].Embedding, Model: p.model}, nil
}

func jinaTask(taskType string) string {
	switch taskType {
	case embedding.TaskRetrievalQuery:
		return "retrieval.query"
	case embedding.TaskRetrievalDocument:
		return "retrieval.passage"
	default:
		return ""
	}
}
