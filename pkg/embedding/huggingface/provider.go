package huggingface

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

// HuggingFaceProvider calls the feature-extraction pipeline of the inference API.
// Depending on the model the reply is a pooled vector or a per-token matrix; both
// are passed through untouched and pooled by embedding.ToFloat32.
type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type featureExtractionRequest struct {
	Inputs  string         `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

func NewHuggingFaceProvider(apiKey, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/hf-inference/models"
	}
	if model == "" {
		model = "BAAI/bge-large-en-v1.5"
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

func (p *HuggingFaceProvider) Name() string { return "huggingface:" + p.model }

func (p *HuggingFaceProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.RawEmbedding, error) {
	jsonData, err := json.Marshal(featureExtractionRequest{
		Inputs:  text,
		Options: map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/pipeline/feature-extraction", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "huggingface request failed", goerr.V("model", p.model))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("huggingface api error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(bodyBytes)))
	}

	var values any
	if err := json.Unmarshal(bodyBytes, &values); err != nil {
		return nil, goerr.Wrap(err, "failed to decode feature-extraction output")
	}

	return &embedding.RawEmbedding{Values: values, Model: p.model}, nil
}
