package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sony/gobreaker"
)

// Mem0Provider talks to the hosted Mem0 REST API.
type Mem0Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewMem0Provider(baseURL, apiKey string, timeout time.Duration) *Mem0Provider {
	if baseURL == "" {
		baseURL = "https://api.mem0.ai"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mem0Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mem0",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

type mem0Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mem0AddRequest struct {
	Messages []mem0Message         `json:"messages"`
	UserID   string                 `json:"user_id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type mem0SearchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type mem0Memory struct {
	ID        string                 `json:"id"`
	Memory    string                 `json:"memory"`
	Metadata  map[string]interface{} `json:"metadata"`
	Score     float64                `json:"score"`
	CreatedAt string                 `json:"created_at"`
}

func (p *Mem0Provider) Name() string { return "mem0" }

func (p *Mem0Provider) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, goerr.Wrap(err, "encode mem0 request")
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf("Token %s", p.apiKey))

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, goerr.Wrap(err, "mem0 request failed", goerr.V("path", path))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, goerr.New("mem0 error",
				goerr.V("status", resp.StatusCode),
				goerr.V("path", path),
				goerr.V("body", string(data)))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (p *Mem0Provider) Add(ctx context.Context, content, userID string, metadata map[string]interface{}) error {
	_, err := p.do(ctx, http.MethodPost, "/v1/memories/", mem0AddRequest{
		Messages: []mem0Message{{Role: "user", Content: content}},
		UserID:   userID,
		Metadata: metadata,
	})
	return err
}

func (p *Mem0Provider) Search(ctx context.Context, query, userID string, limit int) ([]ProviderEntry, error) {
	data, err := p.do(ctx, http.MethodPost, "/v1/memories/search/", mem0SearchRequest{
		Query:  query,
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	memories, err := decodeMem0List(data)
	if err != nil {
		return nil, err
	}
	return toEntries(memories), nil
}

// Delete removes every Mem0 memory carrying messageId == memoryID. Mem0 assigns its
// own ids, so the user's memories are listed and filtered first.
func (p *Mem0Provider) Delete(ctx context.Context, userID, memoryID string) error {
	data, err := p.do(ctx, http.MethodGet, "/v1/memories/?user_id="+url.QueryEscape(userID), nil)
	if err != nil {
		return err
	}
	memories, err := decodeMem0List(data)
	if err != nil {
		return err
	}
	for _, m := range memories {
		if id, _ := m.Metadata[MetaMessageID].(string); id != memoryID {
			continue
		}
		if _, err := p.do(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(m.ID)+"/", nil); err != nil {
			return err
		}
	}
	return nil
}

// decodeMem0List accepts both the bare array and the {"results": [...]} envelope.
func decodeMem0List(data []byte) ([]mem0Memory, error) {
	var list []mem0Memory
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Results []mem0Memory `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, goerr.Wrap(err, "decode mem0 response")
	}
	return wrapped.Results, nil
}

func toEntries(memories []mem0Memory) []ProviderEntry {
	entries := make([]ProviderEntry, 0, len(memories))
	for _, m := range memories {
		meta := m.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		entry := ProviderEntry{Id: m.ID, Content: m.Memory, Metadata: meta, Score: m.Score}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, m.CreatedAt)
		entries = append(entries, entry)
	}
	return entries
}
