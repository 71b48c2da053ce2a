package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/m-mizutani/goerr/v2"
)

// BleveProvider is the "local" structured provider: a full-text index over
// recorded exchanges, kept in process memory.
type BleveProvider struct {
	index bleve.Index
	mu    sync.RWMutex
}

type bleveDoc struct {
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Metadata  string `json:"metadata"`
	CreatedAt string `json:"created_at"`
}

func NewBleveProvider() (*BleveProvider, error) {
	index, err := bleve.NewMemOnly(memoryMapping())
	if err != nil {
		return nil, goerr.Wrap(err, "create memory index")
	}
	return &BleveProvider{index: index}, nil
}

func memoryMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = true
	exact.IncludeInAll = false
	doc.AddFieldMappingsAt("user_id", exact)
	doc.AddFieldMappingsAt("message_id", exact)

	content := bleve.NewTextFieldMapping()
	content.Store = true
	content.IncludeTermVectors = true
	doc.AddFieldMappingsAt("content", content)

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	stored.IncludeInAll = false
	doc.AddFieldMappingsAt("metadata", stored)
	doc.AddFieldMappingsAt("created_at", stored)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = "standard"
	return m
}

func docID(userID, memoryID string) string {
	return userID + "/" + memoryID
}

func (p *BleveProvider) Name() string { return "local" }

func (p *BleveProvider) Add(ctx context.Context, content, userID string, metadata map[string]interface{}) error {
	memoryID, _ := metadata[MetaMessageID].(string)
	if memoryID == "" {
		return goerr.New("metadata.messageId is required")
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return goerr.Wrap(err, "encode metadata")
	}
	createdAt, _ := metadata[MetaCreatedAt].(string)
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.index.Index(docID(userID, memoryID), bleveDoc{
		UserID:    userID,
		MessageID: memoryID,
		Content:   content,
		Metadata:  string(meta),
		CreatedAt: createdAt,
	}); err != nil {
		return goerr.Wrap(err, "index memory", goerr.V("message_id", memoryID))
	}
	return nil
}

func (p *BleveProvider) Search(ctx context.Context, text, userID string, limit int) ([]ProviderEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	text = strings.TrimSpace(text)

	owner := query.NewTermQuery(userID)
	owner.SetField("user_id")

	var q query.Query = owner
	if text != "" {
		match := query.NewMatchQuery(text)
		match.SetField("content")
		q = query.NewConjunctionQuery([]query.Query{owner, match})
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"message_id", "content", "metadata", "created_at"}

	p.mu.RLock()
	res, err := p.index.SearchInContext(ctx, req)
	p.mu.RUnlock()
	if err != nil {
		return nil, goerr.Wrap(err, "search memories", goerr.V("user_id", userID))
	}

	entries := make([]ProviderEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		entry := ProviderEntry{Id: hit.ID, Score: hit.Score, Metadata: map[string]interface{}{}}
		if s, ok := hit.Fields["content"].(string); ok {
			entry.Content = s
		}
		if s, ok := hit.Fields["metadata"].(string); ok && s != "" {
			_ = json.Unmarshal([]byte(s), &entry.Metadata)
		}
		if s, ok := hit.Fields["message_id"].(string); ok {
			entry.Metadata[MetaMessageID] = s
		}
		if s, ok := hit.Fields["created_at"].(string); ok {
			entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, s)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (p *BleveProvider) Delete(ctx context.Context, userID, memoryID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.index.Delete(docID(userID, memoryID)); err != nil {
		return goerr.Wrap(err, "delete memory", goerr.V("message_id", memoryID))
	}
	return nil
}

func (p *BleveProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index.Close()
}
