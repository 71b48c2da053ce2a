package embedding

import "context"

const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// RawEmbedding is a provider reply before conversion. Values holds whatever numeric
// array the backend produced: a flat vector or a token matrix of any numeric kind.
type RawEmbedding struct {
	Values any
	Model  string
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*RawEmbedding, error)
	Name() string
}
