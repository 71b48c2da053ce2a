package knowledge

import (
	"context"
	"fmt"
	"strings"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/pkg/events"

	"github.com/m-mizutani/goerr/v2"
)

// VectorQuerier is the unranked side of the vector index.
type VectorQuerier interface {
	Query(ctx context.Context, userID string, filter entity.VectorFilter) ([]*entity.ContentVector, error)
}

// GraphStore keeps typed directed edges between a user's content items.
type GraphStore struct {
	edges     contract.GraphEdgeRepository
	vectors   VectorQuerier
	maxDepth  int
	logger    logger.ILogger
	publisher events.Publisher
}

func NewGraphStore(edges contract.GraphEdgeRepository, vectors VectorQuerier, maxDepth int, log logger.ILogger, publisher events.Publisher) *GraphStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &GraphStore{
		edges:     edges,
		vectors:   vectors,
		maxDepth:  maxDepth,
		logger:    log,
		publisher: publisher,
	}
}

func (g *GraphStore) MaxDepth() int {
	return g.maxDepth
}

// CreateEdge rejects self-loops and edges whose endpoints are not content of userID.
func (g *GraphStore) CreateEdge(ctx context.Context, userID, source, target, relType string, metadata map[string]interface{}) (*entity.GraphEdge, error) {
	relType = strings.TrimSpace(relType)
	switch {
	case userID == "":
		return nil, apperror.New(apperror.KindValidation, "user_id is required")
	case source == "" || target == "":
		return nil, apperror.New(apperror.KindValidation, "source and target are required")
	case source == target:
		return nil, apperror.New(apperror.KindValidation, "self-loops are not allowed")
	case relType == "":
		return nil, apperror.New(apperror.KindValidation, "relationship type is required")
	}

	found, err := g.vectors.Query(ctx, userID, entity.VectorFilter{
		ContentTypes: entity.KnowledgeContentTypes,
		ContentIds:   []string{source, target},
	})
	if err != nil {
		return nil, err
	}
	present := map[string]bool{}
	for _, v := range found {
		present[v.ContentId] = true
	}
	for _, id := range []string{source, target} {
		if !present[id] {
			return nil, apperror.Newf(apperror.KindNotFound, "content %s does not exist", id)
		}
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	edge := &entity.GraphEdge{
		UserId:           userID,
		SourceContentId:  source,
		TargetContentId:  target,
		RelationshipType: relType,
		Metadata:         metadata,
	}
	if err := g.edges.Create(ctx, edge); err != nil {
		return nil, apperror.Wrap(apperror.KindVectorStore,
			goerr.Wrap(err, "create edge", goerr.V("source", source), goerr.V("target", target)),
			"edge insert failed")
	}

	if err := g.publisher.Publish(ctx, events.New(events.TypeEdgeCreated, map[string]interface{}{
		"user_id": userID,
		"edge_id": edge.Id.String(),
		"source":  source,
		"target":  target,
		"type":    relType,
	})); err != nil {
		g.logger.Warn("GRAPH", "Failed to publish edge event", map[string]interface{}{"error": err.Error()})
	}
	return edge, nil
}

// Traverse walks outgoing edges breadth-first from startID for at most maxDepth
// hops (capped by the configured depth). Each node is expanded once; edges come
// back in discover order.
func (g *GraphStore) Traverse(ctx context.Context, userID, startID string, maxDepth int, allowedTypes []string) ([]*entity.GraphEdge, error) {
	if maxDepth > g.maxDepth {
		maxDepth = g.maxDepth
	}
	if maxDepth <= 0 || startID == "" {
		return []*entity.GraphEdge{}, nil
	}

	visited := map[string]bool{startID: true}
	frontier := []string{startID}
	result := []*entity.GraphEdge{}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		found, err := g.edges.FindAll(ctx, userID, entity.EdgeFilter{SourceIds: frontier, Types: allowedTypes})
		if err != nil {
			return nil, apperror.Wrap(apperror.KindVectorStore, goerr.Wrap(err, "load edges", goerr.V("depth", depth)), "traversal failed")
		}

		bySource := make(map[string][]*entity.GraphEdge, len(frontier))
		for _, e := range found {
			bySource[e.SourceContentId] = append(bySource[e.SourceContentId], e)
		}

		var next []string
		for _, node := range frontier {
			for _, e := range bySource[node] {
				result = append(result, e)
				if !visited[e.TargetContentId] {
					visited[e.TargetContentId] = true
					next = append(next, e.TargetContentId)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// Edges returns every edge of the user, optionally restricted to types.
func (g *GraphStore) Edges(ctx context.Context, userID string, types []string) ([]*entity.GraphEdge, error) {
	edges, err := g.edges.FindAll(ctx, userID, entity.EdgeFilter{Types: types})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindVectorStore, err, "edge scan failed")
	}
	return edges, nil
}

// NodesForUser lists the user's content items once each, keyed by content id.
func (g *GraphStore) NodesForUser(ctx context.Context, userID string) ([]entity.GraphNode, error) {
	vectors, err := g.vectors.Query(ctx, userID, entity.VectorFilter{ContentTypes: entity.KnowledgeContentTypes})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	nodes := make([]entity.GraphNode, 0, len(vectors))
	for _, v := range vectors {
		if seen[v.ContentId] {
			continue
		}
		seen[v.ContentId] = true
		nodes = append(nodes, entity.GraphNode{
			Id:       v.ContentId,
			Type:     v.ContentType,
			Label:    nodeLabel(v),
			Metadata: v.Metadata,
		})
	}
	return nodes, nil
}

func nodeLabel(v *entity.ContentVector) string {
	for _, key := range []string{"title", "url", "fileName"} {
		if s, ok := v.Metadata[key].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("%s %s", v.ContentType, v.ContentId)
}
