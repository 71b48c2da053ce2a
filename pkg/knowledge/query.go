package knowledge

import (
	"context"

	"ai-tutor-be/internal/entity"
)

const seedTraversalDepth = 3

// SeedRelationshipTypes are followed when the graph is expanded from a seed.
var SeedRelationshipTypes = []string{entity.RelationshipRelated, entity.RelationshipReferences}

type NodeView struct {
	Id       string                 `json:"id"`
	Type     string                 `json:"type"`
	Label    string                 `json:"label"`
	Metadata map[string]interface{} `json:"metadata"`
}

type RelationshipView struct {
	Source   string                 `json:"source"`
	Target   string                 `json:"target"`
	Type     string                 `json:"type"`
	Metadata map[string]interface{} `json:"metadata"`
}

type GraphPayload struct {
	Nodes         []NodeView         `json:"nodes"`
	Relationships []RelationshipView `json:"relationships"`
}

type GraphQuery struct {
	graph *GraphStore
}

func NewGraphQuery(graph *GraphStore) *GraphQuery {
	return &GraphQuery{graph: graph}
}

// Build assembles the user's graph. Without a seed every edge is returned; with a
// seed only edges reachable from it over related/references links.
func (q *GraphQuery) Build(ctx context.Context, userID, seed string) (*GraphPayload, error) {
	nodes, err := q.graph.NodesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var edges []*entity.GraphEdge
	if seed != "" {
		edges, err = q.graph.Traverse(ctx, userID, seed, seedTraversalDepth, SeedRelationshipTypes)
	} else {
		edges, err = q.graph.Edges(ctx, userID, nil)
	}
	if err != nil {
		return nil, err
	}

	payload := &GraphPayload{
		Nodes:         make([]NodeView, 0, len(nodes)),
		Relationships: make([]RelationshipView, 0, len(edges)),
	}
	for _, n := range nodes {
		meta := n.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		payload.Nodes = append(payload.Nodes, NodeView{
			Id:       n.Id,
			Type:     string(n.Type),
			Label:    n.Label,
			Metadata: meta,
		})
	}
	for _, e := range edges {
		meta := e.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		payload.Relationships = append(payload.Relationships, RelationshipView{
			Source:   e.SourceContentId,
			Target:   e.TargetContentId,
			Type:     e.RelationshipType,
			Metadata: meta,
		})
	}
	return payload, nil
}
