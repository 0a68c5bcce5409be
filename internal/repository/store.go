// Package repository defines the persistence contract for the curriculum
// graph. The services depend only on the GraphStore interface; concrete
// stores live in the dynamodb and memory subpackages and decorators wrap the
// interface without the services noticing.
package repository

import (
	"context"

	"coursegraph-backend/internal/domain/graph"
)

// Direction selects which edges a neighbor query follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Valid reports whether the direction is one of the supported values.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	}
	return false
}

// NeighborQuery filters a neighbor lookup. An empty EdgeTypes slice matches
// every edge type.
type NeighborQuery struct {
	EdgeTypes []graph.EdgeType
	Direction Direction
}

// NeighborView bundles a neighbor node with the edge that connects it.
type NeighborView struct {
	Node       *graph.Node    `json:"node"`
	EdgeID     string         `json:"edge_id"`
	EdgeType   graph.EdgeType `json:"edge_type"`
	EdgeWeight float64        `json:"edge_weight"`
	Direction  Direction      `json:"direction"`
}

// GraphStore is the storage contract for nodes and edges.
//
// Error conventions: lookups for absent entities return NodeNotFound /
// EdgeNotFound errors; uniqueness violations on create return
// DuplicateNode / DuplicateEdge; anything else is a storage error wrapping
// the backend failure. Edge listings are ordered by weight descending.
type GraphStore interface {
	// Node operations
	CreateNode(ctx context.Context, node *graph.Node) (*graph.Node, error)
	GetNode(ctx context.Context, id string) (*graph.Node, error)
	GetNodeByEntity(ctx context.Context, entityID string, nodeType graph.NodeType) (*graph.Node, error)
	UpdateNode(ctx context.Context, id string, patch graph.NodePatch) (*graph.Node, error)
	// DeleteNode cascades: every edge referencing the node as source or
	// target is removed with it. Returns whether a node was actually removed.
	DeleteNode(ctx context.Context, id string) (bool, error)
	// SearchNodes performs a ranked text match on node labels. A zero
	// typeFilter matches all types.
	SearchNodes(ctx context.Context, query string, typeFilter graph.NodeType, limit int) ([]*graph.Node, error)

	// Edge operations
	CreateEdge(ctx context.Context, edge *graph.Edge) (*graph.Edge, error)
	GetEdge(ctx context.Context, id string) (*graph.Edge, error)
	GetEdgesFrom(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error)
	GetEdgesTo(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error)
	GetNeighbors(ctx context.Context, nodeID string, query NeighborQuery) ([]NeighborView, error)
	DeleteEdge(ctx context.Context, id string) (bool, error)

	// ImportGraph persists the given nodes and edges as one atomic unit. A
	// failure leaves the store exactly as it was. requiredNodeIDs lists
	// pre-existing nodes referenced by the imported edges; their existence
	// is verified within the same transaction scope.
	ImportGraph(ctx context.Context, nodes []*graph.Node, edges []*graph.Edge, requiredNodeIDs []string) error
}
