// Package memory provides an in-memory GraphStore used for local development
// and unit tests. It honors the same error and ordering conventions as the
// DynamoDB store, including atomic ImportGraph semantics.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/repository"
)

// Store keeps the whole graph in process, guarded by a single RWMutex.
// Reads run concurrently; writes and imports take the write lock, which
// makes every mutation atomic from a reader's point of view.
type Store struct {
	mu sync.RWMutex

	nodes    map[string]*graph.Node // node ID -> node
	entities map[string]string      // entity key (type#entityID) -> node ID
	edges    map[string]*graph.Edge // edge ID -> edge
	out      map[string][]string    // source node ID -> edge IDs
	in       map[string][]string    // target node ID -> edge IDs

	logger *zap.Logger
}

// NewStore creates an empty in-memory store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		nodes:    make(map[string]*graph.Node),
		entities: make(map[string]string),
		edges:    make(map[string]*graph.Edge),
		out:      make(map[string][]string),
		in:       make(map[string][]string),
		logger:   logger,
	}
}

var _ repository.GraphStore = (*Store)(nil)

func entityKey(nodeType graph.NodeType, entityID string) string {
	return string(nodeType) + "#" + entityID
}

func edgeKey(edgeType graph.EdgeType, sourceID, targetID string) string {
	return string(edgeType) + "#" + sourceID + "#" + targetID
}

// CreateNode persists a node, enforcing (entity_id, type) uniqueness.
func (s *Store) CreateNode(ctx context.Context, node *graph.Node) (*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertNodeLocked(node); err != nil {
		return nil, err
	}
	return node.Clone(), nil
}

func (s *Store) insertNodeLocked(node *graph.Node) error {
	key := entityKey(node.Type, node.EntityID)
	if _, exists := s.entities[key]; exists {
		return graph.NewDuplicateNodeError(node.EntityID, node.Type)
	}
	s.nodes[node.ID] = node.Clone()
	s.entities[key] = node.ID
	return nil
}

// GetNode returns the node with the given internal ID.
func (s *Store) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, graph.NewNodeNotFoundError(id)
	}
	return node.Clone(), nil
}

// GetNodeByEntity returns the node referencing the given external entity.
func (s *Store) GetNodeByEntity(ctx context.Context, entityID string, nodeType graph.NodeType) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entities[entityKey(nodeType, entityID)]
	if !ok {
		return nil, graph.NewEntityNotFoundError(entityID, nodeType)
	}
	return s.nodes[id].Clone(), nil
}

// UpdateNode applies a patch to an existing node.
func (s *Store) UpdateNode(ctx context.Context, id string, patch graph.NodePatch) (*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, graph.NewNodeNotFoundError(id)
	}
	node.Apply(patch)
	return node.Clone(), nil
}

// DeleteNode removes a node and cascades to every edge touching it.
func (s *Store) DeleteNode(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return false, nil
	}

	for _, edgeID := range append(append([]string{}, s.out[id]...), s.in[id]...) {
		s.removeEdgeLocked(edgeID)
	}
	delete(s.nodes, id)
	delete(s.entities, entityKey(node.Type, node.EntityID))
	delete(s.out, id)
	delete(s.in, id)
	return true, nil
}

// SearchNodes ranks label matches: exact, then prefix, then substring,
// case-insensitive, ties broken alphabetically.
func (s *Store) SearchNodes(ctx context.Context, query string, typeFilter graph.NodeType, limit int) ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	type scored struct {
		node  *graph.Node
		score int
	}
	var matches []scored
	for _, node := range s.nodes {
		if typeFilter != "" && node.Type != typeFilter {
			continue
		}
		label := strings.ToLower(node.Label)
		switch {
		case label == q:
			matches = append(matches, scored{node, 0})
		case strings.HasPrefix(label, q):
			matches = append(matches, scored{node, 1})
		case strings.Contains(label, q):
			matches = append(matches, scored{node, 2})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		return matches[i].node.Label < matches[j].node.Label
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*graph.Node, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.node.Clone())
	}
	return out, nil
}

// CreateEdge persists an edge after verifying both endpoints exist and the
// (type, source, target) triple is new.
func (s *Store) CreateEdge(ctx context.Context, edge *graph.Edge) (*graph.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertEdgeLocked(edge); err != nil {
		return nil, err
	}
	return edge.Clone(), nil
}

func (s *Store) insertEdgeLocked(edge *graph.Edge) error {
	if _, ok := s.nodes[edge.SourceID]; !ok {
		return graph.NewNodeNotFoundError(edge.SourceID)
	}
	if _, ok := s.nodes[edge.TargetID]; !ok {
		return graph.NewNodeNotFoundError(edge.TargetID)
	}
	for _, existingID := range s.out[edge.SourceID] {
		existing := s.edges[existingID]
		if existing.Type == edge.Type && existing.TargetID == edge.TargetID {
			return graph.NewDuplicateEdgeError(edge.Type, edge.SourceID, edge.TargetID)
		}
	}

	s.edges[edge.ID] = edge.Clone()
	s.out[edge.SourceID] = append(s.out[edge.SourceID], edge.ID)
	s.in[edge.TargetID] = append(s.in[edge.TargetID], edge.ID)
	return nil
}

func (s *Store) removeEdgeLocked(edgeID string) {
	edge, ok := s.edges[edgeID]
	if !ok {
		return
	}
	s.out[edge.SourceID] = removeID(s.out[edge.SourceID], edgeID)
	s.in[edge.TargetID] = removeID(s.in[edge.TargetID], edgeID)
	delete(s.edges, edgeID)
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// GetEdge returns the edge with the given ID.
func (s *Store) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[id]
	if !ok {
		return nil, graph.ErrEdgeNotFound
	}
	return edge.Clone(), nil
}

// GetEdgesFrom returns outgoing edges ordered by weight descending.
func (s *Store) GetEdgesFrom(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectEdgesLocked(s.out[nodeID], edgeTypes), nil
}

// GetEdgesTo returns incoming edges ordered by weight descending.
func (s *Store) GetEdgesTo(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectEdgesLocked(s.in[nodeID], edgeTypes), nil
}

func (s *Store) collectEdgesLocked(edgeIDs []string, edgeTypes []graph.EdgeType) []*graph.Edge {
	var out []*graph.Edge
	for _, id := range edgeIDs {
		edge := s.edges[id]
		if len(edgeTypes) > 0 && !containsType(edgeTypes, edge.Type) {
			continue
		}
		out = append(out, edge.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func containsType(types []graph.EdgeType, t graph.EdgeType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// GetNeighbors returns the nodes adjacent to nodeID together with the
// connecting edges, filtered by direction and edge type.
func (s *Store) GetNeighbors(ctx context.Context, nodeID string, query repository.NeighborQuery) ([]repository.NeighborView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[nodeID]; !ok {
		return nil, graph.NewNodeNotFoundError(nodeID)
	}

	direction := query.Direction
	if direction == "" {
		direction = repository.DirectionBoth
	}

	var views []repository.NeighborView
	if direction == repository.DirectionOutgoing || direction == repository.DirectionBoth {
		for _, edge := range s.collectEdgesLocked(s.out[nodeID], query.EdgeTypes) {
			views = append(views, repository.NeighborView{
				Node:       s.nodes[edge.TargetID].Clone(),
				EdgeID:     edge.ID,
				EdgeType:   edge.Type,
				EdgeWeight: edge.Weight,
				Direction:  repository.DirectionOutgoing,
			})
		}
	}
	if direction == repository.DirectionIncoming || direction == repository.DirectionBoth {
		for _, edge := range s.collectEdgesLocked(s.in[nodeID], query.EdgeTypes) {
			views = append(views, repository.NeighborView{
				Node:       s.nodes[edge.SourceID].Clone(),
				EdgeID:     edge.ID,
				EdgeType:   edge.Type,
				EdgeWeight: edge.Weight,
				Direction:  repository.DirectionIncoming,
			})
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].EdgeWeight > views[j].EdgeWeight
	})
	return views, nil
}

// DeleteEdge removes an edge by ID.
func (s *Store) DeleteEdge(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[id]; !ok {
		return false, nil
	}
	s.removeEdgeLocked(id)
	return true, nil
}

// ImportGraph applies the whole batch under the write lock: every constraint
// is validated against a staged view first, so a failing record leaves the
// store untouched.
func (s *Store) ImportGraph(ctx context.Context, nodes []*graph.Node, edges []*graph.Edge, requiredNodeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validation pass against current state plus the staged batch.
	stagedEntities := make(map[string]struct{}, len(nodes))
	stagedNodes := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		key := entityKey(node.Type, node.EntityID)
		if _, exists := s.entities[key]; exists {
			return graph.NewDuplicateNodeError(node.EntityID, node.Type)
		}
		if _, staged := stagedEntities[key]; staged {
			return graph.NewDuplicateNodeError(node.EntityID, node.Type)
		}
		stagedEntities[key] = struct{}{}
		stagedNodes[node.ID] = struct{}{}
	}

	for _, id := range requiredNodeIDs {
		if _, ok := s.nodes[id]; !ok {
			return graph.NewNodeNotFoundError(id)
		}
	}

	stagedEdges := make(map[string]struct{}, len(edges))
	for _, edge := range edges {
		if !s.nodeAvailableLocked(edge.SourceID, stagedNodes) {
			return graph.NewNodeNotFoundError(edge.SourceID)
		}
		if !s.nodeAvailableLocked(edge.TargetID, stagedNodes) {
			return graph.NewNodeNotFoundError(edge.TargetID)
		}
		key := edgeKey(edge.Type, edge.SourceID, edge.TargetID)
		if _, staged := stagedEdges[key]; staged {
			return graph.NewDuplicateEdgeError(edge.Type, edge.SourceID, edge.TargetID)
		}
		stagedEdges[key] = struct{}{}
		for _, existingID := range s.out[edge.SourceID] {
			existing := s.edges[existingID]
			if existing.Type == edge.Type && existing.TargetID == edge.TargetID {
				return graph.NewDuplicateEdgeError(edge.Type, edge.SourceID, edge.TargetID)
			}
		}
	}

	// Apply pass; cannot fail after validation.
	for _, node := range nodes {
		s.nodes[node.ID] = node.Clone()
		s.entities[entityKey(node.Type, node.EntityID)] = node.ID
	}
	for _, edge := range edges {
		s.edges[edge.ID] = edge.Clone()
		s.out[edge.SourceID] = append(s.out[edge.SourceID], edge.ID)
		s.in[edge.TargetID] = append(s.in[edge.TargetID], edge.ID)
	}

	s.logger.Debug("graph import applied",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}

func (s *Store) nodeAvailableLocked(id string, staged map[string]struct{}) bool {
	if _, ok := s.nodes[id]; ok {
		return true
	}
	_, ok := staged[id]
	return ok
}
