// Package graph implements the curriculum graph mutation and query
// operations on top of the GraphStore contract.
package graph

import (
	"context"

	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/observability"
	"coursegraph-backend/internal/repository"
)

// Options tunes service behavior. The zero value disables cycle rejection;
// the container fills it from config.
type Options struct {
	// RejectPrerequisiteCycles refuses PREREQUISITE_OF edges that would
	// close a directed cycle.
	RejectPrerequisiteCycles bool
}

// Service coordinates node and edge operations, layering domain validation
// on top of the store.
type Service struct {
	store     repository.GraphStore
	collector *observability.Collector
	logger    *zap.Logger
	opts      Options
}

// NewService creates the graph service.
func NewService(store repository.GraphStore, collector *observability.Collector, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		collector: collector,
		logger:    logger,
		opts:      opts,
	}
}

// CreateNodeInput carries the fields for a new node. Properties and Metadata
// hold decoded JSON values.
type CreateNodeInput struct {
	NodeType   graph.NodeType
	EntityID   string
	Label      string
	Properties map[string]any
	Metadata   map[string]any
	Actor      string
}

// CreateNode validates and persists a new node.
func (s *Service) CreateNode(ctx context.Context, input CreateNodeInput) (*graph.Node, error) {
	props, err := graph.PropertiesFromInterface(input.Properties)
	if err != nil {
		return nil, errors.Validation(errors.CodeNodeInvalid, "invalid node properties").
			WithCause(err).
			Build()
	}
	meta, err := graph.PropertiesFromInterface(input.Metadata)
	if err != nil {
		return nil, errors.Validation(errors.CodeNodeInvalid, "invalid node metadata").
			WithCause(err).
			Build()
	}

	node, err := graph.NewNode(input.NodeType, input.EntityID, input.Label, props, meta, input.Actor)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateNode(ctx, node)
	if err != nil {
		return nil, err
	}

	if s.collector != nil {
		s.collector.NodesCreated.Inc()
	}
	s.logger.Info("node created",
		zap.String("node_id", created.ID),
		zap.String("node_type", string(created.Type)),
		zap.String("entity_id", created.EntityID),
	)
	return created, nil
}

// GetNode fetches a node by its internal identifier.
func (s *Service) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	if id == "" {
		return nil, errors.Validation(errors.CodeValidationFailed, "node id is required").Build()
	}
	return s.store.GetNode(ctx, id)
}

// GetNodeByEntity fetches a node by its external entity identifier and type.
func (s *Service) GetNodeByEntity(ctx context.Context, entityID string, nodeType graph.NodeType) (*graph.Node, error) {
	if entityID == "" {
		return nil, errors.Validation(errors.CodeValidationFailed, "entity id is required").Build()
	}
	if !nodeType.Valid() {
		return nil, errors.Validation(errors.CodeNodeInvalid, "unknown node type").
			WithDetails("node type %q is not supported", nodeType).
			Build()
	}
	return s.store.GetNodeByEntity(ctx, entityID, nodeType)
}

// UpdateNodeInput carries the mutable node fields. Nil maps leave the
// corresponding field untouched; an empty non-nil map clears it.
type UpdateNodeInput struct {
	Label      *string
	Properties map[string]any
	Metadata   map[string]any
	Actor      string
}

// UpdateNode applies a partial update to a node.
func (s *Service) UpdateNode(ctx context.Context, id string, input UpdateNodeInput) (*graph.Node, error) {
	if id == "" {
		return nil, errors.Validation(errors.CodeValidationFailed, "node id is required").Build()
	}
	if input.Label != nil && *input.Label == "" {
		return nil, errors.Validation(errors.CodeNodeInvalid, "node label cannot be empty").Build()
	}

	patch := graph.NodePatch{Label: input.Label, Actor: input.Actor}
	if input.Properties != nil {
		props, err := graph.PropertiesFromInterface(input.Properties)
		if err != nil {
			return nil, errors.Validation(errors.CodeNodeInvalid, "invalid node properties").
				WithCause(err).
				Build()
		}
		patch.Properties = props
	}
	if input.Metadata != nil {
		meta, err := graph.PropertiesFromInterface(input.Metadata)
		if err != nil {
			return nil, errors.Validation(errors.CodeNodeInvalid, "invalid node metadata").
				WithCause(err).
				Build()
		}
		patch.Metadata = meta
	}

	return s.store.UpdateNode(ctx, id, patch)
}

// DeleteNode removes a node and every edge attached to it.
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	if id == "" {
		return errors.Validation(errors.CodeValidationFailed, "node id is required").Build()
	}
	deleted, err := s.store.DeleteNode(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return graph.NewNodeNotFoundError(id)
	}
	if s.collector != nil {
		s.collector.NodesDeleted.Inc()
	}
	s.logger.Info("node deleted", zap.String("node_id", id))
	return nil
}

// SearchNodes performs a ranked label search, optionally filtered by type.
func (s *Service) SearchNodes(ctx context.Context, query string, typeFilter graph.NodeType, limit int) ([]*graph.Node, error) {
	if query == "" {
		return nil, errors.Validation(errors.CodeValidationFailed, "search query is required").Build()
	}
	if typeFilter != "" && !typeFilter.Valid() {
		return nil, errors.Validation(errors.CodeNodeInvalid, "unknown node type").
			WithDetails("node type %q is not supported", typeFilter).
			Build()
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.SearchNodes(ctx, query, typeFilter, limit)
}

// CreateEdgeInput carries the fields for a new edge between two existing
// nodes.
type CreateEdgeInput struct {
	EdgeType   graph.EdgeType
	SourceID   string
	TargetID   string
	Weight     float64
	Properties map[string]any
	Metadata   map[string]any
	Actor      string
}

// CreateEdge validates and persists a new edge. When cycle rejection is
// enabled, a PREREQUISITE_OF edge whose target already reaches its source
// through other prerequisite edges is refused.
func (s *Service) CreateEdge(ctx context.Context, input CreateEdgeInput) (*graph.Edge, error) {
	props, err := graph.PropertiesFromInterface(input.Properties)
	if err != nil {
		return nil, errors.Validation(errors.CodeEdgeInvalid, "invalid edge properties").
			WithCause(err).
			Build()
	}
	meta, err := graph.PropertiesFromInterface(input.Metadata)
	if err != nil {
		return nil, errors.Validation(errors.CodeEdgeInvalid, "invalid edge metadata").
			WithCause(err).
			Build()
	}

	edge, err := graph.NewEdge(input.EdgeType, input.SourceID, input.TargetID, input.Weight, props, meta, input.Actor)
	if err != nil {
		return nil, err
	}

	if s.opts.RejectPrerequisiteCycles && edge.Type == graph.EdgeTypePrerequisite {
		cyclic, err := s.wouldCloseCycle(ctx, edge.SourceID, edge.TargetID)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, graph.NewCycleError(edge.SourceID, edge.TargetID)
		}
	}

	created, err := s.store.CreateEdge(ctx, edge)
	if err != nil {
		return nil, err
	}

	if s.collector != nil {
		s.collector.EdgesCreated.Inc()
	}
	s.logger.Info("edge created",
		zap.String("edge_id", created.ID),
		zap.String("edge_type", string(created.Type)),
		zap.String("source_node_id", created.SourceID),
		zap.String("target_node_id", created.TargetID),
	)
	return created, nil
}

// wouldCloseCycle reports whether target already reaches source through
// PREREQUISITE_OF edges, so that adding source -> target would close a loop.
func (s *Service) wouldCloseCycle(ctx context.Context, sourceID, targetID string) (bool, error) {
	visited := map[string]struct{}{targetID: {}}
	frontier := []string{targetID}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		edges, err := s.store.GetEdgesFrom(ctx, current, graph.EdgeTypePrerequisite)
		if err != nil {
			return false, err
		}
		for _, e := range edges {
			if e.TargetID == sourceID {
				return true, nil
			}
			if _, seen := visited[e.TargetID]; seen {
				continue
			}
			visited[e.TargetID] = struct{}{}
			frontier = append(frontier, e.TargetID)
		}
	}
	return false, nil
}

// GetEdge fetches an edge by identifier.
func (s *Service) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	if id == "" {
		return nil, errors.Validation(errors.CodeValidationFailed, "edge id is required").Build()
	}
	return s.store.GetEdge(ctx, id)
}

// DeleteEdge removes an edge.
func (s *Service) DeleteEdge(ctx context.Context, id string) error {
	if id == "" {
		return errors.Validation(errors.CodeValidationFailed, "edge id is required").Build()
	}
	deleted, err := s.store.DeleteEdge(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.NotFound(errors.CodeEdgeNotFound, "edge not found").
			WithResource(id).
			Build()
	}
	s.logger.Info("edge deleted", zap.String("edge_id", id))
	return nil
}

// GetNeighbors lists the nodes directly connected to the given node,
// filtered by edge type and direction.
func (s *Service) GetNeighbors(ctx context.Context, nodeID string, query repository.NeighborQuery) ([]repository.NeighborView, error) {
	if nodeID == "" {
		return nil, errors.Validation(errors.CodeValidationFailed, "node id is required").Build()
	}
	if query.Direction == "" {
		query.Direction = repository.DirectionBoth
	}
	if !query.Direction.Valid() {
		return nil, errors.Validation(errors.CodeValidationFailed, "unknown direction").
			WithDetails("direction %q is not supported", query.Direction).
			Build()
	}
	for _, et := range query.EdgeTypes {
		if !et.Valid() {
			return nil, errors.Validation(errors.CodeEdgeInvalid, "unknown edge type").
				WithDetails("edge type %q is not supported", et).
				Build()
		}
	}
	return s.store.GetNeighbors(ctx, nodeID, query)
}
