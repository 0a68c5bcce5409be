package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
)

// NodeRecord is one node in an import payload, keyed by external entity
// identifier rather than internal node id.
type NodeRecord struct {
	NodeType   graph.NodeType
	EntityID   string
	Label      string
	Properties map[string]any
	Metadata   map[string]any
}

// EdgeRecord is one edge in an import payload. Source and target name
// entities, which may be part of the same payload or already present in the
// graph.
type EdgeRecord struct {
	EdgeType       graph.EdgeType
	SourceEntityID string
	SourceNodeType graph.NodeType
	TargetEntityID string
	TargetNodeType graph.NodeType
	Weight         float64
	Properties     map[string]any
	Metadata       map[string]any
}

// ImportResult summarizes a successful bulk import.
type ImportResult struct {
	NodesCreated int `json:"nodes_created"`
	EdgesCreated int `json:"edges_created"`
}

// ImportGraph performs an all-or-nothing bulk load. Every record is
// validated and every edge endpoint resolved before the store transaction
// runs; any failure leaves the graph untouched.
func (s *Service) ImportGraph(ctx context.Context, nodeRecords []NodeRecord, edgeRecords []EdgeRecord, actor string) (*ImportResult, error) {
	if len(nodeRecords) == 0 && len(edgeRecords) == 0 {
		return nil, errors.Validation(errors.CodeImportInvalid, "import payload is empty").Build()
	}

	fail := func(err error) (*ImportResult, error) {
		if s.collector != nil {
			s.collector.GraphImports.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	// Build the staged nodes, indexed by (type, entity) for edge resolution.
	staged := make(map[string]*graph.Node, len(nodeRecords))
	nodes := make([]*graph.Node, 0, len(nodeRecords))
	for i, rec := range nodeRecords {
		props, err := graph.PropertiesFromInterface(rec.Properties)
		if err != nil {
			return fail(errors.Validation(errors.CodeImportInvalid, "invalid import payload").
				WithDetails("node %d: invalid properties: %v", i, err).
				Build())
		}
		meta, err := graph.PropertiesFromInterface(rec.Metadata)
		if err != nil {
			return fail(errors.Validation(errors.CodeImportInvalid, "invalid import payload").
				WithDetails("node %d: invalid metadata: %v", i, err).
				Build())
		}
		node, err := graph.NewNode(rec.NodeType, rec.EntityID, rec.Label, props, meta, actor)
		if err != nil {
			return fail(errors.Wrap(err, fmt.Sprintf("import node %d", i)))
		}

		key := entityKey(node.Type, node.EntityID)
		if _, dup := staged[key]; dup {
			return fail(errors.Validation(errors.CodeImportInvalid, "invalid import payload").
				WithDetails("node %d: duplicate entity %s/%s within payload", i, node.Type, node.EntityID).
				Build())
		}
		staged[key] = node
		nodes = append(nodes, node)
	}

	// Resolve edge endpoints: staged nodes first, then the live graph.
	// Pre-existing endpoints are pinned via requiredNodeIDs so the store
	// verifies them inside the same transaction.
	required := make(map[string]struct{})
	edges := make([]*graph.Edge, 0, len(edgeRecords))
	for i, rec := range edgeRecords {
		sourceID, preexisting, err := s.resolveEndpoint(ctx, staged, rec.SourceNodeType, rec.SourceEntityID)
		if err != nil {
			return fail(errors.Wrap(err, fmt.Sprintf("import edge %d: source", i)))
		}
		if preexisting {
			required[sourceID] = struct{}{}
		}
		targetID, preexisting, err := s.resolveEndpoint(ctx, staged, rec.TargetNodeType, rec.TargetEntityID)
		if err != nil {
			return fail(errors.Wrap(err, fmt.Sprintf("import edge %d: target", i)))
		}
		if preexisting {
			required[targetID] = struct{}{}
		}

		props, err := graph.PropertiesFromInterface(rec.Properties)
		if err != nil {
			return fail(errors.Validation(errors.CodeImportInvalid, "invalid import payload").
				WithDetails("edge %d: invalid properties: %v", i, err).
				Build())
		}
		meta, err := graph.PropertiesFromInterface(rec.Metadata)
		if err != nil {
			return fail(errors.Validation(errors.CodeImportInvalid, "invalid import payload").
				WithDetails("edge %d: invalid metadata: %v", i, err).
				Build())
		}
		edge, err := graph.NewEdge(rec.EdgeType, sourceID, targetID, rec.Weight, props, meta, actor)
		if err != nil {
			return fail(errors.Wrap(err, fmt.Sprintf("import edge %d", i)))
		}
		edges = append(edges, edge)
	}

	if s.opts.RejectPrerequisiteCycles {
		if err := s.checkImportCycles(ctx, edges); err != nil {
			return fail(err)
		}
	}

	requiredNodeIDs := make([]string, 0, len(required))
	for id := range required {
		requiredNodeIDs = append(requiredNodeIDs, id)
	}

	if err := s.store.ImportGraph(ctx, nodes, edges, requiredNodeIDs); err != nil {
		if s.collector != nil {
			s.collector.GraphImports.WithLabelValues("failed").Inc()
		}
		return nil, err
	}

	if s.collector != nil {
		s.collector.GraphImports.WithLabelValues("success").Inc()
	}
	s.logger.Info("graph import applied",
		zap.Int("nodes_created", len(nodes)),
		zap.Int("edges_created", len(edges)),
		zap.Int("required_nodes", len(requiredNodeIDs)),
	)
	return &ImportResult{NodesCreated: len(nodes), EdgesCreated: len(edges)}, nil
}

// resolveEndpoint maps an entity reference to an internal node id. The
// second return reports whether the node pre-exists in the store rather
// than being part of the current payload.
func (s *Service) resolveEndpoint(ctx context.Context, staged map[string]*graph.Node, nodeType graph.NodeType, entityID string) (string, bool, error) {
	if entityID == "" {
		return "", false, errors.Validation(errors.CodeImportInvalid, "edge endpoint entity id is required").Build()
	}
	if !nodeType.Valid() {
		return "", false, errors.Validation(errors.CodeImportInvalid, "unknown edge endpoint node type").
			WithDetails("node type %q is not supported", nodeType).
			Build()
	}
	if node, ok := staged[entityKey(nodeType, entityID)]; ok {
		return node.ID, false, nil
	}
	node, err := s.store.GetNodeByEntity(ctx, entityID, nodeType)
	if err != nil {
		return "", false, err
	}
	return node.ID, true, nil
}

func entityKey(nodeType graph.NodeType, entityID string) string {
	return string(nodeType) + "#" + entityID
}

// checkImportCycles rejects a batch whose prerequisite edges would close a
// cycle. Reachability is checked over the union of the staged edges and the
// edges already stored, so a batch cannot smuggle in a cycle that crosses
// the boundary between the two.
func (s *Service) checkImportCycles(ctx context.Context, edges []*graph.Edge) error {
	stagedOut := make(map[string][]string)
	for _, e := range edges {
		if e.Type == graph.EdgeTypePrerequisite {
			stagedOut[e.SourceID] = append(stagedOut[e.SourceID], e.TargetID)
		}
	}

	for _, e := range edges {
		if e.Type != graph.EdgeTypePrerequisite {
			continue
		}
		cyclic, err := s.reachesOverUnion(ctx, stagedOut, e.TargetID, e.SourceID)
		if err != nil {
			return err
		}
		if cyclic {
			return graph.NewCycleError(e.SourceID, e.TargetID)
		}
	}
	return nil
}

// reachesOverUnion reports whether from reaches to over prerequisite edges,
// following both staged and stored adjacency.
func (s *Service) reachesOverUnion(ctx context.Context, stagedOut map[string][]string, from, to string) (bool, error) {
	visited := map[string]struct{}{from: {}}
	frontier := []string{from}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		if current == to {
			return true, nil
		}

		targets := append([]string(nil), stagedOut[current]...)
		stored, err := s.store.GetEdgesFrom(ctx, current, graph.EdgeTypePrerequisite)
		if err != nil {
			return false, err
		}
		for _, e := range stored {
			targets = append(targets, e.TargetID)
		}

		for _, target := range targets {
			if _, seen := visited[target]; seen {
				continue
			}
			visited[target] = struct{}{}
			frontier = append(frontier, target)
		}
	}
	return false, nil
}
