// Package graph holds the domain model of the curriculum knowledge graph:
// typed nodes for courses, concepts, and skills, and directed weighted edges
// between them.
package graph

import (
	"coursegraph-backend/internal/errors"
)

// Domain error definitions using the unified error system.
var (
	ErrEdgeNotFound = errors.NotFound(errors.CodeEdgeNotFound, "edge not found").
			WithResource("edge").
			Build()
	ErrSelfLoop = errors.Validation(errors.CodeEdgeSelfLoop, "edge source and target must be different nodes").
			WithResource("edge").
			Build()
)

// NewDuplicateNodeError reports a (entity_id, type) uniqueness violation,
// carrying the conflicting pair.
func NewDuplicateNodeError(entityID string, nodeType NodeType) error {
	return errors.Conflict(errors.CodeNodeDuplicate, "node already exists").
		WithResource("node").
		WithDetails("entity_id=%s type=%s", entityID, nodeType).
		Build()
}

// NewDuplicateEdgeError reports an exact duplicate (type, source, target).
func NewDuplicateEdgeError(edgeType EdgeType, sourceID, targetID string) error {
	return errors.Conflict(errors.CodeEdgeDuplicate, "edge already exists").
		WithResource("edge").
		WithDetails("type=%s source=%s target=%s", edgeType, sourceID, targetID).
		Build()
}

// NewCycleError reports a prerequisite edge that would close a cycle.
func NewCycleError(sourceID, targetID string) error {
	return errors.Validation(errors.CodeEdgeCycle, "edge would create a prerequisite cycle").
		WithResource("edge").
		WithDetails("source=%s target=%s", sourceID, targetID).
		Build()
}

// NewNodeNotFoundError reports a missing node by internal ID.
func NewNodeNotFoundError(nodeID string) error {
	return errors.NotFound(errors.CodeNodeNotFound, "node not found").
		WithResource("node").
		WithDetails("id=%s", nodeID).
		Build()
}

// NewEntityNotFoundError reports a missing node by external entity reference.
func NewEntityNotFoundError(entityID string, nodeType NodeType) error {
	return errors.NotFound(errors.CodeNodeNotFound, "node not found").
		WithResource("node").
		WithDetails("entity_id=%s type=%s", entityID, nodeType).
		Build()
}
