package graph

import (
	"time"

	"github.com/google/uuid"

	"coursegraph-backend/internal/errors"
)

// EdgeType classifies a directed relationship between nodes.
type EdgeType string

const (
	// EdgeTypePrerequisite means the source must be completed before the target.
	EdgeTypePrerequisite EdgeType = "PREREQUISITE_OF"
	EdgeTypeRelatesTo    EdgeType = "RELATES_TO"
	EdgeTypeTeaches      EdgeType = "TEACHES"
	EdgeTypePartOf       EdgeType = "PART_OF"
)

// Valid reports whether the edge type belongs to the closed set.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypePrerequisite, EdgeTypeRelatesTo, EdgeTypeTeaches, EdgeTypePartOf:
		return true
	}
	return false
}

// DefaultEdgeWeight is applied when callers do not supply a weight.
const DefaultEdgeWeight = 1.0

// PropMandatory is the edge property consulted by the prerequisite check;
// absent means mandatory.
const PropMandatory = "mandatory"

// Edge is a directed, typed, weighted relationship between two nodes. The
// weight is a non-negative ranking scalar used to order neighbors and
// recommendations; it has no probabilistic meaning.
type Edge struct {
	ID       string   `json:"id"`
	Type     EdgeType `json:"type"`
	SourceID string   `json:"source_node_id"`
	TargetID string   `json:"target_node_id"`
	Weight   float64  `json:"weight"`

	Properties Properties `json:"properties,omitempty"`
	Metadata   Properties `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// NewEdge creates an edge in a valid state. Self-loops and negative weights
// are rejected before any storage call.
func NewEdge(edgeType EdgeType, sourceID, targetID string, weight float64, properties, metadata Properties, actor string) (*Edge, error) {
	if !edgeType.Valid() {
		return nil, errors.Validation(errors.CodeEdgeInvalid, "unknown edge type").
			WithResource("edge").
			WithDetails("type=%s", edgeType).
			Build()
	}
	if sourceID == "" || targetID == "" {
		return nil, errors.Validation(errors.CodeEdgeInvalid, "source and target node IDs are required").
			WithResource("edge").
			Build()
	}
	if sourceID == targetID {
		return nil, ErrSelfLoop
	}
	if weight < 0 {
		return nil, errors.Validation(errors.CodeEdgeInvalid, "weight must be non-negative").
			WithResource("edge").
			WithDetails("weight=%f", weight).
			Build()
	}

	now := time.Now().UTC()
	return &Edge{
		ID:         uuid.New().String(),
		Type:       edgeType,
		SourceID:   sourceID,
		TargetID:   targetID,
		Weight:     weight,
		Properties: properties.Clone(),
		Metadata:   metadata.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  actor,
		UpdatedBy:  actor,
	}, nil
}

// Mandatory reports whether the edge represents a mandatory prerequisite.
// Unset defaults to mandatory.
func (e *Edge) Mandatory() bool {
	return e.Properties.Bool(PropMandatory, true)
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	out := *e
	out.Properties = e.Properties.Clone()
	out.Metadata = e.Metadata.Clone()
	return &out
}
