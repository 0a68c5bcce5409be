package graph

import (
	"time"

	"github.com/google/uuid"

	"coursegraph-backend/internal/errors"
)

// NodeType classifies a graph vertex. Only COURSE nodes are schedulable by
// the path and prerequisite services; the other types describe the knowledge
// structure around them.
type NodeType string

const (
	NodeTypeCourse  NodeType = "COURSE"
	NodeTypeConcept NodeType = "CONCEPT"
	NodeTypeSkill   NodeType = "SKILL"
	NodeTypeTopic   NodeType = "TOPIC"
)

// Valid reports whether the node type belongs to the closed set.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeCourse, NodeTypeConcept, NodeTypeSkill, NodeTypeTopic:
		return true
	}
	return false
}

// Node is a vertex in the curriculum graph. The internal ID is generated on
// creation and immutable; EntityID references the external domain record
// (course, concept, ...) and is unique only together with Type.
type Node struct {
	ID       string     `json:"id"`
	Type     NodeType   `json:"type"`
	EntityID string     `json:"entity_id"`
	Label    string     `json:"label"`

	Properties Properties `json:"properties,omitempty"`
	Metadata   Properties `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// NewNode creates a node in a valid state: generated ID, audit fields set
// from the acting caller, type from the closed set.
func NewNode(nodeType NodeType, entityID, label string, properties, metadata Properties, actor string) (*Node, error) {
	if !nodeType.Valid() {
		return nil, errors.Validation(errors.CodeNodeInvalid, "unknown node type").
			WithResource("node").
			WithDetails("type=%s", nodeType).
			Build()
	}
	if entityID == "" {
		return nil, errors.Validation(errors.CodeNodeInvalid, "entity_id is required").
			WithResource("node").
			Build()
	}
	if label == "" {
		return nil, errors.Validation(errors.CodeNodeInvalid, "label is required").
			WithResource("node").
			Build()
	}

	now := time.Now().UTC()
	return &Node{
		ID:         uuid.New().String(),
		Type:       nodeType,
		EntityID:   entityID,
		Label:      label,
		Properties: properties.Clone(),
		Metadata:   metadata.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  actor,
		UpdatedBy:  actor,
	}, nil
}

// NodePatch is a partial update applied through the service layer. Nil
// pointers leave the field untouched.
type NodePatch struct {
	Label      *string
	Properties Properties
	Metadata   Properties
	Actor      string
}

// Apply mutates the node with the patch and refreshes the audit fields.
func (n *Node) Apply(patch NodePatch) {
	if patch.Label != nil {
		n.Label = *patch.Label
	}
	if patch.Properties != nil {
		n.Properties = patch.Properties.Clone()
	}
	if patch.Metadata != nil {
		n.Metadata = patch.Metadata.Clone()
	}
	n.UpdatedAt = time.Now().UTC()
	n.UpdatedBy = patch.Actor
}

// Clone returns a deep copy, so stores can hand out nodes without sharing
// mutable property maps.
func (n *Node) Clone() *Node {
	out := *n
	out.Properties = n.Properties.Clone()
	out.Metadata = n.Metadata.Clone()
	return &out
}
