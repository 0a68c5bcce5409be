package dynamodb

import (
	"fmt"
	"strings"
	"time"

	"coursegraph-backend/internal/domain/graph"
)

// Single-table layout:
//
//	node   PK=NODE#<id>                 SK=METADATA
//	guard  PK=ENTITY#<type>#<entityID>  SK=UNIQ        (uniqueness of (entity_id, type))
//	edge   PK=NODE#<sourceID>           SK=EDGE#<type>#<targetID>
//	       GSI1PK=NODE#<targetID>       GSI1SK=EDGE#<type>#<sourceID>   (edges-to lookups)
//	       GSI2PK=EDGEID#<id>           GSI2SK=EDGE                     (edge lookup by ID)
const (
	skNodeMetadata = "METADATA"
	skEntityGuard  = "UNIQ"
	skEdgePrefix   = "EDGE#"
	gsi2EdgeValue  = "EDGE"

	entityTypeNode = "NODE"
	entityTypeEdge = "EDGE"
)

func nodePK(id string) string { return "NODE#" + id }

func entityGuardPK(nodeType graph.NodeType, entityID string) string {
	return fmt.Sprintf("ENTITY#%s#%s", nodeType, entityID)
}

func edgeSK(edgeType graph.EdgeType, targetID string) string {
	return fmt.Sprintf("%s%s#%s", skEdgePrefix, edgeType, targetID)
}

func edgeGSI1SK(edgeType graph.EdgeType, sourceID string) string {
	return fmt.Sprintf("%s%s#%s", skEdgePrefix, edgeType, sourceID)
}

func edgeIDPK(id string) string { return "EDGEID#" + id }

type nodeItem struct {
	PK         string         `dynamodbav:"PK"`
	SK         string         `dynamodbav:"SK"`
	EntityType string         `dynamodbav:"EntityType"`
	NodeID     string         `dynamodbav:"NodeID"`
	NodeType   string         `dynamodbav:"NodeType"`
	EntityID   string         `dynamodbav:"EntityID"`
	Label      string         `dynamodbav:"Label"`
	LabelLower string         `dynamodbav:"LabelLower"`
	Properties map[string]any `dynamodbav:"Properties,omitempty"`
	Metadata   map[string]any `dynamodbav:"Metadata,omitempty"`
	CreatedAt  string         `dynamodbav:"CreatedAt"`
	UpdatedAt  string         `dynamodbav:"UpdatedAt"`
	CreatedBy  string         `dynamodbav:"CreatedBy,omitempty"`
	UpdatedBy  string         `dynamodbav:"UpdatedBy,omitempty"`
}

type entityGuardItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	NodeID string `dynamodbav:"NodeID"`
}

type edgeItem struct {
	PK         string         `dynamodbav:"PK"`
	SK         string         `dynamodbav:"SK"`
	GSI1PK     string         `dynamodbav:"GSI1PK"`
	GSI1SK     string         `dynamodbav:"GSI1SK"`
	GSI2PK     string         `dynamodbav:"GSI2PK"`
	GSI2SK     string         `dynamodbav:"GSI2SK"`
	EntityType string         `dynamodbav:"EntityType"`
	EdgeID     string         `dynamodbav:"EdgeID"`
	EdgeType   string         `dynamodbav:"EdgeType"`
	SourceID   string         `dynamodbav:"SourceID"`
	TargetID   string         `dynamodbav:"TargetID"`
	Weight     float64        `dynamodbav:"Weight"`
	Properties map[string]any `dynamodbav:"Properties,omitempty"`
	Metadata   map[string]any `dynamodbav:"Metadata,omitempty"`
	CreatedAt  string         `dynamodbav:"CreatedAt"`
	UpdatedAt  string         `dynamodbav:"UpdatedAt"`
	CreatedBy  string         `dynamodbav:"CreatedBy,omitempty"`
	UpdatedBy  string         `dynamodbav:"UpdatedBy,omitempty"`
}

func newNodeItem(node *graph.Node) nodeItem {
	return nodeItem{
		PK:         nodePK(node.ID),
		SK:         skNodeMetadata,
		EntityType: entityTypeNode,
		NodeID:     node.ID,
		NodeType:   string(node.Type),
		EntityID:   node.EntityID,
		Label:      node.Label,
		LabelLower: strings.ToLower(node.Label),
		Properties: node.Properties.Interface(),
		Metadata:   node.Metadata.Interface(),
		CreatedAt:  node.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  node.UpdatedAt.Format(time.RFC3339Nano),
		CreatedBy:  node.CreatedBy,
		UpdatedBy:  node.UpdatedBy,
	}
}

func newEntityGuardItem(node *graph.Node) entityGuardItem {
	return entityGuardItem{
		PK:     entityGuardPK(node.Type, node.EntityID),
		SK:     skEntityGuard,
		NodeID: node.ID,
	}
}

func newEdgeItem(edge *graph.Edge) edgeItem {
	return edgeItem{
		PK:         nodePK(edge.SourceID),
		SK:         edgeSK(edge.Type, edge.TargetID),
		GSI1PK:     nodePK(edge.TargetID),
		GSI1SK:     edgeGSI1SK(edge.Type, edge.SourceID),
		GSI2PK:     edgeIDPK(edge.ID),
		GSI2SK:     gsi2EdgeValue,
		EntityType: entityTypeEdge,
		EdgeID:     edge.ID,
		EdgeType:   string(edge.Type),
		SourceID:   edge.SourceID,
		TargetID:   edge.TargetID,
		Weight:     edge.Weight,
		Properties: edge.Properties.Interface(),
		Metadata:   edge.Metadata.Interface(),
		CreatedAt:  edge.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  edge.UpdatedAt.Format(time.RFC3339Nano),
		CreatedBy:  edge.CreatedBy,
		UpdatedBy:  edge.UpdatedBy,
	}
}

func (i nodeItem) toDomain() (*graph.Node, error) {
	props, err := graph.PropertiesFromInterface(i.Properties)
	if err != nil {
		return nil, fmt.Errorf("node %s properties: %w", i.NodeID, err)
	}
	meta, err := graph.PropertiesFromInterface(i.Metadata)
	if err != nil {
		return nil, fmt.Errorf("node %s metadata: %w", i.NodeID, err)
	}
	createdAt, err := parseTimestamp(i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("node %s created_at: %w", i.NodeID, err)
	}
	updatedAt, err := parseTimestamp(i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("node %s updated_at: %w", i.NodeID, err)
	}
	return &graph.Node{
		ID:         i.NodeID,
		Type:       graph.NodeType(i.NodeType),
		EntityID:   i.EntityID,
		Label:      i.Label,
		Properties: props,
		Metadata:   meta,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		CreatedBy:  i.CreatedBy,
		UpdatedBy:  i.UpdatedBy,
	}, nil
}

func (i edgeItem) toDomain() (*graph.Edge, error) {
	props, err := graph.PropertiesFromInterface(i.Properties)
	if err != nil {
		return nil, fmt.Errorf("edge %s properties: %w", i.EdgeID, err)
	}
	meta, err := graph.PropertiesFromInterface(i.Metadata)
	if err != nil {
		return nil, fmt.Errorf("edge %s metadata: %w", i.EdgeID, err)
	}
	createdAt, err := parseTimestamp(i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("edge %s created_at: %w", i.EdgeID, err)
	}
	updatedAt, err := parseTimestamp(i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("edge %s updated_at: %w", i.EdgeID, err)
	}
	return &graph.Edge{
		ID:         i.EdgeID,
		Type:       graph.EdgeType(i.EdgeType),
		SourceID:   i.SourceID,
		TargetID:   i.TargetID,
		Weight:     i.Weight,
		Properties: props,
		Metadata:   meta,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		CreatedBy:  i.CreatedBy,
		UpdatedBy:  i.UpdatedBy,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
