package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/repository"
	graphservice "coursegraph-backend/internal/service/graph"
	"coursegraph-backend/pkg/common"
)

// GraphHandler serves node, edge and import endpoints.
type GraphHandler struct {
	service *graphservice.Service
	logger  *zap.Logger
}

// NewGraphHandler creates a graph handler.
func NewGraphHandler(service *graphservice.Service, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{service: service, logger: logger}
}

// CreateNodeRequest is the body for POST /nodes.
type CreateNodeRequest struct {
	Type       string         `json:"type" validate:"required"`
	EntityID   string         `json:"entity_id" validate:"required"`
	Label      string         `json:"label" validate:"required,max=500"`
	Properties map[string]any `json:"properties,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Actor      string         `json:"actor,omitempty"`
}

// CreateNode handles POST /nodes.
func (h *GraphHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, err.Error())
		return
	}

	node, err := h.service.CreateNode(r.Context(), graphservice.CreateNodeInput{
		NodeType:   graph.NodeType(req.Type),
		EntityID:   req.EntityID,
		Label:      req.Label,
		Properties: req.Properties,
		Metadata:   req.Metadata,
		Actor:      req.Actor,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, node)
}

// GetNode handles GET /nodes/{nodeID}.
func (h *GraphHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.service.GetNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, node)
}

// GetNodeByEntity handles GET /entities/{entityType}/{entityID}.
func (h *GraphHandler) GetNodeByEntity(w http.ResponseWriter, r *http.Request) {
	node, err := h.service.GetNodeByEntity(r.Context(),
		chi.URLParam(r, "entityID"),
		graph.NodeType(chi.URLParam(r, "entityType")),
	)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, node)
}

// UpdateNodeRequest is the body for PUT /nodes/{nodeID}. Absent fields are
// left untouched.
type UpdateNodeRequest struct {
	Label      *string        `json:"label,omitempty" validate:"omitempty,min=1,max=500"`
	Properties map[string]any `json:"properties,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Actor      string         `json:"actor,omitempty"`
}

// UpdateNode handles PUT /nodes/{nodeID}.
func (h *GraphHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, err.Error())
		return
	}

	node, err := h.service.UpdateNode(r.Context(), chi.URLParam(r, "nodeID"), graphservice.UpdateNodeInput{
		Label:      req.Label,
		Properties: req.Properties,
		Metadata:   req.Metadata,
		Actor:      req.Actor,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /nodes/{nodeID}.
func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteNode(r.Context(), chi.URLParam(r, "nodeID")); err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "node deleted"})
}

// SearchNodes handles GET /nodes?q=...&type=...&limit=...
func (h *GraphHandler) SearchNodes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	nodes, err := h.service.SearchNodes(r.Context(),
		r.URL.Query().Get("q"),
		graph.NodeType(r.URL.Query().Get("type")),
		limit,
	)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

// GetNeighbors handles GET /nodes/{nodeID}/neighbors.
func (h *GraphHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	query := repository.NeighborQuery{
		Direction: repository.Direction(r.URL.Query().Get("direction")),
	}
	for _, raw := range r.URL.Query()["edge_type"] {
		query.EdgeTypes = append(query.EdgeTypes, graph.EdgeType(raw))
	}

	neighbors, err := h.service.GetNeighbors(r.Context(), chi.URLParam(r, "nodeID"), query)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]any{"neighbors": neighbors, "count": len(neighbors)})
}

// CreateEdgeRequest is the body for POST /edges.
type CreateEdgeRequest struct {
	Type       string         `json:"type" validate:"required"`
	SourceID   string         `json:"source_node_id" validate:"required"`
	TargetID   string         `json:"target_node_id" validate:"required"`
	Weight     *float64       `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Properties map[string]any `json:"properties,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Actor      string         `json:"actor,omitempty"`
}

// CreateEdge handles POST /edges.
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, err.Error())
		return
	}

	weight := graph.DefaultEdgeWeight
	if req.Weight != nil {
		weight = *req.Weight
	}
	edge, err := h.service.CreateEdge(r.Context(), graphservice.CreateEdgeInput{
		EdgeType:   graph.EdgeType(req.Type),
		SourceID:   req.SourceID,
		TargetID:   req.TargetID,
		Weight:     weight,
		Properties: req.Properties,
		Metadata:   req.Metadata,
		Actor:      req.Actor,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, edge)
}

// GetEdge handles GET /edges/{edgeID}.
func (h *GraphHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := h.service.GetEdge(r.Context(), chi.URLParam(r, "edgeID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, edge)
}

// DeleteEdge handles DELETE /edges/{edgeID}.
func (h *GraphHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEdge(r.Context(), chi.URLParam(r, "edgeID")); err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "edge deleted"})
}

// ImportNodeRequest is one node record in an import payload.
type ImportNodeRequest struct {
	Type       string         `json:"type" validate:"required"`
	EntityID   string         `json:"entity_id" validate:"required"`
	Label      string         `json:"label" validate:"required,max=500"`
	Properties map[string]any `json:"properties,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ImportEdgeRequest is one edge record in an import payload.
type ImportEdgeRequest struct {
	Type           string         `json:"type" validate:"required"`
	SourceEntityID string         `json:"source_entity_id" validate:"required"`
	SourceType     string         `json:"source_type" validate:"required"`
	TargetEntityID string         `json:"target_entity_id" validate:"required"`
	TargetType     string         `json:"target_type" validate:"required"`
	Weight         *float64       `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Properties     map[string]any `json:"properties,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ImportGraphRequest is the body for POST /graph/import.
type ImportGraphRequest struct {
	Nodes []ImportNodeRequest `json:"nodes" validate:"dive"`
	Edges []ImportEdgeRequest `json:"edges" validate:"dive"`
	Actor string              `json:"actor,omitempty"`
}

// ImportGraph handles POST /graph/import.
func (h *GraphHandler) ImportGraph(w http.ResponseWriter, r *http.Request) {
	var req ImportGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, err.Error())
		return
	}

	nodeRecords := make([]graphservice.NodeRecord, len(req.Nodes))
	for i, n := range req.Nodes {
		nodeRecords[i] = graphservice.NodeRecord{
			NodeType:   graph.NodeType(n.Type),
			EntityID:   n.EntityID,
			Label:      n.Label,
			Properties: n.Properties,
			Metadata:   n.Metadata,
		}
	}
	edgeRecords := make([]graphservice.EdgeRecord, len(req.Edges))
	for i, e := range req.Edges {
		weight := graph.DefaultEdgeWeight
		if e.Weight != nil {
			weight = *e.Weight
		}
		edgeRecords[i] = graphservice.EdgeRecord{
			EdgeType:       graph.EdgeType(e.Type),
			SourceEntityID: e.SourceEntityID,
			SourceNodeType: graph.NodeType(e.SourceType),
			TargetEntityID: e.TargetEntityID,
			TargetNodeType: graph.NodeType(e.TargetType),
			Weight:         weight,
			Properties:     e.Properties,
			Metadata:       e.Metadata,
		}
	}

	result, err := h.service.ImportGraph(r.Context(), nodeRecords, edgeRecords, req.Actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}
