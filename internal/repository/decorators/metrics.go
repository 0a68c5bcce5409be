package decorators

import (
	"context"
	"time"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/observability"
	"coursegraph-backend/internal/repository"
)

// MetricsStore records operation counts and latencies for every store call.
type MetricsStore struct {
	inner     repository.GraphStore
	collector *observability.Collector
}

// NewMetricsStore wraps the given store with Prometheus instrumentation.
func NewMetricsStore(inner repository.GraphStore, collector *observability.Collector) *MetricsStore {
	return &MetricsStore{inner: inner, collector: collector}
}

var _ repository.GraphStore = (*MetricsStore)(nil)

func (s *MetricsStore) observe(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.IsStorage(err):
		status = "storage_error"
	default:
		status = "rejected"
	}
	s.collector.StoreOperations.WithLabelValues(operation, status).Inc()
	s.collector.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *MetricsStore) CreateNode(ctx context.Context, node *graph.Node) (*graph.Node, error) {
	start := time.Now()
	out, err := s.inner.CreateNode(ctx, node)
	s.observe("create_node", start, err)
	return out, err
}

func (s *MetricsStore) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	start := time.Now()
	out, err := s.inner.GetNode(ctx, id)
	s.observe("get_node", start, err)
	return out, err
}

func (s *MetricsStore) GetNodeByEntity(ctx context.Context, entityID string, nodeType graph.NodeType) (*graph.Node, error) {
	start := time.Now()
	out, err := s.inner.GetNodeByEntity(ctx, entityID, nodeType)
	s.observe("get_node_by_entity", start, err)
	return out, err
}

func (s *MetricsStore) UpdateNode(ctx context.Context, id string, patch graph.NodePatch) (*graph.Node, error) {
	start := time.Now()
	out, err := s.inner.UpdateNode(ctx, id, patch)
	s.observe("update_node", start, err)
	return out, err
}

func (s *MetricsStore) DeleteNode(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	out, err := s.inner.DeleteNode(ctx, id)
	s.observe("delete_node", start, err)
	return out, err
}

func (s *MetricsStore) SearchNodes(ctx context.Context, query string, typeFilter graph.NodeType, limit int) ([]*graph.Node, error) {
	start := time.Now()
	out, err := s.inner.SearchNodes(ctx, query, typeFilter, limit)
	s.observe("search_nodes", start, err)
	return out, err
}

func (s *MetricsStore) CreateEdge(ctx context.Context, edge *graph.Edge) (*graph.Edge, error) {
	start := time.Now()
	out, err := s.inner.CreateEdge(ctx, edge)
	s.observe("create_edge", start, err)
	return out, err
}

func (s *MetricsStore) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	start := time.Now()
	out, err := s.inner.GetEdge(ctx, id)
	s.observe("get_edge", start, err)
	return out, err
}

func (s *MetricsStore) GetEdgesFrom(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	start := time.Now()
	out, err := s.inner.GetEdgesFrom(ctx, nodeID, edgeTypes...)
	s.observe("get_edges_from", start, err)
	return out, err
}

func (s *MetricsStore) GetEdgesTo(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	start := time.Now()
	out, err := s.inner.GetEdgesTo(ctx, nodeID, edgeTypes...)
	s.observe("get_edges_to", start, err)
	return out, err
}

func (s *MetricsStore) GetNeighbors(ctx context.Context, nodeID string, query repository.NeighborQuery) ([]repository.NeighborView, error) {
	start := time.Now()
	out, err := s.inner.GetNeighbors(ctx, nodeID, query)
	s.observe("get_neighbors", start, err)
	return out, err
}

func (s *MetricsStore) DeleteEdge(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	out, err := s.inner.DeleteEdge(ctx, id)
	s.observe("delete_edge", start, err)
	return out, err
}

func (s *MetricsStore) ImportGraph(ctx context.Context, nodes []*graph.Node, edges []*graph.Edge, requiredNodeIDs []string) error {
	start := time.Now()
	err := s.inner.ImportGraph(ctx, nodes, edges, requiredNodeIDs)
	s.observe("import_graph", start, err)
	return err
}
