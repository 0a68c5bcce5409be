// Package decorators wraps the GraphStore contract with cross-cutting
// infrastructure concerns. Decorators compose: the container stacks metrics
// inside the circuit breaker so rejected calls are still counted.
package decorators

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/repository"
)

// CircuitBreakerStore shields the backing store from hammering a failing
// backend. Domain rejections (not found, duplicates, validation) are
// successes from the breaker's point of view; only infrastructure failures
// trip it.
type CircuitBreakerStore struct {
	inner   repository.GraphStore
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCircuitBreakerStore wraps the given store with a circuit breaker.
func NewCircuitBreakerStore(inner repository.GraphStore, logger *zap.Logger) *CircuitBreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-store",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Only storage/internal failures count against the breaker.
			return !errors.IsStorage(err) && errors.TypeOf(err) != errors.ErrorTypeInternal
		},
	})

	return &CircuitBreakerStore{inner: inner, breaker: cb, logger: logger}
}

var _ repository.GraphStore = (*CircuitBreakerStore)(nil)

func (s *CircuitBreakerStore) execute(fn func() (any, error)) (any, error) {
	out, err := s.breaker.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.Storage(errors.CodeStorageFailure, "graph store circuit open").
			WithCause(err).
			Build()
	}
	return out, err
}

func (s *CircuitBreakerStore) CreateNode(ctx context.Context, node *graph.Node) (*graph.Node, error) {
	out, err := s.execute(func() (any, error) { return s.inner.CreateNode(ctx, node) })
	if err != nil {
		return nil, err
	}
	return out.(*graph.Node), nil
}

func (s *CircuitBreakerStore) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	out, err := s.execute(func() (any, error) { return s.inner.GetNode(ctx, id) })
	if err != nil {
		return nil, err
	}
	return out.(*graph.Node), nil
}

func (s *CircuitBreakerStore) GetNodeByEntity(ctx context.Context, entityID string, nodeType graph.NodeType) (*graph.Node, error) {
	out, err := s.execute(func() (any, error) { return s.inner.GetNodeByEntity(ctx, entityID, nodeType) })
	if err != nil {
		return nil, err
	}
	return out.(*graph.Node), nil
}

func (s *CircuitBreakerStore) UpdateNode(ctx context.Context, id string, patch graph.NodePatch) (*graph.Node, error) {
	out, err := s.execute(func() (any, error) { return s.inner.UpdateNode(ctx, id, patch) })
	if err != nil {
		return nil, err
	}
	return out.(*graph.Node), nil
}

func (s *CircuitBreakerStore) DeleteNode(ctx context.Context, id string) (bool, error) {
	out, err := s.execute(func() (any, error) { return s.inner.DeleteNode(ctx, id) })
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (s *CircuitBreakerStore) SearchNodes(ctx context.Context, query string, typeFilter graph.NodeType, limit int) ([]*graph.Node, error) {
	out, err := s.execute(func() (any, error) { return s.inner.SearchNodes(ctx, query, typeFilter, limit) })
	if err != nil {
		return nil, err
	}
	return out.([]*graph.Node), nil
}

func (s *CircuitBreakerStore) CreateEdge(ctx context.Context, edge *graph.Edge) (*graph.Edge, error) {
	out, err := s.execute(func() (any, error) { return s.inner.CreateEdge(ctx, edge) })
	if err != nil {
		return nil, err
	}
	return out.(*graph.Edge), nil
}

func (s *CircuitBreakerStore) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	out, err := s.execute(func() (any, error) { return s.inner.GetEdge(ctx, id) })
	if err != nil {
		return nil, err
	}
	return out.(*graph.Edge), nil
}

func (s *CircuitBreakerStore) GetEdgesFrom(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	out, err := s.execute(func() (any, error) { return s.inner.GetEdgesFrom(ctx, nodeID, edgeTypes...) })
	if err != nil {
		return nil, err
	}
	return out.([]*graph.Edge), nil
}

func (s *CircuitBreakerStore) GetEdgesTo(ctx context.Context, nodeID string, edgeTypes ...graph.EdgeType) ([]*graph.Edge, error) {
	out, err := s.execute(func() (any, error) { return s.inner.GetEdgesTo(ctx, nodeID, edgeTypes...) })
	if err != nil {
		return nil, err
	}
	return out.([]*graph.Edge), nil
}

func (s *CircuitBreakerStore) GetNeighbors(ctx context.Context, nodeID string, query repository.NeighborQuery) ([]repository.NeighborView, error) {
	out, err := s.execute(func() (any, error) { return s.inner.GetNeighbors(ctx, nodeID, query) })
	if err != nil {
		return nil, err
	}
	return out.([]repository.NeighborView), nil
}

func (s *CircuitBreakerStore) DeleteEdge(ctx context.Context, id string) (bool, error) {
	out, err := s.execute(func() (any, error) { return s.inner.DeleteEdge(ctx, id) })
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (s *CircuitBreakerStore) ImportGraph(ctx context.Context, nodes []*graph.Node, edges []*graph.Edge, requiredNodeIDs []string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.ImportGraph(ctx, nodes, edges, requiredNodeIDs)
	})
	return err
}
