package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegraph-backend/internal/domain/graph"
	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/repository"
)

func newCourse(t *testing.T, entityID, label string) *graph.Node {
	t.Helper()
	node, err := graph.NewNode(graph.NodeTypeCourse, entityID, label, nil, nil, "test")
	require.NoError(t, err)
	return node
}

func newPrereqEdge(t *testing.T, sourceID, targetID string, weight float64) *graph.Edge {
	t.Helper()
	edge, err := graph.NewEdge(graph.EdgeTypePrerequisite, sourceID, targetID, weight, nil, nil, "test")
	require.NoError(t, err)
	return edge
}

func TestNodeLifecycle(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		created, err := store.CreateNode(ctx, newCourse(t, "course-1", "Algebra"))
		require.NoError(t, err)

		fetched, err := store.GetNode(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "Algebra", fetched.Label)

		byEntity, err := store.GetNodeByEntity(ctx, "course-1", graph.NodeTypeCourse)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEntity.ID)
	})

	t.Run("DuplicateEntityRejected", func(t *testing.T) {
		_, err := store.CreateNode(ctx, newCourse(t, "course-1", "Algebra Again"))
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
		assert.True(t, errors.HasCode(err, errors.CodeNodeDuplicate))
	})

	t.Run("SameEntityDifferentTypeAllowed", func(t *testing.T) {
		skill, err := graph.NewNode(graph.NodeTypeSkill, "course-1", "Algebra Skill", nil, nil, "test")
		require.NoError(t, err)
		_, err = store.CreateNode(ctx, skill)
		assert.NoError(t, err)
	})

	t.Run("GetMissingNode", func(t *testing.T) {
		_, err := store.GetNode(ctx, "missing")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("Update", func(t *testing.T) {
		node, err := store.GetNodeByEntity(ctx, "course-1", graph.NodeTypeCourse)
		require.NoError(t, err)

		label := "Algebra I"
		updated, err := store.UpdateNode(ctx, node.ID, graph.NodePatch{Label: &label, Actor: "editor"})
		require.NoError(t, err)
		assert.Equal(t, "Algebra I", updated.Label)
		assert.Equal(t, "editor", updated.UpdatedBy)
	})

	t.Run("UpdateMissingNode", func(t *testing.T) {
		label := "x"
		_, err := store.UpdateNode(ctx, "missing", graph.NodePatch{Label: &label})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestCascadeDelete(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	a, err := store.CreateNode(ctx, newCourse(t, "a", "A"))
	require.NoError(t, err)
	b, err := store.CreateNode(ctx, newCourse(t, "b", "B"))
	require.NoError(t, err)
	c, err := store.CreateNode(ctx, newCourse(t, "c", "C"))
	require.NoError(t, err)

	ab, err := store.CreateEdge(ctx, newPrereqEdge(t, a.ID, b.ID, 1))
	require.NoError(t, err)
	bc, err := store.CreateEdge(ctx, newPrereqEdge(t, b.ID, c.ID, 1))
	require.NoError(t, err)

	deleted, err := store.DeleteNode(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Both edges touching b are gone, in either direction.
	_, err = store.GetEdge(ctx, ab.ID)
	assert.True(t, errors.IsNotFound(err))
	_, err = store.GetEdge(ctx, bc.ID)
	assert.True(t, errors.IsNotFound(err))

	// The untouched endpoints survive with clean adjacency.
	out, err := store.GetEdgesFrom(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, out)
	in, err := store.GetEdgesTo(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, in)

	// The entity key is released for reuse.
	_, err = store.CreateNode(ctx, newCourse(t, "b", "B Reborn"))
	assert.NoError(t, err)

	t.Run("DeleteMissingNodeReturnsFalse", func(t *testing.T) {
		deleted, err := store.DeleteNode(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestEdgeConstraints(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	a, err := store.CreateNode(ctx, newCourse(t, "a", "A"))
	require.NoError(t, err)
	b, err := store.CreateNode(ctx, newCourse(t, "b", "B"))
	require.NoError(t, err)

	t.Run("MissingEndpointRejected", func(t *testing.T) {
		_, err := store.CreateEdge(ctx, newPrereqEdge(t, a.ID, "missing", 1))
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("DuplicateTripleRejected", func(t *testing.T) {
		_, err := store.CreateEdge(ctx, newPrereqEdge(t, a.ID, b.ID, 1))
		require.NoError(t, err)

		_, err = store.CreateEdge(ctx, newPrereqEdge(t, a.ID, b.ID, 0.5))
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
		assert.True(t, errors.HasCode(err, errors.CodeEdgeDuplicate))
	})

	t.Run("SamePairDifferentTypeAllowed", func(t *testing.T) {
		related, err := graph.NewEdge(graph.EdgeTypeRelatesTo, a.ID, b.ID, 1, nil, nil, "test")
		require.NoError(t, err)
		_, err = store.CreateEdge(ctx, related)
		assert.NoError(t, err)
	})

	t.Run("DeleteEdge", func(t *testing.T) {
		edge, err := store.CreateEdge(ctx, newPrereqEdge(t, b.ID, a.ID, 1))
		require.NoError(t, err)

		deleted, err := store.DeleteEdge(ctx, edge.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.DeleteEdge(ctx, edge.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestEdgeOrdering(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	hub, err := store.CreateNode(ctx, newCourse(t, "hub", "Hub"))
	require.NoError(t, err)

	weights := []float64{0.3, 0.9, 0.6}
	for i, w := range weights {
		target, err := store.CreateNode(ctx, newCourse(t, string(rune('x'+i)), "Target"))
		require.NoError(t, err)
		_, err = store.CreateEdge(ctx, newPrereqEdge(t, hub.ID, target.ID, w))
		require.NoError(t, err)
	}

	edges, err := store.GetEdgesFrom(ctx, hub.ID, graph.EdgeTypePrerequisite)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, 0.9, edges[0].Weight)
	assert.Equal(t, 0.6, edges[1].Weight)
	assert.Equal(t, 0.3, edges[2].Weight)
}

func TestGetNeighbors(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	center, err := store.CreateNode(ctx, newCourse(t, "center", "Center"))
	require.NoError(t, err)
	next, err := store.CreateNode(ctx, newCourse(t, "next", "Next"))
	require.NoError(t, err)
	prev, err := store.CreateNode(ctx, newCourse(t, "prev", "Prev"))
	require.NoError(t, err)

	_, err = store.CreateEdge(ctx, newPrereqEdge(t, center.ID, next.ID, 0.5))
	require.NoError(t, err)
	_, err = store.CreateEdge(ctx, newPrereqEdge(t, prev.ID, center.ID, 0.8))
	require.NoError(t, err)

	t.Run("Both", func(t *testing.T) {
		views, err := store.GetNeighbors(ctx, center.ID, repository.NeighborQuery{Direction: repository.DirectionBoth})
		require.NoError(t, err)
		require.Len(t, views, 2)
		// Strongest edge first regardless of direction.
		assert.Equal(t, prev.ID, views[0].Node.ID)
		assert.Equal(t, repository.DirectionIncoming, views[0].Direction)
		assert.Equal(t, next.ID, views[1].Node.ID)
	})

	t.Run("OutgoingOnly", func(t *testing.T) {
		views, err := store.GetNeighbors(ctx, center.ID, repository.NeighborQuery{Direction: repository.DirectionOutgoing})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, next.ID, views[0].Node.ID)
	})

	t.Run("TypeFilterExcludes", func(t *testing.T) {
		views, err := store.GetNeighbors(ctx, center.ID, repository.NeighborQuery{
			Direction: repository.DirectionBoth,
			EdgeTypes: []graph.EdgeType{graph.EdgeTypeTeaches},
		})
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("MissingNode", func(t *testing.T) {
		_, err := store.GetNeighbors(ctx, "missing", repository.NeighborQuery{})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestSearchNodes(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	for _, label := range []string{"Calculus", "Calculus II", "Advanced Calculus", "Biology"} {
		_, err := store.CreateNode(ctx, newCourse(t, label, label))
		require.NoError(t, err)
	}

	t.Run("RankedMatches", func(t *testing.T) {
		nodes, err := store.SearchNodes(ctx, "calculus", "", 10)
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Equal(t, "Calculus", nodes[0].Label)    // exact
		assert.Equal(t, "Calculus II", nodes[1].Label) // prefix
		assert.Equal(t, "Advanced Calculus", nodes[2].Label)
	})

	t.Run("LimitApplies", func(t *testing.T) {
		nodes, err := store.SearchNodes(ctx, "calculus", "", 2)
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("TypeFilter", func(t *testing.T) {
		nodes, err := store.SearchNodes(ctx, "calculus", graph.NodeTypeSkill, 10)
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})
}

func TestImportGraph(t *testing.T) {
	ctx := context.Background()

	t.Run("AtomicSuccess", func(t *testing.T) {
		store := NewStore(nil)
		a := newCourse(t, "a", "A")
		b := newCourse(t, "b", "B")
		edge := newPrereqEdge(t, a.ID, b.ID, 1)

		require.NoError(t, store.ImportGraph(ctx, []*graph.Node{a, b}, []*graph.Edge{edge}, nil))

		fetched, err := store.GetNode(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", fetched.Label)
		edges, err := store.GetEdgesFrom(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, edges, 1)
	})

	t.Run("RollbackOnDuplicateNode", func(t *testing.T) {
		store := NewStore(nil)
		_, err := store.CreateNode(ctx, newCourse(t, "existing", "Existing"))
		require.NoError(t, err)

		fresh := newCourse(t, "fresh", "Fresh")
		dup := newCourse(t, "existing", "Existing Again")
		err = store.ImportGraph(ctx, []*graph.Node{fresh, dup}, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))

		// The valid node from the same batch must not have been applied.
		_, err = store.GetNode(ctx, fresh.ID)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("RollbackOnMissingEdgeEndpoint", func(t *testing.T) {
		store := NewStore(nil)
		a := newCourse(t, "a", "A")
		dangling := newPrereqEdge(t, a.ID, "nowhere", 1)

		err := store.ImportGraph(ctx, []*graph.Node{a}, []*graph.Edge{dangling}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))

		_, err = store.GetNode(ctx, a.ID)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("RequiredNodeMustExist", func(t *testing.T) {
		store := NewStore(nil)
		err := store.ImportGraph(ctx, nil, nil, []string{"ghost"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("EdgeToPreexistingNode", func(t *testing.T) {
		store := NewStore(nil)
		existing, err := store.CreateNode(ctx, newCourse(t, "existing", "Existing"))
		require.NoError(t, err)

		a := newCourse(t, "a", "A")
		edge := newPrereqEdge(t, a.ID, existing.ID, 1)
		require.NoError(t, store.ImportGraph(ctx, []*graph.Node{a}, []*graph.Edge{edge}, []string{existing.ID}))

		in, err := store.GetEdgesTo(ctx, existing.ID)
		require.NoError(t, err)
		assert.Len(t, in, 1)
	})
}
