package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegraph-backend/internal/errors"
)

func TestNewEdge(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		edge, err := NewEdge(EdgeTypePrerequisite, "node-a", "node-b", 0.8, nil, nil, "curator")
		require.NoError(t, err)

		assert.NotEmpty(t, edge.ID)
		assert.Equal(t, EdgeTypePrerequisite, edge.Type)
		assert.Equal(t, "node-a", edge.SourceID)
		assert.Equal(t, "node-b", edge.TargetID)
		assert.Equal(t, 0.8, edge.Weight)
		assert.Equal(t, "curator", edge.CreatedBy)
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		_, err := NewEdge("FOLLOWS", "node-a", "node-b", 1, nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.True(t, errors.HasCode(err, errors.CodeEdgeInvalid))
	})

	t.Run("RejectsMissingEndpoints", func(t *testing.T) {
		_, err := NewEdge(EdgeTypePrerequisite, "", "node-b", 1, nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("RejectsSelfLoop", func(t *testing.T) {
		_, err := NewEdge(EdgeTypePrerequisite, "node-a", "node-a", 1, nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSelfLoop))
	})

	t.Run("RejectsNegativeWeight", func(t *testing.T) {
		_, err := NewEdge(EdgeTypePrerequisite, "node-a", "node-b", -0.1, nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("ZeroWeightIsAllowed", func(t *testing.T) {
		edge, err := NewEdge(EdgeTypeRelatesTo, "node-a", "node-b", 0, nil, nil, "")
		require.NoError(t, err)
		assert.Equal(t, float64(0), edge.Weight)
	})
}

func TestEdgeMandatory(t *testing.T) {
	t.Run("DefaultsToMandatory", func(t *testing.T) {
		edge, err := NewEdge(EdgeTypePrerequisite, "a", "b", 1, nil, nil, "")
		require.NoError(t, err)
		assert.True(t, edge.Mandatory())
	})

	t.Run("ExplicitlyOptional", func(t *testing.T) {
		props := Properties{PropMandatory: BoolValue(false)}
		edge, err := NewEdge(EdgeTypePrerequisite, "a", "b", 1, props, nil, "")
		require.NoError(t, err)
		assert.False(t, edge.Mandatory())
	})
}
