package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegraph-backend/internal/errors"
)

func TestNewNode(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		props := Properties{
			"difficulty": StringValue("beginner"),
			"duration":   NumberValue(40),
		}
		node, err := NewNode(NodeTypeCourse, "course-101", "Intro to Algebra", props, nil, "importer")
		require.NoError(t, err)

		assert.NotEmpty(t, node.ID)
		assert.Equal(t, NodeTypeCourse, node.Type)
		assert.Equal(t, "course-101", node.EntityID)
		assert.Equal(t, "Intro to Algebra", node.Label)
		assert.Equal(t, "importer", node.CreatedBy)
		assert.Equal(t, "importer", node.UpdatedBy)
		assert.False(t, node.CreatedAt.IsZero())
		assert.Equal(t, node.CreatedAt, node.UpdatedAt)
		assert.Equal(t, "beginner", node.Properties.String("difficulty", ""))
	})

	t.Run("GeneratesUniqueIDs", func(t *testing.T) {
		a, err := NewNode(NodeTypeCourse, "course-1", "A", nil, nil, "")
		require.NoError(t, err)
		b, err := NewNode(NodeTypeCourse, "course-2", "B", nil, nil, "")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		_, err := NewNode("LESSON", "x", "X", nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.True(t, errors.HasCode(err, errors.CodeNodeInvalid))
	})

	t.Run("RejectsEmptyEntityID", func(t *testing.T) {
		_, err := NewNode(NodeTypeCourse, "", "X", nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("RejectsEmptyLabel", func(t *testing.T) {
		_, err := NewNode(NodeTypeCourse, "course-1", "", nil, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})
}

func TestNodeApply(t *testing.T) {
	node, err := NewNode(NodeTypeCourse, "course-1", "Old", Properties{"a": NumberValue(1)}, nil, "alice")
	require.NoError(t, err)

	label := "New"
	node.Apply(NodePatch{
		Label:      &label,
		Properties: Properties{"b": NumberValue(2)},
		Actor:      "bob",
	})

	assert.Equal(t, "New", node.Label)
	assert.Equal(t, float64(2), node.Properties.Number("b", 0))
	assert.NotContains(t, node.Properties, "a")
	assert.Equal(t, "bob", node.UpdatedBy)
	assert.Equal(t, "alice", node.CreatedBy)
}

func TestNodeClone(t *testing.T) {
	node, err := NewNode(NodeTypeSkill, "skill-1", "Fractions", Properties{"level": NumberValue(3)}, nil, "")
	require.NoError(t, err)

	clone := node.Clone()
	clone.Properties["level"] = NumberValue(9)

	assert.Equal(t, float64(3), node.Properties.Number("level", 0))
	assert.Equal(t, float64(9), clone.Properties.Number("level", 0))
}
