package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFromInterface(t *testing.T) {
	t.Run("SupportedKinds", func(t *testing.T) {
		v, err := ValueFromInterface("hello")
		require.NoError(t, err)
		s, ok := v.AsString()
		assert.True(t, ok)
		assert.Equal(t, "hello", s)

		v, err = ValueFromInterface(42)
		require.NoError(t, err)
		n, ok := v.AsNumber()
		assert.True(t, ok)
		assert.Equal(t, float64(42), n)

		v, err = ValueFromInterface(true)
		require.NoError(t, err)
		b, ok := v.AsBool()
		assert.True(t, ok)
		assert.True(t, b)
	})

	t.Run("NestedMap", func(t *testing.T) {
		v, err := ValueFromInterface(map[string]any{"inner": 3.5})
		require.NoError(t, err)
		m, ok := v.AsMap()
		require.True(t, ok)
		n, ok := m["inner"].AsNumber()
		assert.True(t, ok)
		assert.Equal(t, 3.5, n)
	})

	t.Run("RejectsUnsupportedType", func(t *testing.T) {
		_, err := ValueFromInterface([]string{"nope"})
		assert.Error(t, err)
	})
}

func TestPropertiesAccessors(t *testing.T) {
	props := Properties{
		"difficulty": StringValue("advanced"),
		"duration":   NumberValue(30),
		"mandatory":  BoolValue(false),
	}

	assert.Equal(t, "advanced", props.String("difficulty", "unknown"))
	assert.Equal(t, float64(30), props.Number("duration", 0))
	assert.False(t, props.Bool("mandatory", true))

	t.Run("DefaultsOnMissingKey", func(t *testing.T) {
		assert.Equal(t, "unknown", props.String("missing", "unknown"))
		assert.Equal(t, float64(7), props.Number("missing", 7))
		assert.True(t, props.Bool("missing", true))
	})

	t.Run("DefaultsOnKindMismatch", func(t *testing.T) {
		assert.Equal(t, float64(0), props.Number("difficulty", 0))
		assert.Equal(t, "", props.String("duration", ""))
	})

	t.Run("NilMapIsSafe", func(t *testing.T) {
		var nilProps Properties
		assert.Equal(t, "d", nilProps.String("k", "d"))
	})
}

func TestValueJSONRoundTrip(t *testing.T) {
	props := Properties{
		"difficulty": StringValue("beginner"),
		"duration":   NumberValue(12.5),
		"extra":      MapValue(map[string]Value{"flag": BoolValue(true)}),
	}

	data, err := json.Marshal(props)
	require.NoError(t, err)

	var decoded Properties
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "beginner", decoded.String("difficulty", ""))
	assert.Equal(t, 12.5, decoded.Number("duration", 0))
	extra, ok := decoded["extra"].AsMap()
	require.True(t, ok)
	assert.Equal(t, true, Properties(extra).Bool("flag", false))
}
