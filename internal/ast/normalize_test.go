package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_KindRoundTrip(t *testing.T) {
	raw := map[string]interface{}{
		"kind":   float64(515),
		"flags":  float64(0),
		"lineno": float64(3),
		"children": map[string]interface{}{
			"name": "system",
		},
	}

	result := Normalize(raw)

	node, ok := result.(Node)
	require.True(t, ok)
	assert.Equal(t, 515, node.Kind)
	assert.Equal(t, 3, node.LineNo)
	children, ok := node.Children.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "system", children["name"])
}

func TestNormalize_StringKind(t *testing.T) {
	raw := map[string]interface{}{
		"kind": "269",
	}

	node, ok := Normalize(raw).(Node)
	require.True(t, ok)
	assert.Equal(t, 269, node.Kind)
}

// kind键存在但无法转成整数时，map不应被提升为Node
func TestNormalize_NonNumericKindStaysMap(t *testing.T) {
	raw := map[string]interface{}{
		"kind": "not-a-number",
		"name": "foo",
	}

	result, ok := Normalize(raw).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "foo", result["name"])
}

func TestNormalize_NestedListsAndScalars(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"kind": float64(132), "children": []interface{}{
			map[string]interface{}{"kind": float64(515), "children": nil},
			"literal",
			float64(42),
		}},
	}

	result, ok := Normalize(raw).([]interface{})
	require.True(t, ok)
	require.Len(t, result, 1)

	outer, ok := result[0].(Node)
	require.True(t, ok)
	inner, ok := outer.Children.([]interface{})
	require.True(t, ok)
	require.Len(t, inner, 3)

	call, ok := inner[0].(Node)
	require.True(t, ok)
	assert.Equal(t, 515, call.Kind)
	assert.Equal(t, "literal", inner[1])
	assert.Equal(t, float64(42), inner[2])
}

func TestNormalize_NilAndScalars(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Equal(t, "x", Normalize("x"))
	assert.Equal(t, true, Normalize(true))
	assert.Equal(t, float64(1.5), Normalize(1.5))
}
