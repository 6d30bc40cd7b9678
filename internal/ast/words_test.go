package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 权重5的eval应产出恰好5个裸名称和1个标记词，名称在前标记随后
func TestExtractWords_DangerousAmplification(t *testing.T) {
	tree := Node{
		Kind: 515,
		Children: map[string]interface{}{
			"name": "eval",
		},
	}

	words := ExtractWords(tree, nil)

	require.Len(t, words, 6)
	assert.Equal(t, "eval", words[0])
	assert.Equal(t, "DANGER_FUNC_eval", words[1])

	bare, markers := 0, 0
	for _, w := range words {
		switch w {
		case "eval":
			bare++
		case "DANGER_FUNC_eval":
			markers++
		}
	}
	assert.Equal(t, 5, bare)
	assert.Equal(t, 1, markers)
}

func TestExtractWords_WeightTwoFunction(t *testing.T) {
	tree := map[string]interface{}{"name": "fopen"}

	words := ExtractWords(tree, nil)

	assert.Equal(t, []string{"fopen", "DANGER_FUNC_fopen"}, words)
}

func TestExtractWords_HarmlessNameOnce(t *testing.T) {
	tree := map[string]interface{}{"name": "strlen"}

	words := ExtractWords(tree, nil)

	assert.Equal(t, []string{"strlen"}, words)
}

// Node包裹的children map里的name只计一次，不因递归再遍历一遍
func TestExtractWords_NoDoubleCountThroughNode(t *testing.T) {
	tree := Node{
		Kind: 515,
		Children: map[string]interface{}{
			"name": "phpinfo",
			"args": []interface{}{},
		},
	}

	words := ExtractWords(tree, nil)

	assert.Equal(t, []string{"phpinfo"}, words)
}

func TestExtractWords_Deterministic(t *testing.T) {
	tree := map[string]interface{}{
		"zeta":  map[string]interface{}{"name": "system"},
		"alpha": map[string]interface{}{"name": "eval"},
		"mid":   []interface{}{map[string]interface{}{"name": "fwrite"}},
	}

	first := ExtractWords(tree, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractWords(tree, nil))
	}
	// map按键排序遍历：alpha(eval) -> mid(fwrite) -> zeta(system)
	assert.Equal(t, "eval", first[0])
}

func TestExtractWords_CustomTable(t *testing.T) {
	tree := map[string]interface{}{"name": "eval"}

	words := ExtractWords(tree, map[string]float64{"mail": 3.0})

	// eval不在自定义表里，只出现一次
	assert.Equal(t, []string{"eval"}, words)
}

func TestMatchedDangerous(t *testing.T) {
	words := []string{
		"eval", "DANGER_FUNC_eval", "eval",
		"system", "DANGER_FUNC_system",
		"DANGER_FUNC_eval", "strlen",
	}

	matched := MatchedDangerous(words)

	assert.Equal(t, []string{"eval", "system"}, matched)
	assert.Empty(t, MatchedDangerous(nil))
}

func TestHasCallable(t *testing.T) {
	callableKinds := []int{269, 265, 515, 768, 769}
	for _, kind := range callableKinds {
		assert.True(t, HasCallable(Node{Kind: kind}), "kind %d", kind)
	}

	assert.False(t, HasCallable(Node{Kind: 132}))
	assert.False(t, HasCallable(nil))

	nested := map[string]interface{}{
		"stmts": []interface{}{
			Node{Kind: 132, Children: []interface{}{
				Node{Kind: 768},
			}},
		},
	}
	assert.True(t, HasCallable(nested))
}
