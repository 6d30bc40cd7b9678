package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldscan/internal/ast"
	"shieldscan/pkg/types"
)

func TestExtractAllFeatures_EmptyFile(t *testing.T) {
	fs, err := ExtractAllFeatures(types.FileInfo{Path: "empty.php"}, nil, nil)

	require.NoError(t, err)
	assert.Nil(t, fs.Statistical)
	assert.Nil(t, fs.ASTWords)
	assert.False(t, fs.Callable)
}

func TestExtractAllFeatures_ContentWithoutAST(t *testing.T) {
	fs, err := ExtractAllFeatures(types.FileInfo{Path: "x.php"}, []byte("<?php echo 1;"), nil)

	require.NoError(t, err)
	require.NotNil(t, fs.Statistical)
	assert.Greater(t, fs.Statistical.IE, 0.0)
	assert.Nil(t, fs.ASTWords)
	assert.False(t, fs.Callable)
}

func TestExtractAllFeatures_WithAST(t *testing.T) {
	tree := ast.Node{
		Kind: 515,
		Children: map[string]interface{}{
			"name": "eval",
		},
	}

	fs, err := ExtractAllFeatures(types.FileInfo{Path: "shell.php"}, []byte("<?php eval($_POST['x']);"), tree)

	require.NoError(t, err)
	assert.True(t, fs.Callable)
	assert.Contains(t, fs.ASTWords, "eval")
	assert.Contains(t, fs.ASTWords, "DANGER_FUNC_eval")
}

func TestStatisticalFeatures_VectorOrder(t *testing.T) {
	sf := StatisticalFeatures{LM: 1, LVC: 2, WM: 3, WVC: 4, SR: 5, TR: 6, SPL: 7, IE: 8}

	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, sf.Vector())
}
