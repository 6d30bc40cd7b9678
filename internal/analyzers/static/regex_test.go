package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldscan/pkg/types"
)

func TestRegexAnalyzer_DetectsEvalPost(t *testing.T) {
	a, err := NewRegexAnalyzer()
	require.NoError(t, err)

	content := []byte(`<?php eval($_POST['cmd']); ?>`)
	finding, err := a.Analyze(types.FileInfo{Path: "shell.php"}, content, nil)

	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, "regex", finding.AnalyzerName)
	assert.Equal(t, types.RiskCritical, finding.Risk)
}

func TestRegexAnalyzer_DetectsObfuscation(t *testing.T) {
	a, err := NewRegexAnalyzer()
	require.NoError(t, err)

	cases := [][]byte{
		[]byte(`<?php eval(base64_decode("ZXZhbA==")); ?>`),
		[]byte(`<?php eval(gzinflate(base64_decode($x))); ?>`),
		[]byte(`<?php assert($_REQUEST["a"]); ?>`),
		[]byte(`<?php include($_GET['page']); ?>`),
	}
	for _, content := range cases {
		finding, err := a.Analyze(types.FileInfo{Path: "t.php"}, content, nil)
		require.NoError(t, err)
		assert.NotNil(t, finding, "content %q should match", content)
	}
}

func TestRegexAnalyzer_CleanFileNoFinding(t *testing.T) {
	a, err := NewRegexAnalyzer()
	require.NoError(t, err)

	content := []byte(`<?php
function greet($name) {
    return "Hello, " . htmlspecialchars($name);
}
echo greet("world");
`)
	finding, err := a.Analyze(types.FileInfo{Path: "clean.php"}, content, nil)

	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestRegexAnalyzer_EmptyContent(t *testing.T) {
	a, err := NewRegexAnalyzer()
	require.NoError(t, err)

	finding, err := a.Analyze(types.FileInfo{Path: "empty.php"}, nil, nil)

	require.NoError(t, err)
	assert.Nil(t, finding)
}
