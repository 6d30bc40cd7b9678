package static

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldscan/pkg/types"
)

func TestHashAnalyzer_MatchesKnownSample(t *testing.T) {
	content := []byte(`<?php eval($_POST['x']); ?>`)
	sum := sha256.Sum256(content)
	knownHash := hex.EncodeToString(sum[:])

	dir := t.TempDir()
	hashFile := "# known webshell samples\n" + knownHash + "\nnot-a-valid-hash\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SampleHash.txt"), []byte(hashFile), 0644))

	a, err := NewHashAnalyzer(dir)
	require.NoError(t, err)

	finding, err := a.Analyze(types.FileInfo{Path: "shell.php"}, content, nil)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, types.RiskCritical, finding.Risk)
	assert.Equal(t, 1.0, finding.Confidence)

	// 内容不同则不命中
	finding, err = a.Analyze(types.FileInfo{Path: "other.php"}, []byte("<?php echo 1;"), nil)
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestHashAnalyzer_MissingFileIsInactive(t *testing.T) {
	a, err := NewHashAnalyzer(t.TempDir())
	require.NoError(t, err)

	finding, err := a.Analyze(types.FileInfo{Path: "x.php"}, []byte("anything"), nil)
	require.NoError(t, err)
	assert.Nil(t, finding)
}
