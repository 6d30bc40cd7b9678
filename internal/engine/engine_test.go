package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldscan/internal/analyzers/ml"
	"shieldscan/internal/config"
	"shieldscan/pkg/types"
)

const testCalibrationJSON = `{
	"feature_names": ["LM","LVC","WM","WVC","SR","TR","SPL","IE","BAYES"],
	"num_features": 9,
	"feature_stats": {
		"mins":  [0,0,0,0,0,0,0,0,0],
		"maxs":  [1,1,1,1,1,1,1,1,1],
		"means": [0.5,0.5,0.5,0.5,0.5,0.5,0.5,0.5,0.5],
		"stds":  [1,1,1,1,1,1,1,1,1]
	},
	"sigmoid_params": {"a": 1.0, "b": 0.0},
	"optimal_threshold": 0.7,
	"class_mapping": {"0": "normal", "1": "webshell"}
}`

const testModelText = `svm_type c_svc
kernel_type rbf
gamma 0.111111
nr_class 2
total_sv 2
rho 0
label 0 1
nr_sv 1 1
SV
1 1:1 2:1 3:1 4:1 5:1 6:1 7:1 8:1 9:1
-1 1:-1 2:-1 3:-1 4:-1 5:-1 6:-1 7:-1 8:-1 9:-1
`

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Detection.MaxFileSize = 10 * 1024 * 1024
	return cfg
}

func writeEmptyPhp(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.php")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

// 空文件不送分析器，直接判定无风险
func TestScanFile_EmptyFileIsRiskFree(t *testing.T) {
	eng := &Engine{config: testConfig(), analyzers: map[string]Analyzer{}}

	res := eng.ScanFile(writeEmptyPhp(t))

	require.NoError(t, res.Error)
	assert.Equal(t, types.RiskNone, res.OverallRisk)
	assert.Empty(t, res.Findings)
	assert.Nil(t, res.Detection)
}

// 融合模型就位时空文件依然短路：分数0、判定normal、阈值取自校准信息
func TestScanFile_EmptyFileShortCircuitsFusionModel(t *testing.T) {
	modelDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "ProcessSVM.model.info"), []byte(testCalibrationJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "ProcessSVM.model.model"), []byte(testModelText), 0o644))

	svm, err := ml.NewSvmProssesAnalyzer(modelDir)
	require.NoError(t, err)

	eng := &Engine{config: testConfig(), analyzers: map[string]Analyzer{}, svm: svm}

	res := eng.ScanFile(writeEmptyPhp(t))

	require.NoError(t, res.Error)
	assert.Equal(t, types.RiskNone, res.OverallRisk)
	require.NotNil(t, res.Detection)
	assert.Equal(t, 0.0, res.Detection.Score)
	assert.Equal(t, types.VerdictNormal, res.Detection.Verdict)
	assert.InDelta(t, 0.7, res.Detection.Threshold, 1e-9)
	assert.Empty(t, res.Detection.MatchedDangerousFunctions)
}

func TestScanFile_MissingFileReportsError(t *testing.T) {
	eng := &Engine{config: testConfig(), analyzers: map[string]Analyzer{}}

	res := eng.ScanFile(filepath.Join(t.TempDir(), "nope.php"))

	assert.Error(t, res.Error)
	assert.Equal(t, types.RiskUnknown, res.OverallRisk)
}

func TestSortedAnalyzerNames(t *testing.T) {
	m := map[string]Analyzer{"yara": nil, "regex": nil, "hash": nil}

	assert.Equal(t, []string{"hash", "regex", "yara"}, sortedAnalyzerNames(m))
}
