package ml

import (
	"testing"

	libSvm "github.com/CyrusF/libsvm-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldscan/internal/features"
	"shieldscan/pkg/types"
)

func TestVerdictFor_Bands(t *testing.T) {
	threshold := DefaultThreshold

	assert.Equal(t, types.VerdictWebshell, verdictFor(0.95, threshold))
	assert.Equal(t, types.VerdictWebshell, verdictFor(0.7, threshold))
	assert.Equal(t, types.VerdictSuspicious, verdictFor(0.69, threshold))
	assert.Equal(t, types.VerdictSuspicious, verdictFor(0.5, threshold))
	assert.Equal(t, types.VerdictLowRisk, verdictFor(0.49, threshold))
	assert.Equal(t, types.VerdictLowRisk, verdictFor(0.25, threshold))
	assert.Equal(t, types.VerdictNormal, verdictFor(0.24, threshold))
	assert.Equal(t, types.VerdictNormal, verdictFor(0.0, threshold))
}

// 自定义阈值高于0.5时，阈值和0.5之间是suspicious档
func TestVerdictFor_CustomThreshold(t *testing.T) {
	assert.Equal(t, types.VerdictWebshell, verdictFor(0.92, 0.9))
	assert.Equal(t, types.VerdictSuspicious, verdictFor(0.85, 0.9))
}

func TestLoadCalibrationInfo_InvalidThresholdResets(t *testing.T) {
	s := &SvmProssesAnalyzer{featureNames: []string{"LM"}}
	data := []byte(`{
		"feature_names": ["LM","LVC","WM","WVC","SR","TR","SPL","IE","BAYES"],
		"num_features": 9,
		"feature_stats": {
			"mins":  [0,0,0,0,0,0,0,0,0],
			"maxs":  [1,1,1,1,1,1,1,1,1],
			"means": [0,0,0,0,0,0,0,0,0],
			"stds":  [1,1,1,1,1,1,1,1,1]
		},
		"sigmoid_params": {"a": 2.0, "b": 0.1},
		"optimal_threshold": 1.5
	}`)

	require.NoError(t, s.loadCalibrationInfo(data))

	assert.Equal(t, DefaultThreshold, s.calibration.OptimalThreshold)
	assert.Equal(t, 2.0, s.calibration.SigmoidParams.A)
}

func TestLoadCalibrationInfo_ZeroSigmoidA(t *testing.T) {
	s := &SvmProssesAnalyzer{featureNames: []string{"LM"}}
	data := []byte(`{
		"feature_names": ["LM","LVC","WM","WVC","SR","TR","SPL","IE","BAYES"],
		"num_features": 9,
		"feature_stats": {
			"means": [0,0,0,0,0,0,0,0,0],
			"stds":  [1,1,1,1,1,1,1,1,1]
		},
		"sigmoid_params": {"a": 0, "b": 0},
		"optimal_threshold": 0.7
	}`)

	require.NoError(t, s.loadCalibrationInfo(data))

	assert.Equal(t, 1.0, s.calibration.SigmoidParams.A)
}

func TestLoadCalibrationInfo_MissingStatsIsError(t *testing.T) {
	s := &SvmProssesAnalyzer{}
	data := []byte(`{"feature_names": ["LM"], "num_features": 9}`)

	assert.Error(t, s.loadCalibrationInfo(data))
}

func TestApplySigmoid(t *testing.T) {
	s := &SvmProssesAnalyzer{}
	s.calibration.SigmoidParams = SigmoidParams{A: 1.0, B: 0.0}

	assert.InDelta(t, 0.5, s.applySigmoid(0), 1e-9)
	assert.Greater(t, s.applySigmoid(4), 0.95)
	assert.Less(t, s.applySigmoid(-4), 0.05)
}

func TestNormalizeFeature_ClampsToExtendedRange(t *testing.T) {
	s := &SvmProssesAnalyzer{}
	s.calibration.FeatureStats = FeatureStats{
		Mins:  []float64{0},
		Maxs:  []float64{10},
		Means: []float64{5},
		Stds:  []float64{2},
	}

	// 允许超出[0,10]半个量程: [-5,15]
	assert.InDelta(t, (15.0-5.0)/2.0, s.normalizeFeature(100, 0), 1e-9)
	assert.InDelta(t, (-5.0-5.0)/2.0, s.normalizeFeature(-100, 0), 1e-9)
	// 范围内的值正常z-score
	assert.InDelta(t, 1.0, s.normalizeFeature(7, 0), 1e-9)
}

// newActiveAnalyzer 构造一个带校准信息的活动分析器。空文件短路
// 不触发SVM推理，模型只需非nil
func newActiveAnalyzer(t *testing.T) *SvmProssesAnalyzer {
	t.Helper()

	s := &SvmProssesAnalyzer{featureNames: []string{"LM"}}
	data := []byte(`{
		"feature_names": ["LM","LVC","WM","WVC","SR","TR","SPL","IE","BAYES"],
		"num_features": 9,
		"feature_stats": {
			"mins":  [0,0,0,0,0,0,0,0,0],
			"maxs":  [1,1,1,1,1,1,1,1,1],
			"means": [0,0,0,0,0,0,0,0,0],
			"stds":  [1,1,1,1,1,1,1,1,1]
		},
		"sigmoid_params": {"a": 1.0, "b": 0.0},
		"optimal_threshold": 0.7
	}`)
	require.NoError(t, s.loadCalibrationInfo(data))
	s.model = &libSvm.Model{}
	s.isInitialized = true
	return s
}

// 空文件不经过模型，直接判定normal且分数为0
func TestDetect_EmptyContentShortCircuit(t *testing.T) {
	s := newActiveAnalyzer(t)

	for _, content := range [][]byte{nil, {}} {
		res := s.Detect(types.FileInfo{Path: "empty.php"}, content, nil)

		require.NotNil(t, res)
		assert.Equal(t, 0.0, res.Score)
		assert.Equal(t, types.VerdictNormal, res.Verdict)
		assert.InDelta(t, 0.7, res.Threshold, 1e-9)
		assert.Empty(t, res.MatchedDangerousFunctions)
	}
}

// 统计特征缺失时同样短路为normal
func TestDetect_MissingStatisticalShortCircuit(t *testing.T) {
	s := newActiveAnalyzer(t)

	res := s.Detect(types.FileInfo{Path: "x.php"}, []byte("<?php echo 1;"), &features.FeatureSet{})

	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, types.VerdictNormal, res.Verdict)
}

func TestNewSvmProssesAnalyzer_MissingModelIsInactive(t *testing.T) {
	a, err := NewSvmProssesAnalyzer(t.TempDir())

	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Nil(t, a.Detect(types.FileInfo{Path: "x.php"}, []byte("<?php"), nil))
	assert.Equal(t, DefaultThreshold, a.Threshold())
}
