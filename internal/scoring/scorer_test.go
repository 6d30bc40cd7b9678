package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shieldscan/internal/features"
	"shieldscan/pkg/types"
)

func finding(name string, confidence float64) *types.Finding {
	return &types.Finding{AnalyzerName: name, Confidence: confidence}
}

func callableFeatures() *features.FeatureSet {
	return &features.FeatureSet{Callable: true}
}

func TestCalculateScore_NoFindings(t *testing.T) {
	assert.Equal(t, types.RiskNone, CalculateScore(nil, callableFeatures()))
	assert.Equal(t, types.RiskNone, CalculateScore([]*types.Finding{}, nil))
}

func TestCalculateScore_SingleSignals(t *testing.T) {
	// 单正则: 1分
	risk := CalculateScore([]*types.Finding{finding("regex", 0.9)}, nil)
	assert.Equal(t, types.RiskLow, risk)

	// 单YARA: 1分
	risk = CalculateScore([]*types.Finding{finding("yara", 1.0)}, nil)
	assert.Equal(t, types.RiskLow, risk)
}

func TestCalculateScore_RegexPlusYaraBonus(t *testing.T) {
	findings := []*types.Finding{
		finding("regex", 0.9),
		finding("yara", 1.0),
	}

	// 1 + 1 + 2(双命中加成) = 4
	assert.Equal(t, types.RiskHigh, CalculateScore(findings, nil))
}

func TestCalculateScore_SvmRequiresCallable(t *testing.T) {
	findings := []*types.Finding{finding("svm_prosses", 0.95)}

	// 高置信度但无可执行结构：不加分
	assert.Equal(t, types.RiskNone, CalculateScore(findings, &features.FeatureSet{Callable: false}))
	// 有可执行结构: 2分
	assert.Equal(t, types.RiskLow, CalculateScore(findings, callableFeatures()))
}

func TestCalculateScore_SvmConfidenceGate(t *testing.T) {
	// 0.91整不过线，必须严格大于
	findings := []*types.Finding{finding("svm_prosses", 0.91)}
	assert.Equal(t, types.RiskNone, CalculateScore(findings, callableFeatures()))
}

func TestCalculateScore_StatisticalRequiresCallable(t *testing.T) {
	findings := []*types.Finding{finding("statistical", 0.7)}

	assert.Equal(t, types.RiskNone, CalculateScore(findings, nil))
	assert.Equal(t, types.RiskLow, CalculateScore(findings, callableFeatures()))
}

func TestCalculateScore_CappedAtCritical(t *testing.T) {
	findings := []*types.Finding{
		finding("regex", 0.9),
		finding("yara", 1.0),
		finding("svm_prosses", 0.95),
		finding("statistical", 0.7),
	}

	// 1+1+2+2+2=8，封顶5分
	assert.Equal(t, types.RiskCritical, CalculateScore(findings, callableFeatures()))
}

func TestCalculateScore_MediumBand(t *testing.T) {
	findings := []*types.Finding{
		finding("regex", 0.9),
		finding("statistical", 0.7),
	}

	// 1 + 2 = 3
	assert.Equal(t, types.RiskMedium, CalculateScore(findings, callableFeatures()))
}
