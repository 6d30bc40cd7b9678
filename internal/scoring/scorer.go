/*
 * @Date: 2025-06-05 11:20:44
 * @Description: 多分析器结果融合评分
 */
package scoring

import (
	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// CalculateScore 按固定规则融合各分析器的发现:
// 1. 正则匹配得1分
// 2. YARA匹配得1分
// 3. 正则和YARA同时匹配额外加2分
// 4. callable为true且融合模型置信度>0.91时加2分
// 5. 统计特征异常且callable为true时加2分
// 6. 最高分限制为5分
func CalculateScore(findings []*types.Finding, featureSet *features.FeatureSet) types.RiskLevel {
	if len(findings) == 0 {
		return types.RiskNone
	}

	totalScore := 0

	hasRegexMatch := false
	hasYaraMatch := false
	highConfidencePrediction := false
	hasStatisticalAnomaly := false

	for _, finding := range findings {
		switch finding.AnalyzerName {
		case "regex":
			hasRegexMatch = true
		case "yara":
			hasYaraMatch = true
		case "svm_prosses":
			if finding.Confidence > 0.91 {
				highConfidencePrediction = true
				logging.InfoLogger.Infof("检测到高置信度融合模型预测: %.4f", finding.Confidence)
			}
		case "statistical":
			hasStatisticalAnomaly = true
		}
	}

	if hasRegexMatch {
		totalScore += 1
	}
	if hasYaraMatch {
		totalScore += 1
	}
	if hasRegexMatch && hasYaraMatch {
		totalScore += 2
	}

	hasCallable := featureSet != nil && featureSet.Callable
	if hasCallable && highConfidencePrediction {
		totalScore += 2
	}
	if hasCallable && hasStatisticalAnomaly {
		totalScore += 2
	}

	if totalScore > 5 {
		totalScore = 5
	}

	var riskLevel types.RiskLevel
	switch {
	case totalScore >= 5:
		riskLevel = types.RiskCritical
	case totalScore >= 4:
		riskLevel = types.RiskHigh
	case totalScore >= 3:
		riskLevel = types.RiskMedium
	case totalScore >= 1:
		riskLevel = types.RiskLow
	default:
		riskLevel = types.RiskNone
	}

	logging.InfoLogger.Infof("最终评分: %d，风险等级: %s", totalScore, riskLevel.String())
	return riskLevel
}
