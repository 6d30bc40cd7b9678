/*
 * @Date: 2025-06-05 10:55:36
 * @Description: 统计特征越界检查
 */
package static

import (
	"fmt"
	"math"

	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// StatisticalThresholds 各统计特征的允许区间，NaN表示该方向不检查
type StatisticalThresholds struct {
	MinStat features.StatisticalFeatures `json:"MinStat"`
	MaxStat features.StatisticalFeatures `json:"MaxStat"`
}

// StatisticalAnalyzer 统计特征异常与可执行结构联合判定
type StatisticalAnalyzer struct {
	thresholds StatisticalThresholds
}

// GetDefaultStatisticalThresholds 默认阈值
func GetDefaultStatisticalThresholds() StatisticalThresholds {
	minStat := features.StatisticalFeatures{
		LM: math.NaN(), LVC: 0.1, WM: math.NaN(), WVC: math.NaN(),
		SR: 10.0, TR: math.NaN(), SPL: 0.001, IE: math.NaN(),
	}
	maxStat := features.StatisticalFeatures{
		LM: 2048.0, LVC: math.NaN(), WM: 1024.0, WVC: math.NaN(),
		SR: math.NaN(), TR: math.NaN(), SPL: math.NaN(), IE: math.NaN(),
	}
	return StatisticalThresholds{MinStat: minStat, MaxStat: maxStat}
}

func NewStatisticalAnalyzer() (*StatisticalAnalyzer, error) {
	return &StatisticalAnalyzer{
		thresholds: GetDefaultStatisticalThresholds(),
	}, nil
}

func (a *StatisticalAnalyzer) Name() string {
	return "statistical"
}

func (a *StatisticalAnalyzer) RequiredFeatures() []string {
	return []string{"statistical", "callable"}
}

// Analyze 统计特征越界且存在可执行结构时产出发现
func (a *StatisticalAnalyzer) Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error) {
	if featureSet == nil || featureSet.Statistical == nil {
		if len(content) == 0 {
			// 空文件没有统计特征是正常的
			return nil, nil
		}
		logging.ErrorLogger.Errorf("required statistical feature missing in FeatureSet for %s", fileInfo.Path)
		return nil, fmt.Errorf("missing statistical features")
	}

	calculatedStats := featureSet.Statistical
	if IsStatisticalAbnormal(calculatedStats, a.thresholds) && featureSet.Callable {
		desc := fmt.Sprintf("文件存在统计特征异常且存在可执行代码结构 (LM:%.0f, LVC:%.4f, WM:%.0f, WVC:%.2f, SR:%.2f, IE:%.4f)",
			calculatedStats.LM, calculatedStats.LVC, calculatedStats.WM, calculatedStats.WVC, calculatedStats.SR, calculatedStats.IE)

		return &types.Finding{
			AnalyzerName: a.Name(),
			Description:  desc,
			Risk:         types.RiskMedium,
			Confidence:   0.7,
		}, nil
	}

	return nil, nil
}

// IsStatisticalAbnormal 任一特征越界即视为异常
func IsStatisticalAbnormal(sf *features.StatisticalFeatures, std StatisticalThresholds) bool {
	if sf == nil {
		return false
	}
	return outOfRange(sf.LM, std.MinStat.LM, std.MaxStat.LM) ||
		outOfRange(sf.LVC, std.MinStat.LVC, std.MaxStat.LVC) ||
		outOfRange(sf.WM, std.MinStat.WM, std.MaxStat.WM) ||
		outOfRange(sf.WVC, std.MinStat.WVC, std.MaxStat.WVC) ||
		outOfRange(sf.SR, std.MinStat.SR, std.MaxStat.SR) ||
		outOfRange(sf.TR, std.MinStat.TR, std.MaxStat.TR) ||
		outOfRange(sf.SPL, std.MinStat.SPL, std.MaxStat.SPL) ||
		outOfRange(sf.IE, std.MinStat.IE, std.MaxStat.IE)
}

// outOfRange NaN边界按放开处理
func outOfRange(x float64, min float64, max float64) bool {
	if !math.IsNaN(min) && x < min {
		return true
	}
	if !math.IsNaN(max) && x > max {
		return true
	}
	return false
}
