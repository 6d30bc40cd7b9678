/*
 * @Date: 2025-06-03 10:12:40
 * @Description: 通用类型定义
 */
package types

import "time"

// 定义检测到的风险级别
type RiskLevel int

const (
	RiskUnknown  RiskLevel = iota // 0: 出错或无法判断
	RiskNone                      // 1: 未检测到风险
	RiskLow                       // 2: 低风险/可疑模式
	RiskMedium                    // 3: 中风险/疑似恶意
	RiskHigh                      // 4: 高风险/强恶意特征
	RiskCritical                  // 5: 确认恶意(哈希/YARA命中)
)

// 返回风险级别的字符串表示
func (rl RiskLevel) String() string {
	switch rl {
	case RiskNone:
		return "Safe"
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Verdict 融合模型的最终判定结果
type Verdict string

const (
	VerdictNormal     Verdict = "normal"
	VerdictLowRisk    Verdict = "low-risk"
	VerdictSuspicious Verdict = "suspicious"
	VerdictWebshell   Verdict = "webshell"
)

// DetectionResult 单文件的融合检测结果，构造后不再修改
type DetectionResult struct {
	Score                     float64  // 校准后的webshell概率 [0,1]
	Threshold                 float64  // 判定阈值
	Verdict                   Verdict  // 判定结果
	MatchedDangerousFunctions []string // 词袋中命中的危险函数(去重)
}

// DataPaths 定义数据文件路径
type DataPaths struct {
	Models     string `yaml:"models"`
	Signatures string `yaml:"signatures"`
	Config     string `yaml:"config"`
}

// Performance 定义性能相关配置
type Performance struct {
	Concurrency int `yaml:"concurrency"`
}

// Output 定义输出相关配置
type Output struct {
	Format string `yaml:"format"` // console, json, html
}

// 文件信息结构体，保存文件的基本信息
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Finding 单个分析器的发现
type Finding struct {
	AnalyzerName string    // 产生该发现的分析器名称
	Description  string    // 描述(如 "Matched YARA rule: XYZ")
	Risk         RiskLevel // 该分析器评估的风险级别
	Confidence   float64   // 置信度 (0.0 - 1.0)
}

// ScanResult 保存单个扫描文件的总体结果
type ScanResult struct {
	File        FileInfo
	OverallRisk RiskLevel
	Findings    []*Finding
	Detection   *DetectionResult // 融合模型结果，可能为nil
	Error       error
	Duration    time.Duration
}
