/*
 * @Date: 2025-06-05 15:12:08
 * @Description: JSON格式报告输出
 */
package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"shieldscan/pkg/types"
)

// SimpleResult 简化版扫描结果，与前端约定的格式
type SimpleResult struct {
	Filename string  `json:"filename"`
	Type     string  `json:"type"`
	Risk     int     `json:"risk"`      // 风险等级数字
	RiskText string  `json:"risk_text"` // 风险等级描述
	Desc     string  `json:"description"`
	Score    float64 `json:"score"`   // 融合模型分数
	Verdict  string  `json:"verdict"` // 融合模型判定
}

type JsonReporter struct{}

func NewJsonReporter() *JsonReporter {
	return &JsonReporter{}
}

// Generate 生成JSON报告，不指定路径时固定写到data/webshellJson.json
func (r *JsonReporter) Generate(results []*types.ScanResult, outputPath string) error {
	if outputPath == "" {
		dataDir := "data"
		if _, err := os.Stat(dataDir); os.IsNotExist(err) {
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return err
			}
		}
		outputPath = filepath.Join(dataDir, "webshellJson.json")
	}

	simplified := make([]SimpleResult, 0, len(results))

	for _, res := range results {
		if res.Error != nil {
			continue
		}

		fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(res.File.Path)), ".")

		var riskText, desc string
		var riskScore int

		switch res.OverallRisk {
		case types.RiskNone:
			riskText = "正常"
			desc = "未发现问题"
			riskScore = 0
		case types.RiskLow:
			riskText = "疑似木马"
			desc = "检测到可疑特征"
			riskScore = 1
		case types.RiskMedium:
			riskText = "疑似木马"
			desc = "检测到可疑特征"
			riskScore = 3
		case types.RiskHigh:
			riskText = "疑似木马"
			desc = "检测到可疑特征"
			riskScore = 4
		case types.RiskCritical:
			riskText = "木马文件"
			desc = "检测为高危木马"
			riskScore = 5
		default:
			riskText = "未知"
			desc = "检测过程异常"
			riskScore = 0
		}

		entry := SimpleResult{
			Filename: filepath.Base(res.File.Path),
			Type:     fileType,
			Risk:     riskScore,
			RiskText: riskText,
			Desc:     desc,
		}
		if res.Detection != nil {
			entry.Score = res.Detection.Score
			entry.Verdict = string(res.Detection.Verdict)
		}
		simplified = append(simplified, entry)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	finalResult := map[string]interface{}{
		"results": simplified,
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(finalResult)
}
