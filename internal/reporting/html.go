/*
 * @Date: 2025-06-05 15:24:51
 * @Description: HTML木马查杀报告
 */
package reporting

import (
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

type HtmlReporter struct{}

func NewHtmlReporter() *HtmlReporter {
	return &HtmlReporter{}
}

type htmlFileRow struct {
	Path      string
	Size      int64
	ModTime   string
	RiskLevel int
	RiskText  string
	RiskClass string
	Score     string
	Verdict   string
	Findings  []*types.Finding
	Err       string
}

type htmlReportData struct {
	ScanTime        string
	TotalFiles      int
	NormalFiles     int
	SuspiciousFiles int
	TrojanFiles     int
	ErrorFiles      int
	ProblemFiles    []htmlFileRow
	Year            int
}

var htmlReportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>shieldscan 木马查杀报告</title>
<style>
body { font-family: 'Arial', 'Microsoft YaHei', sans-serif; background: #f0f0f0; color: #333; margin: 0; padding: 15px; }
.container { max-width: 1200px; margin: auto; padding: 15px; background: #fff; border-radius: 8px; }
h1 { text-align: center; color: #0070c0; }
.timestamp { text-align: center; color: #666; margin-bottom: 20px; }
.summary ul { list-style: none; padding: 0; display: flex; flex-wrap: wrap; }
.summary li { flex-basis: 50%; margin-bottom: 10px; }
.summary span { font-weight: bold; color: #0070c0; }
table { width: 100%; border-collapse: collapse; margin-top: 10px; }
th, td { border: 1px solid #ccc; padding: 8px 12px; text-align: left; font-size: 14px; }
th { background: #eaeaea; }
.risk-critical, .risk-high { color: #fff; background: #e94747; border-radius: 12px; padding: 3px 10px; }
.risk-medium, .risk-low { color: #fff; background: #f8a532; border-radius: 12px; padding: 3px 10px; }
.risk-error { color: #383d41; background: #e2e3e5; border-radius: 12px; padding: 3px 10px; }
.finding { color: #666; font-size: 13px; }
.footer { text-align: center; margin-top: 30px; font-size: 12px; color: #666; }
</style>
</head>
<body>
<div class="container">
<h1>shieldscan 木马查杀报告</h1>
<div class="timestamp">检测时间：{{.ScanTime}}</div>
<div class="summary">
<ul>
<li>检测文件总数：<span>{{.TotalFiles}}</span></li>
<li>正常文件量：<span>{{.NormalFiles}}</span></li>
<li>疑似木马文件数量：<span>{{.SuspiciousFiles}}</span></li>
<li>木马文件数量：<span>{{.TrojanFiles}}</span></li>
<li>扫描错误数量：<span>{{.ErrorFiles}}</span></li>
</ul>
</div>
<table>
<tr><th>文件路径</th><th>大小</th><th>修改时间</th><th>分数</th><th>融合判定</th><th>风险等级</th><th>检出详情</th></tr>
{{if .ProblemFiles}}
{{range .ProblemFiles}}
<tr>
<td>{{.Path}}</td>
<td>{{.Size}}</td>
<td>{{.ModTime}}</td>
<td>{{.Score}}</td>
<td>{{.Verdict}}</td>
<td><span class="{{.RiskClass}}">{{.RiskText}}</span></td>
<td>
{{if .Err}}<div class="finding">{{.Err}}</div>{{end}}
{{range .Findings}}<div class="finding">[{{.AnalyzerName}}] {{.Description}}</div>
{{end}}
</td>
</tr>
{{end}}
{{else}}
<tr><td colspan="7" style="text-align:center;color:#6c757d;">未发现问题文件</td></tr>
{{end}}
</table>
<div class="footer">&copy; {{.Year}} shieldscan. All rights reserved.</div>
</div>
</body>
</html>
`))

// Generate 生成HTML报告并写入outputPath
func (r *HtmlReporter) Generate(results []*types.ScanResult, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("HTML reporter requires an output path")
	}

	data := htmlReportData{
		ScanTime:   time.Now().Format("2006-01-02 15:04:05"),
		TotalFiles: len(results),
		Year:       time.Now().Year(),
	}

	for _, res := range results {
		row := htmlFileRow{
			Path:     res.File.Path,
			Size:     res.File.Size,
			ModTime:  res.File.ModTime.Format("2006-01-02 15:04:05"),
			Findings: res.Findings,
		}
		if res.Detection != nil {
			row.Score = fmt.Sprintf("%.4f", res.Detection.Score)
			row.Verdict = string(res.Detection.Verdict)
		}

		if res.Error != nil {
			data.ErrorFiles++
			row.RiskText = "扫描错误"
			row.RiskClass = "risk-error"
			row.Err = res.Error.Error()
			data.ProblemFiles = append(data.ProblemFiles, row)
			continue
		}

		row.RiskLevel = int(res.OverallRisk)
		switch res.OverallRisk {
		case types.RiskNone:
			data.NormalFiles++
			continue
		case types.RiskLow, types.RiskMedium:
			data.SuspiciousFiles++
			row.RiskText = "疑似木马"
			row.RiskClass = "risk-medium"
		case types.RiskHigh:
			data.TrojanFiles++
			row.RiskText = "木马文件"
			row.RiskClass = "risk-high"
		case types.RiskCritical:
			data.TrojanFiles++
			row.RiskText = "木马文件"
			row.RiskClass = "risk-critical"
		default:
			data.ErrorFiles++
			row.RiskText = "未知"
			row.RiskClass = "risk-error"
		}
		data.ProblemFiles = append(data.ProblemFiles, row)
	}

	// 木马文件排前面
	sort.SliceStable(data.ProblemFiles, func(i, j int) bool {
		return data.ProblemFiles[i].RiskLevel > data.ProblemFiles[j].RiskLevel
	})

	out, err := os.Create(outputPath)
	if err != nil {
		logging.ErrorLogger.Errorf("failed to create HTML report file %s: %v", outputPath, err)
		return fmt.Errorf("failed to create HTML report: %w", err)
	}
	defer out.Close()

	if err := htmlReportTmpl.Execute(out, data); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
