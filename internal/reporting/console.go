/*
 * @Date: 2025-06-05 15:05:40
 * @Description: 终端命令行输出报告
 */
package reporting

import (
	"fmt"
	"os"
	"sort"

	"shieldscan/pkg/types"
)

type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// Generate 按路径排序输出扫描结果与汇总统计
func (r *ConsoleReporter) Generate(results []*types.ScanResult, outputPath string) error {
	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "Warning: console reporter does not support output path '%s', printing to stdout.\n", outputPath)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].File.Path < results[j].File.Path
	})

	fmt.Println("\n--- Scan Report ---")
	riskCounts := make(map[types.RiskLevel]int)
	var totalFiles, errorFiles int

	for _, res := range results {
		totalFiles++
		if res.Error != nil {
			fmt.Printf("[ERROR] %s : %v\n", res.File.Path, res.Error)
			riskCounts[types.RiskUnknown]++
			errorFiles++
			continue
		}

		riskCounts[res.OverallRisk]++

		if res.OverallRisk > types.RiskNone || len(res.Findings) > 0 {
			fmt.Printf("[%s] %s (Time: %s)\n", res.OverallRisk.String(), res.File.Path, res.Duration)
			if res.Detection != nil {
				fmt.Printf("  -> Fusion score: %.4f (threshold %.2f), verdict: %s\n",
					res.Detection.Score, res.Detection.Threshold, res.Detection.Verdict)
				if len(res.Detection.MatchedDangerousFunctions) > 0 {
					fmt.Printf("  -> Dangerous functions: %v\n", res.Detection.MatchedDangerousFunctions)
				}
			}
			if len(res.Findings) > 0 {
				sort.Slice(res.Findings, func(i, j int) bool {
					return res.Findings[i].Risk > res.Findings[j].Risk
				})
				for _, f := range res.Findings {
					fmt.Printf("  -> [%s] %s: %s\n", f.Risk.String(), f.AnalyzerName, f.Description)
				}
			}
		}
	}

	fmt.Println("\n--- Summary ---")
	fmt.Printf("Total Files Scanned: %d\n", totalFiles)
	fmt.Printf("Files with Errors:   %d\n", errorFiles)
	fmt.Printf("Risk Levels Found:\n")
	levels := []types.RiskLevel{types.RiskCritical, types.RiskHigh, types.RiskMedium, types.RiskLow, types.RiskNone, types.RiskUnknown}
	for _, level := range levels {
		if count, ok := riskCounts[level]; ok && count > 0 {
			fmt.Printf("  - %-8s : %d\n", level.String(), count)
		}
	}
	fmt.Println("--- End Report ---")

	return nil
}
