/*
 * @Date: 2025-06-05 10:33:17
 * @Description: yara规则匹配
 */
package static

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hillu/go-yara/v4"

	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

type YaraAnalyzer struct {
	analyzerName string
	rules        *yara.Rules
}

// NewYaraAnalyzer 从签名目录编译Webshells_rules.yar。规则文件缺失时
// 分析器保持非活动状态
func NewYaraAnalyzer(dataPath string) (*YaraAnalyzer, error) {
	ruleFilePath := filepath.Join(dataPath, "Webshells_rules.yar")

	if _, err := os.Stat(ruleFilePath); os.IsNotExist(err) {
		logging.WarnLogger.Warnf("YARA rule file not found at %s: %v, yara analyzer will be inactive", ruleFilePath, err)
		return &YaraAnalyzer{analyzerName: "yara", rules: nil}, nil
	}

	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("failed to create yara compiler: %w", err)
	}

	file, err := os.Open(ruleFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open yara rule file %s: %w", ruleFilePath, err)
	}
	defer file.Close()

	if err := compiler.AddFile(file, "webshell"); err != nil {
		return nil, fmt.Errorf("failed to add yara rule file %s to compiler: %w", ruleFilePath, err)
	}

	rules, err := compiler.GetRules()
	if err != nil {
		return nil, fmt.Errorf("failed to compile yara rules from %s: %w", ruleFilePath, err)
	}

	return &YaraAnalyzer{analyzerName: "yara", rules: rules}, nil
}

func (a *YaraAnalyzer) Name() string {
	return a.analyzerName
}

func (a *YaraAnalyzer) RequiredFeatures() []string {
	return nil
}

// Analyze 对内容执行yara扫描，任一规则命中产出发现
func (a *YaraAnalyzer) Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error) {
	if a.rules == nil {
		return nil, nil
	}

	scanner, err := yara.NewScanner(a.rules)
	if err != nil {
		logging.ErrorLogger.Errorf("failed to create YARA scanner for %s: %v", fileInfo.Path, err)
		return nil, fmt.Errorf("yara scanner creation failed: %w", err)
	}

	var matches yara.MatchRules
	if err := scanner.SetCallback(&matches).ScanMem(content); err != nil {
		logging.WarnLogger.Warnf("YARA scan failed for %s: %v", fileInfo.Path, err)
		return nil, fmt.Errorf("yara scan execution failed: %w", err)
	}

	if len(matches) > 0 {
		match := matches[0]
		logging.InfoLogger.Infof("YARA match found for %s (rule: %s)", fileInfo.Path, match.Rule)
		return &types.Finding{
			AnalyzerName: a.analyzerName,
			Description:  fmt.Sprintf("Matched YARA rule: %s", match.Rule),
			Risk:         types.RiskCritical,
			Confidence:   1.0,
		}, nil
	}

	return nil, nil
}
