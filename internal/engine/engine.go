/*
 * @Date: 2025-06-05 14:02:19
 * @Description: 检测引擎，调度分析器完成扫描任务
 */
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"shieldscan/internal/analyzers/ml"
	"shieldscan/internal/analyzers/static"
	"shieldscan/internal/ast"
	"shieldscan/internal/bridge"
	"shieldscan/internal/config"
	"shieldscan/internal/features"
	"shieldscan/internal/reporting"
	"shieldscan/internal/scoring"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// Task 定义一次扫描任务
type Task struct {
	Paths      []string // 需要扫描的文件或目录
	Exclusions []string // 需要排除的文件或目录
	ReportPath string   // 报告保存路径(来自 -output)
}

// Engine 协调扫描过程：AST桥接、特征提取、分析器与融合评分
type Engine struct {
	config    *config.Config
	analyzers map[string]Analyzer
	svm       *ml.SvmProssesAnalyzer // 非nil时额外产出融合检测结果
	parser    bridge.Parser
}

// 需要AST桥接的分析器
var astRequiredBy = map[string]bool{
	"bayes_words": true,
	"statistical": true,
	"svm_prosses": true,
}

// NewEngine 按配置初始化分析器。单个分析器初始化失败不阻断引擎，
// 桥接启动失败时依赖AST的分析器整体失效
func NewEngine(cfg *config.Config) (*Engine, error) {
	enabledSet := make(map[string]bool)
	needsAST := false
	for _, name := range cfg.EnabledAnalyzers {
		nameLower := strings.ToLower(name)
		enabledSet[nameLower] = true
		if astRequiredBy[nameLower] {
			needsAST = true
		}
	}

	var parser bridge.Parser
	if needsAST {
		runtimePath := filepath.Join(cfg.DataPaths.Config, "php_ast_runtime")
		p := bridge.NewPhpBridge(runtimePath)
		if err := p.Initialize(cfg.Detection.PHPVersion); err != nil {
			logging.ErrorLogger.Errorf("failed to initialize PHP AST bridge: %v, AST-dependent analyzers will be inactive", err)
		} else {
			parser = p
		}
	} else {
		logging.InfoLogger.Infof("no AST-dependent analyzers enabled, skipping bridge initialization")
	}

	analyzers := make(map[string]Analyzer)
	var analyzerErrors []string
	var svmAnalyzer *ml.SvmProssesAnalyzer

	for nameLower := range enabledSet {
		if astRequiredBy[nameLower] && parser == nil {
			continue
		}

		var analyzer Analyzer
		var initErr error

		switch nameLower {
		case "regex":
			analyzer, initErr = static.NewRegexAnalyzer()
		case "yara":
			analyzer, initErr = static.NewYaraAnalyzer(cfg.DataPaths.Signatures)
		case "hash":
			analyzer, initErr = static.NewHashAnalyzer(cfg.DataPaths.Signatures)
		case "statistical":
			analyzer, initErr = static.NewStatisticalAnalyzer()
		case "bayes_words":
			analyzer, initErr = ml.NewBayesWordsAnalyzer(cfg.DataPaths.Models)
		case "svm_prosses":
			svmAnalyzer, initErr = ml.NewSvmProssesAnalyzer(cfg.DataPaths.Models)
			if initErr == nil {
				analyzer = svmAnalyzer
			}
		default:
			logging.WarnLogger.Warnf("unknown analyzer specified in config: %s", nameLower)
			continue
		}

		if initErr != nil {
			errMsg := fmt.Sprintf("failed to initialize analyzer '%s': %v", nameLower, initErr)
			logging.ErrorLogger.Errorf(errMsg)
			analyzerErrors = append(analyzerErrors, errMsg)
		} else if analyzer != nil {
			analyzers[nameLower] = analyzer
		}
	}

	if len(analyzers) == 0 {
		errMsg := "no analyzers were enabled or successfully initialized"
		if len(analyzerErrors) > 0 {
			errMsg += ": " + strings.Join(analyzerErrors, "; ")
		}
		logging.ErrorLogger.Errorf(errMsg)
	}

	return &Engine{
		config:    cfg,
		analyzers: analyzers,
		svm:       svmAnalyzer,
		parser:    parser,
	}, nil
}

// Scan 执行扫描任务并生成报告，返回全部扫描结果供上层落库或告警
func (e *Engine) Scan(task *Task) ([]*types.ScanResult, error) {
	if e.parser != nil {
		defer func() {
			if err := e.parser.Cleanup(); err != nil {
				logging.ErrorLogger.Errorf("error during bridge cleanup: %v", err)
			}
		}()
	}

	filesToScan, err := findFiles(task.Paths, task.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("error finding files to scan: %w", err)
	}
	if len(filesToScan) == 0 {
		logging.InfoLogger.Infof("no files found to scan")
		return nil, e.generateReport([]*types.ScanResult{}, task)
	}

	results := make([]*types.ScanResult, 0, len(filesToScan))
	var wg sync.WaitGroup
	resultChan := make(chan *types.ScanResult, len(filesToScan))

	concurrency := e.config.Performance.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)

	startTime := time.Now()

	for _, filePath := range filesToScan {
		wg.Add(1)
		sem <- struct{}{}

		go func(fp string) {
			defer wg.Done()
			defer func() { <-sem }()
			resultChan <- e.ScanFile(fp)
		}(filePath)
	}

	wg.Wait()
	close(resultChan)

	for res := range resultChan {
		results = append(results, res)
	}

	logging.InfoLogger.Infof("scanning finished in %s", time.Since(startTime))

	return results, e.generateReport(results, task)
}

// Close 释放引擎持有的资源(常驻模式下由调用方在退出时调用)
func (e *Engine) Close() error {
	if e.parser != nil {
		return e.parser.Cleanup()
	}
	return nil
}

// ScanFile 处理单个文件：读取、AST解析、特征提取、分析器执行与评分
func (e *Engine) ScanFile(filePath string) *types.ScanResult {
	start := time.Now()
	result := &types.ScanResult{File: types.FileInfo{Path: filePath}}

	info, err := os.Stat(filePath)
	if err != nil {
		result.Error = fmt.Errorf("stat error: %w", err)
		logging.ErrorLogger.Errorf("error stating file %s: %v", filePath, err)
		result.Duration = time.Since(start)
		return result
	}
	result.File.Size = info.Size()
	result.File.ModTime = info.ModTime()

	maxSize := e.config.Detection.MaxFileSize
	if maxSize > 0 && info.Size() > maxSize {
		result.Error = fmt.Errorf("file exceeds size limit (%d > %d bytes)", info.Size(), maxSize)
		logging.WarnLogger.Warnf("skipping file %s: %v", filePath, result.Error)
		result.Duration = time.Since(start)
		return result
	}

	// 空文件不送模型，直接判定无风险
	if info.Size() == 0 {
		logging.InfoLogger.Infof("skipping empty file: %s", filePath)
		result.OverallRisk = types.RiskNone
		if e.svm != nil {
			result.Detection = e.svm.Detect(result.File, nil, nil)
		}
		result.Duration = time.Since(start)
		return result
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		result.Error = fmt.Errorf("read error: %w", err)
		logging.ErrorLogger.Errorf("error reading file %s: %v", filePath, err)
		result.Duration = time.Since(start)
		return result
	}

	// AST解析。桥接协议的软失败表现为没有树，不中断扫描
	var goAST interface{}
	if e.parser != nil {
		parseResult, parseErr := e.parser.Parse(content)
		switch {
		case parseErr != nil:
			logging.WarnLogger.Warnf("AST generation failed for %s: %v", filePath, parseErr)
		case parseResult.HasAST:
			goAST = ast.Normalize(parseResult.AST)
		case parseResult.Reason != "":
			logging.InfoLogger.Infof("no AST for %s: %s", filePath, parseResult.Reason)
		}
	}

	featureSet, featErr := features.ExtractAllFeatures(result.File, content, goAST)
	if featErr != nil {
		logging.WarnLogger.Warnf("feature extraction failed for %s: %v", filePath, featErr)
	}
	if featureSet == nil {
		featureSet = &features.FeatureSet{}
	}

	var findings []*types.Finding
	for _, name := range sortedAnalyzerNames(e.analyzers) {
		analyzer := e.analyzers[name]
		if !e.canRunAnalyzer(analyzer, featureSet, content) {
			logging.InfoLogger.Infof("skipping analyzer '%s' for %s: missing required features", name, filePath)
			continue
		}
		finding, analyzeErr := analyzer.Analyze(result.File, content, featureSet)
		if analyzeErr != nil {
			logging.WarnLogger.Warnf("analyzer '%s' failed on %s: %v", name, filePath, analyzeErr)
		}
		if finding != nil {
			findings = append(findings, finding)
		}
	}

	result.Findings = findings
	result.OverallRisk = scoring.CalculateScore(result.Findings, featureSet)
	if e.svm != nil {
		result.Detection = e.svm.Detect(result.File, content, featureSet)
	}
	result.Duration = time.Since(start)

	logging.InfoLogger.Infof("scan finished for %s, risk: %s, findings: %d, time: %s",
		filePath, result.OverallRisk.String(), len(result.Findings), result.Duration)
	return result
}

// sortedAnalyzerNames 固定分析器执行顺序，保证结果可复现
func sortedAnalyzerNames(analyzers map[string]Analyzer) []string {
	names := make([]string, 0, len(analyzers))
	for name := range analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// canRunAnalyzer 检查分析器声明的特征是否就绪
func (e *Engine) canRunAnalyzer(analyzer Analyzer, fs *features.FeatureSet, content []byte) bool {
	required := analyzer.RequiredFeatures()
	if len(required) == 0 {
		return true
	}
	if fs == nil {
		return false
	}

	for _, featureKey := range required {
		keyPresent := false
		switch strings.ToLower(featureKey) {
		case "statistical":
			keyPresent = fs.Statistical != nil
		case "ast_words":
			keyPresent = fs.ASTWords != nil
		case "callable", "ast_callable":
			keyPresent = true
		case "raw_ast":
			keyPresent = fs.RawAST != nil
		default:
			logging.WarnLogger.Warnf("analyzer '%s' requires unknown feature key '%s'", analyzer.Name(), featureKey)
			return false
		}
		if !keyPresent {
			return false
		}
	}
	return true
}

// generateReport 按输出路径扩展名或配置选择报告形式
func (e *Engine) generateReport(results []*types.ScanResult, task *Task) error {
	var reporter reporting.Reporter = reporting.NewConsoleReporter()
	outputFormat := strings.ToLower(e.config.Output.Format)
	outputPath := ""

	if task.ReportPath != "" {
		outputPath = task.ReportPath
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".html":
			reporter = reporting.NewHtmlReporter()
			outputFormat = "html"
		case ".json":
			reporter = reporting.NewJsonReporter()
			outputFormat = "json"
		default:
			reporter = reporting.NewConsoleReporter()
			outputFormat = "console"
			outputPath = ""
		}
	} else {
		switch outputFormat {
		case "html":
			reporter = reporting.NewHtmlReporter()
			outputPath = "scan_report.html"
			logging.WarnLogger.Warnf("HTML output requires a path, defaulting to '%s'", outputPath)
		case "json":
			reporter = reporting.NewJsonReporter()
		default:
			reporter = reporting.NewConsoleReporter()
		}
	}

	logging.InfoLogger.Infof("generating '%s' report...", outputFormat)
	if err := reporter.Generate(results, outputPath); err != nil {
		logging.ErrorLogger.Errorf("failed to generate %s report: %v", outputFormat, err)
		return fmt.Errorf("failed to generate %s report: %w", outputFormat, err)
	}

	if outputPath != "" {
		logging.InfoLogger.Infof("report generated: %s", outputPath)
	}
	return nil
}

// findFiles 收集所有待扫描的php文件，去重并应用排除列表
func findFiles(paths []string, exclusions []string) ([]string, error) {
	var files []string
	exclusionPatterns := make(map[string]bool)
	for _, ex := range exclusions {
		absEx, err := filepath.Abs(ex)
		if err == nil {
			exclusionPatterns[filepath.Clean(absEx)] = true
		} else {
			logging.WarnLogger.Warnf("could not get absolute path for exclusion '%s': %v", ex, err)
			exclusionPatterns[filepath.Clean(ex)] = true
		}
	}

	processedPaths := make(map[string]bool)

	for _, p := range paths {
		absP, err := filepath.Abs(p)
		if err != nil {
			logging.WarnLogger.Warnf("could not get absolute path for target '%s': %v, skipping", p, err)
			continue
		}
		cleanPath := filepath.Clean(absP)

		if processedPaths[cleanPath] {
			continue
		}
		if exclusionPatterns[cleanPath] {
			processedPaths[cleanPath] = true
			continue
		}

		info, err := os.Stat(cleanPath)
		if err != nil {
			logging.WarnLogger.Warnf("skipping path %s: %v", p, err)
			processedPaths[cleanPath] = true
			continue
		}

		if info.IsDir() {
			walkErr := filepath.Walk(cleanPath, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					logging.WarnLogger.Warnf("error accessing path %s during walk: %v", path, err)
					return nil
				}

				absWalkPath, walkAbsErr := filepath.Abs(path)
				if walkAbsErr != nil {
					return nil
				}
				cleanWalkPath := filepath.Clean(absWalkPath)

				if exclusionPatterns[cleanWalkPath] {
					if info.IsDir() {
						processedPaths[cleanWalkPath] = true
						return filepath.SkipDir
					}
					return nil
				}

				if info.IsDir() {
					processedPaths[cleanWalkPath] = true
					return nil
				}
				if processedPaths[cleanWalkPath] {
					return nil
				}
				if strings.ToLower(filepath.Ext(path)) == ".php" {
					files = append(files, cleanWalkPath)
				}
				processedPaths[cleanWalkPath] = true
				return nil
			})
			if walkErr != nil {
				logging.ErrorLogger.Errorf("error walking directory %s: %v", cleanPath, walkErr)
			}
			processedPaths[cleanPath] = true
		} else {
			if strings.ToLower(filepath.Ext(cleanPath)) == ".php" {
				files = append(files, cleanPath)
			} else {
				logging.InfoLogger.Infof("skipping non-PHP file specified directly: %s", p)
			}
			processedPaths[cleanPath] = true
		}
	}

	logging.InfoLogger.Infof("found %d unique PHP files to scan", len(files))
	return files, nil
}
