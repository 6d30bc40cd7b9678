/*
 * @Date: 2025-06-05 10:14:52
 * @Description: 高危正则规则匹配
 */
package static

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

var highRiskRegexList []*regexp.Regexp
var regexCompileOnce sync.Once
var regexCompileErr error

// initializeRegexRules 编译内置的高危规则，进程内只做一次
func initializeRegexRules() {
	regexCompileOnce.Do(func() {
		rules := []string{
			`(?i)@\$\_=`,
			`(?i)eval\s*\(\s*(['"])\s*\?>`,
			`(?i)eval\s*\(\s*gzinflate\s*\(`,
			`(?i)eval\s*\(\s*str_rot13\s*\(`,
			`(?i)base64_decode\s*\(\s*\$\_`,
			`(?i)eval\s*\(\s*gzuncompress\s*\(`,
			`(?i)assert\s*\(\s*(['"]|\s*)\s*\$`,
			`(?i)(require_once|include_once|require|include)\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)gzinflate\s*\(\s*base64_decode\s*\(`,
			`(?i)echo\s*\(\s*file_get_contents\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)c99shell`, `(?i)cmd\.php`,
			`(?i)call_user_func\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)str_rot13`,
			`(?i)webshell`, `(?i)EgY_SpIdEr`, `(?i)SECFORCE`,
			`(?i)eval\s*\(\s*base64_decode\s*\(`,
			`(?i)array_map\s*\(.{1,25}(eval|assert|ass(?-i:\\\\x65)rt).{1,25}\$_(GET|POST|REQUEST)`,
			`(?i)call_user_func\s*\(.{0,30}\$_(GET|POST|REQUEST)`,
			`(?i)gzencode`,
			`(?i)call_user_func\s*\(\s*("|\')assert("|\')`,
			`(?i)fputs\s*\(\s*fopen\s*\(\s*(.+)\s*,\s*(['"])w(['"])\s*\)\s*,\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)\s*\[`,
			`(?i)file_put_contents\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)\s*\[[^\]]+\]\s*,\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)\$_(POST|GET|REQUEST|COOKIE)\s*\[[^\]]+\]\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)\s*\[`,
			`(?i)assert\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)eval\s*\(\s*(['"]|\s*)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)base64_decode\s*\(\s*gzuncompress\s*\(`,
			`(?i)gzuncompress\s*\(\s*base64_decode\s*\(`,
			`(?i)eval\s*\(\s*gzdecode\s*\(`,
			`(?i)preg_replace\s*\(\s*["']/.*["']\s*,\s*["'].*["']\s*,\s*.*\s*\)\s*;/si`,
			`(?i)Scanners`, `(?i)phpspy`, `(?i)cha88\.cn`,
			`(?i)chr\s*\(\s*\d+\s*\)\s*\.\s*chr\s*\(\s*\d+\s*\)`,
			`(?i)\$\_\s*=\s*\$\_`,
			`(?i)\$\w+\s*\(\s*\$\{`,
			`(?i)\(array\)\s*\$_(POST|GET|REQUEST|COOKIE)`,
			`(?i)\$\w+\s*\(\s*["']/.*["']\s*,\s*["'].*/e["']`,
			`(?i)("e"|"E")\s*\.\s*("v"|"V")\s*\.\s*("a"|"A")\s*\.\s*("l"|"L")`,
			`(?i)('e'|'E')\s*\.\s*('v'|'V')\s*\.\s*('a'|'A')\s*\.\s*('l'|'L')`,
			`(?i)@\s*preg_replace\s*\(\s*["']/.*["']/e\s*,\s*\$_POST\s*\[`,
			`(?i)\$\{\s*'_'`,
			`(?i)@\s*\$\_\s*\(\s*\$\_`,
		}

		highRiskRegexList = make([]*regexp.Regexp, 0, len(rules))
		var compileErrors []string
		for _, rule := range rules {
			re, err := regexp.Compile(rule)
			if err != nil {
				compileErrors = append(compileErrors, fmt.Sprintf("rule '%s': %v", rule, err))
				continue
			}
			highRiskRegexList = append(highRiskRegexList, re)
		}

		if len(compileErrors) > 0 {
			regexCompileErr = fmt.Errorf("failed to compile %d regex rules: %s", len(compileErrors), strings.Join(compileErrors, "; "))
			logging.ErrorLogger.Errorf("regex compilation errors: %v", regexCompileErr)
		}
	})
}

// RegexAnalyzer 高危正则分析器
type RegexAnalyzer struct {
	analyzerName string
}

func NewRegexAnalyzer() (*RegexAnalyzer, error) {
	initializeRegexRules()
	if regexCompileErr != nil && len(highRiskRegexList) == 0 {
		return nil, fmt.Errorf("regex analyzer failed to initialize: no rules compiled: %w", regexCompileErr)
	} else if regexCompileErr != nil {
		logging.WarnLogger.Warnf("regex analyzer initialized with %d rules, but some failed to compile: %v", len(highRiskRegexList), regexCompileErr)
	}
	return &RegexAnalyzer{analyzerName: "regex"}, nil
}

func (a *RegexAnalyzer) Name() string {
	return a.analyzerName
}

func (a *RegexAnalyzer) RequiredFeatures() []string {
	return nil
}

// Analyze 命中任意规则即产出发现，首个命中即返回
func (a *RegexAnalyzer) Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error) {
	if len(highRiskRegexList) == 0 {
		return nil, nil
	}

	for _, re := range highRiskRegexList {
		if re.Match(content) {
			logging.InfoLogger.Infof("regex match found for %s (rule: %s)", fileInfo.Path, re.String())
			return &types.Finding{
				AnalyzerName: a.analyzerName,
				Description:  fmt.Sprintf("Matched high-risk regex pattern: %s", re.String()),
				Risk:         types.RiskCritical,
				Confidence:   0.9,
			}, nil
		}
	}

	return nil, nil
}
