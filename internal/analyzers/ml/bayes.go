/*
 * @Date: 2025-06-04 14:21:05
 * @Description: 朴素贝叶斯词袋模型预测
 */
package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// classData 单个类别(normal/webshell)的训练统计
type classData struct {
	DocCount       int            `json:"docCount"`       // 该类别的文档数量
	WordCount      map[string]int `json:"wordCount"`      // 该类别下每个词出现的次数
	TotalWordCount int            `json:"totalWordCount"` // 该类别下所有词的总数
}

// bayesModelData Words.model文件的完整结构
type bayesModelData struct {
	Normal             classData `json:"normal"`
	Webshell           classData `json:"webshell"`
	TotalDocumentCount int       `json:"totalDocumentCount"`
}

// BayesWordsAnalyzer 多项式朴素贝叶斯分类器。平滑用的词表大小是
// 各类别自己的词表，不是全局词表，与训练侧保持一致
type BayesWordsAnalyzer struct {
	analyzerName  string
	model         bayesModelData
	isInitialized bool
}

// NewBayesWordsAnalyzer 从modelPath目录加载Words.model。文件缺失时
// 返回非活动的分析器而不报错，模型损坏才是错误
func NewBayesWordsAnalyzer(modelPath string) (*BayesWordsAnalyzer, error) {
	analyzer := &BayesWordsAnalyzer{
		analyzerName:  "bayes_words",
		isInitialized: false,
	}

	wordModelPath := filepath.Join(modelPath, "Words.model")
	jsonData, err := os.ReadFile(wordModelPath)
	if err != nil {
		logging.WarnLogger.Warnf("无法打开Bayes Words模型文件 %s: %v，分析器将处于非活动状态", wordModelPath, err)
		return analyzer, nil
	}

	if err := json.Unmarshal(jsonData, &analyzer.model); err != nil {
		logging.ErrorLogger.Errorf("无法解析Bayes Words模型JSON: %v", err)
		return nil, fmt.Errorf("解析bayes模型JSON失败: %w", err)
	}

	analyzer.isInitialized = true
	return analyzer, nil
}

// Score 计算词袋属于webshell类的归一化概率。词袋为空、模型未加载或
// 训练数据为空时一律返回0.0(宁可漏报不给出无依据的分数)。
// 词序不影响结果
func (a *BayesWordsAnalyzer) Score(words []string) float64 {
	if !a.isInitialized || len(words) == 0 {
		return 0.0
	}
	if a.model.TotalDocumentCount <= 0 {
		return 0.0
	}

	logNormal, okN := a.classLogPosterior(a.model.Normal, words)
	logWebshell, okW := a.classLogPosterior(a.model.Webshell, words)
	if !okN || !okW {
		return 0.0
	}

	// 指数化前减去最大对数概率，保证数值稳定
	maxLogProb := math.Max(logNormal, logWebshell)
	probNormal := math.Exp(logNormal - maxLogProb)
	probWebshell := math.Exp(logWebshell - maxLogProb)

	totalProb := probNormal + probWebshell
	if totalProb <= 1e-12 {
		return 0.0
	}
	return probWebshell / totalProb
}

// classLogPosterior 单个类别的对数后验：对数先验加上拉普拉斯平滑的
// 对数似然之和
func (a *BayesWordsAnalyzer) classLogPosterior(c classData, words []string) (float64, bool) {
	denominator := float64(c.TotalWordCount + len(c.WordCount))
	if denominator <= 0 {
		return 0, false
	}

	logProb := math.Log(float64(c.DocCount) / float64(a.model.TotalDocumentCount))
	for _, word := range words {
		count := c.WordCount[word]
		logProb += math.Log(float64(count+1) / denominator)
	}
	return logProb, true
}

func (a *BayesWordsAnalyzer) Name() string {
	return a.analyzerName
}

func (a *BayesWordsAnalyzer) RequiredFeatures() []string {
	return []string{"ast_words"}
}

// Analyze 实现Analyzer接口，把词袋评分包装为发现
func (a *BayesWordsAnalyzer) Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error) {
	if !a.isInitialized {
		logging.InfoLogger.Infof("Bayes模型未成功加载，跳过分析文件 %s", fileInfo.Path)
		return nil, nil
	}

	if featureSet == nil || featureSet.ASTWords == nil {
		return nil, fmt.Errorf("BayesWordsAnalyzer: 缺少必需的ast_words特征集")
	}

	words := featureSet.ASTWords
	if len(words) == 0 {
		logging.InfoLogger.Infof("文件 %s 没有提取到任何单词", fileInfo.Path)
		return nil, nil
	}

	confidence := a.Score(words)

	predictedClass := "normal"
	if confidence >= 0.5 {
		predictedClass = "webshell"
	}

	return &types.Finding{
		AnalyzerName: a.Name(),
		Description:  fmt.Sprintf("Bayes Words模型预测为 (类别: %s, 置信度: %.4f)", predictedClass, confidence),
		Risk:         types.RiskMedium,
		Confidence:   confidence,
	}, nil
}
