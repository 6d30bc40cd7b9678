/*
 * @Date: 2025-06-05 09:37:28
 * @Description: 融合8大统计特征+朴素贝叶斯评分的SVM模型预测
 */
package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	libSvm "github.com/CyrusF/libsvm-go"

	"shieldscan/internal/ast"
	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// DefaultThreshold 校准信息缺失或非法时使用的webshell判定阈值
const DefaultThreshold = 0.7

// CalibrationInfo SVM模型的校准信息(训练时写出的.info文件)
type CalibrationInfo struct {
	FeatureNames      []string                    `json:"feature_names"`
	NumFeatures       int                         `json:"num_features"`
	FeatureStats      FeatureStats                `json:"feature_stats"`
	SigmoidParams     SigmoidParams               `json:"sigmoid_params"`
	OptimalThreshold  float64                     `json:"optimal_threshold"`
	ClassMapping      map[string]string           `json:"class_mapping"`
	ValidationSamples map[string]ValidationSample `json:"validation_samples"`
}

// FeatureStats 训练集上各特征的统计信息，用于推理时标准化
type FeatureStats struct {
	Mins  []float64 `json:"mins"`
	Maxs  []float64 `json:"maxs"`
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// SigmoidParams 决策值到概率的sigmoid映射参数
type SigmoidParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// ValidationSample 随模型保存的验证样本
type ValidationSample struct {
	Features      []float64 `json:"features"`
	RawDecision   float64   `json:"raw_decision"`
	SigmoidScore  float64   `json:"sigmoid_score"`
	ExpectedClass string    `json:"expected_class"`
}

// SvmProssesAnalyzer 融合模型分析器：8个统计特征加Bayes评分组成
// 9维向量，经标准化后送入RBF核SVM，决策值经sigmoid校准为概率
type SvmProssesAnalyzer struct {
	modelPath           string
	model               *libSvm.Model
	bayesModel          *BayesWordsAnalyzer
	isInitialized       bool
	featureNames        []string
	calibration         CalibrationInfo
	validationPerformed bool
	validationPassed    bool
}

// NewSvmProssesAnalyzer 加载校准信息、Bayes模型和SVM模型。
// 任何模型文件缺失都只让分析器处于非活动状态，不阻断其他分析器
func NewSvmProssesAnalyzer(modelPath string) (*SvmProssesAnalyzer, error) {
	analyzer := &SvmProssesAnalyzer{
		modelPath:     modelPath,
		isInitialized: false,
		featureNames:  []string{"LM", "LVC", "WM", "WVC", "SR", "TR", "SPL", "IE", "BAYES"},
	}
	analyzer.calibration.OptimalThreshold = DefaultThreshold

	// 1. 加载校准信息
	infoFilePath := filepath.Join(modelPath, "ProcessSVM.model.info")
	infoData, err := os.ReadFile(infoFilePath)
	if err != nil {
		logging.WarnLogger.Warnf("加载SVM校准信息失败: %v，分析器将处于非活动状态", err)
		return analyzer, nil
	}
	if err := analyzer.loadCalibrationInfo(infoData); err != nil {
		logging.ErrorLogger.Errorf("解析SVM校准信息失败: %v", err)
		return analyzer, nil
	}

	// 2. 加载朴素贝叶斯模型(第9维特征来源)
	bayesModel, err := NewBayesWordsAnalyzer(modelPath)
	if err != nil {
		logging.WarnLogger.Warnf("加载朴素贝叶斯模型失败: %v，可能无法获取所有特征", err)
	}
	analyzer.bayesModel = bayesModel

	// 3. 加载SVM模型
	modelFilePath := filepath.Join(modelPath, "ProcessSVM.model.model")
	modelData, err := os.ReadFile(modelFilePath)
	if err != nil {
		logging.WarnLogger.Warnf("读取SVM模型文件失败: %v", err)
		return analyzer, nil
	}

	analyzer.model = libSvm.NewModelFromFileStream(bytes.NewReader(modelData))
	if analyzer.model == nil {
		logging.ErrorLogger.Errorf("SVM模型加载失败，返回值为nil")
		return analyzer, nil
	}

	analyzer.isInitialized = true
	analyzer.validateModel()

	return analyzer, nil
}

// loadCalibrationInfo 解析校准JSON并修正其中的非法值
func (s *SvmProssesAnalyzer) loadCalibrationInfo(data []byte) error {
	if err := json.Unmarshal(data, &s.calibration); err != nil {
		return err
	}

	if len(s.calibration.FeatureNames) == 0 || s.calibration.NumFeatures == 0 {
		return fmt.Errorf("校准信息不完整：特征名称或数量缺失")
	}

	if s.calibration.SigmoidParams.A == 0 {
		logging.WarnLogger.Warnf("Sigmoid参数A为0，设置为默认值1.0")
		s.calibration.SigmoidParams.A = 1.0
	}

	if s.calibration.OptimalThreshold <= 0 || s.calibration.OptimalThreshold >= 1 {
		logging.WarnLogger.Warnf("最优阈值无效(%.4f)，设置为默认值%.2f", s.calibration.OptimalThreshold, DefaultThreshold)
		s.calibration.OptimalThreshold = DefaultThreshold
	}

	if len(s.calibration.FeatureStats.Means) < s.calibration.NumFeatures {
		return fmt.Errorf("特征统计信息不完整：均值缺失")
	}
	if len(s.calibration.FeatureStats.Stds) < s.calibration.NumFeatures {
		return fmt.Errorf("特征统计信息不完整：标准差缺失")
	}

	if len(s.calibration.FeatureNames) >= len(s.featureNames) {
		s.featureNames = s.calibration.FeatureNames
	}

	logging.InfoLogger.Infof("成功加载SVM校准信息，最佳阈值: %.4f, Sigmoid参数: a=%.4f, b=%.4f",
		s.calibration.OptimalThreshold, s.calibration.SigmoidParams.A, s.calibration.SigmoidParams.B)
	return nil
}

// validateModel 用随模型保存的验证样本检查推理一致性。
// 方向性错误或准确率过低时标记validationPassed=false
func (s *SvmProssesAnalyzer) validateModel() {
	if !s.isInitialized || s.model == nil {
		return
	}

	s.validationPerformed = true
	s.validationPassed = true

	if len(s.calibration.ValidationSamples) == 0 {
		logging.WarnLogger.Warnf("没有验证样本，跳过验证")
		return
	}

	correctCount := 0
	totalCount := 0

	for sampleName, sample := range s.calibration.ValidationSamples {
		vector := make(map[int]float64)
		for i, val := range sample.Features {
			vector[i+1] = val // libsvm特征索引从1开始
		}

		_, rawValues := s.model.PredictValues(vector)
		if len(rawValues) == 0 {
			logging.WarnLogger.Warnf("样本 %s 预测失败：没有决策值", sampleName)
			continue
		}

		rawScore := rawValues[0]
		sigmoidScore := s.applySigmoid(rawScore)

		predictedClass := "normal"
		if sigmoidScore >= s.calibration.OptimalThreshold {
			predictedClass = "webshell"
		}

		totalCount++
		if predictedClass == sample.ExpectedClass {
			correctCount++
			continue
		}

		logging.WarnLogger.Warnf("验证样本 %s 预测错误: 期望=%s, 实际=%s, 分数=%.4f (原始决策值=%.4f)",
			sampleName, sample.ExpectedClass, predictedClass, sigmoidScore, rawScore)

		expectedSign := 1.0
		if sample.ExpectedClass == "normal" {
			expectedSign = -1.0
		}
		actualSign := 1.0
		if rawScore < 0 {
			actualSign = -1.0
		}
		if expectedSign != actualSign {
			logging.ErrorLogger.Errorf("验证失败: 模型决策方向与预期不符，可能需要反转决策")
			s.validationPassed = false
		}
	}

	if totalCount > 0 {
		accuracy := float64(correctCount) / float64(totalCount)
		logging.InfoLogger.Infof("模型验证完成: 准确率=%.2f (%d/%d)", accuracy, correctCount, totalCount)
		if accuracy < 0.5 {
			logging.WarnLogger.Warnf("验证准确率过低(%.2f)，模型可能存在问题", accuracy)
			s.validationPassed = false
		}
	}
}

func (s *SvmProssesAnalyzer) Name() string {
	return "svm_prosses"
}

func (s *SvmProssesAnalyzer) RequiredFeatures() []string {
	return []string{"statistical", "ast_words"}
}

// Threshold 当前生效的webshell判定阈值
func (s *SvmProssesAnalyzer) Threshold() float64 {
	return s.calibration.OptimalThreshold
}

// Analyze 实现Analyzer接口，分数过阈值时产出发现
func (s *SvmProssesAnalyzer) Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error) {
	if !s.isInitialized || s.model == nil {
		logging.InfoLogger.Infof("SVM Prosses分析器未初始化或模型为空，跳过分析: %s", fileInfo.Path)
		return nil, nil
	}

	if featureSet == nil || featureSet.Statistical == nil {
		logging.WarnLogger.Warnf("缺少必要的统计特征，无法进行SVM分析: %s", fileInfo.Path)
		return nil, fmt.Errorf("SvmProssesAnalyzer: 缺少必需的statistical特征集")
	}

	vector := s.extractFeatures(featureSet)
	score, rawScore := s.predict(vector)

	if score >= s.calibration.OptimalThreshold {
		return &types.Finding{
			AnalyzerName: s.Name(),
			Description:  fmt.Sprintf("融合特征分析检测到可疑代码 (8大统计特征+朴素贝叶斯评分: %.4f, 原始决策值: %.4f)", score, rawScore),
			Risk:         types.RiskHigh,
			Confidence:   score,
		}, nil
	}

	return nil, nil
}

// Detect 计算融合模型检测结果。分析器非活动时返回nil。
// 空文件不经过模型，直接判定为normal
func (s *SvmProssesAnalyzer) Detect(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) *types.DetectionResult {
	if !s.isInitialized || s.model == nil {
		return nil
	}

	threshold := s.calibration.OptimalThreshold
	if len(content) == 0 || featureSet == nil || featureSet.Statistical == nil {
		return &types.DetectionResult{
			Score:     0.0,
			Threshold: threshold,
			Verdict:   types.VerdictNormal,
		}
	}

	vector := s.extractFeatures(featureSet)
	score, _ := s.predict(vector)

	return &types.DetectionResult{
		Score:                     score,
		Threshold:                 threshold,
		Verdict:                   verdictFor(score, threshold),
		MatchedDangerousFunctions: ast.MatchedDangerous(featureSet.ASTWords),
	}
}

// verdictFor 分数到判定档位的映射
func verdictFor(score, threshold float64) types.Verdict {
	switch {
	case score >= threshold:
		return types.VerdictWebshell
	case score >= 0.5:
		return types.VerdictSuspicious
	case score >= 0.25:
		return types.VerdictLowRisk
	default:
		return types.VerdictNormal
	}
}

// extractFeatures 组装9维特征向量(libsvm索引从1开始)：
// 8个统计特征加Bayes词袋评分，逐维标准化
func (s *SvmProssesAnalyzer) extractFeatures(featureSet *features.FeatureSet) map[int]float64 {
	vector := make(map[int]float64)

	statVector := featureSet.Statistical.Vector()
	for i, val := range statVector {
		vector[i+1] = s.normalizeFeature(val, i)
	}

	// Bayes评分作为第9维，词袋为空时按0.0计
	var bayesScore float64
	if s.bayesModel != nil {
		bayesScore = s.bayesModel.Score(featureSet.ASTWords)
	} else {
		logging.InfoLogger.Infof("朴素贝叶斯模型不可用，Bayes评分按0.0计")
	}
	vector[9] = s.normalizeFeature(bayesScore, 8)

	return vector
}

// normalizeFeature z-score标准化。截断时允许超出训练集范围0.5倍
// 的余量，避免线上极端值把决策值推到离谱的位置
func (s *SvmProssesAnalyzer) normalizeFeature(value float64, idx int) float64 {
	if len(s.calibration.FeatureStats.Means) <= idx || len(s.calibration.FeatureStats.Stds) <= idx {
		return value
	}

	mean := s.calibration.FeatureStats.Means[idx]
	std := s.calibration.FeatureStats.Stds[idx]

	if len(s.calibration.FeatureStats.Mins) > idx && len(s.calibration.FeatureStats.Maxs) > idx {
		min := s.calibration.FeatureStats.Mins[idx]
		max := s.calibration.FeatureStats.Maxs[idx]

		extendedMin := min - 0.5*(max-min)
		extendedMax := max + 0.5*(max-min)

		if value < extendedMin {
			value = extendedMin
		} else if value > extendedMax {
			value = extendedMax
		}
	}

	if std > 0 {
		return (value - mean) / std
	}
	return 0.0
}

// predict 执行SVM预测并把决策值校准为概率
func (s *SvmProssesAnalyzer) predict(vector map[int]float64) (float64, float64) {
	if s.model == nil {
		logging.WarnLogger.Warnf("SVM模型未初始化，返回默认分数0.5")
		return 0.5, 0.0
	}

	_, result := s.model.PredictValues(vector)
	if len(result) == 0 {
		return 0.5, 0.0
	}

	rawScore := result[0]
	if s.validationPerformed && !s.validationPassed {
		rawScore = -rawScore
	}

	return s.applySigmoid(rawScore), rawScore
}

// applySigmoid 1/(1+exp(-a*(x-b)))
func (s *SvmProssesAnalyzer) applySigmoid(rawScore float64) float64 {
	a := s.calibration.SigmoidParams.A
	b := s.calibration.SigmoidParams.B
	return 1.0 / (1.0 + math.Exp(-a*(rawScore-b)))
}

// Close 释放模型引用
func (s *SvmProssesAnalyzer) Close() error {
	s.model = nil
	s.bayesModel = nil
	return nil
}
