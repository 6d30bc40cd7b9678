/*
 * @Date: 2025-06-06 11:02:36
 * @Description: 融合SVM模型训练流程
 */
package training

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	libSvm "github.com/CyrusF/libsvm-go"

	"shieldscan/internal/analyzers/ml"
	"shieldscan/pkg/logging"
)

// CostRatio 误报相对漏报的代价比，precision按此指数加权
const CostRatio = 3.0

// TrainSVMModel 完整的SVM训练流程：分层切分 -> 标准化 -> RBF核
// C-SVC训练 -> sigmoid校准 -> 阈值搜索 -> 全量重训 -> 导出模型与
// 校准文件。输出ProcessSVM.model.model和ProcessSVM.model.info两个文件
func TrainSVMModel(ds *Dataset, outputDir string, rng *rand.Rand) error {
	if err := checkBinaryLabels(ds.Y); err != nil {
		return err
	}

	trainX, trainY, valX, valY := stratifiedSplit(ds.X, ds.Y, 0.2, rng)
	logging.InfoLogger.Infof("训练集: %d 样本, 验证集: %d 样本", len(trainX), len(valX))

	// 裁剪范围取自全部数据的原始特征
	mins, maxs := columnMinMax(ds.X)

	scaler := &StandardScaler{}
	scaler.Fit(trainX)
	scaledTrain := scaler.Transform(trainX)
	scaledVal := scaler.Transform(valX)

	param := svmParameter(trainY)
	model, err := trainModel(scaledTrain, trainY, param)
	if err != nil {
		return fmt.Errorf("SVM training failed: %w", err)
	}

	// 验证集决策值用于校准
	decisions := make([]float64, len(scaledVal))
	for i, row := range scaledVal {
		decisions[i] = decisionValue(model, row)
	}

	sigmoid := FitSigmoid(decisions, valY)
	logging.InfoLogger.Infof("Sigmoid校准参数: a=%.4f, b=%.4f", sigmoid.A, sigmoid.B)

	probs := make([]float64, len(decisions))
	for i, d := range decisions {
		probs[i] = sigmoid.Apply(d)
	}
	threshold := FindOptimalThreshold(probs, valY, CostRatio)
	logging.InfoLogger.Infof("最优判定阈值: %.4f", threshold)

	metrics := evaluate(probs, valY, threshold)
	logging.InfoLogger.Infof("验证集指标: precision=%.4f recall=%.4f f1=%.4f fpr=%.4f",
		metrics["precision"], metrics["recall"], metrics["f1"], metrics["fpr"])

	validationSamples := pickValidationSamples(valX, valY, decisions, sigmoid)

	// 用全部数据重训最终模型，校准文件里的均值方差同步更新
	scaler.Fit(ds.X)
	scaledAll := scaler.Transform(ds.X)
	finalModel, err := trainModel(scaledAll, ds.Y, param)
	if err != nil {
		return fmt.Errorf("final SVM training failed: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	modelPath := filepath.Join(outputDir, "ProcessSVM.model.model")
	if err := finalModel.Dump(modelPath); err != nil {
		return fmt.Errorf("failed to dump SVM model: %w", err)
	}

	info := ml.CalibrationInfo{
		FeatureNames: FeatureNames,
		NumFeatures:  NumFeatures,
		FeatureStats: ml.FeatureStats{
			Mins:  mins,
			Maxs:  maxs,
			Means: scaler.Means,
			Stds:  scaler.Stds,
		},
		SigmoidParams:    ml.SigmoidParams{A: sigmoid.A, B: sigmoid.B},
		OptimalThreshold: threshold,
		ClassMapping: map[string]string{
			"0": "normal",
			"1": "webshell",
		},
		ValidationSamples: validationSamples,
	}

	infoPath := filepath.Join(outputDir, "ProcessSVM.model.info")
	infoFile, err := os.Create(infoPath)
	if err != nil {
		return err
	}
	defer infoFile.Close()

	enc := json.NewEncoder(infoFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("failed to write calibration info: %w", err)
	}

	logging.InfoLogger.Infof("模型已保存: %s", modelPath)
	logging.InfoLogger.Infof("校准信息已保存: %s", infoPath)
	return nil
}

// checkBinaryLabels 训练集必须同时包含0和1两类标签
func checkBinaryLabels(y []int) error {
	seen := make(map[int]bool)
	for _, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("unexpected label %d, want 0 (normal) or 1 (webshell)", label)
		}
		seen[label] = true
	}
	if !seen[0] || !seen[1] {
		return fmt.Errorf("training data must contain both normal and webshell samples")
	}
	return nil
}

// stratifiedSplit 按标签分层切分，valRatio为验证集占比
func stratifiedSplit(x [][]float64, y []int, valRatio float64, rng *rand.Rand) (trainX [][]float64, trainY []int, valX [][]float64, valY []int) {
	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	for _, indices := range byClass {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		valCount := int(float64(len(indices)) * valRatio)
		for k, idx := range indices {
			if k < valCount {
				valX = append(valX, x[idx])
				valY = append(valY, y[idx])
			} else {
				trainX = append(trainX, x[idx])
				trainY = append(trainY, y[idx])
			}
		}
	}
	return trainX, trainY, valX, valY
}

// svmParameter RBF核C-SVC，C=10，类别权重按样本量反比平衡
func svmParameter(y []int) *libSvm.Parameter {
	param := libSvm.NewParameter()
	param.SvmType = libSvm.C_SVC
	param.KernelType = libSvm.RBF
	param.C = 10
	param.Gamma = 1.0 / float64(NumFeatures)
	param.QuietMode = true

	var negCount, posCount int
	for _, label := range y {
		if label == 1 {
			posCount++
		} else {
			negCount++
		}
	}
	total := float64(negCount + posCount)
	param.NrWeight = 2
	param.WeightLabel = []int{0, 1}
	param.Weight = []float64{
		total / (2.0 * float64(negCount)),
		total / (2.0 * float64(posCount)),
	}
	return param
}

// trainModel 把样本写成libsvm格式的临时问题文件后训练。
// 库只支持从文件构建Problem
func trainModel(x [][]float64, y []int, param *libSvm.Parameter) (*libSvm.Model, error) {
	problemFile, err := writeProblemFile(x, y)
	if err != nil {
		return nil, err
	}
	defer os.Remove(problemFile)

	problem, err := libSvm.NewProblem(problemFile, param)
	if err != nil {
		return nil, fmt.Errorf("failed to build SVM problem: %w", err)
	}

	model := libSvm.NewModel(param)
	if err := model.Train(problem); err != nil {
		return nil, err
	}
	return model, nil
}

func writeProblemFile(x [][]float64, y []int) (string, error) {
	tmp, err := os.CreateTemp("", "shieldscan-svm-*.problem")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	var sb strings.Builder
	for i, row := range x {
		sb.Reset()
		fmt.Fprintf(&sb, "%d", y[i])
		for j, v := range row {
			fmt.Fprintf(&sb, " %d:%.6f", j+1, v)
		}
		sb.WriteByte('\n')
		if _, err := tmp.WriteString(sb.String()); err != nil {
			os.Remove(tmp.Name())
			return "", err
		}
	}
	return tmp.Name(), nil
}

// decisionValue 单样本的原始SVM决策值
func decisionValue(model *libSvm.Model, row []float64) float64 {
	vector := make(map[int]float64, len(row))
	for j, v := range row {
		vector[j+1] = v
	}
	_, rawValues := model.PredictValues(vector)
	if len(rawValues) == 0 {
		return 0
	}
	return rawValues[0]
}

// evaluate 给定阈值下的验证集指标
func evaluate(probs []float64, labels []int, threshold float64) map[string]float64 {
	var tp, fp, tn, fn int
	for i, p := range probs {
		predicted := p >= threshold
		switch {
		case predicted && labels[i] == 1:
			tp++
		case predicted && labels[i] == 0:
			fp++
		case !predicted && labels[i] == 0:
			tn++
		default:
			fn++
		}
	}

	metrics := map[string]float64{}
	if tp+fp > 0 {
		metrics["precision"] = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		metrics["recall"] = float64(tp) / float64(tp+fn)
	}
	if metrics["precision"]+metrics["recall"] > 0 {
		metrics["f1"] = 2 * metrics["precision"] * metrics["recall"] / (metrics["precision"] + metrics["recall"])
	}
	if fp+tn > 0 {
		metrics["fpr"] = float64(fp) / float64(fp+tn)
	}
	return metrics
}

// pickValidationSamples 每类挑3个决策值最极端的验证样本随模型保存，
// 推理端加载模型后用它们自检决策方向。保存的是未标准化的原始特征
func pickValidationSamples(valX [][]float64, valY []int, decisions []float64, sigmoid SigmoidParams) map[string]ml.ValidationSample {
	samples := make(map[string]ml.ValidationSample)

	type candidate struct {
		value    float64
		position int
	}

	pick := func(label int, className string, wantHighest bool) {
		var candidates []candidate
		for i, y := range valY {
			if y == label {
				candidates = append(candidates, candidate{value: decisions[i], position: i})
			}
		}
		// normal取决策值最小的，webshell取最大的
		sort.Slice(candidates, func(i, j int) bool {
			if wantHighest {
				return candidates[i].value > candidates[j].value
			}
			return candidates[i].value < candidates[j].value
		})
		count := 3
		if len(candidates) < count {
			count = len(candidates)
		}
		for k := 0; k < count; k++ {
			pos := candidates[k].position
			features := append([]float64(nil), valX[pos]...)
			samples[fmt.Sprintf("%s_%d", className, k+1)] = ml.ValidationSample{
				Features:      features,
				RawDecision:   decisions[pos],
				SigmoidScore:  sigmoid.Apply(decisions[pos]),
				ExpectedClass: className,
			}
		}
	}

	pick(0, "normal", false)
	pick(1, "webshell", true)
	return samples
}
