/*
 * @Date: 2025-06-06 09:10:31
 * @Description: 训练数据集加载与特征提取
 */
package training

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"shieldscan/internal/analyzers/ml"
	"shieldscan/internal/ast"
	"shieldscan/internal/bridge"
	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
)

// NumFeatures 融合模型的特征维数：8个统计特征加Bayes评分
const NumFeatures = 9

// FeatureNames 特征固定顺序
var FeatureNames = []string{"LM", "LVC", "WM", "WVC", "SR", "TR", "SPL", "IE", "BAYES"}

// Dataset 已提取特征的训练集。标签0为normal，1为webshell
type Dataset struct {
	X [][]float64
	Y []int
}

// LoadDataset 从正常/webshell两个样本目录构建平衡数据集。
// 样本多的一侧随机下采样到与另一侧相同，之后整体打乱
func LoadDataset(goodDir, badDir string, bayes *ml.BayesWordsAnalyzer, parser bridge.Parser, rng *rand.Rand) (*Dataset, error) {
	goodFiles, err := listPhpFiles(goodDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list normal samples: %w", err)
	}
	badFiles, err := listPhpFiles(badDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list webshell samples: %w", err)
	}

	logging.InfoLogger.Infof("找到正常文件: %d, Webshell文件: %d", len(goodFiles), len(badFiles))
	if len(goodFiles) == 0 || len(badFiles) == 0 {
		return nil, fmt.Errorf("both sample directories must contain php files")
	}

	minSamples := len(goodFiles)
	if len(badFiles) < minSamples {
		minSamples = len(badFiles)
	}
	goodFiles = sampleFiles(goodFiles, minSamples, rng)
	badFiles = sampleFiles(badFiles, minSamples, rng)

	type labeled struct {
		path  string
		label int
	}
	all := make([]labeled, 0, len(goodFiles)+len(badFiles))
	for _, f := range goodFiles {
		all = append(all, labeled{f, 0})
	}
	for _, f := range badFiles {
		all = append(all, labeled{f, 1})
	}
	rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})

	ds := &Dataset{
		X: make([][]float64, 0, len(all)),
		Y: make([]int, 0, len(all)),
	}

	for i, sample := range all {
		vector := ExtractFeatureVector(sample.path, bayes, parser)
		ds.X = append(ds.X, vector)
		ds.Y = append(ds.Y, sample.label)
		if (i+1)%10 == 0 {
			logging.InfoLogger.Infof("已处理 %d/%d 文件...", i+1, len(all))
		}
	}

	return ds, nil
}

// ExtractFeatureVector 为单个样本提取9维特征向量。
// 任何环节失败都回落为全零向量，保证训练流程不中断
func ExtractFeatureVector(path string, bayes *ml.BayesWordsAnalyzer, parser bridge.Parser) []float64 {
	vector := make([]float64, NumFeatures)

	content, err := os.ReadFile(path)
	if err != nil {
		logging.WarnLogger.Warnf("警告: 读取文件失败 %s: %v，使用空特征", path, err)
		return vector
	}

	sf := features.CalculateStatisticalFeatures(content)
	copy(vector, sf.Vector())

	var bayesScore float64
	if parser != nil && bayes != nil {
		parseResult, parseErr := parser.Parse(content)
		if parseErr == nil && parseResult.HasAST {
			words := ast.ExtractWords(ast.Normalize(parseResult.AST), nil)
			bayesScore = bayes.Score(words)
		} else if parseErr != nil {
			logging.WarnLogger.Warnf("提取AST词袋时出错 %s: %v", path, parseErr)
		}
	}
	vector[8] = roundSix(bayesScore)

	return vector
}

func roundSix(v float64) float64 {
	scaled := v * 1e6
	if scaled >= 0 {
		return float64(int64(scaled+0.5)) / 1e6
	}
	return float64(int64(scaled-0.5)) / 1e6
}

func listPhpFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".php" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// sampleFiles 随机抽取n个文件(n不小于len时原样返回)
func sampleFiles(files []string, n int, rng *rand.Rand) []string {
	if len(files) <= n {
		return files
	}
	shuffled := make([]string, len(files))
	copy(shuffled, files)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
