/*
 * @Date: 2025-06-04 11:05:12
 * @Description: 统计特征提取，基于CloudWalker实现
 */
package features

import (
	"math"
	"regexp"
	"strings"

	"github.com/grd/stat"
)

var (
	symbolReg    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	tagReg       = regexp.MustCompile(`<[\x00-\xFF]*?>`)
	statementReg = regexp.MustCompile(`;`)
)

// CalculateStatisticalFeatures 计算给定内容的全部8个统计特征
func CalculateStatisticalFeatures(content []byte) StatisticalFeatures {
	var sf StatisticalFeatures
	src := string(content)

	sf.LM = roundToSix(float64(lineMax(src)))
	sf.LVC = roundToSix(lineVariationCoefficient(src))
	sf.WM = roundToSix(float64(wordMax(src)))
	sf.WVC = roundToSix(wordVariationCoefficient(src))
	sf.SR = roundToSix(symbolRatio(src))
	sf.TR = roundToSix(tagRatio(src))
	sf.SPL = roundToSix(statementPerLine(src))
	sf.IE = roundToSix(infomationEntropy(src))

	return sf
}

// roundToSix 保留6位小数
func roundToSix(value float64) float64 {
	multiplier := math.Pow(10, 6)
	return math.Round(value*multiplier) / multiplier
}

// statLines 每行字符数
func statLines(src string) []int64 {
	var result []int64
	splitResult := strings.Split(src, "\n")
	for _, v := range splitResult {
		result = append(result, int64(len(v)))
	}
	return result
}

// lineMax 每行字符数的最大值
func lineMax(src string) int64 {
	lines := stat.IntSlice(statLines(src))
	if len(lines) > 0 {
		result, _ := stat.Max(lines)
		return int64(result)
	}
	return 0
}

// lineVariationCoefficient 每行字符数的变异系数
func lineVariationCoefficient(src string) float64 {
	lines := stat.IntSlice(statLines(src))
	if len(lines) <= 1 || stat.Mean(lines) == 0 {
		return 0.0
	}
	return math.Sqrt(stat.Variance(lines)) / stat.Mean(lines)
}

// statWords 提取各单词长度，单词定义为连续的字母数字
func statWords(src string) []int64 {
	var result []int64
	l := int64(0)

	for _, c := range src {
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			l++
		} else if l != 0 {
			result = append(result, l)
			l = 0
		}
	}

	if l != 0 {
		result = append(result, l)
	}

	return result
}

// wordMax 单词长度的最大值
func wordMax(src string) int64 {
	words := stat.IntSlice(statWords(src))
	if len(words) > 0 {
		result, _ := stat.Max(words)
		return int64(result)
	}
	return 0
}

// wordVariationCoefficient 单词长度的变异系数，沿用CloudWalker乘100
func wordVariationCoefficient(src string) float64 {
	words := stat.IntSlice(statWords(src))
	if len(words) <= 1 || stat.Mean(words) == 0 {
		return 0.0
	}
	return math.Sqrt(stat.Variance(words)) / stat.Mean(words) * 100
}

// symbolRatio 非字母数字字符占比
func symbolRatio(src string) float64 {
	if len(src) == 0 {
		return 0.0
	}

	symbolNumber := len(symbolReg.FindAllString(src, -1))

	return float64(symbolNumber) / float64(len(src)) * 100
}

// tagRatio 尖括号标签数与单词数之比
func tagRatio(src string) float64 {
	tagNumber := len(tagReg.FindAllString(src, -1))

	words := statWords(src)
	wordCount := float64(len(words))
	if wordCount == 0.0 {
		return 0.0
	}

	return float64(tagNumber) / wordCount * 100
}

// statementPerLine 分号数与行数之比
func statementPerLine(src string) float64 {
	statementNumber := len(statementReg.FindAllString(src, -1))

	lines := statLines(src)
	lineCount := float64(len(lines))
	if lineCount == 0.0 {
		return 0.0
	}

	return float64(statementNumber) / float64(lineCount)
}

// infomationEntropy 字节值分布的香农熵(bit)，换行符不计入
func infomationEntropy(src string) float64 {
	var lst [256]float64
	chrs := 0.00

	for _, chr := range src {
		if 0 <= chr && chr < 256 && chr != '\n' {
			lst[chr]++
			chrs++
		}
	}

	var entropy float64
	for i := 0; i < 256; i++ {
		if lst[i] > 0 {
			probability := lst[i] / chrs
			entropy -= probability * math.Log2(probability)
		}
	}

	return entropy
}
