/*
 * @Date: 2025-06-06 10:28:17
 * @Description: 代价敏感的最优判定阈值搜索
 */
package training

import (
	"math"
	"sort"
)

// FindOptimalThreshold 在验证集概率上扫描判定阈值，最大化
// 代价加权F1: 2*P'*R/(P'+R)，其中P'=precision^costRatio。
// costRatio>1时误报比漏报的惩罚更重。误报率超过10%的候选
// 直接跳过。没有可用候选时退回0.5
func FindOptimalThreshold(probs []float64, labels []int, costRatio float64) float64 {
	const fallback = 0.5
	if len(probs) == 0 || len(probs) != len(labels) {
		return fallback
	}

	var totalPos, totalNeg int
	for _, y := range labels {
		if y == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return fallback
	}

	// 候选阈值取所有出现过的概率值
	candidates := append([]float64(nil), probs...)
	sort.Float64s(candidates)

	bestThreshold := fallback
	bestScore := -1.0

	for _, t := range candidates {
		var tp, fp, fn int
		for i, p := range probs {
			predicted := p >= t
			switch {
			case predicted && labels[i] == 1:
				tp++
			case predicted && labels[i] == 0:
				fp++
			case !predicted && labels[i] == 1:
				fn++
			}
		}

		if float64(fp)/float64(totalNeg) >= 0.10 {
			continue
		}
		if tp+fp == 0 {
			continue
		}
		precision := float64(tp) / float64(tp+fp)
		if precision == 0 {
			continue
		}
		recall := float64(tp) / float64(tp+fn)

		weighted := math.Pow(precision, costRatio)
		if weighted+recall == 0 {
			continue
		}
		score := 2 * weighted * recall / (weighted + recall)
		if score > bestScore {
			bestScore = score
			bestThreshold = t
		}
	}

	return bestThreshold
}
