package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindOptimalThreshold_SeparableData(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.8, 0.9}
	labels := []int{0, 0, 1, 1}

	threshold := FindOptimalThreshold(probs, labels, CostRatio)

	// 0.8把两类完美分开且误报率为0
	assert.Equal(t, 0.8, threshold)
}

// 低阈值候选因误报率超过10%被跳过
func TestFindOptimalThreshold_FPRConstraint(t *testing.T) {
	probs := []float64{0.3, 0.4, 0.35, 0.9}
	labels := []int{0, 0, 1, 1}

	threshold := FindOptimalThreshold(probs, labels, CostRatio)

	// 0.3/0.35会把至少一个normal判成webshell(FPR 50%)，
	// 唯一合法候选是0.9
	assert.Equal(t, 0.9, threshold)
}

func TestFindOptimalThreshold_Fallbacks(t *testing.T) {
	// 空输入
	assert.Equal(t, 0.5, FindOptimalThreshold(nil, nil, CostRatio))
	// 长度不一致
	assert.Equal(t, 0.5, FindOptimalThreshold([]float64{0.5}, []int{1, 0}, CostRatio))
	// 只有一类
	assert.Equal(t, 0.5, FindOptimalThreshold([]float64{0.5, 0.6}, []int{1, 1}, CostRatio))
}

func TestFindOptimalThreshold_PicksLowestPerfectCandidate(t *testing.T) {
	probs := []float64{0.1, 0.55, 0.6, 0.7}
	labels := []int{0, 0, 1, 1}

	threshold := FindOptimalThreshold(probs, labels, CostRatio)

	// 0.55及以下都有误报，0.6和0.7都能完美分类，
	// 扫描顺序从小到大且同分不替换，取0.6
	assert.Equal(t, 0.6, threshold)
}
