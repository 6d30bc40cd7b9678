package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitSigmoid_SeparableData(t *testing.T) {
	decisions := []float64{-3, -2, -1.5, 1.5, 2, 3}
	labels := []int{0, 0, 0, 1, 1, 1}

	params := FitSigmoid(decisions, labels)

	// 方向必须正确：正决策值映射为高概率
	assert.Greater(t, params.A, 0.0)
	assert.Greater(t, params.Apply(3), 0.5)
	assert.Less(t, params.Apply(-3), 0.5)
	assert.Greater(t, params.Apply(3), params.Apply(1))
}

func TestFitSigmoid_EmptyFallsBackToDefault(t *testing.T) {
	params := FitSigmoid(nil, nil)

	assert.Equal(t, 1.0, params.A)
	assert.Equal(t, 0.0, params.B)
}

func TestFitSigmoid_MismatchedLengths(t *testing.T) {
	params := FitSigmoid([]float64{1, 2}, []int{1})

	assert.Equal(t, 1.0, params.A)
	assert.Equal(t, 0.0, params.B)
}

func TestSigmoidParams_Apply(t *testing.T) {
	p := SigmoidParams{A: 1.0, B: 0.0}

	assert.InDelta(t, 0.5, p.Apply(0), 1e-9)
	assert.Greater(t, p.Apply(5), 0.99)
	assert.Less(t, p.Apply(-5), 0.01)
}

func TestNelderMead_Quadratic(t *testing.T) {
	f := func(v []float64) float64 {
		dx := v[0] - 2
		dy := v[1] + 1
		return dx*dx + dy*dy
	}

	best, ok := nelderMead(f, []float64{0, 0})

	assert.True(t, ok)
	assert.InDelta(t, 2.0, best[0], 1e-2)
	assert.InDelta(t, -1.0, best[1], 1e-2)
}
