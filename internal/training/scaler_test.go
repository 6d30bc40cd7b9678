package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	scaler := &StandardScaler{}
	scaler.Fit([][]float64{
		{1, 10},
		{3, 30},
	})

	require.Equal(t, []float64{2, 20}, scaler.Means)
	assert.InDelta(t, 1.0, scaler.Stds[0], 1e-9)
	assert.InDelta(t, 10.0, scaler.Stds[1], 1e-9)

	row := scaler.TransformRow([]float64{3, 10})
	assert.InDelta(t, 1.0, row[0], 1e-9)
	assert.InDelta(t, -1.0, row[1], 1e-9)
}

// 常量列标准差为0，只做去均值
func TestStandardScaler_ConstantColumn(t *testing.T) {
	scaler := &StandardScaler{}
	scaler.Fit([][]float64{
		{5, 1},
		{5, 2},
	})

	row := scaler.TransformRow([]float64{5, 1.5})
	assert.Equal(t, 0.0, row[0])
	assert.InDelta(t, 0.0, row[1], 1e-9)
}

func TestStandardScaler_TransformDoesNotMutate(t *testing.T) {
	scaler := &StandardScaler{}
	input := [][]float64{{1, 2}, {3, 4}}
	scaler.Fit(input)

	_ = scaler.Transform(input)

	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, input)
}

func TestColumnMinMax(t *testing.T) {
	mins, maxs := columnMinMax([][]float64{
		{1, 9},
		{-3, 4},
		{2, 7},
	})

	assert.Equal(t, []float64{-3, 4}, mins)
	assert.Equal(t, []float64{2, 9}, maxs)

	mins, maxs = columnMinMax(nil)
	assert.Nil(t, mins)
	assert.Nil(t, maxs)
}
