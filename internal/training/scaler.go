/*
 * @Date: 2025-06-06 09:32:10
 * @Description: 特征标准化(零均值单位方差)
 */
package training

import "math"

// StandardScaler 按列做z-score标准化。Fit记录每列的均值与总体标准差，
// 标准差为0的列在Transform时原样保留均值差0
type StandardScaler struct {
	Means []float64
	Stds  []float64
}

// Fit 在数据集上计算每列均值和标准差
func (s *StandardScaler) Fit(x [][]float64) {
	if len(x) == 0 {
		return
	}
	dims := len(x[0])
	s.Means = make([]float64, dims)
	s.Stds = make([]float64, dims)

	for j := 0; j < dims; j++ {
		var sum float64
		for i := range x {
			sum += x[i][j]
		}
		mean := sum / float64(len(x))

		var sqSum float64
		for i := range x {
			d := x[i][j] - mean
			sqSum += d * d
		}
		s.Means[j] = mean
		s.Stds[j] = math.Sqrt(sqSum / float64(len(x)))
	}
}

// Transform 返回标准化后的副本，不修改输入
func (s *StandardScaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = s.TransformRow(x[i])
	}
	return out
}

func (s *StandardScaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j < len(s.Stds) && s.Stds[j] > 0 {
			out[j] = (v - s.Means[j]) / s.Stds[j]
		} else if j < len(s.Means) {
			out[j] = v - s.Means[j]
		} else {
			out[j] = v
		}
	}
	return out
}

// columnMinMax 统计每列的最小最大值，训练后与均值方差一起
// 写入校准文件供推理端裁剪异常输入
func columnMinMax(x [][]float64) (mins, maxs []float64) {
	if len(x) == 0 {
		return nil, nil
	}
	dims := len(x[0])
	mins = make([]float64, dims)
	maxs = make([]float64, dims)
	copy(mins, x[0])
	copy(maxs, x[0])
	for _, row := range x[1:] {
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}
	return mins, maxs
}
