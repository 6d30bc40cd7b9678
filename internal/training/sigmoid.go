/*
 * @Date: 2025-06-06 10:05:44
 * @Description: Sigmoid概率校准参数拟合
 */
package training

import (
	"math"
	"sort"
)

// SigmoidParams 把SVM决策值映射为概率: 1/(1+exp(-a*(x-b)))
type SigmoidParams struct {
	A float64
	B float64
}

// Apply 计算校准后的概率
func (p SigmoidParams) Apply(decision float64) float64 {
	return 1.0 / (1.0 + math.Exp(-p.A*(decision-p.B)))
}

// FitSigmoid 在验证集决策值上用Nelder-Mead最小化交叉熵拟合(a,b)。
// 优化失败时退回初始参数a=1,b=0
func FitSigmoid(decisions []float64, labels []int) SigmoidParams {
	initial := SigmoidParams{A: 1.0, B: 0.0}
	if len(decisions) == 0 || len(decisions) != len(labels) {
		return initial
	}

	loss := func(v []float64) float64 {
		p := SigmoidParams{A: v[0], B: v[1]}
		var total float64
		for i, d := range decisions {
			prob := p.Apply(d)
			// 防止log(0)
			if prob < 1e-15 {
				prob = 1e-15
			} else if prob > 1-1e-15 {
				prob = 1 - 1e-15
			}
			if labels[i] == 1 {
				total -= math.Log(prob)
			} else {
				total -= math.Log(1 - prob)
			}
		}
		return total / float64(len(decisions))
	}

	best, ok := nelderMead(loss, []float64{initial.A, initial.B})
	if !ok || math.IsNaN(best[0]) || math.IsNaN(best[1]) {
		return initial
	}
	return SigmoidParams{A: best[0], B: best[1]}
}

// nelderMead 标准单纯形下山法，目标函数维数由x0决定
func nelderMead(f func([]float64) float64, x0 []float64) ([]float64, bool) {
	const (
		alpha     = 1.0 // 反射
		gamma     = 2.0 // 扩张
		rho       = 0.5 // 收缩
		sigma     = 0.5 // 整体缩减
		maxIter   = 500
		tolerance = 1e-8
	)

	n := len(x0)
	type vertex struct {
		x []float64
		f float64
	}

	simplex := make([]vertex, n+1)
	simplex[0] = vertex{x: append([]float64(nil), x0...), f: f(x0)}
	for i := 0; i < n; i++ {
		x := append([]float64(nil), x0...)
		if x[i] != 0 {
			x[i] *= 1.05
		} else {
			x[i] = 0.00025
		}
		simplex[i+1] = vertex{x: x, f: f(x)}
	}

	for iter := 0; iter < maxIter; iter++ {
		sort.Slice(simplex, func(i, j int) bool { return simplex[i].f < simplex[j].f })
		if math.Abs(simplex[n].f-simplex[0].f) < tolerance {
			break
		}

		// 除最差点外的重心
		centroid := make([]float64, n)
		for _, v := range simplex[:n] {
			for j := range centroid {
				centroid[j] += v.x[j] / float64(n)
			}
		}

		reflect := make([]float64, n)
		for j := range reflect {
			reflect[j] = centroid[j] + alpha*(centroid[j]-simplex[n].x[j])
		}
		fr := f(reflect)

		switch {
		case fr < simplex[0].f:
			expand := make([]float64, n)
			for j := range expand {
				expand[j] = centroid[j] + gamma*(reflect[j]-centroid[j])
			}
			if fe := f(expand); fe < fr {
				simplex[n] = vertex{x: expand, f: fe}
			} else {
				simplex[n] = vertex{x: reflect, f: fr}
			}
		case fr < simplex[n-1].f:
			simplex[n] = vertex{x: reflect, f: fr}
		default:
			contract := make([]float64, n)
			for j := range contract {
				contract[j] = centroid[j] + rho*(simplex[n].x[j]-centroid[j])
			}
			if fc := f(contract); fc < simplex[n].f {
				simplex[n] = vertex{x: contract, f: fc}
			} else {
				for i := 1; i <= n; i++ {
					for j := range simplex[i].x {
						simplex[i].x[j] = simplex[0].x[j] + sigma*(simplex[i].x[j]-simplex[0].x[j])
					}
					simplex[i].f = f(simplex[i].x)
				}
			}
		}
	}

	sort.Slice(simplex, func(i, j int) bool { return simplex[i].f < simplex[j].f })
	if math.IsInf(simplex[0].f, 0) || math.IsNaN(simplex[0].f) {
		return nil, false
	}
	return simplex[0].x, true
}
