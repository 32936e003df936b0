// Package spline 提供曲线拟合用的三次样条插值：自然三次样条与单调（Fritsch-Carlson）三次样条。
// 两者均为纯数值工具，不依赖任何外部库，可安全并发读取。
package spline

import (
	"fmt"
	"math"
	"sort"
)

// NaturalCubic 自然三次样条
// 两端点二阶导数为零；定义域外沿边界区间的三次多项式外推。
type NaturalCubic struct {
	xs []float64
	ys []float64
	m  []float64 // 节点处二阶导数
}

// NewNaturalCubic 构造自然三次样条
// 要求 len(xs) == len(ys) 且节点数不少于 2，否则返回错误。
func NewNaturalCubic(xs, ys []float64) (*NaturalCubic, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline: xs/ys length mismatch: %d != %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("spline: need at least 2 points, got %d", len(xs))
	}

	n := len(xs)
	cx := make([]float64, n)
	cy := make([]float64, n)
	copy(cx, xs)
	copy(cy, ys)

	s := &NaturalCubic{xs: cx, ys: cy}
	s.m = solveNaturalSecondDerivatives(cx, cy)
	return s, nil
}

// solveNaturalSecondDerivatives 三对角回代求解节点二阶导数（自然边界条件）
func solveNaturalSecondDerivatives(xs, ys []float64) []float64 {
	n := len(xs)
	m := make([]float64, n)
	if n == 2 {
		return m
	}

	// Thomas 算法的前向消元系数
	u := make([]float64, n)
	z := make([]float64, n)
	for i := 1; i < n-1; i++ {
		h0 := xs[i] - xs[i-1]
		h1 := xs[i+1] - xs[i]
		alpha := 3*(ys[i+1]-ys[i])/h1 - 3*(ys[i]-ys[i-1])/h0
		l := 2*(xs[i+1]-xs[i-1]) - h0*u[i-1]
		u[i] = h1 / l
		z[i] = (alpha - h0*z[i-1]) / l
	}
	for i := n - 2; i >= 1; i-- {
		m[i] = z[i] - u[i]*m[i+1]
	}
	return m
}

// Evaluate 求样条在 x 处的值
// x 超出节点范围时，按最近的边界区间三次多项式外推（不做零阶保持）。
func (s *NaturalCubic) Evaluate(x float64) float64 {
	i := bracket(s.xs, x)

	h := s.xs[i+1] - s.xs[i]
	a := (s.xs[i+1] - x) / h
	b := (x - s.xs[i]) / h
	return a*s.ys[i] + b*s.ys[i+1] +
		((a*a*a-a)*s.m[i]+(b*b*b-b)*s.m[i+1])*(h*h)/6
}

// Bump 返回所有 y 值平移 amount 后的新样条，用于平行波动率冲击。
func (s *NaturalCubic) Bump(amount float64) *NaturalCubic {
	ys := make([]float64, len(s.ys))
	for i, y := range s.ys {
		ys[i] = y + amount
	}
	// 平移不改变曲率，二阶导数直接复用
	m := make([]float64, len(s.m))
	copy(m, s.m)
	xs := make([]float64, len(s.xs))
	copy(xs, s.xs)
	return &NaturalCubic{xs: xs, ys: ys, m: m}
}

// Domain 返回样条的观测定义域 [min, max]。
func (s *NaturalCubic) Domain() (float64, float64) {
	return s.xs[0], s.xs[len(s.xs)-1]
}

// Knots 返回节点横坐标的副本。
func (s *NaturalCubic) Knots() []float64 {
	out := make([]float64, len(s.xs))
	copy(out, s.xs)
	return out
}

// Values 返回节点纵坐标的副本。
func (s *NaturalCubic) Values() []float64 {
	out := make([]float64, len(s.ys))
	copy(out, s.ys)
	return out
}

// MonotoneCubic 单调三次 Hermite 样条（Fritsch-Carlson 修正）
// 用于曲线单调性是业务不变量的场合，如期限方向严格递增的波动率。
type MonotoneCubic struct {
	xs     []float64
	ys     []float64
	slopes []float64
}

// NewMonotoneCubic 构造单调三次样条
// 要求 xs 严格递增且节点数不少于 2。
func NewMonotoneCubic(xs, ys []float64) (*MonotoneCubic, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline: xs/ys length mismatch: %d != %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("spline: need at least 2 points, got %d", len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("spline: xs must be strictly increasing at index %d", i)
		}
	}

	n := len(xs)
	cx := make([]float64, n)
	cy := make([]float64, n)
	copy(cx, xs)
	copy(cy, ys)

	// 割线斜率
	d := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		d[i] = (cy[i+1] - cy[i]) / (cx[i+1] - cx[i])
	}

	// 端点取割线斜率，内点取相邻割线均值
	ms := make([]float64, n)
	ms[0] = d[0]
	ms[n-1] = d[n-2]
	for i := 1; i < n-1; i++ {
		ms[i] = (d[i-1] + d[i]) / 2
	}

	// Fritsch-Carlson 单调性修正
	for i := 0; i < n-1; i++ {
		if d[i] == 0 {
			ms[i] = 0
			ms[i+1] = 0
			continue
		}
		a := ms[i] / d[i]
		b := ms[i+1] / d[i]
		r := math.Hypot(a, b)
		if r > 3 {
			t := 3 / r
			ms[i] = t * a * d[i]
			ms[i+1] = t * b * d[i]
		}
	}

	return &MonotoneCubic{xs: cx, ys: cy, slopes: ms}, nil
}

// Evaluate 求样条在 x 处的值
// 定义域外使用边界斜率线性外推，与自然样条的边界多项式外推策略不同，
// 以保证外推段不破坏单调性。
func (s *MonotoneCubic) Evaluate(x float64) float64 {
	n := len(s.xs)
	if x <= s.xs[0] {
		return s.ys[0] + s.slopes[0]*(x-s.xs[0])
	}
	if x >= s.xs[n-1] {
		return s.ys[n-1] + s.slopes[n-1]*(x-s.xs[n-1])
	}

	i := bracket(s.xs, x)
	h := s.xs[i+1] - s.xs[i]
	t := (x - s.xs[i]) / h

	h00 := (1 + 2*t) * (1 - t) * (1 - t)
	h10 := t * (1 - t) * (1 - t)
	h01 := t * t * (3 - 2*t)
	h11 := t * t * (t - 1)
	return h00*s.ys[i] + h10*h*s.slopes[i] + h01*s.ys[i+1] + h11*h*s.slopes[i+1]
}

// Bump 返回所有 y 值平移 amount 后的新样条。
func (s *MonotoneCubic) Bump(amount float64) *MonotoneCubic {
	ys := make([]float64, len(s.ys))
	for i, y := range s.ys {
		ys[i] = y + amount
	}
	xs := make([]float64, len(s.xs))
	copy(xs, s.xs)
	// 平移保持斜率不变
	slopes := make([]float64, len(s.slopes))
	copy(slopes, s.slopes)
	return &MonotoneCubic{xs: xs, ys: ys, slopes: slopes}
}

// Domain 返回样条的观测定义域 [min, max]。
func (s *MonotoneCubic) Domain() (float64, float64) {
	return s.xs[0], s.xs[len(s.xs)-1]
}

// bracket 二分查找 x 所在区间的左端索引，越界时钳制到最近的边界区间。
func bracket(xs []float64, x float64) int {
	n := len(xs)
	i := sort.SearchFloat64s(xs, x) - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	return i
}
