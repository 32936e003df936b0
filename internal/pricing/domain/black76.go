// Package domain 定价引擎的领域层：Black-76 模型、隐含波动率求解、
// 波动率偏斜/曲面构建与基于数值差分的希腊字母计算。
package domain

import (
	"fmt"
	"math"
)

// OptionType 期权方向
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// Abramowitz-Stegun erf 有理逼近常数 (7.1.26)
const (
	asA1 = 0.254829592
	asA2 = -0.284496736
	asA3 = 1.421413741
	asA4 = -1.453152027
	asA5 = 1.061405429
	asP  = 0.3275911
)

// Phi 标准正态分布累积分布函数
// Phi(x) = (1 + erf(x/sqrt(2)))/2，erf 采用 Abramowitz-Stegun 有理逼近，
// 绝对误差 < 7.5e-8。
func Phi(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	u := x / math.Sqrt2
	t := 1 / (1 + asP*u)
	y := 1 - (((((asA5*t+asA4)*t)+asA3)*t+asA2)*t+asA1)*t*math.Exp(-u*u)
	return 0.5 * (1 + sign*y)
}

// normPDF 标准正态分布概率密度函数
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// Black76Price 远期口径的欧式期权贴现价值
// F 为隐含远期，K 为执行价，r 为无风险利率，T 为年化剩余期限，sigma 为波动率。
func Black76Price(optType OptionType, f, k, r, t, sigma float64) (float64, error) {
	if f <= 0 || k <= 0 || t <= 0 || sigma <= 0 {
		return 0, fmt.Errorf("black76: F=%v K=%v T=%v sigma=%v: %w", f, k, t, sigma, ErrInvalidInput)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(f/k) + 0.5*sigma*sigma*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	df := math.Exp(-r * t)

	switch optType {
	case OptionTypeCall:
		return df * (f*Phi(d1) - k*Phi(d2)), nil
	case OptionTypePut:
		return df * (k*Phi(-d2) - f*Phi(-d1)), nil
	}
	return 0, ErrInvalidOptionType
}

// black76Vega 解析 Vega，仅供隐含波动率 Newton 迭代内部使用。
func black76Vega(f, k, r, t, sigma float64) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(f/k) + 0.5*sigma*sigma*t) / (sigma * sqrtT)
	return f * math.Exp(-r*t) * normPDF(d1) * sqrtT
}

// 隐含波动率求解参数
const (
	ivInitialGuess  = 0.3
	ivTolerance     = 1e-8
	ivMaxIterations = 100
	ivLowerBound    = 1e-4
	ivUpperBound    = 5.0
)

// ImpliedVol 由观测期权价格反解 Black-76 隐含波动率
// 价格落在无套利区间之外时返回显式错误，绝不静默返回 0。
// 采用 Newton 迭代，步长越界时回退二分，保证合理输入下收敛。
func ImpliedVol(optType OptionType, price, f, k, r, t float64) (float64, error) {
	if f <= 0 || k <= 0 || t <= 0 || price <= 0 {
		return 0, fmt.Errorf("implied vol: price=%v F=%v K=%v T=%v: %w", price, f, k, t, ErrInvalidInput)
	}
	if optType != OptionTypeCall && optType != OptionTypePut {
		return 0, ErrInvalidOptionType
	}

	df := math.Exp(-r * t)
	var intrinsic, upper float64
	if optType == OptionTypeCall {
		intrinsic = df * math.Max(f-k, 0)
		upper = df * f
	} else {
		intrinsic = df * math.Max(k-f, 0)
		upper = df * k
	}
	if price < intrinsic {
		return 0, fmt.Errorf("implied vol: price %v < intrinsic %v: %w", price, intrinsic, ErrPriceBelowIntrinsic)
	}
	if price > upper {
		return 0, fmt.Errorf("implied vol: price %v > bound %v: %w", price, upper, ErrPriceAboveBound)
	}

	lo, hi := ivLowerBound, ivUpperBound
	sigma := ivInitialGuess
	for range ivMaxIterations {
		v, err := Black76Price(optType, f, k, r, t, sigma)
		if err != nil {
			return 0, err
		}
		diff := v - price
		if math.Abs(diff) < ivTolerance {
			return sigma, nil
		}
		if diff > 0 {
			hi = sigma
		} else {
			lo = sigma
		}

		vega := black76Vega(f, k, r, t, sigma)
		next := sigma - diff/vega
		if vega < 1e-12 || next <= lo || next >= hi {
			// Newton 步失效时二分
			next = (lo + hi) / 2
		}
		if math.Abs(next-sigma) < 1e-12 {
			return next, nil
		}
		sigma = next
	}
	return 0, fmt.Errorf("implied vol: F=%v K=%v T=%v price=%v: %w", f, k, t, price, ErrNoConvergence)
}
