package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 默认差分步长
const (
	DefaultForwardBump = 0.001  // 远期相对冲击
	DefaultVolBump     = 0.01   // 波动率绝对冲击（波动率点）
	DefaultRateBump    = 0.0001 // 利率绝对冲击
)

// 一天的年化长度与 Theta 衰减的期限下限
const (
	oneDay   = 1.0 / 365.0
	tteFloor = 1e-6
)

// BumpSizes 差分步长配置
type BumpSizes struct {
	ForwardRel float64
	VolAbs     float64
	RateAbs    float64
}

// DefaultBumpSizes 返回默认步长。
func DefaultBumpSizes() BumpSizes {
	return BumpSizes{
		ForwardRel: DefaultForwardBump,
		VolAbs:     DefaultVolBump,
		RateAbs:    DefaultRateBump,
	}
}

// GreeksResult 希腊字母计算结果
type GreeksResult struct {
	NPV   decimal.Decimal
	Delta decimal.Decimal
	Gamma decimal.Decimal
	Vega  decimal.Decimal
	Theta decimal.Decimal
	Rho   decimal.Decimal
}

// GreeksCalculator 基于差分冲击的希腊字母计算器
// 对定价函数做数值冲击而非解析求导，自动兼容任意插入的波动率曲面实现。
// 所有方法都是输入与步长的纯函数，无内部状态，可并发调用。
type GreeksCalculator struct {
	bumps BumpSizes
}

// NewGreeksCalculator 构造计算器，零值步长回落到默认值。
func NewGreeksCalculator(b BumpSizes) *GreeksCalculator {
	d := DefaultBumpSizes()
	if b.ForwardRel <= 0 {
		b.ForwardRel = d.ForwardRel
	}
	if b.VolAbs <= 0 {
		b.VolAbs = d.VolAbs
	}
	if b.RateAbs <= 0 {
		b.RateAbs = d.RateAbs
	}
	return &GreeksCalculator{bumps: b}
}

// Bumps 返回生效的差分步长。
func (c *GreeksCalculator) Bumps() BumpSizes {
	return c.bumps
}

// Calculate 计算产品在给定市场视图下的 NPV 与全部希腊字母
// Delta/Vega/Rho 为中心差分 (上冲 - 下冲)/2；Gamma 为货币口径的二阶差分
// (上冲 - 2*基准 + 下冲)，刻意不除以步长平方，与全簿风险口径保持一致；
// Theta 为一天前向衰减，期限带下限保护。
func (c *GreeksCalculator) Calculate(p Product, mv MarketView) (GreeksResult, error) {
	base, err := PriceProduct(p, mv)
	if err != nil {
		return GreeksResult{}, fmt.Errorf("greeks: base npv: %w", err)
	}

	delta, gamma, err := c.forwardDiffs(p, mv, base)
	if err != nil {
		return GreeksResult{}, err
	}
	vega, err := c.vega(p, mv)
	if err != nil {
		return GreeksResult{}, err
	}
	theta, err := c.theta(p, mv, base)
	if err != nil {
		return GreeksResult{}, err
	}
	rho, err := c.rho(p, mv)
	if err != nil {
		return GreeksResult{}, err
	}

	return GreeksResult{
		NPV:   decimal.NewFromFloat(base),
		Delta: decimal.NewFromFloat(delta),
		Gamma: decimal.NewFromFloat(gamma),
		Vega:  decimal.NewFromFloat(vega),
		Theta: decimal.NewFromFloat(theta),
		Rho:   decimal.NewFromFloat(rho),
	}, nil
}

func (c *GreeksCalculator) forwardDiffs(p Product, mv MarketView, base float64) (delta, gamma float64, err error) {
	up := mv
	up.Forward = mv.Forward * (1 + c.bumps.ForwardRel)
	down := mv
	down.Forward = mv.Forward * (1 - c.bumps.ForwardRel)

	npvUp, err := PriceProduct(p, up)
	if err != nil {
		return 0, 0, fmt.Errorf("greeks: forward up bump: %w", err)
	}
	npvDown, err := PriceProduct(p, down)
	if err != nil {
		return 0, 0, fmt.Errorf("greeks: forward down bump: %w", err)
	}
	return (npvUp - npvDown) / 2, npvUp - 2*base + npvDown, nil
}

func (c *GreeksCalculator) vega(p Product, mv MarketView) (float64, error) {
	if p.Type == ProductTypeFuture {
		return 0, nil
	}
	up := mv
	up.Surface = mv.Surface.Bump(c.bumps.VolAbs)
	down := mv
	down.Surface = mv.Surface.Bump(-c.bumps.VolAbs)

	npvUp, err := PriceProduct(p, up)
	if err != nil {
		return 0, fmt.Errorf("greeks: vol up bump: %w", err)
	}
	npvDown, err := PriceProduct(p, down)
	if err != nil {
		return 0, fmt.Errorf("greeks: vol down bump: %w", err)
	}
	return (npvUp - npvDown) / 2, nil
}

func (c *GreeksCalculator) theta(p Product, mv MarketView, base float64) (float64, error) {
	if p.Type == ProductTypeFuture {
		return 0, nil
	}
	decayed := mv
	decayed.TimeToExpiry = mv.TimeToExpiry - oneDay
	if decayed.TimeToExpiry < tteFloor {
		decayed.TimeToExpiry = tteFloor
	}
	npv, err := PriceProduct(p, decayed)
	if err != nil {
		return 0, fmt.Errorf("greeks: time decay: %w", err)
	}
	return npv - base, nil
}

func (c *GreeksCalculator) rho(p Product, mv MarketView) (float64, error) {
	if p.Type == ProductTypeFuture {
		return 0, nil
	}
	up := mv
	up.Rate = mv.Rate + c.bumps.RateAbs
	down := mv
	down.Rate = mv.Rate - c.bumps.RateAbs

	npvUp, err := PriceProduct(p, up)
	if err != nil {
		return 0, fmt.Errorf("greeks: rate up bump: %w", err)
	}
	npvDown, err := PriceProduct(p, down)
	if err != nil {
		return 0, fmt.Errorf("greeks: rate down bump: %w", err)
	}
	return (npvUp - npvDown) / 2, nil
}

// VegaByParams 参数化 Vega：对每个 (参数名, 冲击量) 求该节点的中心差分贡献
// 场景引擎据此做 vanna/volga 等分解。返回值与输入一一对应。
func (c *GreeksCalculator) VegaByParams(p Product, mv MarketView, bumps map[string]float64) (map[string]float64, error) {
	if p.Type == ProductTypeFuture {
		out := make(map[string]float64, len(bumps))
		for name := range bumps {
			out[name] = 0
		}
		return out, nil
	}

	out := make(map[string]float64, len(bumps))
	for name, amount := range bumps {
		upSurf, err := mv.Surface.BumpParams(map[string]float64{name: amount})
		if err != nil {
			return nil, fmt.Errorf("greeks: param %q: %w", name, err)
		}
		downSurf, err := mv.Surface.BumpParams(map[string]float64{name: -amount})
		if err != nil {
			return nil, fmt.Errorf("greeks: param %q: %w", name, err)
		}

		up := mv
		up.Surface = upSurf
		down := mv
		down.Surface = downSurf

		npvUp, err := PriceProduct(p, up)
		if err != nil {
			return nil, fmt.Errorf("greeks: param %q up: %w", name, err)
		}
		npvDown, err := PriceProduct(p, down)
		if err != nil {
			return nil, fmt.Errorf("greeks: param %q down: %w", name, err)
		}
		out[name] = (npvUp - npvDown) / 2
	}
	return out, nil
}
