package domain

import (
	"fmt"
	"math"
	"time"
)

// ProductType 产品类别
type ProductType string

const (
	ProductTypeFuture ProductType = "FUTURE"
	ProductTypeOption ProductType = "OPTION"
)

// Product 可定价产品的标签变体：期货或欧式期权
// 估值不在构造时发生，统一通过 PriceProduct 针对给定市场视图计算，
// 换一个快照重新定价只需再调用一次。
type Product struct {
	Type   ProductType
	Expiry time.Time
	// Strike / OptionType 仅期权有效
	Strike     float64
	OptionType OptionType
}

// NewFutureProduct 构造期货产品。
func NewFutureProduct(expiry time.Time) Product {
	return Product{Type: ProductTypeFuture, Expiry: expiry}
}

// NewOptionProduct 构造欧式期权产品。
func NewOptionProduct(expiry time.Time, strike float64, optType OptionType) Product {
	return Product{Type: ProductTypeOption, Expiry: expiry, Strike: strike, OptionType: optType}
}

// MarketView 定价所需的市场输入切面
// 由市场快照派生，字段全部按值传递，天然不可变、可并发使用。
type MarketView struct {
	Spot          float64
	Forward       float64
	Rate          float64
	DividendYield float64
	TimeToExpiry  float64
	Surface       VolSurface
}

// PriceProduct 对给定市场视图计算产品净现值
// 期货的 NPV 直接等于隐含远期，不依赖波动率；期权按 Black-76 以
// 曲面在 (期限, 对数在值程度) 处的波动率定价。
func PriceProduct(p Product, mv MarketView) (float64, error) {
	switch p.Type {
	case ProductTypeFuture:
		return mv.Forward, nil
	case ProductTypeOption:
		if mv.Surface == nil {
			return 0, fmt.Errorf("price: option requires a surface: %w", ErrInvalidInput)
		}
		sigma := mv.Surface.Vol(mv.TimeToExpiry, math.Log(p.Strike/mv.Forward))
		return Black76Price(p.OptionType, mv.Forward, p.Strike, mv.Rate, mv.TimeToExpiry, sigma)
	}
	return 0, fmt.Errorf("price: product type %q: %w", p.Type, ErrInvalidInput)
}
