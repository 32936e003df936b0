package domain

import "errors"

// 数值构造与求解失败的哨兵错误
// 构造期错误必须立即失败并携带上下文，绝不降级成零值曲面。
var (
	// ErrNoLiquidStrikes 持仓量过滤后买卖双边均无存活报价
	ErrNoLiquidStrikes = errors.New("pricing: no strikes survive the open interest cutoff")
	// ErrEmptyVolData 过滤后波动率数据集为空
	ErrEmptyVolData = errors.New("pricing: empty volatility dataset after filtering")
	// ErrPriceBelowIntrinsic 目标价格低于内在价值，无套利解
	ErrPriceBelowIntrinsic = errors.New("pricing: option price below intrinsic value")
	// ErrPriceAboveBound 目标价格高于无套利上界
	ErrPriceAboveBound = errors.New("pricing: option price above arbitrage bound")
	// ErrNoConvergence 隐含波动率迭代未收敛
	ErrNoConvergence = errors.New("pricing: implied volatility solver did not converge")
	// ErrEmptySurface 波动率曲面不含任何到期
	ErrEmptySurface = errors.New("pricing: surface has no expiries")
	// ErrUnknownParameter 按名冲击时参数名不存在
	ErrUnknownParameter = errors.New("pricing: unknown surface parameter")
	// ErrInvalidInput 定价输入参数非法
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrInvalidOptionType 期权类型既非 call 也非 put
	ErrInvalidOptionType = errors.New("pricing: invalid option type")
)
