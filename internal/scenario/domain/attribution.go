package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

// pnl 逐笔归因的中间量，全部为货币口径。
type pnl struct {
	actual        float64
	theta         float64
	rates         float64
	delta         float64
	gamma         float64
	fwdResidual   float64
	vega          float64
	volga         float64
	vanna         float64
	volResidual   float64
	crossResidual float64
}

func (p pnl) explained() float64 {
	return p.theta + p.rates +
		p.delta + p.gamma + p.fwdResidual +
		p.vega + p.volga + p.volResidual +
		p.vanna + p.crossResidual
}

// TradeAttribution 单笔交易的损益归因
// 残差桶为单因子全量重估与一阶/二阶项之差：FwdResidual 是远期重估
// 超出 Delta+Gamma 的部分，VolResidual 是波动率重估超出 Vega+Volga
// 的部分，CrossResidual 是联合重估超出 Vanna 的部分。
type TradeAttribution struct {
	TradeID       string
	TradingSymbol string
	Actual        decimal.Decimal
	Theta         decimal.Decimal
	Rates         decimal.Decimal
	Delta         decimal.Decimal
	Gamma         decimal.Decimal
	FwdResidual   decimal.Decimal
	Vega          decimal.Decimal
	Volga         decimal.Decimal
	Vanna         decimal.Decimal
	VolResidual   decimal.Decimal
	CrossResidual decimal.Decimal
	Explained     decimal.Decimal
	Unexplained   decimal.Decimal
}

// BookAttribution 簿级损益归因，逐笔按数量加权汇总。
// 恒有 Explained + Unexplained == Actual。
type BookAttribution struct {
	Actual        decimal.Decimal
	Theta         decimal.Decimal
	Rates         decimal.Decimal
	Delta         decimal.Decimal
	Gamma         decimal.Decimal
	FwdResidual   decimal.Decimal
	Vega          decimal.Decimal
	Volga         decimal.Decimal
	Vanna         decimal.Decimal
	VolResidual   decimal.Decimal
	CrossResidual decimal.Decimal
	Explained     decimal.Decimal
	Unexplained   decimal.Decimal
	Trades        []TradeAttribution
}

// Attribute 把 mv0 到 mv1 的簿损益分解到风险因子
// 阶梯重估法：每个因子单独把 mv0 推到 mv1 的水平后重估，一阶/二阶项
// 用差分希腊字母按实际因子位移缩放，单因子与交叉重估的高阶剩余计入
// 对应残差桶，因子间相互作用（时间×远期等）归入 Unexplained。
func (e *Engine) Attribute(book Book, mv0, mv1 pricing.MarketView) (*BookAttribution, error) {
	if err := book.Validate(); err != nil {
		return nil, err
	}

	out := &BookAttribution{Trades: make([]TradeAttribution, 0, len(book.Trades))}
	var agg pnl
	for _, t := range book.Trades {
		p, err := e.attributeTrade(t.Product, mv0, mv1)
		if err != nil {
			return nil, fmt.Errorf("scenario: trade %s: %w", t.ID, err)
		}

		q := t.Quantity
		agg.actual += p.actual * q
		agg.theta += p.theta * q
		agg.rates += p.rates * q
		agg.delta += p.delta * q
		agg.gamma += p.gamma * q
		agg.fwdResidual += p.fwdResidual * q
		agg.vega += p.vega * q
		agg.volga += p.volga * q
		agg.vanna += p.vanna * q
		agg.volResidual += p.volResidual * q
		agg.crossResidual += p.crossResidual * q

		out.Trades = append(out.Trades, TradeAttribution{
			TradeID:       t.ID,
			TradingSymbol: t.TradingSymbol,
			Actual:        decimal.NewFromFloat(p.actual * q),
			Theta:         decimal.NewFromFloat(p.theta * q),
			Rates:         decimal.NewFromFloat(p.rates * q),
			Delta:         decimal.NewFromFloat(p.delta * q),
			Gamma:         decimal.NewFromFloat(p.gamma * q),
			FwdResidual:   decimal.NewFromFloat(p.fwdResidual * q),
			Vega:          decimal.NewFromFloat(p.vega * q),
			Volga:         decimal.NewFromFloat(p.volga * q),
			Vanna:         decimal.NewFromFloat(p.vanna * q),
			VolResidual:   decimal.NewFromFloat(p.volResidual * q),
			CrossResidual: decimal.NewFromFloat(p.crossResidual * q),
			Explained:     decimal.NewFromFloat(p.explained() * q),
			Unexplained:   decimal.NewFromFloat((p.actual - p.explained()) * q),
		})
	}

	out.Actual = decimal.NewFromFloat(agg.actual)
	out.Theta = decimal.NewFromFloat(agg.theta)
	out.Rates = decimal.NewFromFloat(agg.rates)
	out.Delta = decimal.NewFromFloat(agg.delta)
	out.Gamma = decimal.NewFromFloat(agg.gamma)
	out.FwdResidual = decimal.NewFromFloat(agg.fwdResidual)
	out.Vega = decimal.NewFromFloat(agg.vega)
	out.Volga = decimal.NewFromFloat(agg.volga)
	out.Vanna = decimal.NewFromFloat(agg.vanna)
	out.VolResidual = decimal.NewFromFloat(agg.volResidual)
	out.CrossResidual = decimal.NewFromFloat(agg.crossResidual)
	out.Explained = decimal.NewFromFloat(agg.explained())
	out.Unexplained = decimal.NewFromFloat(agg.actual - agg.explained())
	return out, nil
}

func (e *Engine) attributeTrade(p pricing.Product, mv0, mv1 pricing.MarketView) (pnl, error) {
	npv0, err := pricing.PriceProduct(p, mv0)
	if err != nil {
		return pnl{}, fmt.Errorf("base npv: %w", err)
	}
	npv1, err := pricing.PriceProduct(p, mv1)
	if err != nil {
		return pnl{}, fmt.Errorf("final npv: %w", err)
	}
	out := pnl{actual: npv1 - npv0}

	// 时间推移单因子重估
	mvT := mv0
	mvT.TimeToExpiry = mv1.TimeToExpiry
	if mvT.TimeToExpiry < tteFloor {
		mvT.TimeToExpiry = tteFloor
	}
	npvT, err := pricing.PriceProduct(p, mvT)
	if err != nil {
		return pnl{}, fmt.Errorf("time reval: %w", err)
	}
	out.theta = npvT - npv0

	// 利率单因子重估
	mvR := mv0
	mvR.Rate = mv1.Rate
	npvR, err := pricing.PriceProduct(p, mvR)
	if err != nil {
		return pnl{}, fmt.Errorf("rate reval: %w", err)
	}
	out.rates = npvR - npv0

	// 远期位移按差分希腊字母缩放
	bumps := e.calc.Bumps()
	h := bumps.ForwardRel
	ratio := (mv1.Forward - mv0.Forward) / (mv0.Forward * h)

	fUp := mv0
	fUp.Forward = mv0.Forward * (1 + h)
	fDown := mv0
	fDown.Forward = mv0.Forward * (1 - h)
	npvFUp, err := pricing.PriceProduct(p, fUp)
	if err != nil {
		return pnl{}, fmt.Errorf("forward up reval: %w", err)
	}
	npvFDown, err := pricing.PriceProduct(p, fDown)
	if err != nil {
		return pnl{}, fmt.Errorf("forward down reval: %w", err)
	}
	deltaMon := (npvFUp - npvFDown) / 2
	gammaMon := npvFUp - 2*npv0 + npvFDown
	out.delta = deltaMon * ratio
	out.gamma = 0.5 * gammaMon * ratio * ratio

	// 远期单因子全量重估；超出 Delta+Gamma 的高阶部分计入远期残差
	mvF := mv0
	mvF.Forward = mv1.Forward
	npvF, err := pricing.PriceProduct(p, mvF)
	if err != nil {
		return pnl{}, fmt.Errorf("forward reval: %w", err)
	}
	fwdTotal := npvF - npv0
	out.fwdResidual = fwdTotal - out.delta - out.gamma

	// 期货不依赖波动率，剩余因子为零
	if p.Type == pricing.ProductTypeFuture {
		return out, nil
	}

	// 该行权价处的实际隐波位移
	logM0 := math.Log(p.Strike / mv0.Forward)
	logM1 := math.Log(p.Strike / mv1.Forward)
	dVol := mv1.Surface.Vol(mv1.TimeToExpiry, logM1) - mv0.Surface.Vol(mv0.TimeToExpiry, logM0)

	hv := bumps.VolAbs
	vr := dVol / hv

	vUp := mv0
	vUp.Surface = mv0.Surface.Bump(hv)
	vDown := mv0
	vDown.Surface = mv0.Surface.Bump(-hv)
	npvVUp, err := pricing.PriceProduct(p, vUp)
	if err != nil {
		return pnl{}, fmt.Errorf("vol up reval: %w", err)
	}
	npvVDown, err := pricing.PriceProduct(p, vDown)
	if err != nil {
		return pnl{}, fmt.Errorf("vol down reval: %w", err)
	}
	vegaMon := (npvVUp - npvVDown) / 2
	volgaMon := npvVUp - 2*npv0 + npvVDown
	out.vega = vegaMon * vr
	out.volga = 0.5 * volgaMon * vr * vr

	// 波动率单因子全量重估；超出 Vega+Volga 的高阶部分计入波动率残差
	mvV := mv0
	mvV.Surface = mv0.Surface.Bump(dVol)
	npvV, err := pricing.PriceProduct(p, mvV)
	if err != nil {
		return pnl{}, fmt.Errorf("vol reval: %w", err)
	}
	volTotal := npvV - npv0
	out.volResidual = volTotal - out.vega - out.volga

	// 远期与波动率的交叉二阶差分
	crossAt := func(fwdMult, vol float64) (float64, error) {
		mvC := mv0
		mvC.Forward = mv0.Forward * fwdMult
		mvC.Surface = mv0.Surface.Bump(vol)
		return pricing.PriceProduct(p, mvC)
	}
	npvPP, err := crossAt(1+h, hv)
	if err != nil {
		return pnl{}, fmt.Errorf("vanna reval: %w", err)
	}
	npvPM, err := crossAt(1+h, -hv)
	if err != nil {
		return pnl{}, fmt.Errorf("vanna reval: %w", err)
	}
	npvMP, err := crossAt(1-h, hv)
	if err != nil {
		return pnl{}, fmt.Errorf("vanna reval: %w", err)
	}
	npvMM, err := crossAt(1-h, -hv)
	if err != nil {
		return pnl{}, fmt.Errorf("vanna reval: %w", err)
	}
	vannaMon := (npvPP - npvPM - npvMP + npvMM) / 4
	out.vanna = vannaMon * ratio * vr

	// 远期与波动率联合重估；扣除两条单因子全量后的交叉项超出
	// Vanna 的部分计入交叉残差
	mvFV := mv0
	mvFV.Forward = mv1.Forward
	mvFV.Surface = mv0.Surface.Bump(dVol)
	npvFV, err := pricing.PriceProduct(p, mvFV)
	if err != nil {
		return pnl{}, fmt.Errorf("cross reval: %w", err)
	}
	crossTotal := (npvFV - npv0) - fwdTotal - volTotal
	out.crossResidual = crossTotal - out.vanna

	return out, nil
}
