package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

// 情景推移后的期限下限
const tteFloor = 1e-6

// GridRequest 情景网格定义：三个轴的偏移档位。
// 现货轴为相对偏移，波动率轴为绝对偏移，时间轴为年化推移。
type GridRequest struct {
	SpotShifts []float64
	VolShifts  []float64
	TimeShifts []float64
}

// normalized 空轴补零档，保证 (0,0,0) 基准格总在网格里可被调用方构造。
func (r GridRequest) normalized() GridRequest {
	if len(r.SpotShifts) == 0 {
		r.SpotShifts = []float64{0}
	}
	if len(r.VolShifts) == 0 {
		r.VolShifts = []float64{0}
	}
	if len(r.TimeShifts) == 0 {
		r.TimeShifts = []float64{0}
	}
	return r
}

// GridCell 单个情景格：三个偏移与该情景下的簿值。
type GridCell struct {
	SpotShift float64
	VolShift  float64
	TimeShift float64
	NPV       decimal.Decimal
}

// GridResult 网格估值结果，格序为现货外层、波动率中层、时间内层。
type GridResult struct {
	Cells []GridCell
}

// BookValue 簿的现值与聚合希腊字母，各项为逐笔结果按数量加权之和。
type BookValue struct {
	NPV   decimal.Decimal
	Delta decimal.Decimal
	Gamma decimal.Decimal
	Vega  decimal.Decimal
	Theta decimal.Decimal
	Rho   decimal.Decimal
}

// Engine 情景估值引擎
// 无内部状态，市场视图逐调用传入，可并发使用。
type Engine struct {
	calc *pricing.GreeksCalculator
}

// NewEngine 构造引擎。
func NewEngine(calc *pricing.GreeksCalculator) *Engine {
	return &Engine{calc: calc}
}

// Bumps 返回引擎使用的差分步长。
func (e *Engine) Bumps() pricing.BumpSizes {
	return e.calc.Bumps()
}

// ValueBook 计算簿的现值与聚合希腊字母。
func (e *Engine) ValueBook(book Book, mv pricing.MarketView) (BookValue, error) {
	if err := book.Validate(); err != nil {
		return BookValue{}, err
	}

	var out BookValue
	for _, t := range book.Trades {
		g, err := e.calc.Calculate(t.Product, mv)
		if err != nil {
			return BookValue{}, fmt.Errorf("scenario: trade %s: %w", t.ID, err)
		}
		qty := decimal.NewFromFloat(t.Quantity)
		out.NPV = out.NPV.Add(g.NPV.Mul(qty))
		out.Delta = out.Delta.Add(g.Delta.Mul(qty))
		out.Gamma = out.Gamma.Add(g.Gamma.Mul(qty))
		out.Vega = out.Vega.Add(g.Vega.Mul(qty))
		out.Theta = out.Theta.Add(g.Theta.Mul(qty))
		out.Rho = out.Rho.Add(g.Rho.Mul(qty))
	}
	return out, nil
}

// bookNPV 簿在给定市场视图下的现值。
func (e *Engine) bookNPV(book Book, mv pricing.MarketView) (float64, error) {
	var total float64
	for _, t := range book.Trades {
		npv, err := pricing.PriceProduct(t.Product, mv)
		if err != nil {
			return 0, fmt.Errorf("scenario: trade %s: %w", t.ID, err)
		}
		total += npv * t.Quantity
	}
	return total, nil
}

// shiftView 应用单格偏移：现货与远期等比例缩放、曲面平移、时间推移。
func shiftView(mv pricing.MarketView, spotShift, volShift, timeShift float64) pricing.MarketView {
	out := mv
	out.Spot = mv.Spot * (1 + spotShift)
	out.Forward = mv.Forward * (1 + spotShift)
	if volShift != 0 {
		out.Surface = mv.Surface.Bump(volShift)
	}
	out.TimeToExpiry = mv.TimeToExpiry - timeShift
	if out.TimeToExpiry < tteFloor {
		out.TimeToExpiry = tteFloor
	}
	return out
}

// Grid 对簿做三轴情景网格估值。
// (0, 0, 0) 格的簿值与实时簿值严格一致。
func (e *Engine) Grid(book Book, mv pricing.MarketView, req GridRequest) (*GridResult, error) {
	if err := book.Validate(); err != nil {
		return nil, err
	}
	req = req.normalized()

	out := &GridResult{
		Cells: make([]GridCell, 0, len(req.SpotShifts)*len(req.VolShifts)*len(req.TimeShifts)),
	}
	for _, fs := range req.SpotShifts {
		for _, vs := range req.VolShifts {
			for _, ts := range req.TimeShifts {
				npv, err := e.bookNPV(book, shiftView(mv, fs, vs, ts))
				if err != nil {
					return nil, err
				}
				out.Cells = append(out.Cells, GridCell{
					SpotShift: fs,
					VolShift:  vs,
					TimeShift: ts,
					NPV:       decimal.NewFromFloat(npv),
				})
			}
		}
	}
	return out, nil
}
