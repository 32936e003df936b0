package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/wyfcoding/indexderivatives/internal/numerics/spline"
)

// DefaultOpenInterestCutoff 默认持仓量过滤阈值
const DefaultOpenInterestCutoff = 500_000

// StrikeQuote 单个执行价上某一边（看涨或看跌）的原始报价
type StrikeQuote struct {
	Strike float64
	// Price 市场价格（通常取中间价），ImpliedVol 为零时据此反解
	Price float64
	// ImpliedVol 已知隐含波动率时直接给出，跳过求解
	ImpliedVol float64
	// OpenInterest 持仓量，作为流动性过滤依据
	OpenInterest float64
}

// VolPoint 拟合样条的基础数据点，构造后不可变。
type VolPoint struct {
	LogMoneyness float64
	ImpliedVol   float64
}

// SkewPoint 单个对数在值程度上的完整偏斜数据点
type SkewPoint struct {
	LogMoneyness float64
	Vol          float64
	// PutImpact / CallImpact 未被选中一边的市场价与按选中波动率推算价之差
	PutImpact  float64
	CallImpact float64
}

// curve 一维求值曲线；单点退化为常数，两点以上为自然三次样条。
type curve interface {
	Evaluate(x float64) float64
	Bump(amount float64) curve
}

type constCurve struct{ y float64 }

func (c constCurve) Evaluate(float64) float64 { return c.y }
func (c constCurve) Bump(a float64) curve     { return constCurve{y: c.y + a} }

type splineCurve struct{ s *spline.NaturalCubic }

func (c splineCurve) Evaluate(x float64) float64 { return c.s.Evaluate(x) }
func (c splineCurve) Bump(a float64) curve       { return splineCurve{s: c.s.Bump(a)} }

func newCurve(xs, ys []float64) (curve, error) {
	if len(xs) == 1 {
		return constCurve{y: ys[0]}, nil
	}
	s, err := spline.NewNaturalCubic(xs, ys)
	if err != nil {
		return nil, err
	}
	return splineCurve{s: s}, nil
}

// Skew 单一到期的波动率偏斜
// 持有三条拟合曲线：隐含波动率、看跌冲击、看涨冲击，均以对数在值程度为自变量。
// 定义域为观测到的在值程度范围，域外按曲线各自的边界策略外推。
type Skew struct {
	points     []SkewPoint
	vol        curve
	putImpact  curve
	callImpact curve

	forward float64
	rate    float64
	tte     float64
}

// BuildSkew 由看涨/看跌双边报价构建偏斜
// 流程：持仓量过滤 → 按执行价配对 → 双边存活时取持仓量较高一边定义波动率，
// 另一边记录冲击 → 拟合三条样条。过滤后无任何有效点时构造失败。
// cutoff 传非正值时使用 DefaultOpenInterestCutoff。
func BuildSkew(calls, puts []StrikeQuote, forward, rate, tte float64, cutoff float64) (*Skew, error) {
	if forward <= 0 || tte <= 0 {
		return nil, fmt.Errorf("skew: forward=%v tte=%v must be positive", forward, tte)
	}
	if cutoff <= 0 {
		cutoff = DefaultOpenInterestCutoff
	}

	liquidCalls := filterByOpenInterest(calls, cutoff)
	liquidPuts := filterByOpenInterest(puts, cutoff)
	if len(liquidCalls) == 0 && len(liquidPuts) == 0 {
		return nil, fmt.Errorf("skew: cutoff=%v: %w", cutoff, ErrNoLiquidStrikes)
	}

	callsByStrike := make(map[float64]StrikeQuote, len(liquidCalls))
	for _, q := range liquidCalls {
		callsByStrike[q.Strike] = q
	}
	putsByStrike := make(map[float64]StrikeQuote, len(liquidPuts))
	for _, q := range liquidPuts {
		putsByStrike[q.Strike] = q
	}

	strikes := make([]float64, 0, len(callsByStrike)+len(putsByStrike))
	seen := make(map[float64]bool)
	for k := range callsByStrike {
		if !seen[k] {
			seen[k] = true
			strikes = append(strikes, k)
		}
	}
	for k := range putsByStrike {
		if !seen[k] {
			seen[k] = true
			strikes = append(strikes, k)
		}
	}
	sort.Float64s(strikes)

	points := make([]SkewPoint, 0, len(strikes))
	for _, strike := range strikes {
		logM := math.Log(strike / forward)

		call, hasCall := callsByStrike[strike]
		put, hasPut := putsByStrike[strike]

		callVol, callOK := resolveVol(OptionTypeCall, call, forward, rate, tte, hasCall)
		putVol, putOK := resolveVol(OptionTypePut, put, forward, rate, tte, hasPut)

		switch {
		case callOK && putOK:
			// 双边存活：持仓量较高的一边定义波动率，平手偏向看涨
			p := SkewPoint{LogMoneyness: logM}
			if call.OpenInterest >= put.OpenInterest {
				p.Vol = callVol
				implied, err := Black76Price(OptionTypePut, forward, strike, rate, tte, callVol)
				if err != nil {
					continue
				}
				p.PutImpact = put.Price - implied
			} else {
				p.Vol = putVol
				implied, err := Black76Price(OptionTypeCall, forward, strike, rate, tte, putVol)
				if err != nil {
					continue
				}
				p.CallImpact = call.Price - implied
			}
			points = append(points, p)
		case callOK:
			points = append(points, SkewPoint{LogMoneyness: logM, Vol: callVol})
		case putOK:
			points = append(points, SkewPoint{LogMoneyness: logM, Vol: putVol})
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("skew: forward=%v tte=%v: %w", forward, tte, ErrEmptyVolData)
	}
	return NewSkewFromPoints(forward, rate, tte, points)
}

// resolveVol 确定单边波动率：优先使用给定隐波，否则由价格反解。
// 反解失败视为该数据点质量问题，剔除该边而不中断整体构建。
func resolveVol(optType OptionType, q StrikeQuote, forward, rate, tte float64, present bool) (float64, bool) {
	if !present {
		return 0, false
	}
	if q.ImpliedVol > 0 {
		return q.ImpliedVol, true
	}
	iv, err := ImpliedVol(optType, q.Price, forward, q.Strike, rate, tte)
	if err != nil {
		return 0, false
	}
	return iv, true
}

// NewSkewFromPoints 由既有数据点直接构造偏斜
// 供 DTO 反序列化与按节点冲击重建使用；至少需要一个数据点。
func NewSkewFromPoints(forward, rate, tte float64, points []SkewPoint) (*Skew, error) {
	if len(points) == 0 {
		return nil, ErrEmptyVolData
	}

	sorted := make([]SkewPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogMoneyness < sorted[j].LogMoneyness })

	xs := make([]float64, len(sorted))
	vols := make([]float64, len(sorted))
	putImp := make([]float64, len(sorted))
	callImp := make([]float64, len(sorted))
	for i, p := range sorted {
		xs[i] = p.LogMoneyness
		vols[i] = p.Vol
		putImp[i] = p.PutImpact
		callImp[i] = p.CallImpact
	}

	vol, err := newCurve(xs, vols)
	if err != nil {
		return nil, fmt.Errorf("skew: vol curve: %w", err)
	}
	pi, err := newCurve(xs, putImp)
	if err != nil {
		return nil, fmt.Errorf("skew: put impact curve: %w", err)
	}
	ci, err := newCurve(xs, callImp)
	if err != nil {
		return nil, fmt.Errorf("skew: call impact curve: %w", err)
	}

	return &Skew{
		points:     sorted,
		vol:        vol,
		putImpact:  pi,
		callImpact: ci,
		forward:    forward,
		rate:       rate,
		tte:        tte,
	}, nil
}

func filterByOpenInterest(quotes []StrikeQuote, cutoff float64) []StrikeQuote {
	out := make([]StrikeQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.OpenInterest >= cutoff {
			out = append(out, q)
		}
	}
	return out
}

// GetVol 求对数在值程度处的隐含波动率。
func (s *Skew) GetVol(logMoneyness float64) float64 {
	return s.vol.Evaluate(logMoneyness)
}

// GetPutPremia 求看跌一边的冲击（未实现权利金差）。
func (s *Skew) GetPutPremia(logMoneyness float64) float64 {
	return s.putImpact.Evaluate(logMoneyness)
}

// GetCallPremia 求看涨一边的冲击（未实现权利金差）。
func (s *Skew) GetCallPremia(logMoneyness float64) float64 {
	return s.callImpact.Evaluate(logMoneyness)
}

// Bump 返回波动率曲线整体平移 amount 的新偏斜，冲击曲线原样保留。
func (s *Skew) Bump(amount float64) *Skew {
	points := make([]SkewPoint, len(s.points))
	copy(points, s.points)
	for i := range points {
		points[i].Vol += amount
	}
	return &Skew{
		points:     points,
		vol:        s.vol.Bump(amount),
		putImpact:  s.putImpact,
		callImpact: s.callImpact,
		forward:    s.forward,
		rate:       s.rate,
		tte:        s.tte,
	}
}

// BumpNode 返回第 idx 个波动率节点平移 amount 的新偏斜，用于参数化 Vega。
func (s *Skew) BumpNode(idx int, amount float64) (*Skew, error) {
	if idx < 0 || idx >= len(s.points) {
		return nil, fmt.Errorf("skew: node %d out of range [0,%d): %w", idx, len(s.points), ErrUnknownParameter)
	}
	points := make([]SkewPoint, len(s.points))
	copy(points, s.points)
	points[idx].Vol += amount
	return NewSkewFromPoints(s.forward, s.rate, s.tte, points)
}

// Points 返回偏斜数据点的副本，按在值程度升序。
func (s *Skew) Points() []SkewPoint {
	out := make([]SkewPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Forward 返回构建时的隐含远期。
func (s *Skew) Forward() float64 { return s.forward }

// Rate 返回构建时的无风险利率。
func (s *Skew) Rate() float64 { return s.rate }

// TimeToExpiry 返回构建时的年化剩余期限。
func (s *Skew) TimeToExpiry() float64 { return s.tte }
