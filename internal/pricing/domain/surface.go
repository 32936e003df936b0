package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wyfcoding/indexderivatives/internal/numerics/spline"
)

// VolSurface 波动率曲面抽象
// 定价与希腊字母计算只依赖该接口，不关心曲面的具体实现。
type VolSurface interface {
	// Vol 求 (年化期限, 对数在值程度) 处的隐含波动率
	Vol(tte, logMoneyness float64) float64
	// Bump 整体平移后返回新曲面，原曲面不变
	Bump(amount float64) VolSurface
	// BumpParams 按参数名逐一冲击命名节点后返回新曲面
	BumpParams(bumps map[string]float64) (VolSurface, error)
	// ParamNames 枚举全部可冲击的参数名
	ParamNames() []string
}

// SurfaceEntry 曲面构造输入：一个到期对应一个偏斜。
type SurfaceEntry struct {
	// TTE 年化剩余期限，同时是曲面的排序键
	TTE float64
	// Label 到期标签（如 2026-08-27），参数命名与 DTO 使用
	Label string
	Skew  *Skew
}

// Surface 按到期有序组织的偏斜集合
// 到期方向不做跨期插值：查询解析到年化期限最近的偏斜（策略固定，见 DESIGN.md）。
type Surface struct {
	ttes   []float64
	labels []string
	skews  []*Skew
}

// NewSurface 构造曲面，至少需要一个到期。
func NewSurface(entries []SurfaceEntry) (*Surface, error) {
	if len(entries) == 0 {
		return nil, ErrEmptySurface
	}
	sorted := make([]SurfaceEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TTE < sorted[j].TTE })

	s := &Surface{
		ttes:   make([]float64, len(sorted)),
		labels: make([]string, len(sorted)),
		skews:  make([]*Skew, len(sorted)),
	}
	for i, e := range sorted {
		if e.Skew == nil {
			return nil, fmt.Errorf("surface: entry %q has nil skew", e.Label)
		}
		s.ttes[i] = e.TTE
		s.labels[i] = e.Label
		s.skews[i] = e.Skew
	}
	return s, nil
}

// nearestIdx 返回年化期限最近的到期下标。
func (s *Surface) nearestIdx(tte float64) int {
	i := sort.SearchFloat64s(s.ttes, tte)
	if i == 0 {
		return 0
	}
	if i == len(s.ttes) {
		return len(s.ttes) - 1
	}
	if tte-s.ttes[i-1] <= s.ttes[i]-tte {
		return i - 1
	}
	return i
}

// Vol 求 (年化期限, 对数在值程度) 处的隐含波动率。
func (s *Surface) Vol(tte, logMoneyness float64) float64 {
	return s.skews[s.nearestIdx(tte)].GetVol(logMoneyness)
}

// SkewAt 返回年化期限最近的偏斜及其标签。
func (s *Surface) SkewAt(tte float64) (*Skew, string) {
	i := s.nearestIdx(tte)
	return s.skews[i], s.labels[i]
}

// Expiries 返回全部到期的 (年化期限, 标签)。
func (s *Surface) Expiries() ([]float64, []string) {
	ttes := make([]float64, len(s.ttes))
	labels := make([]string, len(s.labels))
	copy(ttes, s.ttes)
	copy(labels, s.labels)
	return ttes, labels
}

// Bump 全部偏斜平行平移 amount，返回新曲面。
func (s *Surface) Bump(amount float64) VolSurface {
	out := &Surface{
		ttes:   s.ttes,
		labels: s.labels,
		skews:  make([]*Skew, len(s.skews)),
	}
	for i, sk := range s.skews {
		out.skews[i] = sk.Bump(amount)
	}
	return out
}

// 参数名格式：<到期标签>|<节点下标>
const paramSep = "|"

func paramName(label string, node int) string {
	return label + paramSep + strconv.Itoa(node)
}

// ParamNames 枚举全部可冲击的波动率节点参数名。
func (s *Surface) ParamNames() []string {
	var names []string
	for i, sk := range s.skews {
		for n := range sk.Points() {
			names = append(names, paramName(s.labels[i], n))
		}
	}
	return names
}

// BumpParam 按名冲击单个节点，返回新曲面。
func (s *Surface) BumpParam(name string, amount float64) (VolSurface, error) {
	return s.BumpParams(map[string]float64{name: amount})
}

// BumpParams 按名冲击多个节点，返回新曲面；未知参数名返回错误。
func (s *Surface) BumpParams(bumps map[string]float64) (VolSurface, error) {
	out := &Surface{
		ttes:   s.ttes,
		labels: s.labels,
		skews:  make([]*Skew, len(s.skews)),
	}
	copy(out.skews, s.skews)

	for name, amount := range bumps {
		label, nodeStr, found := strings.Cut(name, paramSep)
		if !found {
			return nil, fmt.Errorf("surface: malformed parameter %q: %w", name, ErrUnknownParameter)
		}
		node, err := strconv.Atoi(nodeStr)
		if err != nil {
			return nil, fmt.Errorf("surface: malformed parameter %q: %w", name, ErrUnknownParameter)
		}
		idx := -1
		for i, l := range out.labels {
			if l == label {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("surface: expiry %q: %w", label, ErrUnknownParameter)
		}
		bumped, err := out.skews[idx].BumpNode(node, amount)
		if err != nil {
			return nil, err
		}
		out.skews[idx] = bumped
	}
	return out, nil
}

// ATMTermStructure 平值波动率期限结构
// 多于一个到期时以单调三次样条拟合（期限方向的单调性为拟合不变量），
// 单到期退化为常数；返回的函数对任意年化期限可求值。
func (s *Surface) ATMTermStructure() (func(tte float64) float64, error) {
	if len(s.ttes) == 1 {
		v := s.skews[0].GetVol(0)
		return func(float64) float64 { return v }, nil
	}
	vols := make([]float64, len(s.ttes))
	for i, sk := range s.skews {
		vols[i] = sk.GetVol(0)
	}
	ms, err := spline.NewMonotoneCubic(s.ttes, vols)
	if err != nil {
		return nil, fmt.Errorf("surface: term structure: %w", err)
	}
	return ms.Evaluate, nil
}

// SurfacePointDTO 曲面传输形式中的一个 (参数名, 到期标签, 数值) 三元组及其节点数据。
type SurfacePointDTO struct {
	Parameter    string  `json:"parameter"`
	Expiry       string  `json:"expiry"`
	TTE          float64 `json:"tte"`
	LogMoneyness float64 `json:"log_moneyness"`
	Vol          float64 `json:"vol"`
	PutImpact    float64 `json:"put_impact"`
	CallImpact   float64 `json:"call_impact"`
	Forward      float64 `json:"forward"`
	Rate         float64 `json:"rate"`
}

// SurfaceDTO 曲面的可往返传输形式，供场景引擎与交付层消费。
type SurfaceDTO struct {
	Points []SurfacePointDTO `json:"points"`
}

// ToDTO 枚举曲面全部节点为传输形式。
func (s *Surface) ToDTO() *SurfaceDTO {
	dto := &SurfaceDTO{}
	for i, sk := range s.skews {
		for n, p := range sk.Points() {
			dto.Points = append(dto.Points, SurfacePointDTO{
				Parameter:    paramName(s.labels[i], n),
				Expiry:       s.labels[i],
				TTE:          s.ttes[i],
				LogMoneyness: p.LogMoneyness,
				Vol:          p.Vol,
				PutImpact:    p.PutImpact,
				CallImpact:   p.CallImpact,
				Forward:      sk.Forward(),
				Rate:         sk.Rate(),
			})
		}
	}
	return dto
}

// SurfaceFromDTO 由传输形式重建曲面。
func SurfaceFromDTO(dto *SurfaceDTO) (*Surface, error) {
	if dto == nil || len(dto.Points) == 0 {
		return nil, ErrEmptySurface
	}

	type group struct {
		tte     float64
		forward float64
		rate    float64
		points  []SkewPoint
	}
	groups := make(map[string]*group)
	var order []string
	for _, p := range dto.Points {
		g, ok := groups[p.Expiry]
		if !ok {
			g = &group{tte: p.TTE, forward: p.Forward, rate: p.Rate}
			groups[p.Expiry] = g
			order = append(order, p.Expiry)
		}
		g.points = append(g.points, SkewPoint{
			LogMoneyness: p.LogMoneyness,
			Vol:          p.Vol,
			PutImpact:    p.PutImpact,
			CallImpact:   p.CallImpact,
		})
	}

	entries := make([]SurfaceEntry, 0, len(groups))
	for _, label := range order {
		g := groups[label]
		sk, err := NewSkewFromPoints(g.forward, g.rate, g.tte, g.points)
		if err != nil {
			return nil, fmt.Errorf("surface: expiry %q: %w", label, err)
		}
		entries = append(entries, SurfaceEntry{TTE: g.tte, Label: label, Skew: sk})
	}
	return NewSurface(entries)
}
