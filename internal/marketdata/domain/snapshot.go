package domain

import (
	"sync/atomic"
	"time"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

// OptionState 快照内单个期权的定价状态
type OptionState struct {
	Instrument Instrument
	Quote      Quote
	ImpliedVol float64
	// SolveErr 隐波反解失败时记录原因；该期权不参与曲面拟合但保留在链上
	SolveErr error
}

// MarketSnap 原子市场快照
// 由聚合器独占构造并整体替换，消费方只拿到只读引用；字段之间保证
// 来自同一轮刷新，绝不暴露半新半旧的撕裂状态。
type MarketSnap struct {
	Version        uint64
	InitializedAt  time.Time
	IndexSpot      float64
	ImpliedForward float64
	RiskFreeRate   float64
	DividendYield  float64
	Expiry         time.Time
	TimeToExpiry   float64
	Surface        *pricing.Surface
	Chain          OptionChain
	Options        []OptionState
}

// MarketView 导出定价用的市场切面。
func (s *MarketSnap) MarketView() pricing.MarketView {
	return pricing.MarketView{
		Spot:          s.IndexSpot,
		Forward:       s.ImpliedForward,
		Rate:          s.RiskFreeRate,
		DividendYield: s.DividendYield,
		TimeToExpiry:  s.TimeToExpiry,
		Surface:       s.Surface,
	}
}

// SnapshotHolder 当前快照的发布点
// 指针原子替换发布，读方永不阻塞；版本号单调递增，读方一旦见过新版本
// 就不可能再拿到旧版本。
type SnapshotHolder struct {
	current atomic.Pointer[MarketSnap]
}

// Publish 发布新快照。
func (h *SnapshotHolder) Publish(s *MarketSnap) {
	h.current.Store(s)
}

// Current 返回当前快照；尚未发布时为 nil。
func (h *SnapshotHolder) Current() *MarketSnap {
	return h.current.Load()
}
