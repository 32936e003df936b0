package domain

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// RateHolder 无风险利率持有者
// 写入在互斥锁下串行并校验有限性；读取走位模式原子加载，无锁。
type RateHolder struct {
	mu   sync.Mutex
	bits atomic.Uint64
}

// NewRateHolder 构造利率持有者，初始值必须有限。
func NewRateHolder(rate float64) (*RateHolder, error) {
	h := &RateHolder{}
	if err := h.Set(rate); err != nil {
		return nil, err
	}
	return h, nil
}

// Set 更新利率；NaN/Inf 被拒绝。
func (h *RateHolder) Set(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("rate %v not finite: %w", rate, ErrInvalidInput)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bits.Store(math.Float64bits(rate))
	return nil
}

// Get 无锁读取当前利率。
func (h *RateHolder) Get() float64 {
	return math.Float64frombits(h.bits.Load())
}
