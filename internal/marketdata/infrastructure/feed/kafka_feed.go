// Package feed 盘口订阅状态与报价缓存的行情流适配器。
package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
)

// KafkaFeed Kafka 行情流适配器
// 同时实现 StreamingFeed 与 QuoteSource：上游主题广播全市场 tick，
// SubscribeBatch 在本地登记关注集合，未登记的令牌直接丢弃。
// 确认与报价缓存均为后写覆盖；tick 的投递由 interfaces/consumer 驱动。
type KafkaFeed struct {
	mu         sync.RWMutex
	subscribed map[uint32]struct{}
	acks       map[uint32]domain.QuoteAck
	quotes     map[uint32]domain.Quote

	live atomic.Bool
}

var (
	_ domain.StreamingFeed = (*KafkaFeed)(nil)
	_ domain.QuoteSource   = (*KafkaFeed)(nil)
)

// NewKafkaFeed 构造行情流适配器。
func NewKafkaFeed() *KafkaFeed {
	return &KafkaFeed{
		subscribed: make(map[uint32]struct{}),
		acks:       make(map[uint32]domain.QuoteAck),
		quotes:     make(map[uint32]domain.Quote),
	}
}

// Apply 投递一条 tick；返回是否命中订阅集合。
func (f *KafkaFeed) Apply(ack domain.QuoteAck) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subscribed[ack.InstrumentToken]; !ok {
		return false
	}

	f.acks[ack.InstrumentToken] = ack
	f.quotes[ack.InstrumentToken] = domain.Quote{
		InstrumentToken: ack.InstrumentToken,
		Bid:             ack.Bid,
		Ask:             ack.Ask,
		Last:            ack.Last,
		OpenInterest:    ack.OpenInterest,
		Timestamp:       ack.Timestamp,
	}
	return true
}

// SubscribeBatch 登记关注的合约集合。
func (f *KafkaFeed) SubscribeBatch(ctx context.Context, instruments []domain.Instrument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range instruments {
		f.subscribed[inst.Token] = struct{}{}
	}
	logger.Info(ctx, "feed subscription registered", "instruments", len(instruments))
	return nil
}

// MarkLiveDataComplete 把订阅期切换为流式刷新期，单向不可逆。
func (f *KafkaFeed) MarkLiveDataComplete() {
	f.live.Store(true)
}

// Live 返回是否已进入流式刷新期。
func (f *KafkaFeed) Live() bool {
	return f.live.Load()
}

// TryGetAck 查询某合约是否已有首条确认。
func (f *KafkaFeed) TryGetAck(token uint32) (domain.QuoteAck, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ack, ok := f.acks[token]
	return ack, ok
}

// FetchQuotes 返回缓存中已有报价的合约；缺失的合约直接略过，
// 由调用方决定缺失是否致命。
func (f *KafkaFeed) FetchQuotes(ctx context.Context, reqs []domain.QuoteRequest) ([]domain.Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.Quote, 0, len(reqs))
	for _, req := range reqs {
		if q, ok := f.quotes[req.InstrumentToken]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}
