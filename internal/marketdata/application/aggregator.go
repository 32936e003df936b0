// Package application 市场数据服务的应用层：快照聚合编排与查询服务。
package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
	"github.com/wyfcoding/indexderivatives/pkg/metrics"
)

// AggregatorConfig 聚合器运行配置
type AggregatorConfig struct {
	IndexSymbol        string
	RefreshInterval    time.Duration
	AckPollInterval    time.Duration
	AckTimeout         time.Duration
	OpenInterestCutoff float64
	DividendYield      float64
}

// SnapshotAggregator 市场快照聚合器
// 单写者：每轮刷新独占构造一份完整快照后整体发布；读方通过 SnapshotHolder
// 无锁获取。首轮刷新前会完成盘口订阅与确认屏障。
type SnapshotAggregator struct {
	cfg         AggregatorConfig
	instruments domain.InstrumentProvider
	quotes      domain.QuoteSource
	feed        domain.StreamingFeed
	rates       *domain.RateHolder
	calendar    domain.Calendar
	holder      *domain.SnapshotHolder

	version    atomic.Uint64
	subscribed bool
}

// NewSnapshotAggregator 构造聚合器。
func NewSnapshotAggregator(
	cfg AggregatorConfig,
	instruments domain.InstrumentProvider,
	quotes domain.QuoteSource,
	feed domain.StreamingFeed,
	rates *domain.RateHolder,
	calendar domain.Calendar,
	holder *domain.SnapshotHolder,
) *SnapshotAggregator {
	if cfg.AckPollInterval <= 0 {
		cfg.AckPollInterval = 100 * time.Millisecond
	}
	if cfg.OpenInterestCutoff <= 0 {
		cfg.OpenInterestCutoff = pricing.DefaultOpenInterestCutoff
	}
	return &SnapshotAggregator{
		cfg:         cfg,
		instruments: instruments,
		quotes:      quotes,
		feed:        feed,
		rates:       rates,
		calendar:    calendar,
		holder:      holder,
	}
}

// Holder 返回快照发布点。
func (a *SnapshotAggregator) Holder() *domain.SnapshotHolder {
	return a.holder
}

// Run 周期性刷新直到 ctx 取消；单轮失败只记录，不中断循环。
func (a *SnapshotAggregator) Run(ctx context.Context) error {
	interval := a.cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.RefreshOnce(ctx, time.Now()); err != nil {
			logger.Error(ctx, "snapshot refresh failed", "index", a.cfg.IndexSymbol, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RefreshOnce 执行一轮完整刷新：合约解析、订阅屏障（仅首轮）、行情拉取、
// 隐含远期与隐波反解、曲面拟合、原子发布。
func (a *SnapshotAggregator) RefreshOnce(ctx context.Context, now time.Time) error {
	start := time.Now()
	snap, err := a.buildSnapshot(ctx, now)
	metrics.SnapshotBuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SnapshotBuildsTotal.WithLabelValues("failure").Inc()
		return err
	}

	a.holder.Publish(snap)
	metrics.SnapshotBuildsTotal.WithLabelValues("success").Inc()
	logger.Info(ctx, "snapshot published",
		"version", snap.Version,
		"spot", snap.IndexSpot,
		"forward", snap.ImpliedForward,
		"tte", snap.TimeToExpiry,
		"options", len(snap.Options),
	)
	return nil
}

func (a *SnapshotAggregator) buildSnapshot(ctx context.Context, now time.Time) (*domain.MarketSnap, error) {
	chain, err := a.instruments.GetOptionsForIndex(ctx, a.cfg.IndexSymbol, now)
	if err != nil {
		return nil, fmt.Errorf("aggregator: resolve chain: %w", err)
	}

	all := chainInstruments(chain)
	if !a.subscribed {
		if err := a.subscribeWithBarrier(ctx, all); err != nil {
			return nil, err
		}
		a.subscribed = true
	}

	reqs := make([]domain.QuoteRequest, len(all))
	for i, inst := range all {
		reqs[i] = domain.QuoteRequest{Exchange: inst.Exchange, InstrumentToken: inst.Token}
	}
	quotes, err := a.quotes.FetchQuotes(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("aggregator: fetch quotes: %w", err)
	}
	byToken := make(map[uint32]domain.Quote, len(quotes))
	for _, q := range quotes {
		byToken[q.InstrumentToken] = q
	}

	indexQuote, ok := byToken[chain.Index.Token]
	if !ok || indexQuote.Mid() <= 0 {
		return nil, fmt.Errorf("aggregator: index %s: %w", a.cfg.IndexSymbol, domain.ErrQuoteUnavailable)
	}
	spot := indexQuote.Mid()

	tte, err := a.calendar.YearFraction(now, chain.Expiry)
	if err != nil {
		return nil, fmt.Errorf("aggregator: time to expiry: %w", err)
	}
	rate := a.rates.Get()

	forward := a.impliedForward(chain, byToken, spot, rate, tte)

	options, calls, puts := a.resolveOptions(ctx, chain, byToken, forward, rate, tte)

	skew, err := pricing.BuildSkew(calls, puts, forward, rate, tte, a.cfg.OpenInterestCutoff)
	if err != nil {
		return nil, fmt.Errorf("aggregator: skew: %w", err)
	}
	surface, err := pricing.NewSurface([]pricing.SurfaceEntry{{
		TTE:   tte,
		Label: chain.Expiry.Format("2006-01-02"),
		Skew:  skew,
	}})
	if err != nil {
		return nil, fmt.Errorf("aggregator: surface: %w", err)
	}

	return &domain.MarketSnap{
		Version:        a.version.Add(1),
		InitializedAt:  now,
		IndexSpot:      spot,
		ImpliedForward: forward,
		RiskFreeRate:   rate,
		DividendYield:  a.cfg.DividendYield,
		Expiry:         chain.Expiry,
		TimeToExpiry:   tte,
		Surface:        surface,
		Chain:          *chain,
		Options:        options,
	}, nil
}

// subscribeWithBarrier 订阅全部合约并等待每个合约的首条确认。
// 超时是硬失败：报出仍缺确认的令牌，调用方决定重试策略。
func (a *SnapshotAggregator) subscribeWithBarrier(ctx context.Context, instruments []domain.Instrument) error {
	if err := a.feed.SubscribeBatch(ctx, instruments); err != nil {
		return fmt.Errorf("aggregator: subscribe: %w", err)
	}

	pending := make(map[uint32]struct{}, len(instruments))
	for _, inst := range instruments {
		pending[inst.Token] = struct{}{}
	}

	deadline := time.Now().Add(a.cfg.AckTimeout)
	ticker := time.NewTicker(a.cfg.AckPollInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for token := range pending {
			if _, ok := a.feed.TryGetAck(token); ok {
				delete(pending, token)
			}
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			missing := make([]uint32, 0, len(pending))
			for token := range pending {
				missing = append(missing, token)
			}
			sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
			return fmt.Errorf("aggregator: %d instruments unacked %v: %w",
				len(missing), missing, domain.ErrFeedTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	a.feed.MarkLiveDataComplete()
	logger.Info(ctx, "feed subscription complete", "instruments", len(instruments))
	return nil
}

// impliedForward 优先取期货中间价；链上无期货或无报价时回落到现货复利。
func (a *SnapshotAggregator) impliedForward(chain *domain.OptionChain, byToken map[uint32]domain.Quote, spot, rate, tte float64) float64 {
	if chain.Future != nil {
		if q, ok := byToken[chain.Future.Token]; ok && q.Mid() > 0 {
			return q.Mid()
		}
	}
	return spot * math.Exp((rate-a.cfg.DividendYield)*tte)
}

// resolveOptions 逐合约反解隐波并按方向归集拟合输入。
// 单个合约反解失败只隔离该合约，不影响整轮刷新。
func (a *SnapshotAggregator) resolveOptions(ctx context.Context, chain *domain.OptionChain, byToken map[uint32]domain.Quote, forward, rate, tte float64) (options []domain.OptionState, calls, puts []pricing.StrikeQuote) {
	options = make([]domain.OptionState, 0, len(chain.Options))
	for _, inst := range chain.Options {
		q, ok := byToken[inst.Token]
		if !ok {
			options = append(options, domain.OptionState{
				Instrument: inst,
				SolveErr:   domain.ErrQuoteUnavailable,
			})
			continue
		}

		state := domain.OptionState{Instrument: inst, Quote: q}
		mid := q.Mid()
		if mid > 0 {
			iv, err := pricing.ImpliedVol(inst.OptionType, mid, forward, inst.Strike, rate, tte)
			if err != nil {
				state.SolveErr = err
				metrics.IVSolveFailuresTotal.Inc()
				logger.Debug(ctx, "implied vol solve failed",
					"symbol", inst.TradingSymbol, "strike", inst.Strike, "error", err)
			} else {
				state.ImpliedVol = iv
			}
		} else {
			state.SolveErr = domain.ErrQuoteUnavailable
		}
		options = append(options, state)

		sq := pricing.StrikeQuote{
			Strike:       inst.Strike,
			Price:        mid,
			ImpliedVol:   state.ImpliedVol,
			OpenInterest: q.OpenInterest,
		}
		switch inst.OptionType {
		case pricing.OptionTypeCall:
			calls = append(calls, sq)
		case pricing.OptionTypePut:
			puts = append(puts, sq)
		}
	}
	return options, calls, puts
}

// chainInstruments 展开链上全部合约：指数、期货（若有）、期权。
func chainInstruments(chain *domain.OptionChain) []domain.Instrument {
	all := make([]domain.Instrument, 0, len(chain.Options)+2)
	all = append(all, chain.Index)
	if chain.Future != nil {
		all = append(all, *chain.Future)
	}
	all = append(all, chain.Options...)
	return all
}
