package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	mddomain "github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/internal/scenario/domain"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
	"github.com/wyfcoding/indexderivatives/pkg/metrics"
)

// SnapshotProvider 当前市场快照的只读来源
type SnapshotProvider interface {
	Current() *mddomain.MarketSnap
}

// BookRepository 交易簿仓储
type BookRepository interface {
	Save(ctx context.Context, t *domain.Trade) error
	List(ctx context.Context) ([]domain.Trade, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher 结果事件发布
type EventPublisher interface {
	SendMessage(ctx context.Context, topic, key string, value any) error
}

// ScenarioService 情景分析应用服务
// 归因基于上一次 Attribute 调用时记住的快照；首次调用没有基准可比。
type ScenarioService struct {
	repo      BookRepository
	provider  SnapshotProvider
	engine    *domain.Engine
	publisher EventPublisher
	topic     string
	defaults  domain.GridRequest

	mu   sync.Mutex
	prev *mddomain.MarketSnap
}

// NewScenarioService 构造服务；publisher 可为 nil，此时不发布结果事件。
func NewScenarioService(
	repo BookRepository,
	provider SnapshotProvider,
	engine *domain.Engine,
	publisher EventPublisher,
	topic string,
	defaults domain.GridRequest,
) *ScenarioService {
	return &ScenarioService{
		repo:      repo,
		provider:  provider,
		engine:    engine,
		publisher: publisher,
		topic:     topic,
		defaults:  defaults,
	}
}

// AddTrade 新增交易。
func (s *ScenarioService) AddTrade(ctx context.Context, req AddTradeRequest) (*TradeDTO, error) {
	expiry, err := time.Parse("2006-01-02", req.Expiry)
	if err != nil {
		return nil, fmt.Errorf("scenario: parse expiry %q: %w", req.Expiry, err)
	}

	var product pricing.Product
	switch strings.ToUpper(req.ProductType) {
	case string(pricing.ProductTypeFuture):
		product = pricing.NewFutureProduct(expiry)
	case string(pricing.ProductTypeOption):
		if req.Strike <= 0 {
			return nil, fmt.Errorf("scenario: option strike must be positive")
		}
		optType := pricing.OptionType(strings.ToUpper(req.OptionType))
		if optType != pricing.OptionTypeCall && optType != pricing.OptionTypePut {
			return nil, fmt.Errorf("scenario: option type %q", req.OptionType)
		}
		product = pricing.NewOptionProduct(expiry, req.Strike, optType)
	default:
		return nil, fmt.Errorf("scenario: product type %q", req.ProductType)
	}

	trade := domain.Trade{
		ID:            uuid.NewString(),
		TradingSymbol: req.TradingSymbol,
		Product:       product,
		Lots:          req.Lots,
		Quantity:      req.Quantity,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Save(ctx, &trade); err != nil {
		return nil, fmt.Errorf("scenario: save trade: %w", err)
	}
	logger.Info(ctx, "trade booked",
		"trade_id", trade.ID, "symbol", trade.TradingSymbol,
		"product", string(product.Type), "lots", trade.Lots, "quantity", trade.Quantity)

	dto := tradeToDTO(trade)
	return &dto, nil
}

// ListTrades 枚举簿内交易。
func (s *ScenarioService) ListTrades(ctx context.Context) ([]TradeDTO, error) {
	trades, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario: list trades: %w", err)
	}
	out := make([]TradeDTO, len(trades))
	for i, t := range trades {
		out[i] = tradeToDTO(t)
	}
	return out, nil
}

// RemoveTrade 删除交易。
func (s *ScenarioService) RemoveTrade(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("scenario: delete trade %s: %w", id, err)
	}
	logger.Info(ctx, "trade removed", "trade_id", id)
	return nil
}

// ValueBook 按当前快照估值交易簿。
func (s *ScenarioService) ValueBook(ctx context.Context) (*BookValueDTO, error) {
	book, snap, err := s.loadBookAndSnap(ctx)
	if err != nil {
		return nil, err
	}
	bv, err := s.engine.ValueBook(book, snap.MarketView())
	if err != nil {
		return nil, err
	}
	return &BookValueDTO{
		SnapshotVersion: snap.Version,
		NPV:             bv.NPV,
		Delta:           bv.Delta,
		Gamma:           bv.Gamma,
		Vega:            bv.Vega,
		Theta:           bv.Theta,
		Rho:             bv.Rho,
	}, nil
}

// RunGrid 执行三轴情景网格估值并发布结果事件。
func (s *ScenarioService) RunGrid(ctx context.Context, req GridRequestDTO) (*GridResultDTO, error) {
	book, snap, err := s.loadBookAndSnap(ctx)
	if err != nil {
		return nil, err
	}

	gr := domain.GridRequest{
		SpotShifts: req.SpotShifts,
		VolShifts:  req.VolShifts,
		TimeShifts: req.TimeShifts,
	}
	if len(gr.SpotShifts) == 0 {
		gr.SpotShifts = s.defaults.SpotShifts
	}
	if len(gr.VolShifts) == 0 {
		gr.VolShifts = s.defaults.VolShifts
	}
	if len(gr.TimeShifts) == 0 {
		gr.TimeShifts = s.defaults.TimeShifts
	}

	start := time.Now()
	result, err := s.engine.Grid(book, snap.MarketView(), gr)
	metrics.ScenarioGridDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	dto := &GridResultDTO{
		SnapshotVersion: snap.Version,
		Cells:           make([]GridCellDTO, len(result.Cells)),
	}
	for i, c := range result.Cells {
		dto.Cells[i] = GridCellDTO{
			SpotShift: c.SpotShift,
			VolShift:  c.VolShift,
			TimeShift: c.TimeShift,
			NPV:       c.NPV,
		}
	}

	s.publish(ctx, "grid", dto)
	return dto, nil
}

// Attribute 把上一基准快照到当前快照的簿损益分解到风险因子。
// 本次的当前快照成为下一次归因的基准。
func (s *ScenarioService) Attribute(ctx context.Context) (*AttributionDTO, error) {
	book, snap, err := s.loadBookAndSnap(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.prev
	s.prev = snap
	s.mu.Unlock()

	if prev == nil {
		return nil, domain.ErrNoPreviousSnapshot
	}
	if prev.Version == snap.Version {
		return nil, fmt.Errorf("scenario: snapshot unchanged since version %d: %w",
			snap.Version, domain.ErrNoPreviousSnapshot)
	}

	attr, err := s.engine.Attribute(book, prev.MarketView(), snap.MarketView())
	if err != nil {
		return nil, err
	}

	dto := &AttributionDTO{
		FromVersion: prev.Version,
		ToVersion:   snap.Version,
		Book:        attributionLine("", attr),
	}
	for _, t := range attr.Trades {
		dto.Trades = append(dto.Trades, AttributionLineDTO{
			TradeID:       t.TradeID,
			TradingSymbol: t.TradingSymbol,
			Actual:        t.Actual,
			Theta:         t.Theta,
			Rates:         t.Rates,
			Delta:         t.Delta,
			Gamma:         t.Gamma,
			FwdResidual:   t.FwdResidual,
			Vega:          t.Vega,
			Volga:         t.Volga,
			Vanna:         t.Vanna,
			VolResidual:   t.VolResidual,
			CrossResidual: t.CrossResidual,
			Explained:     t.Explained,
			Unexplained:   t.Unexplained,
		})
	}

	s.publish(ctx, "attribution", dto)
	return dto, nil
}

func (s *ScenarioService) loadBookAndSnap(ctx context.Context) (domain.Book, *mddomain.MarketSnap, error) {
	trades, err := s.repo.List(ctx)
	if err != nil {
		return domain.Book{}, nil, fmt.Errorf("scenario: list trades: %w", err)
	}
	book := domain.Book{Trades: trades}
	if err := book.Validate(); err != nil {
		return domain.Book{}, nil, err
	}
	snap := s.provider.Current()
	if snap == nil {
		return domain.Book{}, nil, domain.ErrNoSnapshot
	}
	return book, snap, nil
}

func (s *ScenarioService) publish(ctx context.Context, key string, value any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.SendMessage(ctx, s.topic, key, value); err != nil {
		logger.Warn(ctx, "failed to publish scenario result", "kind", key, "error", err)
	}
}

func tradeToDTO(t domain.Trade) TradeDTO {
	dto := TradeDTO{
		ID:            t.ID,
		TradingSymbol: t.TradingSymbol,
		ProductType:   string(t.Product.Type),
		Expiry:        t.Product.Expiry.Format("2006-01-02"),
		Lots:          t.Lots,
		Quantity:      t.Quantity,
		CreatedAt:     t.CreatedAt,
	}
	if t.Product.Type == pricing.ProductTypeOption {
		dto.Strike = t.Product.Strike
		dto.OptionType = string(t.Product.OptionType)
	}
	return dto
}

func attributionLine(tradeID string, a *domain.BookAttribution) AttributionLineDTO {
	return AttributionLineDTO{
		TradeID:       tradeID,
		Actual:        a.Actual,
		Theta:         a.Theta,
		Rates:         a.Rates,
		Delta:         a.Delta,
		Gamma:         a.Gamma,
		FwdResidual:   a.FwdResidual,
		Vega:          a.Vega,
		Volga:         a.Volga,
		Vanna:         a.Vanna,
		VolResidual:   a.VolResidual,
		CrossResidual: a.CrossResidual,
		Explained:     a.Explained,
		Unexplained:   a.Unexplained,
	}
}
