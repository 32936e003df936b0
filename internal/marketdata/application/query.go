package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
)

// SnapshotDTO 快照查询响应
type SnapshotDTO struct {
	Version        uint64              `json:"version"`
	InitializedAt  time.Time           `json:"initialized_at"`
	IndexSpot      float64             `json:"index_spot"`
	ImpliedForward float64             `json:"implied_forward"`
	RiskFreeRate   float64             `json:"risk_free_rate"`
	DividendYield  float64             `json:"dividend_yield"`
	Expiry         string              `json:"expiry"`
	TimeToExpiry   float64             `json:"time_to_expiry"`
	Surface        *pricing.SurfaceDTO `json:"surface"`
}

// ChainRowDTO 期权链单行，估值字段来自行情快照同一版本。
type ChainRowDTO struct {
	TradingSymbol string          `json:"trading_symbol"`
	Strike        float64         `json:"strike"`
	OptionType    string          `json:"option_type"`
	Bid           float64         `json:"bid"`
	Ask           float64         `json:"ask"`
	Last          float64         `json:"last"`
	OpenInterest  float64         `json:"open_interest"`
	ImpliedVol    float64         `json:"implied_vol"`
	NPV           decimal.Decimal `json:"npv"`
	Delta         decimal.Decimal `json:"delta"`
	Vega          decimal.Decimal `json:"vega"`
	SolveError    string          `json:"solve_error,omitempty"`
}

// ChainDTO 期权链查询响应
type ChainDTO struct {
	Version uint64        `json:"version"`
	Expiry  string        `json:"expiry"`
	Rows    []ChainRowDTO `json:"rows"`
}

// TermPointDTO 平值期限结构单点
type TermPointDTO struct {
	TTE float64 `json:"tte"`
	Vol float64 `json:"vol"`
}

// MarketQueryService 快照只读查询服务，所有方法均为无锁读。
type MarketQueryService struct {
	holder *domain.SnapshotHolder
	calc   *pricing.GreeksCalculator
}

// NewMarketQueryService 构造查询服务。
func NewMarketQueryService(holder *domain.SnapshotHolder, calc *pricing.GreeksCalculator) *MarketQueryService {
	return &MarketQueryService{holder: holder, calc: calc}
}

// GetSnapshot 返回当前快照；尚未发布时报错。
func (s *MarketQueryService) GetSnapshot() (*SnapshotDTO, error) {
	snap := s.holder.Current()
	if snap == nil {
		return nil, fmt.Errorf("query: %w", domain.ErrQuoteUnavailable)
	}
	return &SnapshotDTO{
		Version:        snap.Version,
		InitializedAt:  snap.InitializedAt,
		IndexSpot:      snap.IndexSpot,
		ImpliedForward: snap.ImpliedForward,
		RiskFreeRate:   snap.RiskFreeRate,
		DividendYield:  snap.DividendYield,
		Expiry:         snap.Expiry.Format("2006-01-02"),
		TimeToExpiry:   snap.TimeToExpiry,
		Surface:        snap.Surface.ToDTO(),
	}, nil
}

// GetChain 返回当前快照的期权链视图。
func (s *MarketQueryService) GetChain() (*ChainDTO, error) {
	snap := s.holder.Current()
	if snap == nil {
		return nil, fmt.Errorf("query: %w", domain.ErrQuoteUnavailable)
	}
	dto := &ChainDTO{
		Version: snap.Version,
		Expiry:  snap.Expiry.Format("2006-01-02"),
		Rows:    make([]ChainRowDTO, 0, len(snap.Options)),
	}
	mv := snap.MarketView()
	for _, st := range snap.Options {
		row := ChainRowDTO{
			TradingSymbol: st.Instrument.TradingSymbol,
			Strike:        st.Instrument.Strike,
			OptionType:    string(st.Instrument.OptionType),
			Bid:           st.Quote.Bid,
			Ask:           st.Quote.Ask,
			Last:          st.Quote.Last,
			OpenInterest:  st.Quote.OpenInterest,
			ImpliedVol:    st.ImpliedVol,
		}
		if st.SolveErr != nil {
			row.SolveError = st.SolveErr.Error()
		}
		product := pricing.NewOptionProduct(st.Instrument.Expiry, st.Instrument.Strike, st.Instrument.OptionType)
		if g, err := s.calc.Calculate(product, mv); err == nil {
			row.NPV = g.NPV
			row.Delta = g.Delta
			row.Vega = g.Vega
		}
		dto.Rows = append(dto.Rows, row)
	}
	return dto, nil
}

// GetTermStructure 按给定年化期限采样平值波动率期限结构。
func (s *MarketQueryService) GetTermStructure(ttes []float64) ([]TermPointDTO, error) {
	snap := s.holder.Current()
	if snap == nil {
		return nil, fmt.Errorf("query: %w", domain.ErrQuoteUnavailable)
	}
	atm, err := snap.Surface.ATMTermStructure()
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(ttes) == 0 {
		ttes = []float64{snap.TimeToExpiry}
	}
	out := make([]TermPointDTO, len(ttes))
	for i, t := range ttes {
		out[i] = TermPointDTO{TTE: t, Vol: atm(t)}
	}
	return out, nil
}
