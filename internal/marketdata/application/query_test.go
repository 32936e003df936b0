package application

import (
	"errors"
	"math"
	"testing"
	"time"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
)

func publishedHolder(t *testing.T) *domain.SnapshotHolder {
	t.Helper()

	tte := 30.0 / 365.0
	skew, err := pricing.NewSkewFromPoints(testFwd, testRate, tte, []pricing.SkewPoint{
		{LogMoneyness: math.Log(24500.0 / testFwd), Vol: 0.27},
		{LogMoneyness: 0, Vol: 0.25},
		{LogMoneyness: math.Log(25500.0 / testFwd), Vol: 0.24},
	})
	if err != nil {
		t.Fatalf("NewSkewFromPoints: %v", err)
	}
	surface, err := pricing.NewSurface([]pricing.SurfaceEntry{{TTE: tte, Label: "2026-09-24", Skew: skew}})
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}

	holder := &domain.SnapshotHolder{}
	holder.Publish(&domain.MarketSnap{
		Version:        3,
		IndexSpot:      testSpot,
		ImpliedForward: testFwd,
		RiskFreeRate:   testRate,
		Expiry:         time.Date(2026, 9, 24, 15, 30, 0, 0, time.UTC),
		TimeToExpiry:   tte,
		Surface:        surface,
		Options: []domain.OptionState{
			{
				Instrument: domain.Instrument{
					TradingSymbol: "NIFTY26SEP25000CE",
					Expiry:        time.Date(2026, 9, 24, 15, 30, 0, 0, time.UTC),
					Strike:        25000,
					OptionType:    pricing.OptionTypeCall,
				},
				Quote:      domain.Quote{Bid: 210, Ask: 212, OpenInterest: 900_000},
				ImpliedVol: 0.25,
			},
			{
				Instrument: domain.Instrument{
					TradingSymbol: "NIFTY26SEP24500PE",
					Expiry:        time.Date(2026, 9, 24, 15, 30, 0, 0, time.UTC),
					Strike:        24500,
					OptionType:    pricing.OptionTypePut,
				},
				SolveErr: domain.ErrQuoteUnavailable,
			},
		},
	})
	return holder
}

func newQueryService(holder *domain.SnapshotHolder) *MarketQueryService {
	return NewMarketQueryService(holder, pricing.NewGreeksCalculator(pricing.BumpSizes{}))
}

func TestQuery_NoSnapshotYet(t *testing.T) {
	t.Parallel()

	svc := newQueryService(&domain.SnapshotHolder{})
	if _, err := svc.GetSnapshot(); !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("GetSnapshot err = %v, want ErrQuoteUnavailable", err)
	}
	if _, err := svc.GetChain(); !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("GetChain err = %v, want ErrQuoteUnavailable", err)
	}
	if _, err := svc.GetTermStructure(nil); !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("GetTermStructure err = %v, want ErrQuoteUnavailable", err)
	}
}

func TestQuery_SnapshotAndChain(t *testing.T) {
	t.Parallel()

	svc := newQueryService(publishedHolder(t))

	snap, err := svc.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Version != 3 || snap.Expiry != "2026-09-24" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Surface == nil || len(snap.Surface.Points) != 3 {
		t.Fatalf("surface DTO points = %v, want 3", snap.Surface)
	}

	chain, err := svc.GetChain()
	if err != nil {
		t.Fatalf("GetChain: %v", err)
	}
	if len(chain.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(chain.Rows))
	}
	if chain.Rows[0].ImpliedVol != 0.25 || chain.Rows[0].SolveError != "" {
		t.Fatalf("solved row = %+v", chain.Rows[0])
	}
	if npv, _ := chain.Rows[0].NPV.Float64(); npv <= 0 {
		t.Fatalf("ATM call NPV = %v, want positive", npv)
	}
	if delta, _ := chain.Rows[0].Delta.Float64(); delta <= 0 {
		t.Fatalf("call Delta = %v, want positive", delta)
	}
	if chain.Rows[1].SolveError == "" {
		t.Fatal("failed row must carry its solve error")
	}
}

func TestQuery_TermStructure(t *testing.T) {
	t.Parallel()

	svc := newQueryService(publishedHolder(t))

	// 单到期退化为常数平值波动率
	points, err := svc.GetTermStructure([]float64{0.01, 0.1, 1.0})
	if err != nil {
		t.Fatalf("GetTermStructure: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	for _, p := range points {
		if math.Abs(p.Vol-0.25) > 1e-9 {
			t.Fatalf("vol at tte %v = %v, want 0.25", p.TTE, p.Vol)
		}
	}
}
