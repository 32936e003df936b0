package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	mddomain "github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/internal/scenario/domain"
)

type memRepo struct {
	trades []domain.Trade
}

func (r *memRepo) Save(ctx context.Context, t *domain.Trade) error {
	r.trades = append(r.trades, *t)
	return nil
}

func (r *memRepo) List(ctx context.Context) ([]domain.Trade, error) {
	out := make([]domain.Trade, len(r.trades))
	copy(out, r.trades)
	return out, nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	for i, t := range r.trades {
		if t.ID == id {
			r.trades = append(r.trades[:i], r.trades[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("trade %s: %w", id, domain.ErrTradeNotFound)
}

type stubProvider struct {
	snap *mddomain.MarketSnap
}

func (p *stubProvider) Current() *mddomain.MarketSnap { return p.snap }

type recordingPublisher struct {
	topics []string
	keys   []string
}

func (p *recordingPublisher) SendMessage(ctx context.Context, topic, key string, value any) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return nil
}

func testSnap(version uint64, forward float64) *mddomain.MarketSnap {
	expiry := time.Date(2026, 9, 24, 15, 30, 0, 0, time.UTC)
	tte := 30.0 / 365.0
	points := []pricing.SkewPoint{
		{LogMoneyness: math.Log(24500.0 / forward), Vol: 0.27},
		{LogMoneyness: math.Log(25000.0 / forward), Vol: 0.25},
		{LogMoneyness: math.Log(25500.0 / forward), Vol: 0.24},
	}
	skew, err := pricing.NewSkewFromPoints(forward, 0.054251, tte, points)
	if err != nil {
		panic(err)
	}
	surface, err := pricing.NewSurface([]pricing.SurfaceEntry{{TTE: tte, Label: "2026-09-24", Skew: skew}})
	if err != nil {
		panic(err)
	}
	return &mddomain.MarketSnap{
		Version:        version,
		IndexSpot:      forward - 20,
		ImpliedForward: forward,
		RiskFreeRate:   0.054251,
		Expiry:         expiry,
		TimeToExpiry:   tte,
		Surface:        surface,
	}
}

func newTestService(provider *stubProvider, pub EventPublisher) (*ScenarioService, *memRepo) {
	repo := &memRepo{}
	engine := domain.NewEngine(pricing.NewGreeksCalculator(pricing.BumpSizes{}))
	svc := NewScenarioService(repo, provider, engine, pub, "pricing.scenarios", domain.GridRequest{
		SpotShifts: []float64{-0.01, 0, 0.01},
		VolShifts:  []float64{0},
		TimeShifts: []float64{0},
	})
	return svc, repo
}

func TestAddTrade_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(&stubProvider{snap: testSnap(1, 25000)}, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  AddTradeRequest
	}{
		{"bad expiry", AddTradeRequest{ProductType: "OPTION", Expiry: "soon", Strike: 25000, OptionType: "CALL", Quantity: 1}},
		{"bad product", AddTradeRequest{ProductType: "SWAP", Expiry: "2026-09-24", Quantity: 1}},
		{"zero strike", AddTradeRequest{ProductType: "OPTION", Expiry: "2026-09-24", OptionType: "CALL", Quantity: 1}},
		{"bad option type", AddTradeRequest{ProductType: "OPTION", Expiry: "2026-09-24", Strike: 25000, OptionType: "STRADDLE", Quantity: 1}},
	}
	for _, tc := range cases {
		if _, err := svc.AddTrade(ctx, tc.req); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	trade, err := svc.AddTrade(ctx, AddTradeRequest{
		TradingSymbol: "NIFTY26SEP25000CE",
		ProductType:   "option", Expiry: "2026-09-24", Strike: 25000, OptionType: "call",
		Lots: 2, Quantity: 150,
	})
	if err != nil {
		t.Fatalf("AddTrade: %v", err)
	}
	if trade.ID == "" || trade.ProductType != "OPTION" || trade.OptionType != "CALL" {
		t.Fatalf("unexpected trade: %+v", trade)
	}
	if trade.TradingSymbol != "NIFTY26SEP25000CE" || trade.Lots != 2 {
		t.Fatalf("symbol/lots not carried: %+v", trade)
	}
}

func TestValueBook_RequiresSnapshotAndTrades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	svc, _ := newTestService(&stubProvider{snap: nil}, nil)
	if _, err := svc.ValueBook(ctx); !errors.Is(err, domain.ErrEmptyBook) {
		t.Fatalf("empty book: err = %v, want ErrEmptyBook", err)
	}

	if _, err := svc.AddTrade(ctx, AddTradeRequest{TradingSymbol: "NIFTY26SEPFUT", ProductType: "FUTURE", Expiry: "2026-09-24", Lots: 1, Quantity: 1}); err != nil {
		t.Fatalf("AddTrade: %v", err)
	}
	if _, err := svc.ValueBook(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("no snapshot: err = %v, want ErrNoSnapshot", err)
	}
}

func TestValueBook_UsesCurrentSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &stubProvider{snap: testSnap(7, 25000)}
	svc, _ := newTestService(provider, nil)

	if _, err := svc.AddTrade(ctx, AddTradeRequest{TradingSymbol: "NIFTY26SEPFUT", ProductType: "FUTURE", Expiry: "2026-09-24", Lots: 2, Quantity: 2}); err != nil {
		t.Fatalf("AddTrade: %v", err)
	}

	bv, err := svc.ValueBook(ctx)
	if err != nil {
		t.Fatalf("ValueBook: %v", err)
	}
	if bv.SnapshotVersion != 7 {
		t.Fatalf("SnapshotVersion = %d, want 7", bv.SnapshotVersion)
	}
	npv, _ := bv.NPV.Float64()
	if math.Abs(npv-2*25000) > 1e-9 {
		t.Fatalf("NPV = %v, want 50000", npv)
	}
}

func TestRunGrid_DefaultsAndPublish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(&stubProvider{snap: testSnap(1, 25000)}, pub)

	if _, err := svc.AddTrade(ctx, AddTradeRequest{
		TradingSymbol: "NIFTY26SEP25000PE",
		ProductType:   "OPTION", Expiry: "2026-09-24", Strike: 25000, OptionType: "PUT",
		Lots: 1, Quantity: 1,
	}); err != nil {
		t.Fatalf("AddTrade: %v", err)
	}

	result, err := svc.RunGrid(ctx, GridRequestDTO{})
	if err != nil {
		t.Fatalf("RunGrid: %v", err)
	}
	if len(result.Cells) != 3 {
		t.Fatalf("cells = %d, want 3 from default axes", len(result.Cells))
	}
	if len(pub.topics) != 1 || pub.topics[0] != "pricing.scenarios" || pub.keys[0] != "grid" {
		t.Fatalf("publish calls: topics=%v keys=%v", pub.topics, pub.keys)
	}
}

func TestAttribute_TracksBaselineSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &stubProvider{snap: testSnap(1, 25000)}
	svc, _ := newTestService(provider, nil)

	if _, err := svc.AddTrade(ctx, AddTradeRequest{TradingSymbol: "NIFTY26SEPFUT", ProductType: "FUTURE", Expiry: "2026-09-24", Lots: 1, Quantity: 1}); err != nil {
		t.Fatalf("AddTrade: %v", err)
	}

	// 首次调用没有基准
	if _, err := svc.Attribute(ctx); !errors.Is(err, domain.ErrNoPreviousSnapshot) {
		t.Fatalf("first call: err = %v, want ErrNoPreviousSnapshot", err)
	}

	// 快照未前进时同样拒绝
	if _, err := svc.Attribute(ctx); !errors.Is(err, domain.ErrNoPreviousSnapshot) {
		t.Fatalf("unchanged snapshot: err = %v, want ErrNoPreviousSnapshot", err)
	}

	provider.snap = testSnap(2, 25150)
	attr, err := svc.Attribute(ctx)
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	if attr.FromVersion != 1 || attr.ToVersion != 2 {
		t.Fatalf("versions = %d -> %d, want 1 -> 2", attr.FromVersion, attr.ToVersion)
	}
	actual, _ := attr.Book.Actual.Float64()
	if math.Abs(actual-150) > 1e-6 {
		t.Fatalf("future book actual = %v, want 150", actual)
	}
}

func TestRemoveTrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo := newTestService(&stubProvider{snap: testSnap(1, 25000)}, nil)

	trade, err := svc.AddTrade(ctx, AddTradeRequest{TradingSymbol: "NIFTY26SEPFUT", ProductType: "FUTURE", Expiry: "2026-09-24", Lots: 1, Quantity: 1})
	if err != nil {
		t.Fatalf("AddTrade: %v", err)
	}
	if err := svc.RemoveTrade(ctx, trade.ID); err != nil {
		t.Fatalf("RemoveTrade: %v", err)
	}
	if len(repo.trades) != 0 {
		t.Fatalf("repo still holds %d trades", len(repo.trades))
	}
	if err := svc.RemoveTrade(ctx, trade.ID); !errors.Is(err, domain.ErrTradeNotFound) {
		t.Fatalf("err = %v, want ErrTradeNotFound", err)
	}
}
