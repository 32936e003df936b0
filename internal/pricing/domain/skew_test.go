package domain_test

import (
	"errors"
	"math"
	"testing"

	domain "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

const (
	testForward = 25962.1
	testRate    = 0.054251
	testTTE     = 0.0822
)

func TestBuildSkew_CutoffFiltersEverything(t *testing.T) {
	t.Parallel()

	calls := []domain.StrikeQuote{{Strike: 26000, ImpliedVol: 0.14, OpenInterest: 100}}
	puts := []domain.StrikeQuote{{Strike: 25000, ImpliedVol: 0.16, OpenInterest: 200}}

	_, err := domain.BuildSkew(calls, puts, testForward, testRate, testTTE, 500_000)
	if !errors.Is(err, domain.ErrNoLiquidStrikes) {
		t.Fatalf("want ErrNoLiquidStrikes, got %v", err)
	}
}

func TestBuildSkew_SingleSidedCall(t *testing.T) {
	t.Parallel()

	calls := []domain.StrikeQuote{{Strike: 26200, ImpliedVol: 0.145, OpenInterest: 700_000}}
	sk, err := domain.BuildSkew(calls, nil, testForward, testRate, testTTE, 0)
	if err != nil {
		t.Fatalf("BuildSkew error: %v", err)
	}

	logM := math.Log(26200 / testForward)
	if got := sk.GetVol(logM); math.Abs(got-0.145) > 1e-12 {
		t.Fatalf("GetVol = %v, want 0.145", got)
	}
	if got := sk.GetCallPremia(logM); got != 0 {
		t.Fatalf("GetCallPremia = %v, want 0", got)
	}
	if got := sk.GetPutPremia(logM); got != 0 {
		t.Fatalf("GetPutPremia = %v, want 0", got)
	}
}

func TestBuildSkew_SideSelectionByOpenInterest(t *testing.T) {
	t.Parallel()

	strike := 25900.0
	callVol := 0.13
	putPrice, err := domain.Black76Price(domain.OptionTypePut, testForward, strike, testRate, testTTE, 0.16)
	if err != nil {
		t.Fatalf("put price error: %v", err)
	}

	calls := []domain.StrikeQuote{{Strike: strike, ImpliedVol: callVol, OpenInterest: 900_000}}
	puts := []domain.StrikeQuote{{Strike: strike, Price: putPrice, ImpliedVol: 0.16, OpenInterest: 600_000}}

	sk, err := domain.BuildSkew(calls, puts, testForward, testRate, testTTE, 0)
	if err != nil {
		t.Fatalf("BuildSkew error: %v", err)
	}

	logM := math.Log(strike / testForward)

	// 看涨持仓量更高：波动率取看涨一边
	if got := sk.GetVol(logM); math.Abs(got-callVol) > 1e-12 {
		t.Fatalf("GetVol = %v, want %v", got, callVol)
	}
	// 看跌冲击 = 看跌市场价 - 按看涨波动率推算的看跌价
	implied, err := domain.Black76Price(domain.OptionTypePut, testForward, strike, testRate, testTTE, callVol)
	if err != nil {
		t.Fatalf("implied put price error: %v", err)
	}
	wantImpact := putPrice - implied
	if got := sk.GetPutPremia(logM); math.Abs(got-wantImpact) > 1e-9 {
		t.Fatalf("GetPutPremia = %v, want %v", got, wantImpact)
	}
	// 被选中一边的冲击为 0
	if got := sk.GetCallPremia(logM); got != 0 {
		t.Fatalf("GetCallPremia = %v, want 0", got)
	}
}

func TestBuildSkew_PutSideWins(t *testing.T) {
	t.Parallel()

	strike := 25000.0
	calls := []domain.StrikeQuote{{Strike: strike, Price: 120, ImpliedVol: 0.15, OpenInterest: 550_000}}
	puts := []domain.StrikeQuote{{Strike: strike, ImpliedVol: 0.18, OpenInterest: 1_200_000}}

	sk, err := domain.BuildSkew(calls, puts, testForward, testRate, testTTE, 0)
	if err != nil {
		t.Fatalf("BuildSkew error: %v", err)
	}

	logM := math.Log(strike / testForward)
	if got := sk.GetVol(logM); math.Abs(got-0.18) > 1e-12 {
		t.Fatalf("GetVol = %v, want 0.18", got)
	}
	if got := sk.GetPutPremia(logM); got != 0 {
		t.Fatalf("GetPutPremia = %v, want 0", got)
	}
	implied, err := domain.Black76Price(domain.OptionTypeCall, testForward, strike, testRate, testTTE, 0.18)
	if err != nil {
		t.Fatalf("implied call price error: %v", err)
	}
	if got := sk.GetCallPremia(logM); math.Abs(got-(120-implied)) > 1e-9 {
		t.Fatalf("GetCallPremia = %v, want %v", got, 120-implied)
	}
}

func TestSkew_BumpShiftsVolOnly(t *testing.T) {
	t.Parallel()

	sk := mustSkewFromPoints(t, testForward, testRate, testTTE, []domain.SkewPoint{
		{LogMoneyness: -0.05, Vol: 0.17, PutImpact: 0.3, CallImpact: 0},
		{LogMoneyness: 0, Vol: 0.14, PutImpact: 0, CallImpact: 0.2},
		{LogMoneyness: 0.04, Vol: 0.15, PutImpact: 0, CallImpact: 0},
	})

	b := sk.Bump(0.02)
	for _, x := range []float64{-0.08, -0.05, -0.01, 0, 0.02, 0.04, 0.07} {
		if diff := b.GetVol(x) - sk.GetVol(x); math.Abs(diff-0.02) > 1e-12 {
			t.Fatalf("vol bump at %v: diff = %v", x, diff)
		}
		// 冲击曲线不随 Bump 平移
		if b.GetPutPremia(x) != sk.GetPutPremia(x) {
			t.Fatalf("put impact changed at %v", x)
		}
		if b.GetCallPremia(x) != sk.GetCallPremia(x) {
			t.Fatalf("call impact changed at %v", x)
		}
	}
}

func TestSkew_BumpNode(t *testing.T) {
	t.Parallel()

	sk := mustSkewFromPoints(t, testForward, testRate, testTTE, []domain.SkewPoint{
		{LogMoneyness: -0.05, Vol: 0.17},
		{LogMoneyness: 0, Vol: 0.14},
		{LogMoneyness: 0.04, Vol: 0.15},
	})

	b, err := sk.BumpNode(1, 0.01)
	if err != nil {
		t.Fatalf("BumpNode error: %v", err)
	}
	// 被冲击节点精确平移
	if diff := b.GetVol(0) - sk.GetVol(0); math.Abs(diff-0.01) > 1e-12 {
		t.Fatalf("node bump: diff = %v, want 0.01", diff)
	}
	// 其余节点保持原值
	if diff := b.GetVol(-0.05) - sk.GetVol(-0.05); math.Abs(diff) > 1e-12 {
		t.Fatalf("untouched node moved by %v", diff)
	}

	if _, err := sk.BumpNode(9, 0.01); !errors.Is(err, domain.ErrUnknownParameter) {
		t.Fatalf("want ErrUnknownParameter, got %v", err)
	}
}

func TestBuildSkew_BadQuoteIsIsolated(t *testing.T) {
	t.Parallel()

	// 第二个报价价格越过无套利上界，反解失败，仅剔除该点
	calls := []domain.StrikeQuote{
		{Strike: 26000, ImpliedVol: 0.14, OpenInterest: 700_000},
		{Strike: 26500, Price: 1e9, OpenInterest: 700_000},
	}
	sk, err := domain.BuildSkew(calls, nil, testForward, testRate, testTTE, 0)
	if err != nil {
		t.Fatalf("BuildSkew error: %v", err)
	}
	if n := len(sk.Points()); n != 1 {
		t.Fatalf("expected 1 surviving point, got %d", n)
	}
}
