package domain_test

import (
	"errors"
	"math"
	"testing"

	domain "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

func buildTwoExpirySurface(t *testing.T) *domain.Surface {
	t.Helper()

	near := mustSkewFromPoints(t, testForward, testRate, 0.02, []domain.SkewPoint{
		{LogMoneyness: -0.05, Vol: 0.18},
		{LogMoneyness: 0, Vol: 0.13},
		{LogMoneyness: 0.05, Vol: 0.15},
	})
	far := mustSkewFromPoints(t, testForward, testRate, 0.10, []domain.SkewPoint{
		{LogMoneyness: -0.05, Vol: 0.20},
		{LogMoneyness: 0, Vol: 0.16},
		{LogMoneyness: 0.05, Vol: 0.17},
	})
	surf, err := domain.NewSurface([]domain.SurfaceEntry{
		{TTE: 0.10, Label: "2026-09-24", Skew: far},
		{TTE: 0.02, Label: "2026-08-27", Skew: near},
	})
	if err != nil {
		t.Fatalf("NewSurface error: %v", err)
	}
	return surf
}

func TestSurface_NearestExpiryResolution(t *testing.T) {
	t.Parallel()

	surf := buildTwoExpirySurface(t)

	// 到期方向不插值：解析到最近的偏斜
	if got := surf.Vol(0.01, 0); math.Abs(got-0.13) > 1e-12 {
		t.Fatalf("near expiry vol = %v, want 0.13", got)
	}
	if got := surf.Vol(0.09, 0); math.Abs(got-0.16) > 1e-12 {
		t.Fatalf("far expiry vol = %v, want 0.16", got)
	}
	if got := surf.Vol(0.5, 0); math.Abs(got-0.16) > 1e-12 {
		t.Fatalf("beyond last expiry vol = %v, want 0.16", got)
	}
}

func TestSurface_ParallelBump(t *testing.T) {
	t.Parallel()

	surf := buildTwoExpirySurface(t)
	b := surf.Bump(0.03)
	for _, tte := range []float64{0.01, 0.09} {
		for _, m := range []float64{-0.05, 0, 0.02, 0.05} {
			diff := b.Vol(tte, m) - surf.Vol(tte, m)
			if math.Abs(diff-0.03) > 1e-12 {
				t.Fatalf("bump at (%v,%v): diff = %v", tte, m, diff)
			}
		}
	}
}

func TestSurface_BumpParamByName(t *testing.T) {
	t.Parallel()

	surf := buildTwoExpirySurface(t)
	names := surf.ParamNames()
	if len(names) != 6 {
		t.Fatalf("ParamNames = %d entries, want 6", len(names))
	}

	// 冲击近月平值节点（升序后下标 1）
	b, err := surf.BumpParam("2026-08-27|1", 0.02)
	if err != nil {
		t.Fatalf("BumpParam error: %v", err)
	}
	if diff := b.Vol(0.02, 0) - surf.Vol(0.02, 0); math.Abs(diff-0.02) > 1e-12 {
		t.Fatalf("bumped node diff = %v, want 0.02", diff)
	}
	// 远月不受影响
	if diff := b.Vol(0.10, 0) - surf.Vol(0.10, 0); diff != 0 {
		t.Fatalf("far expiry moved by %v", diff)
	}

	if _, err := surf.BumpParam("2027-01-01|0", 0.01); !errors.Is(err, domain.ErrUnknownParameter) {
		t.Fatalf("want ErrUnknownParameter, got %v", err)
	}
}

func TestSurface_DTORoundTrip(t *testing.T) {
	t.Parallel()

	surf := buildTwoExpirySurface(t)
	dto := surf.ToDTO()
	if len(dto.Points) != 6 {
		t.Fatalf("DTO points = %d, want 6", len(dto.Points))
	}

	back, err := domain.SurfaceFromDTO(dto)
	if err != nil {
		t.Fatalf("SurfaceFromDTO error: %v", err)
	}

	for _, tte := range []float64{0.02, 0.10} {
		for _, m := range []float64{-0.05, -0.02, 0, 0.03, 0.05} {
			if math.Abs(back.Vol(tte, m)-surf.Vol(tte, m)) > 1e-12 {
				t.Fatalf("vol mismatch after round trip at (%v,%v)", tte, m)
			}
		}
	}

	sk, _ := surf.SkewAt(0.02)
	bk, _ := back.SkewAt(0.02)
	for _, m := range []float64{-0.05, 0, 0.05} {
		if math.Abs(bk.GetPutPremia(m)-sk.GetPutPremia(m)) > 1e-12 {
			t.Fatalf("put impact mismatch after round trip at %v", m)
		}
	}
}

func TestSurface_EmptyFails(t *testing.T) {
	t.Parallel()

	if _, err := domain.NewSurface(nil); !errors.Is(err, domain.ErrEmptySurface) {
		t.Fatalf("want ErrEmptySurface, got %v", err)
	}
	if _, err := domain.SurfaceFromDTO(&domain.SurfaceDTO{}); !errors.Is(err, domain.ErrEmptySurface) {
		t.Fatalf("want ErrEmptySurface for empty DTO, got %v", err)
	}
}

func TestSurface_ATMTermStructure(t *testing.T) {
	t.Parallel()

	surf := buildTwoExpirySurface(t)
	ts, err := surf.ATMTermStructure()
	if err != nil {
		t.Fatalf("ATMTermStructure error: %v", err)
	}
	if got := ts(0.02); math.Abs(got-0.13) > 1e-12 {
		t.Fatalf("ts(0.02) = %v, want 0.13", got)
	}
	if got := ts(0.10); math.Abs(got-0.16) > 1e-12 {
		t.Fatalf("ts(0.10) = %v, want 0.16", got)
	}
	// 平值波动率沿期限递增时，期限结构插值保持单调
	prev := math.Inf(-1)
	for x := 0.02; x <= 0.10; x += 0.005 {
		v := ts(x)
		if v < prev-1e-12 {
			t.Fatalf("term structure not monotone at %v", x)
		}
		prev = v
	}
}
