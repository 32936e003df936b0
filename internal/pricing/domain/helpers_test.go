package domain_test

import (
	"testing"
	"time"

	domain "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

// flatSurface 测试用常数波动率曲面
type flatSurface struct {
	vol float64
}

func (f flatSurface) Vol(_, _ float64) float64 { return f.vol }

func (f flatSurface) Bump(amount float64) domain.VolSurface {
	return flatSurface{vol: f.vol + amount}
}

func (f flatSurface) BumpParams(bumps map[string]float64) (domain.VolSurface, error) {
	out := f
	for _, a := range bumps {
		out.vol += a
	}
	return out, nil
}

func (f flatSurface) ParamNames() []string { return []string{"flat|0"} }

func singleSkewSurface(t *testing.T, sk *domain.Skew, tte float64) *domain.Surface {
	t.Helper()
	surf, err := domain.NewSurface([]domain.SurfaceEntry{{TTE: tte, Label: "near", Skew: sk}})
	if err != nil {
		t.Fatalf("NewSurface error: %v", err)
	}
	return surf
}

func timeFromNow(tte float64) time.Time {
	return time.Now().Add(time.Duration(tte * 365 * 24 * float64(time.Hour)))
}

func mustSkewFromPoints(t *testing.T, forward, rate, tte float64, points []domain.SkewPoint) *domain.Skew {
	t.Helper()
	sk, err := domain.NewSkewFromPoints(forward, rate, tte, points)
	if err != nil {
		t.Fatalf("NewSkewFromPoints error: %v", err)
	}
	return sk
}
