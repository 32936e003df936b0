package spline_test

import (
	"math"
	"testing"

	"github.com/wyfcoding/indexderivatives/internal/numerics/spline"
)

func TestNaturalCubic_InterpolatesNodesExactly(t *testing.T) {
	t.Parallel()

	xs := []float64{-0.2, -0.1, 0, 0.05, 0.15, 0.3}
	ys := []float64{0.31, 0.24, 0.19, 0.18, 0.21, 0.28}

	s, err := spline.NewNaturalCubic(xs, ys)
	if err != nil {
		t.Fatalf("NewNaturalCubic error: %v", err)
	}
	for i := range xs {
		got := s.Evaluate(xs[i])
		if math.Abs(got-ys[i]) > 1e-12 {
			t.Fatalf("node %d: Evaluate(%v) = %v, want %v", i, xs[i], got, ys[i])
		}
	}
}

func TestNaturalCubic_TwoPointsIsLinear(t *testing.T) {
	t.Parallel()

	s, err := spline.NewNaturalCubic([]float64{0, 1}, []float64{1, 3})
	if err != nil {
		t.Fatalf("NewNaturalCubic error: %v", err)
	}
	if got := s.Evaluate(0.5); math.Abs(got-2) > 1e-12 {
		t.Fatalf("Evaluate(0.5) = %v, want 2", got)
	}
	// 两点样条的边界区间外推仍是同一条直线
	if got := s.Evaluate(2); math.Abs(got-5) > 1e-12 {
		t.Fatalf("Evaluate(2) = %v, want 5", got)
	}
}

func TestNaturalCubic_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := spline.NewNaturalCubic([]float64{1}, []float64{1}); err == nil {
		t.Fatal("expected error for single point")
	}
	if _, err := spline.NewNaturalCubic([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestNaturalCubic_BumpShiftsEverywhere(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 2, 3}
	ys := []float64{0.2, 0.18, 0.21, 0.3}
	s, err := spline.NewNaturalCubic(xs, ys)
	if err != nil {
		t.Fatalf("NewNaturalCubic error: %v", err)
	}
	b := s.Bump(0.05)

	for x := -1.0; x <= 4.0; x += 0.1 {
		diff := b.Evaluate(x) - s.Evaluate(x)
		if math.Abs(diff-0.05) > 1e-12 {
			t.Fatalf("bump at x=%v: diff = %v, want 0.05", x, diff)
		}
	}
}

func TestMonotoneCubic_PreservesMonotonicity(t *testing.T) {
	t.Parallel()

	xs := []float64{0.02, 0.08, 0.25, 0.5, 1, 2}
	ys := []float64{0.12, 0.14, 0.15, 0.155, 0.17, 0.19}

	s, err := spline.NewMonotoneCubic(xs, ys)
	if err != nil {
		t.Fatalf("NewMonotoneCubic error: %v", err)
	}

	prev := math.Inf(-1)
	for x := xs[0]; x <= xs[len(xs)-1]; x += 0.001 {
		v := s.Evaluate(x)
		if v < prev-1e-12 {
			t.Fatalf("monotonicity violated at x=%v: %v < %v", x, v, prev)
		}
		prev = v
	}
}

func TestMonotoneCubic_FlatSecantStaysFlat(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 2, 2, 3}
	s, err := spline.NewMonotoneCubic(xs, ys)
	if err != nil {
		t.Fatalf("NewMonotoneCubic error: %v", err)
	}
	// 平坦割线区间内不得过冲
	for x := 1.0; x <= 2.0; x += 0.05 {
		v := s.Evaluate(x)
		if math.Abs(v-2) > 1e-12 {
			t.Fatalf("flat interval overshoot at x=%v: %v", x, v)
		}
	}
}

func TestMonotoneCubic_LinearExtrapolation(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 2}
	ys := []float64{0, 1, 2}
	s, err := spline.NewMonotoneCubic(xs, ys)
	if err != nil {
		t.Fatalf("NewMonotoneCubic error: %v", err)
	}
	// 边界斜率为 1，外推沿直线
	if got := s.Evaluate(3); math.Abs(got-3) > 1e-12 {
		t.Fatalf("Evaluate(3) = %v, want 3", got)
	}
	if got := s.Evaluate(-1); math.Abs(got-(-1)) > 1e-12 {
		t.Fatalf("Evaluate(-1) = %v, want -1", got)
	}
}

func TestMonotoneCubic_RequiresStrictlyIncreasingX(t *testing.T) {
	t.Parallel()

	if _, err := spline.NewMonotoneCubic([]float64{0, 0, 1}, []float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for duplicate x")
	}
	if _, err := spline.NewMonotoneCubic([]float64{1, 0}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for decreasing x")
	}
}

func TestMonotoneCubic_BumpShiftsEverywhere(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 0.5, 1, 2}
	ys := []float64{0.1, 0.12, 0.16, 0.2}
	s, err := spline.NewMonotoneCubic(xs, ys)
	if err != nil {
		t.Fatalf("NewMonotoneCubic error: %v", err)
	}
	b := s.Bump(-0.02)
	for x := -0.5; x <= 2.5; x += 0.1 {
		diff := b.Evaluate(x) - s.Evaluate(x)
		if math.Abs(diff-(-0.02)) > 1e-12 {
			t.Fatalf("bump at x=%v: diff = %v, want -0.02", x, diff)
		}
	}
}
