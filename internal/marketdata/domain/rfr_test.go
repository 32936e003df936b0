package domain

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestRateHolder_SetGet(t *testing.T) {
	t.Parallel()

	h, err := NewRateHolder(0.054251)
	if err != nil {
		t.Fatalf("NewRateHolder: %v", err)
	}
	if got := h.Get(); got != 0.054251 {
		t.Fatalf("Get = %v, want 0.054251", got)
	}

	if err := h.Set(0.06); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := h.Get(); got != 0.06 {
		t.Fatalf("Get after Set = %v, want 0.06", got)
	}
}

func TestRateHolder_RejectsNonFinite(t *testing.T) {
	t.Parallel()

	h, err := NewRateHolder(0.05)
	if err != nil {
		t.Fatalf("NewRateHolder: %v", err)
	}
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := h.Set(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Set(%v) = %v, want ErrInvalidInput", bad, err)
		}
	}
	if got := h.Get(); got != 0.05 {
		t.Fatalf("rejected update must not change value, got %v", got)
	}

	if _, err := NewRateHolder(math.NaN()); err == nil {
		t.Fatal("NewRateHolder(NaN) must fail")
	}
}

func TestRateHolder_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	h, err := NewRateHolder(0.01)
	if err != nil {
		t.Fatalf("NewRateHolder: %v", err)
	}

	rates := []float64{0.01, 0.02, 0.03, 0.04, 0.05}
	valid := make(map[float64]bool, len(rates))
	for _, r := range rates {
		valid[r] = true
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if err := h.Set(rates[i%len(rates)]); err != nil {
				t.Errorf("Set: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			// 读方永远只能看到某次完整写入的值，不会见到撕裂的位模式
			if got := h.Get(); !valid[got] {
				t.Errorf("Get = %v, not a value ever written", got)
				return
			}
		}
	}()
	wg.Wait()
}
