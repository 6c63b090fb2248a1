package univ3math

import (
	"math/big"
	"testing"
)

func TestSqrtRatioAtTickKnownValues(t *testing.T) {
	got, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(Q96) != 0 {
		t.Fatalf("tick 0 sqrt ratio = %s, want %s", got, Q96)
	}

	got, err = SqrtRatioAtTick(MinTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(MinSqrtRatio) != 0 {
		t.Fatalf("min tick sqrt ratio = %s, want %s", got, MinSqrtRatio)
	}

	got, err = SqrtRatioAtTick(MaxTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(MaxSqrtRatio) != 0 {
		t.Fatalf("max tick sqrt ratio = %s, want %s", got, MaxSqrtRatio)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev, err := SqrtRatioAtTick(-1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for tick := int32(-999); tick <= 1000; tick++ {
		cur, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d", tick)
		}
		prev = cur
	}
}

func TestSqrtRatioAtTickOutOfRange(t *testing.T) {
	if _, err := SqrtRatioAtTick(MinTick - 1); err == nil {
		t.Fatalf("expected error below min tick")
	}
	if _, err := SqrtRatioAtTick(MaxTick + 1); err == nil {
		t.Fatalf("expected error above max tick")
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	for _, tick := range []int32{MinTick, -887220, -100000, -60, -1, 0, 1, 60, 193380, 887220} {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		back, err := TickAtSqrtRatio(ratio)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if back != tick {
			t.Fatalf("round trip mismatch: %d -> %d", tick, back)
		}
	}
}

func TestTickAtSqrtRatioBetweenTicks(t *testing.T) {
	ratio, err := SqrtRatioAtTick(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Just below the next tick boundary still maps to 100.
	next, err := SqrtRatioAtTick(101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	almost := new(big.Int).Sub(next, big.NewInt(1))
	tick, err := TickAtSqrtRatio(almost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick != 100 {
		t.Fatalf("tick below boundary = %d, want 100", tick)
	}
	tick, err = TickAtSqrtRatio(ratio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick != 100 {
		t.Fatalf("tick at boundary = %d, want 100", tick)
	}
}

func TestNearestUsableTick(t *testing.T) {
	cases := []struct {
		tick, spacing, want int32
	}{
		{0, 60, 0},
		{59, 60, 60},
		{29, 60, 0},
		{30, 60, 0},   // exact tie rounds down
		{31, 60, 60},
		{-29, 60, 0},
		{-30, 60, -60}, // exact tie rounds down
		{-31, 60, -60},
		{-600, 60, -600},
		{887272, 60, 887220},
		{-887272, 60, -887220},
		{7, 10, 10},
		{-5, 10, -10},
	}
	for _, c := range cases {
		got, err := NearestUsableTick(c.tick, c.spacing)
		if err != nil {
			t.Fatalf("tick %d spacing %d: %v", c.tick, c.spacing, err)
		}
		if got != c.want {
			t.Fatalf("nearest(%d, %d) = %d, want %d", c.tick, c.spacing, got, c.want)
		}
		if got%c.spacing != 0 {
			t.Fatalf("nearest(%d, %d) = %d not aligned", c.tick, c.spacing, got)
		}
	}
}

func TestNearestUsableTickIdempotent(t *testing.T) {
	for _, tick := range []int32{-887272, -1234, -30, 0, 29, 31, 454545, 887272} {
		once, err := NearestUsableTick(tick, 60)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		twice, err := NearestUsableTick(once, 60)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if once != twice {
			t.Fatalf("not idempotent for %d: %d != %d", tick, once, twice)
		}
	}
}

func TestNearestUsableTickInvalidSpacing(t *testing.T) {
	if _, err := NearestUsableTick(100, 0); err == nil {
		t.Fatalf("expected error for zero spacing")
	}
	if _, err := NearestUsableTick(100, -60); err == nil {
		t.Fatalf("expected error for negative spacing")
	}
}

func TestPriceToTick(t *testing.T) {
	tick, err := PriceToTick(big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick != 0 {
		t.Fatalf("price 1 tick = %d, want 0", tick)
	}

	tick, err = PriceToTick(big.NewInt(2), big.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick != 6931 {
		t.Fatalf("price 2 tick = %d, want 6931", tick)
	}

	tick, err = PriceToTick(big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick != -6932 {
		t.Fatalf("price 0.5 tick = %d, want -6932", tick)
	}
}

func TestPriceToTickInvalid(t *testing.T) {
	if _, err := PriceToTick(big.NewInt(0), big.NewInt(1)); err == nil {
		t.Fatalf("expected error for zero numerator")
	}
	if _, err := PriceToTick(big.NewInt(1), big.NewInt(0)); err == nil {
		t.Fatalf("expected error for zero denominator")
	}
}
