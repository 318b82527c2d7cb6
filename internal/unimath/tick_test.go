package unimath

import (
	"math/big"
	"testing"
)

func TestSqrtRatioAtTickKnownValues(t *testing.T) {
	got, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("tick 0: %v", err)
	}
	want := new(big.Int).Lsh(big.NewInt(1), 96)
	if got.Cmp(want) != 0 {
		t.Fatalf("tick 0: got %s, want %s", got, want)
	}

	got, err = SqrtRatioAtTick(MinTick)
	if err != nil {
		t.Fatalf("min tick: %v", err)
	}
	if got.Cmp(MinSqrtRatio) != 0 {
		t.Fatalf("min tick: got %s, want %s", got, MinSqrtRatio)
	}

	got, err = SqrtRatioAtTick(MaxTick)
	if err != nil {
		t.Fatalf("max tick: %v", err)
	}
	if got.Cmp(MaxSqrtRatio) != 0 {
		t.Fatalf("max tick: got %s, want %s", got, MaxSqrtRatio)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev, err := SqrtRatioAtTick(-1000)
	if err != nil {
		t.Fatal(err)
	}
	for tick := int32(-999); tick <= 1000; tick++ {
		cur, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("ratio not increasing at tick %d", tick)
		}
		prev = cur
	}
}

func TestSqrtRatioAtTickOutOfBounds(t *testing.T) {
	if _, err := SqrtRatioAtTick(MaxTick + 1); err != ErrTickOutOfBounds {
		t.Fatalf("got %v, want ErrTickOutOfBounds", err)
	}
	if _, err := SqrtRatioAtTick(MinTick - 1); err != ErrTickOutOfBounds {
		t.Fatalf("got %v, want ErrTickOutOfBounds", err)
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	for _, tick := range []int32{MinTick, -887220, -100000, -60, -1, 0, 1, 60, 100000, 887220} {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		got, err := TickAtSqrtRatio(ratio)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if got != tick {
			t.Fatalf("round trip for tick %d: got %d", tick, got)
		}
	}
}

func TestTickAtSqrtRatioOutOfBounds(t *testing.T) {
	tooLow := new(big.Int).Sub(MinSqrtRatio, big.NewInt(1))
	if _, err := TickAtSqrtRatio(tooLow); err != ErrSqrtPriceOutOfBounds {
		t.Fatalf("got %v, want ErrSqrtPriceOutOfBounds", err)
	}
	if _, err := TickAtSqrtRatio(MaxSqrtRatio); err != ErrSqrtPriceOutOfBounds {
		t.Fatalf("got %v, want ErrSqrtPriceOutOfBounds", err)
	}
}
