package unimath

import (
	"math/big"
	"testing"
)

func TestV2AmountOut(t *testing.T) {
	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(1_000_000)

	out, err := V2AmountOut(reserveIn, reserveOut, big.NewInt(1000))
	if err != nil {
		t.Fatal(err)
	}
	// floor(997000*1000000 / (1000000000+997000)) - 1
	if out.Int64() != 995 {
		t.Fatalf("got %s, want 995", out)
	}
}

func TestV2AmountOutInsufficient(t *testing.T) {
	reserve := big.NewInt(1_000_000)
	if _, err := V2AmountOut(reserve, reserve, big.NewInt(1_000_000)); err != ErrInsufficientReserves {
		t.Fatalf("input equal to reserve: got %v, want ErrInsufficientReserves", err)
	}
	if _, err := V2AmountOut(big.NewInt(0), reserve, big.NewInt(10)); err != ErrInsufficientReserves {
		t.Fatalf("empty pool: got %v, want ErrInsufficientReserves", err)
	}
}

func TestV2AmountInInsufficient(t *testing.T) {
	reserve := big.NewInt(1_000_000)
	if _, err := V2AmountIn(reserve, reserve, big.NewInt(1_000_000)); err != ErrInsufficientReserves {
		t.Fatalf("output equal to reserve: got %v, want ErrInsufficientReserves", err)
	}
}

// The quoted required input must always be enough to buy back the quoted
// output, and never overshoot by more than the rounding margin.
func TestV2RoundTripConservation(t *testing.T) {
	reserveIn, _ := new(big.Int).SetString("5000000000000000000000", 10)
	reserveOut, _ := new(big.Int).SetString("12000000000000000000000000", 10)

	for _, in := range []int64{1_000, 1_000_000, 1_000_000_000_000} {
		amountIn := big.NewInt(in)
		out, err := V2AmountOut(reserveIn, reserveOut, amountIn)
		if err != nil {
			t.Fatalf("out(%d): %v", in, err)
		}
		if out.Sign() <= 0 {
			continue
		}
		needed, err := V2AmountIn(reserveIn, reserveOut, out)
		if err != nil {
			t.Fatalf("in(%s): %v", out, err)
		}
		if needed.Cmp(amountIn) > 0 {
			t.Fatalf("required input %s exceeds the input %s that produced the output", needed, amountIn)
		}
	}
}
