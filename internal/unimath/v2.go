package unimath

import (
	"errors"
	"math/big"
)

var (
	v2FeeNumerator   = big.NewInt(997)
	v2FeeDenominator = big.NewInt(1000)

	// ErrInsufficientReserves means the trade size is too large for the
	// pool's reserves.
	ErrInsufficientReserves = errors.New("insufficient reserves")
)

// V2AmountOut returns the output of a constant-product swap with the 0.3%
// fee. The result is rounded down by one extra wei, matching how the
// on-chain router quotes are consumed. An input at or above the input-side
// reserve cannot be filled.
func V2AmountOut(reserveIn, reserveOut, amountIn *big.Int) (*big.Int, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientReserves
	}
	if amountIn.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if amountIn.Cmp(reserveIn) >= 0 {
		return nil, ErrInsufficientReserves
	}

	amountInWithFee := new(big.Int).Mul(amountIn, v2FeeNumerator)
	numerator := new(big.Int).Mul(reserveOut, amountInWithFee)
	denominator := new(big.Int).Mul(reserveIn, v2FeeDenominator)
	denominator.Add(denominator, amountInWithFee)

	out := numerator.Div(numerator, denominator)
	out.Sub(out, bigOne)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out, nil
}

// V2AmountIn returns the input required to receive amountOut, rounded up by
// one wei. An output at or above the output-side reserve, or a required
// input at or above the input-side reserve, cannot be filled.
func V2AmountIn(reserveIn, reserveOut, amountOut *big.Int) (*big.Int, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientReserves
	}
	if amountOut.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientReserves
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, v2FeeDenominator)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, v2FeeNumerator)

	in := numerator.Div(numerator, denominator)
	in.Add(in, bigOne)
	if in.Cmp(reserveIn) >= 0 {
		return nil, ErrInsufficientReserves
	}
	return in, nil
}
