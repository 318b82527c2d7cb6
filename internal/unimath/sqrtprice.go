package unimath

import (
	"errors"
	"math/big"
)

var (
	// Q96 is 2^96, the scaling factor of Q64.96 sqrt prices.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

	ErrLiquidityZero = errors.New("liquidity must be greater than zero")
	ErrSqrtPriceZero = errors.New("sqrt price must be greater than zero")

	bigOne = big.NewInt(1)
)

func mulDiv(a, b, denom *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Div(p, denom)
}

func mulDivRoundingUp(a, b, denom *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	q, r := new(big.Int).QuoRem(p, denom, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, bigOne)
	}
	return q
}

func divRoundingUp(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, bigOne)
	}
	return q
}

// nextSqrtPriceFromAmount0 moves the price down (add=true) or up (add=false)
// by a token0 delta, rounding up so the pool never underpays.
func nextSqrtPriceFromAmount0(sqrtPX96, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	if amount.Sign() == 0 {
		return new(big.Int).Set(sqrtPX96), nil
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	product := new(big.Int).Mul(amount, sqrtPX96)

	if add {
		denominator := new(big.Int).Add(numerator1, product)
		if denominator.Cmp(numerator1) >= 0 {
			return mulDivRoundingUp(numerator1, sqrtPX96, denominator), nil
		}
		denominator.Div(numerator1, sqrtPX96)
		denominator.Add(denominator, amount)
		return divRoundingUp(numerator1, denominator), nil
	}

	if numerator1.Cmp(product) <= 0 {
		return nil, errors.New("token0 output exceeds pool range")
	}
	denominator := new(big.Int).Sub(numerator1, product)
	return mulDivRoundingUp(numerator1, sqrtPX96, denominator), nil
}

// nextSqrtPriceFromAmount1 moves the price up (add=true) or down (add=false)
// by a token1 delta, rounding down.
func nextSqrtPriceFromAmount1(sqrtPX96, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	if add {
		quotient := mulDiv(amount, Q96, liquidity)
		return new(big.Int).Add(sqrtPX96, quotient), nil
	}

	quotient := mulDivRoundingUp(amount, Q96, liquidity)
	if sqrtPX96.Cmp(quotient) <= 0 {
		return nil, errors.New("token1 output exceeds pool range")
	}
	return new(big.Int).Sub(sqrtPX96, quotient), nil
}

// NextSqrtPriceFromInput returns the price after consuming amountIn of the
// input token in the given direction.
func NextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPX96.Sign() <= 0 {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount0(sqrtPX96, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1(sqrtPX96, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput returns the price after paying out amountOut of the
// output token in the given direction.
func NextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPX96.Sign() <= 0 {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount1(sqrtPX96, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0(sqrtPX96, liquidity, amountOut, false)
}

// Amount0Delta returns the token0 amount between two sqrt prices for the
// given liquidity.
func Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) (*big.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.Sign() <= 0 {
		return nil, ErrSqrtPriceZero
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		term := mulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		return divRoundingUp(term, sqrtRatioAX96), nil
	}
	term := mulDiv(numerator1, numerator2, sqrtRatioBX96)
	return term.Div(term, sqrtRatioAX96), nil
}

// Amount1Delta returns the token1 amount between two sqrt prices for the
// given liquidity.
func Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}
