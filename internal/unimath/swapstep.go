package unimath

import "math/big"

// FeeDenominator is one million, fee values are in parts per million.
var FeeDenominator = big.NewInt(1_000_000)

// SwapStep is the result of advancing a swap to a single tick boundary.
type SwapStep struct {
	SqrtRatioNextX96 *big.Int
	AmountIn         *big.Int
	AmountOut        *big.Int
	FeeAmount        *big.Int
}

// ComputeSwapStep advances a swap within one tick range, following the
// rounding rules of SwapMath.sol. A non-negative amountRemaining means
// exact input, negative means exact output.
func ComputeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *big.Int,
	feePPM uint32,
) (SwapStep, error) {
	var (
		step SwapStep
		err  error
	)

	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0
	feePips := new(big.Int).SetUint64(uint64(feePPM))

	step.AmountIn = new(big.Int)
	step.AmountOut = new(big.Int)
	step.FeeAmount = new(big.Int)

	if exactIn {
		feeComplement := new(big.Int).Sub(FeeDenominator, feePips)
		amountRemainingLessFee := mulDiv(amountRemaining, feeComplement, FeeDenominator)

		if zeroForOne {
			step.AmountIn, err = Amount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			step.AmountIn = Amount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return SwapStep{}, err
		}

		if amountRemainingLessFee.Cmp(step.AmountIn) >= 0 {
			step.SqrtRatioNextX96 = new(big.Int).Set(sqrtRatioTargetX96)
		} else {
			step.SqrtRatioNextX96, err = NextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return SwapStep{}, err
			}
		}
	} else {
		amountRemainingAbs := new(big.Int).Neg(amountRemaining)

		if zeroForOne {
			step.AmountOut = Amount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			step.AmountOut, err = Amount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
			if err != nil {
				return SwapStep{}, err
			}
		}

		if amountRemainingAbs.Cmp(step.AmountOut) >= 0 {
			step.SqrtRatioNextX96 = new(big.Int).Set(sqrtRatioTargetX96)
		} else {
			step.SqrtRatioNextX96, err = NextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountRemainingAbs, zeroForOne)
			if err != nil {
				return SwapStep{}, err
			}
		}
	}

	max := sqrtRatioTargetX96.Cmp(step.SqrtRatioNextX96) == 0

	if zeroForOne {
		if !(max && exactIn) {
			step.AmountIn, err = Amount0Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return SwapStep{}, err
			}
		}
		if !(max && !exactIn) {
			step.AmountOut = Amount1Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
		}
	} else {
		if !(max && exactIn) {
			step.AmountIn = Amount1Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, true)
		}
		if !(max && !exactIn) {
			step.AmountOut, err = Amount0Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, false)
			if err != nil {
				return SwapStep{}, err
			}
		}
	}

	if !exactIn {
		amountRemainingAbs := new(big.Int).Neg(amountRemaining)
		if step.AmountOut.Cmp(amountRemainingAbs) > 0 {
			step.AmountOut.Set(amountRemainingAbs)
		}
	}

	if exactIn && step.SqrtRatioNextX96.Cmp(sqrtRatioTargetX96) != 0 {
		// The target was not reached, so the whole leftover input is fee.
		step.FeeAmount.Sub(amountRemaining, step.AmountIn)
	} else {
		feeComplement := new(big.Int).Sub(FeeDenominator, feePips)
		step.FeeAmount = mulDivRoundingUp(step.AmountIn, feePips, feeComplement)
	}

	return step, nil
}
