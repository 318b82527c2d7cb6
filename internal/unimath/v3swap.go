package unimath

import (
	"math/big"
	"sort"
)

// TickData is one populated tick with its net liquidity change.
type TickData struct {
	Tick         int32
	LiquidityNet *big.Int
}

// V3Params captures everything V3SwapExactIn needs about a pool. Ticks must
// be sorted ascending and cover the window [WindowLower, WindowUpper].
type V3Params struct {
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
	TickSpacing  int32
	FeePPM       uint32
	Ticks        []TickData
	WindowLower  int32
	WindowUpper  int32
}

// V3SwapResult is the outcome of a simulated exact-input swap. Exhausted is
// set when the cached tick window ran out before the input was consumed; the
// amounts then cover only the filled portion.
type V3SwapResult struct {
	AmountIn     *big.Int
	AmountOut    *big.Int
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
	Exhausted    bool
}

// nextTick returns the next tick target in the swap direction. A populated
// tick inside the window is preferred; otherwise the window edge acts as an
// uninitialized stopping point. ok is false when the current position is
// already at or past the window edge.
func (p *V3Params) nextTick(tick int32, zeroForOne bool) (target int32, initialized, ok bool) {
	if zeroForOne {
		// Largest populated tick at or below the current tick.
		i := sort.Search(len(p.Ticks), func(i int) bool { return p.Ticks[i].Tick > tick })
		if i > 0 {
			return p.Ticks[i-1].Tick, true, true
		}
		if tick < p.WindowLower {
			return 0, false, false
		}
		return p.WindowLower, false, true
	}

	// Smallest populated tick strictly above the current tick.
	i := sort.Search(len(p.Ticks), func(i int) bool { return p.Ticks[i].Tick > tick })
	if i < len(p.Ticks) {
		return p.Ticks[i].Tick, true, true
	}
	if tick >= p.WindowUpper {
		return 0, false, false
	}
	return p.WindowUpper, false, true
}

func (p *V3Params) liquidityNetAt(tick int32) *big.Int {
	i := sort.Search(len(p.Ticks), func(i int) bool { return p.Ticks[i].Tick >= tick })
	if i < len(p.Ticks) && p.Ticks[i].Tick == tick {
		return p.Ticks[i].LiquidityNet
	}
	return nil
}

// V3SwapExactIn walks the pool's populated ticks and returns the output for
// the given input, stopping at the window edge when the cached ticks are
// exhausted.
func V3SwapExactIn(p V3Params, amountIn *big.Int, zeroForOne bool) (V3SwapResult, error) {
	res := V3SwapResult{
		AmountIn:     new(big.Int),
		AmountOut:    new(big.Int),
		SqrtPriceX96: new(big.Int).Set(p.SqrtPriceX96),
		Tick:         p.Tick,
		Liquidity:    new(big.Int).Set(p.Liquidity),
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return res, nil
	}

	var limit *big.Int
	if zeroForOne {
		limit = new(big.Int).Add(MinSqrtRatio, bigOne)
	} else {
		limit = new(big.Int).Sub(MaxSqrtRatio, bigOne)
	}

	remaining := new(big.Int).Set(amountIn)

	for remaining.Sign() > 0 && res.SqrtPriceX96.Cmp(limit) != 0 {
		target, initialized, ok := p.nextTick(res.Tick, zeroForOne)
		if !ok {
			res.Exhausted = true
			break
		}
		if target < MinTick {
			target = MinTick
		} else if target > MaxTick {
			target = MaxTick
		}

		targetSqrt, err := SqrtRatioAtTick(target)
		if err != nil {
			return res, err
		}
		// Do not walk past the global price limit.
		if zeroForOne && targetSqrt.Cmp(limit) < 0 {
			targetSqrt = limit
		} else if !zeroForOne && targetSqrt.Cmp(limit) > 0 {
			targetSqrt = limit
		}

		step, err := ComputeSwapStep(res.SqrtPriceX96, targetSqrt, res.Liquidity, remaining, p.FeePPM)
		if err != nil {
			return res, err
		}

		consumed := new(big.Int).Add(step.AmountIn, step.FeeAmount)
		remaining.Sub(remaining, consumed)
		res.AmountIn.Add(res.AmountIn, consumed)
		res.AmountOut.Add(res.AmountOut, step.AmountOut)
		res.SqrtPriceX96.Set(step.SqrtRatioNextX96)

		if res.SqrtPriceX96.Cmp(targetSqrt) == 0 {
			if initialized {
				if net := p.liquidityNetAt(target); net != nil {
					if zeroForOne {
						res.Liquidity.Sub(res.Liquidity, net)
					} else {
						res.Liquidity.Add(res.Liquidity, net)
					}
				}
			} else if remaining.Sign() > 0 {
				// Reached the window edge with input left over.
				res.Exhausted = true
			}
			if zeroForOne {
				res.Tick = target - 1
			} else {
				res.Tick = target
			}
			if res.Exhausted {
				break
			}
		} else {
			tick, err := TickAtSqrtRatio(res.SqrtPriceX96)
			if err != nil {
				return res, err
			}
			res.Tick = tick
		}
	}

	return res, nil
}
