package unimath

import (
	"math"
	"math/big"
)

// PriceFromSqrtX96 converts a Q64.96 sqrt price into the decimal-adjusted
// price of token0 in units of token1.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) float64 {
	sqrt := new(big.Float).SetInt(sqrtPriceX96)
	sqrt.Quo(sqrt, new(big.Float).SetInt(Q96))
	ratio, _ := sqrt.Float64()

	price := ratio * ratio
	return price * math.Pow(10, float64(decimals0)-float64(decimals1))
}

// PriceFromReserves converts V2 reserves into the decimal-adjusted price of
// token0 in units of token1.
func PriceFromReserves(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) float64 {
	if reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return 0
	}
	r0 := new(big.Float).SetInt(reserve0)
	r1 := new(big.Float).SetInt(reserve1)
	ratio, _ := new(big.Float).Quo(r1, r0).Float64()

	return ratio * math.Pow(10, float64(decimals0)-float64(decimals1))
}

// FeeAdjustedRate applies the pool fee to a spot price, giving the effective
// marginal exchange rate for an infinitesimal trade.
func FeeAdjustedRate(price float64, feePPM uint32) float64 {
	return price * (1 - float64(feePPM)/1_000_000)
}

// EdgeWeight is the negative log of a rate. A cycle whose weights sum below
// zero multiplies out to more than one, which is the arbitrage condition.
func EdgeWeight(rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return -math.Log(rate)
}
