package unimath

import "math/big"

// ProfitFunc simulates a round trip for a trial borrow amount and returns
// the profit in the borrowed token. Errors from the underlying simulation
// are reported as a nil profit, which the search treats as unprofitable.
type ProfitFunc func(borrow *big.Int) *big.Int

// OptimizeBorrow searches [minBorrow, maxBorrow] for the borrow amount with
// the highest profit. The profit curve of a two-pool round trip is unimodal,
// so a fixed-step ternary search converges quickly.
func OptimizeBorrow(minBorrow, maxBorrow *big.Int, profit ProfitFunc) (bestBorrow, bestProfit *big.Int) {
	const steps = 20

	eval := func(x *big.Int) *big.Int {
		p := profit(x)
		if p == nil {
			return new(big.Int).Neg(x)
		}
		return p
	}

	left := new(big.Int).Set(minBorrow)
	right := new(big.Int).Set(maxBorrow)
	if right.Cmp(left) < 0 {
		right.Set(left)
	}

	bestBorrow = new(big.Int).Set(left)
	bestProfit = eval(left)

	three := big.NewInt(3)
	two := big.NewInt(2)

	for i := 0; i < steps; i++ {
		third := new(big.Int).Sub(right, left)
		third.Div(third, three)
		if third.Sign() == 0 {
			break
		}

		mid1 := new(big.Int).Add(left, third)
		mid2 := new(big.Int).Add(left, new(big.Int).Mul(third, two))

		profit1 := eval(mid1)
		profit2 := eval(mid2)

		if profit1.Cmp(bestProfit) > 0 {
			bestProfit = profit1
			bestBorrow = mid1
		}
		if profit2.Cmp(bestProfit) > 0 {
			bestProfit = profit2
			bestBorrow = mid2
		}

		if profit1.Cmp(profit2) > 0 {
			right = mid2
		} else {
			left = mid1
		}
	}

	return bestBorrow, bestProfit
}

// BorrowBounds returns the search range for a flash borrow from a pool
// holding borrowReserve of the token. The upper bound stays below the
// reserve so the borrow itself can always be filled.
func BorrowBounds(borrowReserve *big.Int) (minBorrow, maxBorrow *big.Int) {
	minBorrow = big.NewInt(1)
	maxBorrow = new(big.Int).Mul(borrowReserve, big.NewInt(8))
	maxBorrow.Div(maxBorrow, big.NewInt(10))
	if maxBorrow.Cmp(minBorrow) < 0 {
		maxBorrow = new(big.Int).Set(minBorrow)
	}
	return minBorrow, maxBorrow
}
