package graph

import (
	"time"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

// EdgesFromPool computes the pool's two directed edges from its current
// state. liquidityValue is the classifier's locked-value estimate, used for
// per-pair dedup. Pools with a zero or unusable price yield no edges.
func EdgesFromPool(p *model.Pool, liquidityValue float64, now time.Time) []model.Edge {
	if !p.Tradable() {
		return nil
	}

	price, err := pool.Rate(p, p.Token0.Address)
	if err != nil || price <= 0 {
		return nil
	}
	fee := p.FeePPM()

	forward := model.Edge{
		Source:         p.Token0.Address,
		Target:         p.Token1.Address,
		Pool:           p.Address,
		Price:          price,
		Rate:           unimath.FeeAdjustedRate(price, fee),
		LiquidityValue: liquidityValue,
		UpdatedAt:      now,
	}
	forward.Weight = unimath.EdgeWeight(forward.Rate)

	backward := model.Edge{
		Source:         p.Token1.Address,
		Target:         p.Token0.Address,
		Pool:           p.Address,
		Price:          1 / price,
		Rate:           unimath.FeeAdjustedRate(1/price, fee),
		LiquidityValue: liquidityValue,
		UpdatedAt:      now,
	}
	backward.Weight = unimath.EdgeWeight(backward.Rate)

	return []model.Edge{forward, backward}
}

// RebuildFrom recomputes the retained edge set from scratch. Candidates per
// ordered pair are deduplicated by valued liquidity, ties keeping the first
// seen. The result is deterministic for identical input order.
func RebuildFrom(pools []*model.Pool, liquidityValues map[string]float64, now time.Time) map[model.PairKey]model.Edge {
	retained := make(map[model.PairKey]model.Edge)
	for _, p := range pools {
		lv := liquidityValues[p.Address.Hex()]
		for _, e := range EdgesFromPool(p, lv, now) {
			k := e.Key()
			cur, ok := retained[k]
			if !ok || e.LiquidityValue > cur.LiquidityValue {
				retained[k] = e
			}
		}
	}
	return retained
}
