package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Edge is one directed exchange-rate edge in the arbitrage graph. Weight is
// the negative natural log of the fee-adjusted rate, so a profitable cycle
// has a negative weight sum.
type Edge struct {
	Source         common.Address `json:"source"`
	Target         common.Address `json:"target"`
	Pool           common.Address `json:"pool"`
	Price          float64        `json:"price"`
	Rate           float64        `json:"rate"` // fee adjusted
	Weight         float64        `json:"weight"`
	LiquidityValue float64        `json:"liquidity_value"` // USD-equivalent
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PairKey identifies an ordered (source, target) token pair.
type PairKey struct {
	Source common.Address
	Target common.Address
}

// Key returns the edge's ordered-pair key.
func (e Edge) Key() PairKey {
	return PairKey{Source: e.Source, Target: e.Target}
}

// CyclePath is a closed token walk together with the pools realizing each
// hop: len(Pools) == len(Tokens)-1 and Tokens[0] == Tokens[len-1].
type CyclePath struct {
	Tokens []common.Address `json:"tokens"`
	Pools  []common.Address `json:"pools"`
}
