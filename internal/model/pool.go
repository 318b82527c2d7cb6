package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Variant identifies the AMM flavor of a pool, decided once at load time.
type Variant uint8

const (
	VariantUnrecognized Variant = iota
	VariantV2
	VariantV3
)

func (v Variant) String() string {
	switch v {
	case VariantV2:
		return "uniswapV2"
	case VariantV3:
		return "uniswapV3"
	default:
		return "unrecognized"
	}
}

// V3Immutables are the parameters a V3 pool fixes at deployment.
type V3Immutables struct {
	Fee                 uint32   `json:"fee"` // parts per million
	TickSpacing         int32    `json:"tick_spacing"`
	MaxLiquidityPerTick *big.Int `json:"max_liquidity_per_tick"`
}

// V3State is the mutable slot0/liquidity snapshot of a V3 pool.
type V3State struct {
	Liquidity    *big.Int `json:"liquidity"`
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Tick         int32    `json:"tick"`
}

// V2State holds a V2 pool's reserves together with the last sync timestamp.
type V2State struct {
	Reserve0  *big.Int `json:"reserve0"`
	Reserve1  *big.Int `json:"reserve1"`
	Timestamp uint32   `json:"timestamp"`
}

// PopulatedTick is one initialized tick from the pool's tick bitmap.
type PopulatedTick struct {
	Tick           int32    `json:"tick"`
	LiquidityNet   *big.Int `json:"liquidity_net"`
	LiquidityGross *big.Int `json:"liquidity_gross"`
}

// Pool models one on-chain liquidity pool. The Variant tag decides which of
// the variant payloads is valid; Err marks a pool that failed to load and
// must be excluded from pricing and graph updates.
type Pool struct {
	Address common.Address `json:"address"`
	Network string         `json:"network"`
	Factory common.Address `json:"factory"`
	Variant Variant        `json:"variant"`

	Token0 Token `json:"token0"`
	Token1 Token `json:"token1"`

	// Pool-held balances of each token, distinct from V2 reserves.
	Balance0 *big.Int `json:"balance0"`
	Balance1 *big.Int `json:"balance1"`

	Immutables *V3Immutables `json:"immutables,omitempty"`
	V3         *V3State      `json:"v3,omitempty"`
	V2         *V2State      `json:"v2,omitempty"`

	Err error `json:"-"`
}

// Tradable reports whether the pool loaded cleanly into a recognized variant.
func (p *Pool) Tradable() bool {
	return p != nil && p.Err == nil && p.Variant != VariantUnrecognized
}

// HasToken reports whether addr is one of the pool's two tokens.
func (p *Pool) HasToken(addr common.Address) bool {
	return addr == p.Token0.Address || addr == p.Token1.Address
}

// OtherToken returns the pool token paired with addr. The second return is
// false when addr is not in the pool.
func (p *Pool) OtherToken(addr common.Address) (Token, bool) {
	switch addr {
	case p.Token0.Address:
		return p.Token1, true
	case p.Token1.Address:
		return p.Token0, true
	default:
		return Token{}, false
	}
}

// FeePPM returns the swap fee in parts per million. V2 pools charge the
// fixed 0.3% pair fee.
func (p *Pool) FeePPM() uint32 {
	if p.Variant == VariantV3 && p.Immutables != nil {
		return p.Immutables.Fee
	}
	return 3000
}

// PoolRecord is the persisted form of a pool: identity, classification
// flags, and blacklist state, without the mutable snapshot.
type PoolRecord struct {
	Address     common.Address `json:"address"`
	Network     string         `json:"network"`
	Variant     Variant        `json:"variant"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Fee         uint32         `json:"fee"`
	TierLow     bool           `json:"tier_low"`
	TierMedium  bool           `json:"tier_medium"`
	TierHigh    bool           `json:"tier_high"`
	Blacklisted bool           `json:"blacklisted"`
}
