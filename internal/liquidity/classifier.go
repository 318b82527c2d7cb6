package liquidity

import (
	"context"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/addrs"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/registry"
)

// Tier thresholds in anchor units. Native thresholds are in ether, stable
// thresholds in whole USD.
var (
	nativeTierLow    = 2.0
	nativeTierMedium = 20.0
	nativeTierHigh   = 200.0

	stableTierLow    = 5_000.0
	stableTierMedium = 50_000.0
	stableTierHigh   = 500_000.0
)

// Classification is a pool's liquidity scoring result.
type Classification struct {
	HasAnchor      bool
	Anchor         common.Address
	AnchorIsNative bool
	TierLow        bool
	TierMedium     bool
	TierHigh       bool
	LockedValueUSD float64
}

// Eligible reports whether the pool clears at least the low tier.
func (c Classification) Eligible() bool {
	return c.TierLow
}

// Classifier scores pools by the on-pool balance of their anchor token.
type Classifier struct {
	tokens *registry.Registry
	feed   *PriceFeed
	logger *zap.Logger
}

// NewClassifier creates a classifier. feed prices the native anchor in USD;
// it may be nil, in which case native-anchor locked value reports zero but
// tiers still apply.
func NewClassifier(tokens *registry.Registry, feed *PriceFeed, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{tokens: tokens, feed: feed, logger: logger}
}

// Classify scores one pool. Pools without an anchor token are fully
// ineligible.
func (c *Classifier) Classify(ctx context.Context, p *model.Pool) Classification {
	var out Classification

	anchor, anchorToken, ok := anchorSide(p)
	if !ok {
		return out
	}
	out.HasAnchor = true
	out.Anchor = anchor
	out.AnchorIsNative = anchor == addrs.WETH

	balance := anchorBalance(p, anchor)
	if balance == nil || balance.Sign() <= 0 {
		return out
	}
	units := decimalUnits(balance, anchorToken.Decimals)

	if out.AnchorIsNative {
		out.TierLow = units >= nativeTierLow
		out.TierMedium = units >= nativeTierMedium
		out.TierHigh = units >= nativeTierHigh
		if c.feed != nil {
			price, err := c.feed.Price(ctx)
			if err != nil {
				c.logger.Warn("native anchor price unavailable",
					zap.String("pool", p.Address.Hex()), zap.Error(err))
			} else {
				out.LockedValueUSD = units * price
			}
		}
		return out
	}

	// Stablecoin anchor values 1:1.
	out.TierLow = units >= stableTierLow
	out.TierMedium = units >= stableTierMedium
	out.TierHigh = units >= stableTierHigh
	out.LockedValueUSD = units
	return out
}

// CheckBlacklist reports whether the pool must be excluded: it failed to
// load, or either token is flagged in the registry.
func (c *Classifier) CheckBlacklist(ctx context.Context, p *model.Pool) bool {
	if p.Err != nil || p.Variant == model.VariantUnrecognized {
		return true
	}
	if c.tokens == nil {
		return false
	}
	return c.tokens.IsBlacklisted(ctx, p.Token0.Address) ||
		c.tokens.IsBlacklisted(ctx, p.Token1.Address)
}

// anchorSide picks the highest-priority anchor token held by the pool.
func anchorSide(p *model.Pool) (common.Address, model.Token, bool) {
	p0 := addrs.AnchorPriority(p.Token0.Address)
	p1 := addrs.AnchorPriority(p.Token1.Address)
	switch {
	case p0 < 0 && p1 < 0:
		return common.Address{}, model.Token{}, false
	case p1 < 0 || (p0 >= 0 && p0 <= p1):
		return p.Token0.Address, p.Token0, true
	default:
		return p.Token1.Address, p.Token1, true
	}
}

// anchorBalance returns the pool's holding of the anchor token, falling
// back to V2 reserves when no balance snapshot exists.
func anchorBalance(p *model.Pool, anchor common.Address) *big.Int {
	if anchor == p.Token0.Address {
		if p.Balance0 != nil {
			return p.Balance0
		}
		if p.V2 != nil {
			return p.V2.Reserve0
		}
		return nil
	}
	if p.Balance1 != nil {
		return p.Balance1
	}
	if p.V2 != nil {
		return p.V2.Reserve1
	}
	return nil
}

func decimalUnits(amount *big.Int, decimals uint8) float64 {
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f / math.Pow(10, float64(decimals))
}
