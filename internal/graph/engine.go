package graph

import (
	"context"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/addrs"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/liquidity"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

// PoolSource resolves pool addresses to loaded pool state.
type PoolSource interface {
	Get(address common.Address) (*model.Pool, bool)
}

// Engine ties the edge graph to classification and simulation: it rebuilds
// the graph from pools, turns cycles into verified opportunities, and ranks
// them.
type Engine struct {
	graph      *Graph
	sim        *pool.Simulator
	classifier *liquidity.Classifier
	pools      PoolSource
	feed       *liquidity.PriceFeed
	logger     *zap.Logger
}

// NewEngine creates the engine. feed converts native-anchor profits to USD
// for ranking and may be nil.
func NewEngine(g *Graph, sim *pool.Simulator, classifier *liquidity.Classifier, pools PoolSource, feed *liquidity.PriceFeed, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		graph:      g,
		sim:        sim,
		classifier: classifier,
		pools:      pools,
		feed:       feed,
		logger:     logger,
	}
}

// Graph exposes the underlying edge graph.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Rebuild reconstructs the full edge set from the given pools, classifying
// each and skipping ineligible or blacklisted ones.
func (e *Engine) Rebuild(ctx context.Context, pools []*model.Pool) {
	eligible := make([]*model.Pool, 0, len(pools))
	values := make(map[string]float64, len(pools))

	for _, p := range pools {
		if e.classifier.CheckBlacklist(ctx, p) {
			continue
		}
		cls := e.classifier.Classify(ctx, p)
		if !cls.Eligible() {
			continue
		}
		eligible = append(eligible, p)
		values[p.Address.Hex()] = cls.LockedValueUSD
	}

	e.graph.ReplaceAll(RebuildFrom(eligible, values, time.Now()))
	e.logger.Info("graph rebuilt",
		zap.Int("pools", len(pools)),
		zap.Int("eligible", len(eligible)),
		zap.Int("edges", e.graph.EdgeCount()))
}

// FindProfitableCycles verifies candidate cycles by direct simulation,
// finds each cycle's profit-maximizing borrow, and returns opportunities
// ranked by anchor-equivalent profit. Cycles that simulation disproves are
// dropped regardless of their graph weight.
func (e *Engine) FindProfitableCycles(ctx context.Context, cycles []model.CyclePath, block uint64) []model.Opportunity {
	var opps []model.Opportunity
	for _, cycle := range cycles {
		opp, ok := e.evaluateCycle(ctx, cycle, block)
		if ok {
			opps = append(opps, opp)
		}
	}

	// Highest anchor-equivalent profit first.
	sort.Slice(opps, func(i, j int) bool { return opps[i].ProfitUSD > opps[j].ProfitUSD })
	return opps
}

// evaluateCycle runs the borrow optimization for one cycle. The first pool
// is the flash-borrow pool: the trade borrows the cycle's second token from
// it, sells through the remaining pools back to the base token, and repays
// the borrow pool in base.
func (e *Engine) evaluateCycle(ctx context.Context, cycle model.CyclePath, block uint64) (model.Opportunity, bool) {
	if len(cycle.Tokens) < 3 || len(cycle.Pools) != len(cycle.Tokens)-1 {
		return model.Opportunity{}, false
	}
	baseToken := cycle.Tokens[0]
	borrowToken := cycle.Tokens[1]

	pools := make([]*model.Pool, len(cycle.Pools))
	for i, addr := range cycle.Pools {
		p, ok := e.pools.Get(addr)
		if !ok || !p.Tradable() {
			return model.Opportunity{}, false
		}
		pools[i] = p
	}
	borrowPool := pools[0]

	borrowReserve := borrowSideBalance(borrowPool, borrowToken)
	if borrowReserve == nil || borrowReserve.Sign() <= 0 {
		return model.Opportunity{}, false
	}
	minBorrow, maxBorrow := unimath.BorrowBounds(borrowReserve)

	profitFn := func(borrow *big.Int) *big.Int {
		repay, err := e.sim.RequiredInput(ctx, borrowPool, borrowToken, borrow)
		if err != nil {
			return nil
		}
		out, err := e.sellThrough(ctx, pools[1:], cycle.Tokens[1:], borrow)
		if err != nil {
			return nil
		}
		return new(big.Int).Sub(out, repay)
	}

	bestBorrow, bestProfit := unimath.OptimizeBorrow(minBorrow, maxBorrow, profitFn)
	if bestProfit.Sign() <= 0 {
		return model.Opportunity{}, false
	}

	// Re-derive the leg amounts and per-pool price limits at the optimum.
	repay, err := e.sim.RequiredInput(ctx, borrowPool, borrowToken, bestBorrow)
	if err != nil {
		return model.Opportunity{}, false
	}
	swapOut, calls, err := e.sellThroughDetailed(ctx, pools, cycle.Tokens, bestBorrow)
	if err != nil {
		return model.Opportunity{}, false
	}
	profit := new(big.Int).Sub(swapOut, repay)
	if profit.Sign() <= 0 {
		return model.Opportunity{}, false
	}

	opp := model.Opportunity{
		Path:          cycle,
		BorrowToken:   borrowToken,
		BaseToken:     baseToken,
		BorrowAmount:  bestBorrow,
		RepayAmount:   repay,
		SwapOutAmount: swapOut,
		Profit:        profit,
		ProfitUSD:     e.anchorEquivalent(ctx, baseToken, profit),
		Calls:         calls,
		Block:         block,
		FoundAt:       time.Now(),
	}
	return opp, true
}

// sellThrough simulates an exact-input walk along pools[i] swapping
// tokens[i] into tokens[i+1].
func (e *Engine) sellThrough(ctx context.Context, pools []*model.Pool, tokens []common.Address, amountIn *big.Int) (*big.Int, error) {
	amount := amountIn
	for i, p := range pools {
		out, err := e.sim.SwapExactIn(ctx, p, tokens[i], amount)
		if err != nil {
			return nil, err
		}
		amount = out
	}
	return amount, nil
}

// sellThroughDetailed covers the whole cycle including the borrow pool so
// the downstream transaction builder gets one SwapCallParams per pool.
func (e *Engine) sellThroughDetailed(ctx context.Context, pools []*model.Pool, tokens []common.Address, borrow *big.Int) (*big.Int, []model.SwapCallParams, error) {
	calls := make([]model.SwapCallParams, len(pools))
	calls[0] = model.SwapCallParams{Pool: pools[0].Address, Variant: pools[0].Variant}

	amount := borrow
	for i := 1; i < len(pools); i++ {
		out, sqrtAfter, err := e.sim.SwapExactInPrice(ctx, pools[i], tokens[i], amount)
		if err != nil {
			return nil, nil, err
		}
		calls[i] = model.SwapCallParams{
			Pool:              pools[i].Address,
			Variant:           pools[i].Variant,
			SqrtPriceLimitX96: sqrtAfter,
		}
		amount = out
	}
	return amount, calls, nil
}

// anchorEquivalent converts a base-token profit into USD for ranking. The
// native anchor uses the price feed; stablecoins count 1:1.
func (e *Engine) anchorEquivalent(ctx context.Context, baseToken common.Address, profit *big.Int) float64 {
	f, _ := new(big.Float).SetInt(profit).Float64()

	if baseToken == addrs.WETH {
		units := f / math.Pow(10, 18)
		if e.feed == nil {
			return units
		}
		price, err := e.feed.Price(ctx)
		if err != nil {
			e.logger.Warn("anchor price unavailable for ranking", zap.Error(err))
			return units
		}
		return units * price
	}

	// Stable anchors count 1:1 against USD. USDC and USDT use 6 decimals,
	// the other listed stables 18.
	decimals := 18
	if baseToken == addrs.USDC || baseToken == addrs.USDT {
		decimals = 6
	}
	return f / math.Pow(10, float64(decimals))
}

// borrowSideBalance returns the borrow pool's holding of the borrow token.
func borrowSideBalance(p *model.Pool, borrowToken common.Address) *big.Int {
	if borrowToken == p.Token0.Address {
		if p.Balance0 != nil {
			return p.Balance0
		}
		if p.V2 != nil {
			return p.V2.Reserve0
		}
	} else {
		if p.Balance1 != nil {
			return p.Balance1
		}
		if p.V2 != nil {
			return p.V2.Reserve1
		}
	}
	return nil
}
