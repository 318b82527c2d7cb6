package graph

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/addrs"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func v2TestPool(address common.Address, reserveWETH, reserveTKN *big.Int) *model.Pool {
	return &model.Pool{
		Address: address,
		Network: "mainnet",
		Variant: model.VariantV2,
		Token0:  model.Token{Address: addrs.WETH, Decimals: 18, Symbol: "WETH"},
		Token1:  model.Token{Address: tokenA, Decimals: 18, Symbol: "TKN"},
		V2: &model.V2State{
			Reserve0: new(big.Int).Set(reserveWETH),
			Reserve1: new(big.Int).Set(reserveTKN),
		},
	}
}

func newTestEngine(pools ...*model.Pool) *Engine {
	cache := pool.NewCache()
	for _, p := range pools {
		cache.Put(p)
	}
	sim := pool.NewSimulator(nil, nil, common.Address{}, nil)
	return NewEngine(New(), sim, nil, cache, nil, nil)
}

func TestFindProfitableCyclesTwoPoolSpread(t *testing.T) {
	// Pool X trades 1 WETH = 1 TKN, pool Y trades 1 TKN = 1.02 WETH.
	// Borrowing TKN from X and selling it on Y beats the repay cost.
	poolA := v2TestPool(poolX, ether(1000), ether(1000))
	poolB := v2TestPool(poolY, ether(1020), ether(1000))
	eng := newTestEngine(poolA, poolB)

	cycle := model.CyclePath{
		Tokens: []common.Address{addrs.WETH, tokenA, addrs.WETH},
		Pools:  []common.Address{poolX, poolY},
	}
	opps := eng.FindProfitableCycles(context.Background(), []model.CyclePath{cycle}, 123)
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}
	opp := opps[0]

	if opp.Profit.Sign() <= 0 {
		t.Fatalf("profit = %s, want positive", opp.Profit)
	}
	if opp.BorrowAmount.Sign() <= 0 {
		t.Fatalf("borrow = %s, want positive", opp.BorrowAmount)
	}
	if opp.BorrowToken != tokenA || opp.BaseToken != addrs.WETH {
		t.Fatalf("borrow/base = %s/%s", opp.BorrowToken, opp.BaseToken)
	}
	if got := new(big.Int).Sub(opp.SwapOutAmount, opp.RepayAmount); got.Cmp(opp.Profit) != 0 {
		t.Fatalf("profit %s does not match swapOut-repay %s", opp.Profit, got)
	}
	if opp.Block != 123 {
		t.Fatalf("block = %d", opp.Block)
	}
	if len(opp.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(opp.Calls))
	}
	if opp.Calls[0].Pool != poolX || opp.Calls[1].Pool != poolY {
		t.Fatalf("call pools = %v", opp.Calls)
	}
	if opp.ProfitUSD <= 0 {
		t.Fatalf("ranked profit = %v, want positive", opp.ProfitUSD)
	}

	// The borrow stays inside the 80% bound of the borrow-side reserve.
	limit := new(big.Int).Mul(ether(1000), big.NewInt(8))
	limit.Div(limit, big.NewInt(10))
	if opp.BorrowAmount.Cmp(limit) > 0 {
		t.Fatalf("borrow %s exceeds limit %s", opp.BorrowAmount, limit)
	}
}

func TestFindProfitableCyclesFlatMarket(t *testing.T) {
	// Identical prices on both pools: the fees guarantee a loss.
	poolA := v2TestPool(poolX, ether(1000), ether(1000))
	poolB := v2TestPool(poolY, ether(1000), ether(1000))
	eng := newTestEngine(poolA, poolB)

	cycle := model.CyclePath{
		Tokens: []common.Address{addrs.WETH, tokenA, addrs.WETH},
		Pools:  []common.Address{poolX, poolY},
	}
	if opps := eng.FindProfitableCycles(context.Background(), []model.CyclePath{cycle}, 1); len(opps) != 0 {
		t.Fatalf("opportunities = %d, want 0", len(opps))
	}
}

func TestFindProfitableCyclesSkipsUnknownPool(t *testing.T) {
	poolA := v2TestPool(poolX, ether(1000), ether(1000))
	eng := newTestEngine(poolA)

	cycle := model.CyclePath{
		Tokens: []common.Address{addrs.WETH, tokenA, addrs.WETH},
		Pools:  []common.Address{poolX, poolY}, // poolY never loaded
	}
	if opps := eng.FindProfitableCycles(context.Background(), []model.CyclePath{cycle}, 1); len(opps) != 0 {
		t.Fatalf("opportunities = %d, want 0", len(opps))
	}
}

func TestFindProfitableCyclesRanksByProfit(t *testing.T) {
	// A wide spread and a narrow spread against the same balanced pool.
	balanced := v2TestPool(poolX, ether(1000), ether(1000))
	wide := v2TestPool(poolY, ether(1100), ether(1000))
	narrowAddr := common.HexToAddress("0x0000000000000000000000000000000000000103")
	narrow := v2TestPool(narrowAddr, ether(1020), ether(1000))
	eng := newTestEngine(balanced, wide, narrow)

	cycles := []model.CyclePath{
		{
			Tokens: []common.Address{addrs.WETH, tokenA, addrs.WETH},
			Pools:  []common.Address{poolX, narrowAddr},
		},
		{
			Tokens: []common.Address{addrs.WETH, tokenA, addrs.WETH},
			Pools:  []common.Address{poolX, poolY},
		},
	}
	opps := eng.FindProfitableCycles(context.Background(), cycles, 1)
	if len(opps) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(opps))
	}
	if opps[0].ProfitUSD < opps[1].ProfitUSD {
		t.Fatalf("not ranked: %v before %v", opps[0].ProfitUSD, opps[1].ProfitUSD)
	}
	if opps[0].Path.Pools[1] != poolY {
		t.Fatalf("wide-spread cycle should rank first, got %v", opps[0].Path.Pools)
	}
}
