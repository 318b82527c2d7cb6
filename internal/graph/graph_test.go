package graph

import (
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/addrs"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	poolX  = common.HexToAddress("0x0000000000000000000000000000000000000101")
	poolY  = common.HexToAddress("0x0000000000000000000000000000000000000102")
)

func testEdge(source, target, pool common.Address, rate, liquidity float64) model.Edge {
	e := model.Edge{
		Source:         source,
		Target:         target,
		Pool:           pool,
		Price:          rate,
		Rate:           rate,
		Weight:         unimath.EdgeWeight(rate),
		LiquidityValue: liquidity,
		UpdatedAt:      time.Now(),
	}
	return e
}

func TestApplyIncrementalSamePoolAlwaysWins(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{testEdge(tokenA, tokenB, poolX, 1.0, 100)})

	// Same pool replaces even with lower liquidity value.
	res := g.ApplyIncremental([]model.Edge{testEdge(tokenA, tokenB, poolX, 1.1, 50)})
	if len(res.Accepted) != 1 || len(res.Rejected) != 0 {
		t.Fatalf("accepted %d rejected %d, want 1/0", len(res.Accepted), len(res.Rejected))
	}
	e, ok := g.Edge(tokenA, tokenB)
	if !ok || e.Rate != 1.1 {
		t.Fatalf("retained rate = %v, want 1.1", e.Rate)
	}
}

func TestApplyIncrementalLiquidityDedup(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{testEdge(tokenA, tokenB, poolX, 1.0, 100)})

	// A different pool with equal liquidity does not displace the holder.
	res := g.ApplyIncremental([]model.Edge{testEdge(tokenA, tokenB, poolY, 1.5, 100)})
	if len(res.Rejected) != 1 || res.Rejected[0].Pool != poolY {
		t.Fatalf("expected poolY edge rejected, got %+v", res.Rejected)
	}

	// Strictly greater liquidity does.
	res = g.ApplyIncremental([]model.Edge{testEdge(tokenA, tokenB, poolY, 1.5, 101)})
	if len(res.Accepted) != 1 {
		t.Fatalf("expected acceptance, got %+v", res)
	}
	if e, _ := g.Edge(tokenA, tokenB); e.Pool != poolY {
		t.Fatalf("retained pool = %s, want %s", e.Pool, poolY)
	}
}

func TestApplyIncrementalInBatchConflict(t *testing.T) {
	g := New()
	res := g.ApplyIncremental([]model.Edge{
		testEdge(tokenA, tokenB, poolX, 1.0, 50),
		testEdge(tokenA, tokenB, poolY, 1.2, 200),
	})
	if len(res.Accepted) != 1 || res.Accepted[0].Pool != poolY {
		t.Fatalf("accepted = %+v, want single poolY edge", res.Accepted)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Pool != poolX {
		t.Fatalf("rejected = %+v, want single poolX edge", res.Rejected)
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("edge count = %d, want 1", g.EdgeCount())
	}
}

func TestReplaceAllIsIdempotent(t *testing.T) {
	g := New()
	edges := map[model.PairKey]model.Edge{}
	e := testEdge(tokenA, tokenB, poolX, 1.0, 100)
	edges[e.Key()] = e

	g.ReplaceAll(edges)
	first := g.Snapshot()
	g.ReplaceAll(edges)
	second := g.Snapshot()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("snapshot sizes %d/%d, want 1/1", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatalf("rebuild changed the retained edge: %+v vs %+v", first[0], second[0])
	}
}

func TestEnumerateCyclesTwoPoolShape(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{
		testEdge(addrs.WETH, tokenA, poolX, 1.0, 100),
		testEdge(tokenA, addrs.WETH, poolY, 1.02, 80),
	})

	cycles := g.EnumerateCycles(addrs.WETH, tokenA, DefaultMaxCycleLen)
	found := false
	for _, c := range cycles {
		if len(c) == 3 && c[0] == addrs.WETH && c[1] == tokenA && c[2] == addrs.WETH {
			found = true
		}
		if c[0] != c[len(c)-1] {
			t.Fatalf("cycle not closed: %v", c)
		}
		if !addrs.IsAnchor(c[0]) {
			t.Fatalf("cycle rooted at non-anchor token: %v", c)
		}
	}
	if !found {
		t.Fatalf("two-pool cycle not enumerated, got %d cycles", len(cycles))
	}
}

func TestEnumerateCyclesSkipsNonAnchorRoots(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{
		testEdge(tokenA, tokenB, poolX, 1.0, 100),
		testEdge(tokenB, tokenA, poolY, 1.5, 80),
	})
	if cycles := g.EnumerateCycles(tokenA, tokenB, DefaultMaxCycleLen); len(cycles) != 0 {
		t.Fatalf("expected no anchor-rooted cycles, got %d", len(cycles))
	}
}

func TestEnumerateCyclesRotatesToAnchor(t *testing.T) {
	poolZ := common.HexToAddress("0x0000000000000000000000000000000000000103")
	g := New()
	g.ApplyIncremental([]model.Edge{
		testEdge(addrs.WETH, tokenA, poolX, 1.0, 100),
		testEdge(tokenA, tokenB, poolY, 1.0, 80),
		testEdge(tokenB, addrs.WETH, poolZ, 1.02, 90),
	})

	// Seeding from the middle hop must still surface the triangle, rooted
	// at the anchor rather than at the seed.
	cycles := g.EnumerateCycles(tokenA, tokenB, DefaultMaxCycleLen)
	found := false
	for _, c := range cycles {
		if c[0] != c[len(c)-1] {
			t.Fatalf("cycle not closed: %v", c)
		}
		if !addrs.IsAnchor(c[0]) {
			t.Fatalf("cycle rooted at non-anchor token: %v", c)
		}
		if len(c) == 4 && c[0] == addrs.WETH && c[1] == tokenA && c[2] == tokenB {
			found = true
		}
	}
	if !found {
		t.Fatalf("triangle not surfaced from middle-edge seed, got %v", cycles)
	}

	w, ok := g.CycleWeight([]common.Address{addrs.WETH, tokenA, tokenB, addrs.WETH})
	if !ok || w >= 0 {
		t.Fatalf("rotated cycle weight = %v, want negative", w)
	}
}

func TestNegativeCyclesOrderingAndPools(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{
		// Product 1.0 * 1.02 > 1: negative weight sum.
		testEdge(addrs.WETH, tokenA, poolX, 1.0, 100),
		testEdge(tokenA, addrs.WETH, poolY, 1.02, 80),
		// Product below 1 via tokenB.
		testEdge(addrs.WETH, tokenB, poolX, 0.99, 100),
		testEdge(tokenB, addrs.WETH, poolY, 1.0, 80),
	})

	candidates := [][]common.Address{
		{addrs.WETH, tokenA, addrs.WETH},
		{addrs.WETH, tokenB, addrs.WETH},
	}
	paths := g.NegativeCycles(candidates)
	if len(paths) != 1 {
		t.Fatalf("negative cycles = %d, want 1", len(paths))
	}
	got := paths[0]
	if got.Tokens[1] != tokenA {
		t.Fatalf("wrong cycle survived: %v", got.Tokens)
	}
	if len(got.Pools) != 2 || got.Pools[0] != poolX || got.Pools[1] != poolY {
		t.Fatalf("pools = %v, want [%s %s]", got.Pools, poolX, poolY)
	}

	w, ok := g.CycleWeight(got.Tokens)
	if !ok || w >= 0 {
		t.Fatalf("cycle weight = %v, want negative", w)
	}
	wantWeight := -(math.Log(1.0) + math.Log(1.02))
	if math.Abs(w-wantWeight) > 1e-12 {
		t.Fatalf("cycle weight = %v, want %v", w, wantWeight)
	}
}

func TestCycleWeightMissingEdge(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{testEdge(addrs.WETH, tokenA, poolX, 1.0, 100)})
	if _, ok := g.CycleWeight([]common.Address{addrs.WETH, tokenA, addrs.WETH}); ok {
		t.Fatal("expected missing-edge failure")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New()
	g.ApplyIncremental([]model.Edge{
		testEdge(addrs.WETH, tokenA, poolX, 1.0, 100),
		testEdge(tokenA, addrs.WETH, poolY, 1.02, 80),
	})

	data, err := g.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := New()
	if err := restored.LoadSnapshot(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.EdgeCount() != g.EdgeCount() {
		t.Fatalf("edge count = %d, want %d", restored.EdgeCount(), g.EdgeCount())
	}
	e, ok := restored.Edge(tokenA, addrs.WETH)
	if !ok || e.Pool != poolY || e.Rate != 1.02 {
		t.Fatalf("restored edge = %+v", e)
	}
}
