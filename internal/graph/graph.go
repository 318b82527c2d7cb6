// Package graph maintains the directed token graph whose edges carry
// pool-implied exchange rates, and searches it for arbitrage cycles.
package graph

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

// Graph is the in-memory edge set. Reads take a snapshot; updates are
// applied atomically per batch.
type Graph struct {
	mu    sync.RWMutex
	edges map[model.PairKey]model.Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[model.PairKey]model.Edge)}
}

// ApplyResult reports the outcome of an incremental batch.
type ApplyResult struct {
	Accepted      []model.Edge
	Rejected      []model.Edge
	AffectedPairs []model.PairKey
}

// Edge returns the retained edge for the ordered pair.
func (g *Graph) Edge(source, target common.Address) (model.Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[model.PairKey{Source: source, Target: target}]
	return e, ok
}

// EdgeCount returns the number of retained edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Snapshot copies the full edge set for lock-free reading.
func (g *Graph) Snapshot() []model.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

// Neighbors returns the edges leaving the given token.
func (g *Graph) Neighbors(source common.Address) []model.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []model.Edge
	for k, e := range g.edges {
		if k.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// replaces reports whether the incoming edge supersedes the retained one
// for the same ordered pair: same-pool updates always win, a different pool
// wins only with strictly greater valued liquidity.
func replaces(incoming, existing model.Edge) bool {
	if incoming.Pool == existing.Pool {
		return true
	}
	return incoming.LiquidityValue > existing.LiquidityValue
}

// ApplyIncremental applies a batch of freshly computed edges. Conflicts
// inside the batch and against retained edges are resolved by the
// same-pool/greater-liquidity rule; losers are reported as rejected. The
// batch becomes visible atomically.
func (g *Graph) ApplyIncremental(edges []model.Edge) ApplyResult {
	var res ApplyResult

	// Resolve conflicts within the batch first.
	staged := make(map[model.PairKey]model.Edge, len(edges))
	for _, e := range edges {
		k := e.Key()
		cur, ok := staged[k]
		if !ok || replaces(e, cur) {
			if ok {
				res.Rejected = append(res.Rejected, cur)
			}
			staged[k] = e
		} else {
			res.Rejected = append(res.Rejected, e)
		}
	}

	g.mu.Lock()
	for k, e := range staged {
		cur, ok := g.edges[k]
		if ok && !replaces(e, cur) {
			res.Rejected = append(res.Rejected, e)
			continue
		}
		g.edges[k] = e
		res.Accepted = append(res.Accepted, e)
		res.AffectedPairs = append(res.AffectedPairs, k)
	}
	g.mu.Unlock()

	return res
}

// ReplaceAll swaps in a fully rebuilt edge set.
func (g *Graph) ReplaceAll(edges map[model.PairKey]model.Edge) {
	next := make(map[model.PairKey]model.Edge, len(edges))
	for k, e := range edges {
		next[k] = e
	}
	g.mu.Lock()
	g.edges = next
	g.mu.Unlock()
}
