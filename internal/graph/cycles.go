package graph

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/addrs"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

// DefaultMaxCycleLen bounds cycle enumeration to anchor → X → anchor and
// anchor → X → Y → anchor shapes.
const DefaultMaxCycleLen = 4

// EnumerateCycles finds closed token walks reachable by extending the given
// edge in both directions, up to maxLen tokens per walk. Only cycles rooted
// at an anchor token are returned, since those are the borrowable assets.
func (g *Graph) EnumerateCycles(source, target common.Address, maxLen int) [][]common.Address {
	if maxLen < 3 {
		maxLen = DefaultMaxCycleLen
	}
	snapshot := g.Snapshot()

	// Adjacency from the snapshot so enumeration never holds the lock.
	adj := make(map[common.Address][]common.Address)
	for _, e := range snapshot {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	paths := [][]common.Address{
		{source, target},
		{target, source},
	}
	var cycles [][]common.Address

	for len(paths) > 0 && len(paths[0]) < maxLen {
		var next [][]common.Address
		for _, path := range paths {
			last := path[len(path)-1]
			for _, neighbor := range adj[last] {
				if neighbor == path[0] {
					cycle := append(append([]common.Address{}, path...), neighbor)
					cycles = append(cycles, cycle)
					continue
				}
				if containsToken(path, neighbor) {
					continue
				}
				next = append(next, append(append([]common.Address{}, path...), neighbor))
			}
		}
		paths = next
	}

	filtered := cycles[:0]
	for _, cycle := range cycles {
		if rotated, ok := rotateToAnchor(cycle); ok {
			filtered = append(filtered, rotated)
		}
	}
	return filtered
}

// rotateToAnchor rewrites a closed walk so it starts and ends at its
// highest-priority anchor token. Walks touching no anchor are dropped.
func rotateToAnchor(cycle []common.Address) ([]common.Address, bool) {
	best := -1
	bestPriority := len(addrs.AnchorTokens)
	for i := 0; i+1 < len(cycle); i++ {
		if p := addrs.AnchorPriority(cycle[i]); p >= 0 && p < bestPriority {
			best, bestPriority = i, p
		}
	}
	if best < 0 {
		return nil, false
	}
	if best == 0 {
		return cycle, true
	}

	// cycle[len-1] duplicates cycle[0]; rotate the distinct prefix and
	// close the walk again at the anchor.
	ring := cycle[:len(cycle)-1]
	rotated := make([]common.Address, 0, len(cycle))
	rotated = append(rotated, ring[best:]...)
	rotated = append(rotated, ring[:best]...)
	rotated = append(rotated, ring[best])
	return rotated, true
}

// CycleWeight sums the retained edge weights along the token walk. The
// second return is false when any hop has no edge.
func (g *Graph) CycleWeight(tokens []common.Address) (float64, bool) {
	var total float64
	for i := 0; i+1 < len(tokens); i++ {
		e, ok := g.Edge(tokens[i], tokens[i+1])
		if !ok {
			return 0, false
		}
		total += e.Weight
	}
	return total, true
}

// NegativeCycles filters the walks whose weight sum is negative, meaning
// their rates multiply above one, and returns them most negative first as
// CyclePaths carrying the realizing pool per hop.
func (g *Graph) NegativeCycles(cycles [][]common.Address) []model.CyclePath {
	type weighted struct {
		path   model.CyclePath
		weight float64
	}
	var out []weighted

	for _, tokens := range cycles {
		weight, ok := g.CycleWeight(tokens)
		if !ok || weight >= 0 {
			continue
		}
		pools := make([]common.Address, 0, len(tokens)-1)
		for i := 0; i+1 < len(tokens); i++ {
			e, _ := g.Edge(tokens[i], tokens[i+1])
			pools = append(pools, e.Pool)
		}
		out = append(out, weighted{
			path:   model.CyclePath{Tokens: tokens, Pools: pools},
			weight: weight,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].weight < out[j].weight })

	paths := make([]model.CyclePath, len(out))
	for i, w := range out {
		paths[i] = w.path
	}
	return paths
}

func containsToken(path []common.Address, token common.Address) bool {
	for _, t := range path {
		if t == token {
			return true
		}
	}
	return false
}
