package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

// snapshot is the node-link serialization of the graph: a node list of
// token addresses and a link list of directed edges. One snapshot is stored
// as a single JSON document.
type snapshot struct {
	Directed bool           `json:"directed"`
	SavedAt  time.Time      `json:"saved_at"`
	Nodes    []snapshotNode `json:"nodes"`
	Links    []snapshotLink `json:"links"`
}

type snapshotNode struct {
	ID common.Address `json:"id"`
}

type snapshotLink struct {
	Source         common.Address `json:"source"`
	Target         common.Address `json:"target"`
	Pool           common.Address `json:"pool"`
	Price          float64        `json:"price"`
	Rate           float64        `json:"rate"`
	Weight         float64        `json:"weight"`
	LiquidityValue float64        `json:"liquidity_value"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// MarshalSnapshot serializes the current edge set in node-link form.
func (g *Graph) MarshalSnapshot() ([]byte, error) {
	edges := g.Snapshot()

	seen := make(map[common.Address]bool)
	snap := snapshot{Directed: true, SavedAt: time.Now()}
	for _, e := range edges {
		for _, addr := range [2]common.Address{e.Source, e.Target} {
			if !seen[addr] {
				seen[addr] = true
				snap.Nodes = append(snap.Nodes, snapshotNode{ID: addr})
			}
		}
		snap.Links = append(snap.Links, snapshotLink{
			Source:         e.Source,
			Target:         e.Target,
			Pool:           e.Pool,
			Price:          e.Price,
			Rate:           e.Rate,
			Weight:         e.Weight,
			LiquidityValue: e.LiquidityValue,
			UpdatedAt:      e.UpdatedAt,
		})
	}
	return json.Marshal(snap)
}

// LoadSnapshot replaces the graph's edge set with the deserialized
// node-link document.
func (g *Graph) LoadSnapshot(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode graph snapshot: %w", err)
	}

	edges := make(map[model.PairKey]model.Edge, len(snap.Links))
	for _, l := range snap.Links {
		e := model.Edge{
			Source:         l.Source,
			Target:         l.Target,
			Pool:           l.Pool,
			Price:          l.Price,
			Rate:           l.Rate,
			Weight:         l.Weight,
			LiquidityValue: l.LiquidityValue,
			UpdatedAt:      l.UpdatedAt,
		}
		edges[e.Key()] = e
	}
	g.ReplaceAll(edges)
	return nil
}
