// Package watcher follows new blocks, folds pool events into cached state,
// and feeds the updated edges through the arbitrage search.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/graph"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/liquidity"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/storage"
)

// Config holds the watcher's runtime settings.
type Config struct {
	Concurrency    int
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxCycleLen    int
	MinProfitUSD   float64
	CheckpointPath string
}

// SnapshotSink persists the serialized graph after edge updates.
type SnapshotSink interface {
	SaveGraphSnapshot(ctx context.Context, data []byte) error
}

// Watcher drives the per-block pipeline: decode pool logs, refresh state,
// update the graph, and journal verified opportunities.
type Watcher struct {
	cfg        Config
	chain      *chain.Client
	loader     *pool.Loader
	pools      *pool.Cache
	classifier *liquidity.Classifier
	engine     *graph.Engine
	journal    storage.OpportunityJournal
	snapshots  SnapshotSink
	checkpoint *storage.CheckpointStore
	logger     *zap.Logger
}

func New(cfg Config, chainClient *chain.Client, loader *pool.Loader, pools *pool.Cache, classifier *liquidity.Classifier, engine *graph.Engine, journal storage.OpportunityJournal, snapshots SnapshotSink, logger *zap.Logger) *Watcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.MaxCycleLen < 3 {
		cfg.MaxCycleLen = graph.DefaultMaxCycleLen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cfg:        cfg,
		chain:      chainClient,
		loader:     loader,
		pools:      pools,
		classifier: classifier,
		engine:     engine,
		journal:    journal,
		snapshots:  snapshots,
		checkpoint: storage.NewCheckpointStore(cfg.CheckpointPath, "watcher"),
		logger:     logger,
	}
}

// Run subscribes to new heads and processes each block until the context
// ends. Subscription failures trigger a resubscribe with backoff.
func (w *Watcher) Run(ctx context.Context) error {
	if w.chain == nil {
		return fmt.Errorf("chain client is nil")
	}

	for {
		heads := make(chan *types.Header, 16)
		var sub ethereum.Subscription
		err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			sub, err = w.chain.SubscribeNewHeads(ctx, heads)
			if err != nil {
				w.logger.Warn("head subscription failed", zap.Error(err))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("subscribe heads: %w", err)
		}

		err = w.consume(ctx, heads, sub.Err())
		sub.Unsubscribe()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("head stream dropped, resubscribing", zap.Error(err))
	}
}

func (w *Watcher) consume(ctx context.Context, heads <-chan *types.Header, subErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-subErr:
			return err
		case head := <-heads:
			block := head.Number.Uint64()
			if err := w.ProcessBlock(ctx, block); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("block processing failed", zap.Uint64("block", block), zap.Error(err))
			}
		}
	}
}

// ProcessBlock runs the full pipeline for one block.
func (w *Watcher) ProcessBlock(ctx context.Context, block uint64) error {
	tracked := w.trackedAddresses()
	if len(tracked) == 0 {
		return nil
	}

	var logs []types.Log
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = w.chain.FilterLogs(ctx, block, block, tracked, []common.Hash{TopicSwapV3, TopicSyncV2})
		if err != nil {
			w.logger.Warn("filter logs failed", zap.Uint64("block", block), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}
	if len(logs) == 0 {
		return w.checkpoint.Save(block)
	}

	events := w.decodeLogs(logs)
	latest := LatestEvents(events)
	if len(latest) == 0 {
		return w.checkpoint.Save(block)
	}

	affected := w.applyEvents(latest)
	w.refreshPools(ctx, affected, block)

	edges := w.rebuildEdges(ctx, affected)
	res := w.engine.Graph().ApplyIncremental(edges)
	w.logger.Debug("edges applied",
		zap.Uint64("block", block),
		zap.Int("accepted", len(res.Accepted)),
		zap.Int("rejected", len(res.Rejected)))

	if w.snapshots != nil && len(res.Accepted) > 0 {
		if data, err := w.engine.Graph().MarshalSnapshot(); err == nil {
			if err := w.snapshots.SaveGraphSnapshot(ctx, data); err != nil {
				w.logger.Warn("graph snapshot save failed", zap.Uint64("block", block), zap.Error(err))
			}
		}
	}

	opps := w.searchCycles(ctx, res.Accepted, block)
	if len(opps) > 0 {
		w.stampBlockTime(ctx, block, opps)
		w.logger.Info("opportunities found", zap.Uint64("block", block), zap.Int("count", len(opps)))
		if w.journal != nil {
			if err := w.journal.PutOpportunities(opps); err != nil {
				return fmt.Errorf("journal opportunities: %w", err)
			}
		}
	}

	return w.checkpoint.Save(block)
}

func (w *Watcher) trackedAddresses() []common.Address {
	pools := w.pools.All()
	out := make([]common.Address, 0, len(pools))
	for _, p := range pools {
		if p.Tradable() {
			out = append(out, p.Address)
		}
	}
	return out
}

func (w *Watcher) decodeLogs(logs []types.Log) []model.PoolEvent {
	events := make([]model.PoolEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		event, err := DecodePoolLog(log)
		if err != nil {
			w.logger.Warn("undecodable pool log", zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events
}

// LatestEvents keeps only the last event per pool, ordered by block then
// log index. Earlier events in the same block are superseded snapshots.
func LatestEvents(events []model.PoolEvent) map[common.Address]model.PoolEvent {
	latest := make(map[common.Address]model.PoolEvent)
	for _, e := range events {
		cur, ok := latest[e.Pool]
		if !ok || e.BlockNumber > cur.BlockNumber ||
			(e.BlockNumber == cur.BlockNumber && e.LogIndex > cur.LogIndex) {
			latest[e.Pool] = e
		}
	}
	return latest
}

// applyEvents folds decoded payloads into cached pool state and returns the
// affected pools. Events for unknown pools are dropped.
func (w *Watcher) applyEvents(latest map[common.Address]model.PoolEvent) []*model.Pool {
	var affected []*model.Pool
	for addr, event := range latest {
		p, ok := w.pools.Get(addr)
		if !ok || !p.Tradable() {
			continue
		}

		switch event.Kind {
		case model.EventSwapV3:
			if p.Variant != model.VariantV3 || p.V3 == nil {
				continue
			}
			p.V3.SqrtPriceX96 = event.Swap.SqrtPriceX96
			p.V3.Liquidity = event.Swap.Liquidity
			p.V3.Tick = event.Swap.Tick

		case model.EventSyncV2:
			if p.Variant != model.VariantV2 || p.V2 == nil {
				continue
			}
			p.V2.Reserve0 = event.Sync.Reserve0
			p.V2.Reserve1 = event.Sync.Reserve1

		default:
			continue
		}
		affected = append(affected, p)
	}
	return affected
}

// refreshPools re-reads balances for the affected pools with bounded
// concurrency. A failed refresh keeps the event-applied state; only the
// balances go stale, which the next block corrects.
func (w *Watcher) refreshPools(ctx context.Context, pools []*model.Pool, block uint64) {
	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, p := range pools {
		wg.Add(1)
		sem <- struct{}{}
		go func(p *model.Pool) {
			defer wg.Done()
			defer func() { <-sem }()

			err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
				return w.loader.Refresh(ctx, p, nil)
			})
			if err != nil {
				w.logger.Warn("pool refresh failed",
					zap.String("pool", p.Address.Hex()),
					zap.Uint64("block", block),
					zap.Error(err))
			}
		}(p)
	}
	wg.Wait()
}

// rebuildEdges recomputes the directed edges of each affected pool after
// reclassifying its liquidity.
func (w *Watcher) rebuildEdges(ctx context.Context, pools []*model.Pool) []model.Edge {
	now := time.Now()
	var edges []model.Edge
	for _, p := range pools {
		if w.classifier.CheckBlacklist(ctx, p) {
			continue
		}
		cls := w.classifier.Classify(ctx, p)
		if !cls.Eligible() {
			continue
		}
		edges = append(edges, graph.EdgesFromPool(p, cls.LockedValueUSD, now)...)
	}
	return edges
}

// searchCycles enumerates cycles through each accepted edge, keeps the
// negative-weight ones, and verifies them through simulation.
func (w *Watcher) searchCycles(ctx context.Context, accepted []model.Edge, block uint64) []model.Opportunity {
	g := w.engine.Graph()

	seen := make(map[string]bool)
	var candidates []model.CyclePath
	for _, e := range accepted {
		cycles := g.EnumerateCycles(e.Source, e.Target, w.cfg.MaxCycleLen)
		for _, path := range g.NegativeCycles(cycles) {
			key := cycleKey(path)
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, path)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	opps := w.engine.FindProfitableCycles(ctx, candidates, block)
	if w.cfg.MinProfitUSD <= 0 {
		return opps
	}
	filtered := opps[:0]
	for _, opp := range opps {
		if opp.ProfitUSD >= w.cfg.MinProfitUSD {
			filtered = append(filtered, opp)
		}
	}
	return filtered
}

// stampBlockTime rewrites FoundAt from the wall clock to the block's own
// timestamp so journaled opportunities order by chain time. A failed lookup
// keeps the wall-clock stamp.
func (w *Watcher) stampBlockTime(ctx context.Context, block uint64, opps []model.Opportunity) {
	ts, err := w.chain.BlockTimestamp(ctx, block)
	if err != nil {
		w.logger.Warn("block timestamp lookup failed", zap.Uint64("block", block), zap.Error(err))
		return
	}
	at := time.Unix(int64(ts), 0)
	for i := range opps {
		opps[i].FoundAt = at
	}
}

func cycleKey(path model.CyclePath) string {
	key := ""
	for _, t := range path.Tokens {
		key += t.Hex()
	}
	for _, p := range path.Pools {
		key += p.Hex()
	}
	return key
}
