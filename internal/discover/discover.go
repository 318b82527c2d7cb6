// Package discover backfills pools by scanning factory creation events.
package discover

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/storage"
)

// Factory creation event signatures.
var (
	TopicPairCreated = crypto.Keccak256Hash([]byte("PairCreated(address,address,address,uint256)"))
	TopicPoolCreated = crypto.Keccak256Hash([]byte("PoolCreated(address,address,uint24,int24,address)"))
)

// RunConfig holds runtime settings for a discovery scan.
type RunConfig struct {
	FromBlock      uint64
	ToBlock        uint64
	Factories      []common.Address
	BatchSize      uint64
	CheckpointPath string
	MaxRetries     int
	RetryBackoff   time.Duration
}

// Runner scans factory logs over a block range and loads each created pool.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	loader     *pool.Loader
	pools      *pool.Cache
	checkpoint *storage.CheckpointStore
	logger     *zap.Logger
}

func NewRunner(cfg RunConfig, chainClient *chain.Client, loader *pool.Loader, pools *pool.Cache, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		loader:     loader,
		pools:      pools,
		checkpoint: storage.NewCheckpointStore(cfg.CheckpointPath, "discover"),
		logger:     logger,
	}
}

// Run executes the scan, resuming from the checkpoint when one exists.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Factories) == 0 {
		return fmt.Errorf("at least one factory is required")
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	topics := []common.Hash{TopicPairCreated, TopicPoolCreated}
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("scan factories", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		var logs []types.Log
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Factories, topics)
			if err != nil {
				r.logger.Warn("filter factory logs failed", zap.Error(err),
					zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("filter factory logs: %w", err)
		}

		loaded := 0
		for _, log := range logs {
			addr, err := PoolAddressFromLog(log)
			if err != nil {
				r.logger.Warn("undecodable factory log", zap.Error(err))
				continue
			}
			if _, ok := r.pools.Get(addr); ok {
				continue
			}

			p, err := r.loader.Load(ctx, addr)
			if err != nil {
				r.logger.Warn("pool load failed", zap.String("pool", addr.Hex()), zap.Error(err))
				continue
			}
			r.pools.Put(p)
			loaded++
		}

		if err := r.checkpoint.Save(blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete",
			zap.Int("logs", len(logs)),
			zap.Int("loaded", loaded),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To))
	}

	return nil
}

// PoolAddressFromLog extracts the created pool's address from a factory
// creation log. Both factory variants carry it in the data section: PairCreated
// as the first non-indexed field, PoolCreated as the second after tickSpacing.
func PoolAddressFromLog(log types.Log) (common.Address, error) {
	if len(log.Topics) == 0 {
		return common.Address{}, fmt.Errorf("factory log %s/%d: missing topic0", log.TxHash.Hex(), log.Index)
	}

	switch log.Topics[0] {
	case TopicPairCreated:
		parsed, err := pool.V2FactoryABI()
		if err != nil {
			return common.Address{}, fmt.Errorf("parse v2 factory abi: %w", err)
		}
		values, err := parsed.Unpack("PairCreated", log.Data)
		if err != nil {
			return common.Address{}, fmt.Errorf("pair created log %s/%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		return addressValue(values[0])

	case TopicPoolCreated:
		parsed, err := pool.V3FactoryABI()
		if err != nil {
			return common.Address{}, fmt.Errorf("parse v3 factory abi: %w", err)
		}
		values, err := parsed.Unpack("PoolCreated", log.Data)
		if err != nil {
			return common.Address{}, fmt.Errorf("pool created log %s/%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		return addressValue(values[1])

	default:
		return common.Address{}, fmt.Errorf("factory log %s/%d: unrecognized topic0 %s", log.TxHash.Hex(), log.Index, log.Topics[0].Hex())
	}
}

func addressValue(value interface{}) (common.Address, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", value)
	}
	return addr, nil
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
