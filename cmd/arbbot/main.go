package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/addrs"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/config"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/discover"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/graph"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/liquidity"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/registry"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/storage"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/storage/postgres"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/watcher"
)

func main() {
	root := &cobra.Command{
		Use:          "arbbot",
		Short:        "AMM arbitrage watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "Ethereum RPC URL (websocket for run)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Watch new blocks and search for arbitrage",
		RunE:  runWatch,
	}
	runCmd.Flags().Int("concurrency", 8, "pool refresh workers")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Int32("tick-window-radius", 2, "tick bitmap words fetched around the active tick")
	runCmd.Flags().Int("max-cycle-len", 4, "maximum tokens per cycle")
	runCmd.Flags().Float64("min-profit-usd", 0, "minimum opportunity size to journal")
	runCmd.Flags().String("journal", "./data/opportunities.jsonl", "opportunity JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	root.AddCommand(runCmd)

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Backfill pools from factory creation events",
		RunE:  runDiscover,
	}
	discoverCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	discoverCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	discoverCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	discoverCmd.Flags().String("checkpoint", "./data/discover_checkpoint.json", "checkpoint file path")
	discoverCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	discoverCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.AddCommand(discoverCmd)

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the token graph from stored pools",
		RunE:  runRebuild,
	}
	rebuildCmd.Flags().Int32("tick-window-radius", 2, "tick bitmap words fetched around the active tick")
	root.AddCommand(rebuildCmd)

	poolCmd := &cobra.Command{
		Use:   "pool <address>",
		Short: "Load one pool and print its state",
		Args:  cobra.ExactArgs(1),
		RunE:  runPoolInspect,
	}
	root.AddCommand(poolCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// stack bundles the long-lived components the subcommands share.
type stack struct {
	cfg        config.Config
	logger     *zap.Logger
	chain      *chain.Client
	store      *postgres.Store
	tokens     *registry.Registry
	feed       *liquidity.PriceFeed
	classifier *liquidity.Classifier
	loader     *pool.Loader
	ticks      *pool.TickCache
	sim        *pool.Simulator
	pools      *pool.Cache
	engine     *graph.Engine
}

func buildStack(ctx context.Context, cmd *cobra.Command) (*stack, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	logger.Info("connected", zap.String("network", cfg.Network), zap.String("chain_id", chainID.String()))

	var store *postgres.Store
	var tokenStore registry.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN, cfg.Network)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		tokenStore = store
	}

	tokens, err := registry.New(chainClient, tokenStore, cfg.Network, cfg.TokenCacheSize, logger)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	feed := liquidity.NewPriceFeed(chainClient, addrs.ChainlinkETHUSD, cfg.PriceTTL)
	classifier := liquidity.NewClassifier(tokens, feed, logger)

	ticks := pool.NewTickCache(chainClient, addrs.UniswapV3TickLens, cfg.TickWindowRadius, logger)
	loader := pool.NewLoader(chainClient, tokens, cfg.Network, knownFactories(), ticks, logger)
	sim := pool.NewSimulator(chainClient, ticks, addrs.UniswapV3Quoter, logger)
	pools := pool.NewCache()
	engine := graph.NewEngine(graph.New(), sim, classifier, pools, feed, logger)

	return &stack{
		cfg:        cfg,
		logger:     logger,
		chain:      chainClient,
		store:      store,
		tokens:     tokens,
		feed:       feed,
		classifier: classifier,
		loader:     loader,
		ticks:      ticks,
		sim:        sim,
		pools:      pools,
		engine:     engine,
	}, nil
}

func (s *stack) Close() {
	if s.store != nil {
		s.store.Close()
	}
	s.chain.Close()
	s.logger.Sync()
}

func knownFactories() map[common.Address]model.Variant {
	return map[common.Address]model.Variant{
		addrs.UniswapV2Factory: model.VariantV2,
		addrs.SushiswapFactory: model.VariantV2,
		addrs.UniswapV3Factory: model.VariantV3,
	}
}

// loadStoredPools loads every non-blacklisted stored pool into the cache.
func (s *stack) loadStoredPools(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	addresses, err := s.store.ListPoolAddresses(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	for _, addr := range addresses {
		p, err := s.loader.Load(ctx, addr)
		if err != nil {
			s.logger.Warn("stored pool load failed", zap.String("pool", addr.Hex()), zap.Error(err))
			continue
		}
		s.pools.Put(p)
	}
	s.logger.Info("pools loaded", zap.Int("stored", len(addresses)), zap.Int("cached", s.pools.Len()))
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.loadStoredPools(ctx); err != nil {
		return err
	}
	s.engine.Rebuild(ctx, s.pools.All())

	journal := storage.NewJsonlJournal(s.cfg.Journal)
	var snapshots watcher.SnapshotSink
	if s.store != nil {
		snapshots = s.store
	}
	w := watcher.New(watcher.Config{
		Concurrency:    s.cfg.Concurrency,
		MaxRetries:     s.cfg.MaxRetries,
		RetryBackoff:   s.cfg.RetryBackoff,
		MaxCycleLen:    s.cfg.MaxCycleLen,
		MinProfitUSD:   s.cfg.MinProfitUSD,
		CheckpointPath: s.cfg.Checkpoint,
	}, s.chain, s.loader, s.pools, s.classifier, s.engine, journal, snapshots, s.logger)

	s.logger.Info("watcher start",
		zap.String("network", s.cfg.Network),
		zap.Int("pools", s.pools.Len()),
		zap.Int("edges", s.engine.Graph().EdgeCount()),
		zap.Float64("min_profit_usd", s.cfg.MinProfitUSD))

	return w.Run(ctx)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runner := discover.NewRunner(discover.RunConfig{
		FromBlock:      s.cfg.FromBlock,
		ToBlock:        s.cfg.ToBlock,
		Factories:      factoryAddresses(),
		BatchSize:      s.cfg.BatchSize,
		CheckpointPath: s.cfg.Checkpoint,
		MaxRetries:     s.cfg.MaxRetries,
		RetryBackoff:   s.cfg.RetryBackoff,
	}, s.chain, s.loader, s.pools, s.logger)

	s.logger.Info("discover start",
		zap.Uint64("from", s.cfg.FromBlock),
		zap.Uint64("to", s.cfg.ToBlock),
		zap.Uint64("batch_size", s.cfg.BatchSize))

	if err := runner.Run(ctx); err != nil {
		return err
	}

	return persistPools(ctx, s)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
