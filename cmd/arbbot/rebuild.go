package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

func runRebuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.store == nil {
		return fmt.Errorf("pg dsn is required for rebuild")
	}

	if err := s.loadStoredPools(ctx); err != nil {
		return err
	}

	s.engine.Rebuild(ctx, s.pools.All())

	if err := persistPools(ctx, s); err != nil {
		return err
	}

	snapshot, err := s.engine.Graph().MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := s.store.SaveGraphSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save graph snapshot: %w", err)
	}

	s.logger.Info("rebuild complete",
		zap.Int("pools", s.pools.Len()),
		zap.Int("edges", s.engine.Graph().EdgeCount()))

	return nil
}

// persistPools reclassifies every cached pool and upserts its record.
func persistPools(ctx context.Context, s *stack) error {
	if s.store == nil {
		return nil
	}

	pools := s.pools.All()
	records := make([]model.PoolRecord, 0, len(pools))
	for _, p := range pools {
		rec := model.PoolRecord{
			Address: p.Address,
			Network: p.Network,
			Variant: p.Variant,
			Token0:  p.Token0.Address,
			Token1:  p.Token1.Address,
			Fee:     p.FeePPM(),
		}
		if s.classifier.CheckBlacklist(ctx, p) {
			rec.Blacklisted = true
		} else {
			cls := s.classifier.Classify(ctx, p)
			rec.TierLow = cls.TierLow
			rec.TierMedium = cls.TierMedium
			rec.TierHigh = cls.TierHigh
		}
		records = append(records, rec)
	}

	if err := s.store.UpsertPools(ctx, records); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}
	s.logger.Info("pool records persisted", zap.Int("count", len(records)))
	return nil
}

func factoryAddresses() []common.Address {
	factories := knownFactories()
	out := make([]common.Address, 0, len(factories))
	for addr := range factories {
		out = append(out, addr)
	}
	return out
}
