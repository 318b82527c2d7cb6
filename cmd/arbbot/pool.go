package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
)

// poolReport is the printable summary of one loaded pool.
type poolReport struct {
	Pool           *model.Pool `json:"pool"`
	SpotPrice      float64     `json:"spot_price"`
	HasAnchor      bool        `json:"has_anchor"`
	AnchorIsNative bool        `json:"anchor_is_native"`
	TierLow        bool        `json:"tier_low"`
	TierMedium     bool        `json:"tier_medium"`
	TierHigh       bool        `json:"tier_high"`
	LockedValueUSD float64     `json:"locked_value_usd"`
	Blacklisted    bool        `json:"blacklisted"`
}

func runPoolInspect(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid pool address: %s", args[0])
	}
	address := common.HexToAddress(args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.loader.Load(ctx, address)
	if err != nil {
		return fmt.Errorf("load pool: %w", err)
	}

	report := poolReport{Pool: p}
	if price, err := pool.Rate(p, p.Token0.Address); err == nil {
		report.SpotPrice = price
	}
	if s.classifier.CheckBlacklist(ctx, p) {
		report.Blacklisted = true
	} else {
		cls := s.classifier.Classify(ctx, p)
		report.HasAnchor = cls.HasAnchor
		report.AnchorIsNative = cls.AnchorIsNative
		report.TierLow = cls.TierLow
		report.TierMedium = cls.TierMedium
		report.TierHigh = cls.TierHigh
		report.LockedValueUSD = cls.LockedValueUSD
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
