package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionTools/internal/chain"
	"positionTools/internal/config"
	"positionTools/internal/registry"
	"positionTools/internal/scan"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	manager, err := parseAddress(cfg.PositionManager, "position-manager")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	// Read-only adapter; the deadline only applies to mutations.
	source, err := registry.NewAdapter(client, nil, manager, time.Minute, logger)
	if err != nil {
		return err
	}

	scanner := scan.NewScanner(scan.RunConfig{
		Count:        cfg.Count,
		MaxProbes:    cfg.MaxProbes,
		Seed:         cfg.Seed,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, source, logger)

	found, err := scanner.Run(ctx)
	if err != nil {
		return err
	}

	for _, pos := range found {
		logger.Info("candidate",
			zap.String("position", pos.ID.String()),
			zap.String("owner", pos.Owner.Hex()),
			zap.String("liquidity", pos.Liquidity.String()),
			zap.String("owed0", pos.TokensOwed0.String()),
			zap.String("owed1", pos.TokensOwed1.String()),
		)
	}
	logger.Info("scan done", zap.Int("found", len(found)))
	return nil
}
