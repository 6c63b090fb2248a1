package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionTools/internal/model"
)

func runWithdraw(cmd *cobra.Command, _ []string) error {
	positionID, err := positionFlag(cmd)
	if err != nil {
		return err
	}

	liquidityFlag, _ := cmd.Flags().GetString("liquidity")
	liquidity, err := parseBigFlag(liquidityFlag, "liquidity")
	if err != nil {
		return err
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	minOutFlag, _ := cmd.Flags().GetString("min-amount-out")
	minAmountOut, err := parseBigFlag(minOutFlag, "min-amount-out")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tk, err := newToolkit(ctx, cmd)
	if err != nil {
		return err
	}
	defer tk.Close()

	owner, err := tk.registry.OwnerOf(ctx, positionID)
	if err != nil {
		return fmt.Errorf("read owner of %s: %w", positionID, err)
	}

	res, err := tk.mutator.WithdrawAndConvert(ctx, positionID, tk.mutator.Self(), liquidity, mode, minAmountOut)
	if err != nil {
		return err
	}

	record := model.OperationRecord{
		Operation:  model.OpWithdraw,
		Owner:      owner.Hex(),
		PositionID: positionID.String(),
		Amount0:    res.Amount0.String(),
		Amount1:    res.Amount1.String(),
		TxHashes:   res.TxHashes,
		ExecutedAt: time.Now().UTC(),
	}
	if liquidity != nil {
		record.LiquidityDelta = liquidity.String()
	}
	tk.record(ctx, record)

	tk.logger.Info("withdraw done",
		zap.String("position", positionID.String()),
		zap.String("mode", mode.String()),
		zap.String("amount0", res.Amount0.String()),
		zap.String("amount1", res.Amount1.String()),
	)
	return nil
}

func parseMode(value string) (model.ConversionMode, error) {
	switch value {
	case "", "keep":
		return model.KeepBoth, nil
	case "token0":
		return model.ConvertAllToToken0, nil
	case "token1":
		return model.ConvertAllToToken1, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want keep, token0, or token1)", value)
	}
}

func parseBigFlag(value, name string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
	}
	return parsed, nil
}
