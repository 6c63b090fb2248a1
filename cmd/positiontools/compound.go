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

func runCompound(cmd *cobra.Command, _ []string) error {
	positionID, err := positionFlag(cmd)
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

	tk.logger.Info("compound start",
		zap.String("position", positionID.String()),
		zap.String("operator", tk.mutator.Self().Hex()),
	)

	res, err := tk.mutator.Compound(ctx, positionID, tk.mutator.Self())
	if err != nil {
		return err
	}

	owner, err := tk.registry.OwnerOf(ctx, positionID)
	if err != nil {
		tk.logger.Warn("owner lookup for record failed", zap.Error(err))
	}
	tk.record(ctx, model.OperationRecord{
		Operation:      model.OpCompound,
		Owner:          owner.Hex(),
		PositionID:     positionID.String(),
		LiquidityDelta: res.LiquidityDelta.String(),
		Amount0:        res.Amount0.String(),
		Amount1:        res.Amount1.String(),
		TxHashes:       res.TxHashes,
		ExecutedAt:     time.Now().UTC(),
	})

	tk.logger.Info("compound done",
		zap.String("position", positionID.String()),
		zap.String("liquidity_delta", res.LiquidityDelta.String()),
		zap.String("deposited0", res.Amount0.String()),
		zap.String("deposited1", res.Amount1.String()),
		zap.String("returned0", res.Returned0.String()),
		zap.String("returned1", res.Returned1.String()),
	)
	return nil
}

func positionFlag(cmd *cobra.Command) (*big.Int, error) {
	id, err := cmd.Flags().GetUint64("position")
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, fmt.Errorf("position token id is required")
	}
	return new(big.Int).SetUint64(id), nil
}
