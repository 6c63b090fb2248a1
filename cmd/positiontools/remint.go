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
	"positionTools/internal/univ3math"
)

func runRemint(cmd *cobra.Command, _ []string) error {
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

	tickLower, _ := cmd.Flags().GetInt32("tick-lower")
	tickUpper, _ := cmd.Flags().GetInt32("tick-upper")
	priceLower, _ := cmd.Flags().GetString("price-lower")
	priceUpper, _ := cmd.Flags().GetString("price-upper")

	if priceLower != "" || priceUpper != "" {
		if priceLower == "" || priceUpper == "" {
			return fmt.Errorf("price-lower and price-upper must be set together")
		}
		tickLower, tickUpper, err = resolvePriceRange(ctx, tk, positionID, priceLower, priceUpper)
		if err != nil {
			return err
		}
		tk.logger.Info("resolved price range",
			zap.String("price_lower", priceLower),
			zap.String("price_upper", priceUpper),
			zap.Int32("tick_lower", tickLower),
			zap.Int32("tick_upper", tickUpper),
		)
	}
	if tickLower == 0 && tickUpper == 0 {
		return fmt.Errorf("a tick or price range is required")
	}

	res, err := tk.mutator.Remint(ctx, positionID, tk.mutator.Self(), tickLower, tickUpper)
	if err != nil {
		return err
	}

	owner, err := tk.registry.OwnerOf(ctx, res.NewPositionID)
	if err != nil {
		tk.logger.Warn("owner lookup for record failed", zap.Error(err))
	}
	tk.record(ctx, model.OperationRecord{
		Operation:      model.OpRemint,
		Owner:          owner.Hex(),
		PositionID:     positionID.String(),
		NewPositionID:  res.NewPositionID.String(),
		LiquidityDelta: res.Liquidity.String(),
		Amount0:        res.Amount0.String(),
		Amount1:        res.Amount1.String(),
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		TxHashes:       res.TxHashes,
		ExecutedAt:     time.Now().UTC(),
	})

	tk.logger.Info("remint done",
		zap.String("old_position", positionID.String()),
		zap.String("new_position", res.NewPositionID.String()),
		zap.String("liquidity", res.Liquidity.String()),
		zap.String("returned0", res.Returned0.String()),
		zap.String("returned1", res.Returned1.String()),
	)
	return nil
}

// resolvePriceRange turns a token1-per-token0 price band into usable ticks
// for the position's pool.
func resolvePriceRange(ctx context.Context, tk *toolkit, positionID *big.Int, priceLower, priceUpper string) (int32, int32, error) {
	pos, err := tk.registry.PositionState(ctx, positionID)
	if err != nil {
		return 0, 0, fmt.Errorf("read position %s: %w", positionID, err)
	}

	meta0, err := tk.tokens.Meta(ctx, pos.Token0)
	if err != nil {
		return 0, 0, fmt.Errorf("token0 metadata: %w", err)
	}
	meta1, err := tk.tokens.Meta(ctx, pos.Token1)
	if err != nil {
		return 0, 0, fmt.Errorf("token1 metadata: %w", err)
	}

	pool, err := tk.pools.PoolAddress(ctx, pos.Token0, pos.Token1, pos.Fee)
	if err != nil {
		return 0, 0, err
	}
	state, err := tk.pools.State(ctx, pool)
	if err != nil {
		return 0, 0, err
	}

	lower, err := priceToUsableTick(priceLower, meta0.Decimals, meta1.Decimals, state.TickSpacing)
	if err != nil {
		return 0, 0, fmt.Errorf("price-lower: %w", err)
	}
	upper, err := priceToUsableTick(priceUpper, meta0.Decimals, meta1.Decimals, state.TickSpacing)
	if err != nil {
		return 0, 0, fmt.Errorf("price-upper: %w", err)
	}
	return lower, upper, nil
}

func priceToUsableTick(price string, decimals0, decimals1 uint8, tickSpacing int32) (int32, error) {
	numerator, denominator, err := univ3math.ParsePrice(price, decimals0, decimals1)
	if err != nil {
		return 0, err
	}
	tick, err := univ3math.PriceToTick(numerator, denominator)
	if err != nil {
		return 0, err
	}
	return univ3math.NearestUsableTick(tick, tickSpacing)
}
