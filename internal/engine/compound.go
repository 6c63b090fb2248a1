package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/model"
)

// CompoundResult reports one fee-reinvestment run.
type CompoundResult struct {
	// LiquidityDelta is the liquidity added; zero when no fees were owed.
	LiquidityDelta *big.Int
	// Amount0/Amount1 are the harvested amounts actually deposited.
	Amount0 *big.Int
	Amount1 *big.Int
	// Returned0/Returned1 are harvested remainders sent back to the owner
	// because the pool's ratio at the current price could not absorb them.
	Returned0 *big.Int
	Returned1 *big.Int
	TxHashes  []string
}

// Compound harvests the position's owed fees and reinvests them as
// liquidity in the same tick range. Both-zero harvest is a successful
// no-op. Any deposit failure returns the harvested amounts to the owner.
func (m *Mutator) Compound(ctx context.Context, id *big.Int, caller common.Address) (CompoundResult, error) {
	unlock := m.locks.acquire(id)
	defer unlock()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	owner, err := m.authorize(ctx, id, caller)
	if err != nil {
		return CompoundResult{}, err
	}

	pos, err := m.registry.PositionState(ctx, id)
	if err != nil {
		return CompoundResult{}, fmt.Errorf("read position %s: %w", id, err)
	}

	collected, err := m.harvest(ctx, id, m.self)
	if err != nil {
		return CompoundResult{}, err
	}

	result := CompoundResult{
		LiquidityDelta: big.NewInt(0),
		Amount0:        big.NewInt(0),
		Amount1:        big.NewInt(0),
		Returned0:      big.NewInt(0),
		Returned1:      big.NewInt(0),
	}
	if collected.TxHash != "" {
		result.TxHashes = append(result.TxHashes, collected.TxHash)
	}

	if collected.Amount0.Sign() == 0 && collected.Amount1.Sign() == 0 {
		m.logger.Info("compound no-op, no fees owed", zap.String("position", id.String()))
		return result, nil
	}

	if err := m.approveRegistry(ctx, pos, collected.Amount0, collected.Amount1); err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return CompoundResult{}, err
	}

	increase, err := m.registry.IncreaseLiquidity(ctx, id, collected.Amount0, collected.Amount1)
	if err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return CompoundResult{}, fmt.Errorf("increase liquidity of %s: %v: %w", id, err, ErrDepositFailed)
	}
	if increase.TxHash != "" {
		result.TxHashes = append(result.TxHashes, increase.TxHash)
	}

	// The deposit may consume less than the harvest if the ratio does not
	// match the pool price; remainders go straight back to the owner.
	remainder0 := new(big.Int).Sub(collected.Amount0, increase.Amount0)
	remainder1 := new(big.Int).Sub(collected.Amount1, increase.Amount1)
	if txHash, err := m.returnRemainder(ctx, owner, pos.Token0, remainder0); err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return CompoundResult{}, fmt.Errorf("return token0 remainder: %w", err)
	} else if txHash != "" {
		result.TxHashes = append(result.TxHashes, txHash)
	}
	if txHash, err := m.returnRemainder(ctx, owner, pos.Token1, remainder1); err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return CompoundResult{}, fmt.Errorf("return token1 remainder: %w", err)
	} else if txHash != "" {
		result.TxHashes = append(result.TxHashes, txHash)
	}

	result.LiquidityDelta = increase.Liquidity
	result.Amount0 = increase.Amount0
	result.Amount1 = increase.Amount1
	result.Returned0 = remainder0
	result.Returned1 = remainder1

	m.logger.Info("compounded",
		zap.String("position", id.String()),
		zap.String("owner", owner.Hex()),
		zap.String("liquidity_delta", increase.Liquidity.String()),
	)
	m.events.Compounded(model.CompoundedEvent{
		Owner:          owner,
		PositionID:     new(big.Int).Set(id),
		LiquidityDelta: new(big.Int).Set(increase.Liquidity),
	})
	return result, nil
}

// approveRegistry grants the registry the allowance it needs to pull the
// deposit amounts from the engine's custody.
func (m *Mutator) approveRegistry(ctx context.Context, pos model.Position, amount0, amount1 *big.Int) error {
	spender := m.registry.Address()
	if amount0 != nil && amount0.Sign() > 0 {
		if _, err := m.tokens.Approve(ctx, pos.Token0, spender, amount0); err != nil {
			return fmt.Errorf("approve token0: %w", err)
		}
	}
	if amount1 != nil && amount1.Sign() > 0 {
		if _, err := m.tokens.Approve(ctx, pos.Token1, spender, amount1); err != nil {
			return fmt.Errorf("approve token1: %w", err)
		}
	}
	return nil
}
