package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/model"
)

// RemintResult reports a close-and-reopen run.
type RemintResult struct {
	NewPositionID *big.Int
	Liquidity     *big.Int
	// Amount0/Amount1 are the proceeds deposited into the new range.
	Amount0 *big.Int
	Amount1 *big.Int
	// Returned0/Returned1 are proceeds the new range could not absorb at
	// the current price, sent back to the owner.
	Returned0 *big.Int
	Returned1 *big.Int
	TxHashes  []string
}

// Remint fully withdraws the position and reopens it over the new tick
// range, minting a fresh position for the same owner. The old position is
// left drained at zero liquidity; its registry lifecycle is not touched.
func (m *Mutator) Remint(ctx context.Context, id *big.Int, caller common.Address, newTickLower, newTickUpper int32) (RemintResult, error) {
	unlock := m.locks.acquire(id)
	defer unlock()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	owner, err := m.authorize(ctx, id, caller)
	if err != nil {
		return RemintResult{}, err
	}

	pos, err := m.registry.PositionState(ctx, id)
	if err != nil {
		return RemintResult{}, fmt.Errorf("read position %s: %w", id, err)
	}

	if err := m.validateRange(ctx, pos, newTickLower, newTickUpper); err != nil {
		return RemintResult{}, err
	}

	var hashes []string

	// Close: burn all liquidity, then drain principal and fees together.
	if pos.Liquidity.Sign() > 0 {
		decrease, err := m.registry.DecreaseLiquidity(ctx, id, pos.Liquidity)
		if err != nil {
			return RemintResult{}, fmt.Errorf("decrease liquidity of %s: %w", id, err)
		}
		if decrease.TxHash != "" {
			hashes = append(hashes, decrease.TxHash)
		}
	}

	collected, err := m.harvest(ctx, id, m.self)
	if err != nil {
		return RemintResult{}, err
	}
	if collected.TxHash != "" {
		hashes = append(hashes, collected.TxHash)
	}
	if collected.Amount0.Sign() == 0 && collected.Amount1.Sign() == 0 {
		return RemintResult{}, fmt.Errorf("position %s has no proceeds to remint: %w", id, ErrMintFailed)
	}

	if err := m.approveRegistry(ctx, pos, collected.Amount0, collected.Amount1); err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return RemintResult{}, err
	}

	minted, err := m.registry.Mint(ctx, model.MintParams{
		Token0:         pos.Token0,
		Token1:         pos.Token1,
		Fee:            pos.Fee,
		TickLower:      newTickLower,
		TickUpper:      newTickUpper,
		Amount0Desired: collected.Amount0,
		Amount1Desired: collected.Amount1,
		Recipient:      owner,
	})
	if err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return RemintResult{}, fmt.Errorf("mint replacement for %s: %v: %w", id, err, ErrMintFailed)
	}
	if minted.TxHash != "" {
		hashes = append(hashes, minted.TxHash)
	}

	result := RemintResult{
		NewPositionID: minted.TokenID,
		Liquidity:     minted.Liquidity,
		Amount0:       minted.Amount0,
		Amount1:       minted.Amount1,
		Returned0:     new(big.Int).Sub(collected.Amount0, minted.Amount0),
		Returned1:     new(big.Int).Sub(collected.Amount1, minted.Amount1),
		TxHashes:      hashes,
	}

	if txHash, err := m.returnRemainder(ctx, owner, pos.Token0, result.Returned0); err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return RemintResult{}, fmt.Errorf("return token0 remainder: %w", err)
	} else if txHash != "" {
		result.TxHashes = append(result.TxHashes, txHash)
	}
	if txHash, err := m.returnRemainder(ctx, owner, pos.Token1, result.Returned1); err != nil {
		m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
		return RemintResult{}, fmt.Errorf("return token1 remainder: %w", err)
	} else if txHash != "" {
		result.TxHashes = append(result.TxHashes, txHash)
	}

	m.logger.Info("reminted",
		zap.String("old_position", id.String()),
		zap.String("new_position", minted.TokenID.String()),
		zap.String("owner", owner.Hex()),
		zap.Int32("tick_lower", newTickLower),
		zap.Int32("tick_upper", newTickUpper),
	)
	m.events.Reminted(model.RemintedEvent{
		Owner:         owner,
		OldPositionID: new(big.Int).Set(id),
		NewPositionID: new(big.Int).Set(minted.TokenID),
	})
	return result, nil
}

// validateRange checks ordering and tick-spacing alignment of the target
// range against the position's pool.
func (m *Mutator) validateRange(ctx context.Context, pos model.Position, tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("tick lower %d not below upper %d: %w", tickLower, tickUpper, ErrInvalidTickRange)
	}

	pool, err := m.pools.PoolAddress(ctx, pos.Token0, pos.Token1, pos.Fee)
	if err != nil {
		return fmt.Errorf("resolve pool: %w", err)
	}
	state, err := m.pools.State(ctx, pool)
	if err != nil {
		return fmt.Errorf("read pool state: %w", err)
	}
	if state.TickSpacing <= 0 {
		return fmt.Errorf("pool %s has invalid tick spacing %d", pool.Hex(), state.TickSpacing)
	}
	if tickLower%state.TickSpacing != 0 || tickUpper%state.TickSpacing != 0 {
		return fmt.Errorf("ticks [%d, %d] not aligned to spacing %d: %w",
			tickLower, tickUpper, state.TickSpacing, ErrInvalidTickRange)
	}
	return nil
}
