package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/model"
)

// WithdrawResult reports the amounts the owner actually received after any
// conversion.
type WithdrawResult struct {
	Amount0  *big.Int
	Amount1  *big.Int
	TxHashes []string
}

// WithdrawAndConvert removes liquidity from the position, collects the
// freed principal together with accrued fees, and delivers the proceeds to
// the owner, either as both tokens or converted into a single one.
// A zero liquidityAmount withdraws the full current liquidity. minAmountOut
// bounds the conversion swap; zero accepts any realized price.
func (m *Mutator) WithdrawAndConvert(ctx context.Context, id *big.Int, caller common.Address, liquidityAmount *big.Int, mode model.ConversionMode, minAmountOut *big.Int) (WithdrawResult, error) {
	unlock := m.locks.acquire(id)
	defer unlock()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	owner, err := m.authorize(ctx, id, caller)
	if err != nil {
		return WithdrawResult{}, err
	}

	if !mode.Valid() {
		return WithdrawResult{}, fmt.Errorf("unknown conversion mode %d", mode)
	}

	pos, err := m.registry.PositionState(ctx, id)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("read position %s: %w", id, err)
	}

	if liquidityAmount == nil || liquidityAmount.Sign() == 0 {
		liquidityAmount = pos.Liquidity
	} else if liquidityAmount.Cmp(pos.Liquidity) > 0 {
		return WithdrawResult{}, fmt.Errorf("requested %s of %s liquidity: %w",
			liquidityAmount, pos.Liquidity, ErrInsufficientLiquidity)
	}

	var hashes []string

	if liquidityAmount.Sign() > 0 {
		decrease, err := m.registry.DecreaseLiquidity(ctx, id, liquidityAmount)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("decrease liquidity of %s: %w", id, err)
		}
		if decrease.TxHash != "" {
			hashes = append(hashes, decrease.TxHash)
		}
	}

	// Principal freed above and all accrued fees come out in one drain.
	collected, err := m.harvest(ctx, id, m.self)
	if err != nil {
		return WithdrawResult{}, err
	}
	if collected.TxHash != "" {
		hashes = append(hashes, collected.TxHash)
	}

	delivered0 := new(big.Int).Set(collected.Amount0)
	delivered1 := new(big.Int).Set(collected.Amount1)

	switch mode {
	case model.ConvertAllToToken0:
		if collected.Amount1.Sign() > 0 {
			if err := m.approveSwapper(ctx, pos.Token1, collected.Amount1); err != nil {
				m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
				return WithdrawResult{}, err
			}
			swap, err := m.swapper.Swap(ctx, pos.Token1, pos.Token0, pos.Fee, collected.Amount1, minAmountOut, m.self)
			if err != nil {
				m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
				return WithdrawResult{}, fmt.Errorf("convert token1 to token0: %w", err)
			}
			if swap.TxHash != "" {
				hashes = append(hashes, swap.TxHash)
			}
			delivered0.Add(delivered0, swap.AmountOut)
			delivered1.SetInt64(0)
		}
	case model.ConvertAllToToken1:
		if collected.Amount0.Sign() > 0 {
			if err := m.approveSwapper(ctx, pos.Token0, collected.Amount0); err != nil {
				m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
				return WithdrawResult{}, err
			}
			swap, err := m.swapper.Swap(ctx, pos.Token0, pos.Token1, pos.Fee, collected.Amount0, minAmountOut, m.self)
			if err != nil {
				m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
				return WithdrawResult{}, fmt.Errorf("convert token0 to token1: %w", err)
			}
			if swap.TxHash != "" {
				hashes = append(hashes, swap.TxHash)
			}
			delivered1.Add(delivered1, swap.AmountOut)
			delivered0.SetInt64(0)
		}
	}

	if delivered0.Sign() > 0 {
		txHash, err := m.tokens.Transfer(ctx, pos.Token0, owner, delivered0)
		if err != nil {
			m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
			return WithdrawResult{}, fmt.Errorf("deliver token0: %w", err)
		}
		hashes = append(hashes, txHash)
	}
	if delivered1.Sign() > 0 {
		txHash, err := m.tokens.Transfer(ctx, pos.Token1, owner, delivered1)
		if err != nil {
			m.sweepToOwner(ctx, owner, pos.Token0, pos.Token1)
			return WithdrawResult{}, fmt.Errorf("deliver token1: %w", err)
		}
		hashes = append(hashes, txHash)
	}

	m.logger.Info("liquidity removed",
		zap.String("position", id.String()),
		zap.String("owner", owner.Hex()),
		zap.String("liquidity", liquidityAmount.String()),
		zap.String("mode", mode.String()),
		zap.String("amount0", delivered0.String()),
		zap.String("amount1", delivered1.String()),
	)
	m.events.LiquidityRemoved(model.LiquidityRemovedEvent{
		Owner:      owner,
		PositionID: new(big.Int).Set(id),
		Amount0:    new(big.Int).Set(delivered0),
		Amount1:    new(big.Int).Set(delivered1),
	})
	return WithdrawResult{Amount0: delivered0, Amount1: delivered1, TxHashes: hashes}, nil
}

// approveSwapper grants the swap venue the allowance it needs to pull the
// conversion input from the engine's custody.
func (m *Mutator) approveSwapper(ctx context.Context, token common.Address, amount *big.Int) error {
	if _, err := m.tokens.Approve(ctx, token, m.swapper.Address(), amount); err != nil {
		return fmt.Errorf("approve swap input: %w", err)
	}
	return nil
}
