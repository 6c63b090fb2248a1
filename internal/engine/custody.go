package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// sweepToOwner returns every engine-held balance of the given tokens to the
// owner. Called on the failure path of each operation so that the engine
// never finishes holding caller assets, and detached from the operation's
// context so an expired deadline cannot strand custody.
func (m *Mutator) sweepToOwner(ctx context.Context, owner common.Address, tokens ...common.Address) {
	sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()

	for _, tok := range tokens {
		balance, err := m.tokens.BalanceOf(sweepCtx, tok, m.self)
		if err != nil {
			m.logger.Error("custody sweep balance read failed",
				zap.String("token", tok.Hex()), zap.Error(err))
			continue
		}
		if balance.Sign() <= 0 {
			continue
		}
		if _, err := m.tokens.Transfer(sweepCtx, tok, owner, balance); err != nil {
			m.logger.Error("custody sweep transfer failed",
				zap.String("token", tok.Hex()),
				zap.String("owner", owner.Hex()),
				zap.String("amount", balance.String()),
				zap.Error(err))
		}
	}
}

// returnRemainder transfers an unconsumed remainder to the owner right away.
// Remainders are never accumulated across operations.
func (m *Mutator) returnRemainder(ctx context.Context, owner, token common.Address, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", nil
	}
	return m.tokens.Transfer(ctx, token, owner, amount)
}
