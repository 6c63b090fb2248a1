package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CompoundedEvent is emitted after fees were reinvested into a position.
type CompoundedEvent struct {
	Owner          common.Address
	PositionID     *big.Int
	LiquidityDelta *big.Int
}

// RemintedEvent is emitted after a position was closed and reopened over a
// new tick range.
type RemintedEvent struct {
	Owner         common.Address
	OldPositionID *big.Int
	NewPositionID *big.Int
}

// LiquidityRemovedEvent is emitted after a partial or full withdrawal.
type LiquidityRemovedEvent struct {
	Owner      common.Address
	PositionID *big.Int
	Amount0    *big.Int
	Amount1    *big.Int
}
