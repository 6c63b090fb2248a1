package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position is the registry's view of one concentrated-liquidity position.
type Position struct {
	ID                       *big.Int
	Owner                    common.Address
	Approved                 common.Address
	Token0                   common.Address
	Token1                   common.Address
	Fee                      uint32
	TickLower                int32
	TickUpper                int32
	Liquidity                *big.Int
	FeeGrowthInside0LastX128 *big.Int
	FeeGrowthInside1LastX128 *big.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// PoolState is the live pool slot threaded through engine sub-steps.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
	TickSpacing  int32
}

// SwapResult captures one atomic conversion. Not persisted beyond the
// operation record it contributes to.
type SwapResult struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	TxHash    string
}
