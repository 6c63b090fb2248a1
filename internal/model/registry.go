package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CollectResult is the outcome of draining owed amounts from a position.
type CollectResult struct {
	Amount0 *big.Int
	Amount1 *big.Int
	TxHash  string
}

// IncreaseResult is the outcome of adding liquidity to an existing position.
type IncreaseResult struct {
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
	TxHash    string
}

// DecreaseResult is the outcome of removing liquidity from a position. The
// amounts become owed to the position and still require a collect.
type DecreaseResult struct {
	Amount0 *big.Int
	Amount1 *big.Int
	TxHash  string
}

// MintParams describes a brand-new position to open.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            uint32
	TickLower      int32
	TickUpper      int32
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Recipient      common.Address
}

// MintResult is the outcome of opening a new position.
type MintResult struct {
	TokenID   *big.Int
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
	TxHash    string
}
