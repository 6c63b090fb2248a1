package engine

import "errors"

// Engine failure taxonomy. Every operation aborts on the first error and
// restores token custody to the owner before returning.
var (
	// ErrNotOwnerOrApproved rejects callers that are neither the position
	// owner nor its approved delegate. Always checked first.
	ErrNotOwnerOrApproved = errors.New("caller is not owner or approved")

	// ErrInvalidTickRange rejects inverted or misaligned tick bounds.
	ErrInvalidTickRange = errors.New("invalid tick range")

	// ErrInsufficientLiquidity rejects withdrawals larger than the
	// position's current liquidity.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrSlippageExceeded surfaces a swap whose realized output fell below
	// the caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrDepositFailed surfaces a rejected liquidity increase.
	ErrDepositFailed = errors.New("deposit failed")

	// ErrMintFailed surfaces a rejected position mint.
	ErrMintFailed = errors.New("mint failed")
)
