package swaprouter

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/chain"
	"positionTools/internal/engine"
	"positionTools/internal/model"
)

// Adapter executes single-hop exact-input swaps through the router contract.
type Adapter struct {
	client   *chain.Client
	sender   *chain.TxSender
	address  common.Address
	deadline time.Duration
	logger   *zap.Logger
}

// NewAdapter builds a swap adapter.
func NewAdapter(client *chain.Client, sender *chain.TxSender, address common.Address, deadline time.Duration, logger *zap.Logger) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("transaction sender is nil")
	}
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		client:   client,
		sender:   sender,
		address:  address,
		deadline: deadline,
		logger:   logger,
	}, nil
}

// Address returns the router contract address. The router pays for swaps
// with transferFrom, so callers approve this address for the input amount.
func (a *Adapter) Address() common.Address {
	return a.address
}

// Swap converts amountIn of tokenIn into tokenOut for the recipient. A zero
// minAmountOut accepts any realized price. The realized output is recovered
// from a simulation of the same calldata before submission; a simulated
// output below the minimum aborts without spending gas.
func (a *Adapter) Swap(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn, minAmountOut *big.Int, recipient common.Address) (model.SwapResult, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return model.SwapResult{}, fmt.Errorf("swap amount must be positive")
	}
	if minAmountOut == nil {
		minAmountOut = big.NewInt(0)
	}

	parsed, err := RouterABI()
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("parse router abi: %w", err)
	}

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		tokenIn, tokenOut,
		new(big.Int).SetUint64(uint64(fee)),
		recipient,
		big.NewInt(time.Now().Add(a.deadline).Unix()),
		amountIn, minAmountOut, big.NewInt(0),
	}

	data, err := parsed.Pack("exactInputSingle", params)
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("pack exactInputSingle: %w", err)
	}

	msg := ethereum.CallMsg{From: a.sender.From(), To: &a.address, Data: data}
	resp, err := a.client.CallContract(ctx, msg, nil)
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("simulate swap: %w", err)
	}
	values, err := parsed.Unpack("exactInputSingle", resp)
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("unpack exactInputSingle: %w", err)
	}
	amountOut, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("amount out: %w", err)
	}
	if minAmountOut.Sign() > 0 && amountOut.Cmp(minAmountOut) < 0 {
		return model.SwapResult{}, fmt.Errorf("quoted %s below minimum %s: %w",
			amountOut, minAmountOut, engine.ErrSlippageExceeded)
	}

	receipt, err := a.sender.Send(ctx, a.address, data, nil)
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("submit swap: %w", err)
	}

	a.logger.Debug("swap executed",
		zap.String("token_in", tokenIn.Hex()),
		zap.String("token_out", tokenOut.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()),
		zap.String("tx_hash", receipt.TxHash.Hex()),
	)

	return model.SwapResult{
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: amountOut,
		TxHash:    receipt.TxHash.Hex(),
	}, nil
}
