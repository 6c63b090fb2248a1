package registry

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/chain"
	"positionTools/internal/model"
)

// Adapter talks to the NonfungiblePositionManager contract. Mutations are
// simulated via eth_call first so that return values come back synchronously,
// then submitted as transactions.
type Adapter struct {
	client   *chain.Client
	sender   *chain.TxSender
	address  common.Address
	deadline time.Duration
	logger   *zap.Logger
}

// NewAdapter builds a position manager adapter. The sender may be nil for a
// read-only adapter; mutations then fail.
func NewAdapter(client *chain.Client, sender *chain.TxSender, address common.Address, deadline time.Duration, logger *zap.Logger) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
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

// Address returns the on-chain address of the position manager contract.
func (a *Adapter) Address() common.Address {
	return a.address
}

// OwnerOf returns the registered owner of the position.
func (a *Adapter) OwnerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	values, err := a.call(ctx, "ownerOf", id)
	if err != nil {
		return common.Address{}, err
	}
	return chain.AsAddress(values[0])
}

// GetApproved returns the approved delegate of the position, if any.
func (a *Adapter) GetApproved(ctx context.Context, id *big.Int) (common.Address, error) {
	values, err := a.call(ctx, "getApproved", id)
	if err != nil {
		return common.Address{}, err
	}
	return chain.AsAddress(values[0])
}

// TotalSupply returns the number of positions in the registry.
func (a *Adapter) TotalSupply(ctx context.Context) (*big.Int, error) {
	values, err := a.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	return chain.AsBigInt(values[0])
}

// TokenByIndex returns the position id at the enumeration index.
func (a *Adapter) TokenByIndex(ctx context.Context, index *big.Int) (*big.Int, error) {
	values, err := a.call(ctx, "tokenByIndex", index)
	if err != nil {
		return nil, err
	}
	return chain.AsBigInt(values[0])
}

// PositionState reads the full position record, including its owner and
// approved delegate.
func (a *Adapter) PositionState(ctx context.Context, id *big.Int) (model.Position, error) {
	values, err := a.call(ctx, "positions", id)
	if err != nil {
		return model.Position{}, err
	}
	if len(values) != 12 {
		return model.Position{}, fmt.Errorf("unexpected positions values: %d", len(values))
	}

	pos := model.Position{ID: new(big.Int).Set(id)}
	if pos.Token0, err = chain.AsAddress(values[2]); err != nil {
		return model.Position{}, fmt.Errorf("token0: %w", err)
	}
	if pos.Token1, err = chain.AsAddress(values[3]); err != nil {
		return model.Position{}, fmt.Errorf("token1: %w", err)
	}
	fee, err := chain.AsBigInt(values[4])
	if err != nil {
		return model.Position{}, fmt.Errorf("fee: %w", err)
	}
	pos.Fee = uint32(fee.Uint64())

	lower, err := chain.AsBigInt(values[5])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	if pos.TickLower, err = chain.Int24FromBig(lower); err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	upper, err := chain.AsBigInt(values[6])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	if pos.TickUpper, err = chain.Int24FromBig(upper); err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}

	if pos.Liquidity, err = chain.AsBigInt(values[7]); err != nil {
		return model.Position{}, fmt.Errorf("liquidity: %w", err)
	}
	if pos.FeeGrowthInside0LastX128, err = chain.AsBigInt(values[8]); err != nil {
		return model.Position{}, fmt.Errorf("fee growth 0: %w", err)
	}
	if pos.FeeGrowthInside1LastX128, err = chain.AsBigInt(values[9]); err != nil {
		return model.Position{}, fmt.Errorf("fee growth 1: %w", err)
	}
	if pos.TokensOwed0, err = chain.AsBigInt(values[10]); err != nil {
		return model.Position{}, fmt.Errorf("tokens owed 0: %w", err)
	}
	if pos.TokensOwed1, err = chain.AsBigInt(values[11]); err != nil {
		return model.Position{}, fmt.Errorf("tokens owed 1: %w", err)
	}

	if pos.Owner, err = a.OwnerOf(ctx, id); err != nil {
		return model.Position{}, fmt.Errorf("owner: %w", err)
	}
	if pos.Approved, err = a.GetApproved(ctx, id); err != nil {
		return model.Position{}, fmt.Errorf("approved: %w", err)
	}
	return pos, nil
}

// Collect drains owed amounts for the position to the recipient.
func (a *Adapter) Collect(ctx context.Context, id *big.Int, recipient common.Address, amount0Max, amount1Max *big.Int) (model.CollectResult, error) {
	params := struct {
		TokenId    *big.Int
		Recipient  common.Address
		Amount0Max *big.Int
		Amount1Max *big.Int
	}{id, recipient, amount0Max, amount1Max}

	values, txHash, err := a.mutate(ctx, "collect", params)
	if err != nil {
		return model.CollectResult{}, err
	}
	if len(values) != 2 {
		return model.CollectResult{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}
	amount0, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := chain.AsBigInt(values[1])
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("amount1: %w", err)
	}
	return model.CollectResult{Amount0: amount0, Amount1: amount1, TxHash: txHash}, nil
}

// IncreaseLiquidity deposits up to the desired amounts into the position's
// existing range.
func (a *Adapter) IncreaseLiquidity(ctx context.Context, id *big.Int, amount0Desired, amount1Desired *big.Int) (model.IncreaseResult, error) {
	params := struct {
		TokenId        *big.Int
		Amount0Desired *big.Int
		Amount1Desired *big.Int
		Amount0Min     *big.Int
		Amount1Min     *big.Int
		Deadline       *big.Int
	}{id, amount0Desired, amount1Desired, big.NewInt(0), big.NewInt(0), a.txDeadline()}

	values, txHash, err := a.mutate(ctx, "increaseLiquidity", params)
	if err != nil {
		return model.IncreaseResult{}, err
	}
	if len(values) != 3 {
		return model.IncreaseResult{}, fmt.Errorf("unexpected increaseLiquidity values: %d", len(values))
	}
	liquidity, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.IncreaseResult{}, fmt.Errorf("liquidity: %w", err)
	}
	amount0, err := chain.AsBigInt(values[1])
	if err != nil {
		return model.IncreaseResult{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := chain.AsBigInt(values[2])
	if err != nil {
		return model.IncreaseResult{}, fmt.Errorf("amount1: %w", err)
	}
	return model.IncreaseResult{Liquidity: liquidity, Amount0: amount0, Amount1: amount1, TxHash: txHash}, nil
}

// DecreaseLiquidity burns liquidity from the position. The freed amounts
// become owed and must be collected afterwards.
func (a *Adapter) DecreaseLiquidity(ctx context.Context, id *big.Int, liquidity *big.Int) (model.DecreaseResult, error) {
	params := struct {
		TokenId    *big.Int
		Liquidity  *big.Int
		Amount0Min *big.Int
		Amount1Min *big.Int
		Deadline   *big.Int
	}{id, liquidity, big.NewInt(0), big.NewInt(0), a.txDeadline()}

	values, txHash, err := a.mutate(ctx, "decreaseLiquidity", params)
	if err != nil {
		return model.DecreaseResult{}, err
	}
	if len(values) != 2 {
		return model.DecreaseResult{}, fmt.Errorf("unexpected decreaseLiquidity values: %d", len(values))
	}
	amount0, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.DecreaseResult{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := chain.AsBigInt(values[1])
	if err != nil {
		return model.DecreaseResult{}, fmt.Errorf("amount1: %w", err)
	}
	return model.DecreaseResult{Amount0: amount0, Amount1: amount1, TxHash: txHash}, nil
}

// Mint opens a brand-new position and returns its id.
func (a *Adapter) Mint(ctx context.Context, p model.MintParams) (model.MintResult, error) {
	params := struct {
		Token0         common.Address
		Token1         common.Address
		Fee            *big.Int
		TickLower      *big.Int
		TickUpper      *big.Int
		Amount0Desired *big.Int
		Amount1Desired *big.Int
		Amount0Min     *big.Int
		Amount1Min     *big.Int
		Recipient      common.Address
		Deadline       *big.Int
	}{
		p.Token0, p.Token1,
		new(big.Int).SetUint64(uint64(p.Fee)),
		big.NewInt(int64(p.TickLower)), big.NewInt(int64(p.TickUpper)),
		p.Amount0Desired, p.Amount1Desired,
		big.NewInt(0), big.NewInt(0),
		p.Recipient, a.txDeadline(),
	}

	values, txHash, err := a.mutate(ctx, "mint", params)
	if err != nil {
		return model.MintResult{}, err
	}
	if len(values) != 4 {
		return model.MintResult{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}
	tokenID, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.MintResult{}, fmt.Errorf("token id: %w", err)
	}
	liquidity, err := chain.AsBigInt(values[1])
	if err != nil {
		return model.MintResult{}, fmt.Errorf("liquidity: %w", err)
	}
	amount0, err := chain.AsBigInt(values[2])
	if err != nil {
		return model.MintResult{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := chain.AsBigInt(values[3])
	if err != nil {
		return model.MintResult{}, fmt.Errorf("amount1: %w", err)
	}
	return model.MintResult{TokenID: tokenID, Liquidity: liquidity, Amount0: amount0, Amount1: amount1, TxHash: txHash}, nil
}

func (a *Adapter) txDeadline() *big.Int {
	return big.NewInt(time.Now().Add(a.deadline).Unix())
}

func (a *Adapter) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &a.address, Data: data}
	resp, err := a.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// mutate simulates the call from the sender account to recover return
// values, then submits the same calldata as a transaction.
func (a *Adapter) mutate(ctx context.Context, method string, args ...interface{}) ([]interface{}, string, error) {
	if a.sender == nil {
		return nil, "", fmt.Errorf("adapter is read-only, no transaction sender")
	}
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, "", fmt.Errorf("parse position manager abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, "", fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{From: a.sender.From(), To: &a.address, Data: data}
	resp, err := a.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, "", fmt.Errorf("simulate %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, "", fmt.Errorf("unpack %s: %w", method, err)
	}

	receipt, err := a.sender.Send(ctx, a.address, data, nil)
	if err != nil {
		return nil, "", fmt.Errorf("submit %s: %w", method, err)
	}
	a.logger.Debug("position manager mutation",
		zap.String("method", method),
		zap.String("tx_hash", receipt.TxHash.Hex()),
	)
	return values, receipt.TxHash.Hex(), nil
}
