package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/chain"
	"positionTools/internal/model"
)

// MetaCache caches immutable ERC20 metadata by address.
type MetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *MetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *MetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Service moves and inspects ERC20 balances for the engine.
type Service struct {
	client *chain.Client
	sender *chain.TxSender
	cache  *MetaCache
	logger *zap.Logger
}

// NewService builds an ERC20 service. The sender may be nil for read-only
// use; Transfer and Approve then fail.
func NewService(client *chain.Client, sender *chain.TxSender, logger *zap.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, sender: sender, cache: NewMetaCache(), logger: logger}, nil
}

// Meta returns token metadata, cached after the first fetch. Symbol and name
// fall back to the bytes32 ABI variant some older tokens use.
func (s *Service) Meta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := s.cache.Get(token); ok {
		return meta, nil
	}

	meta := model.TokenMeta{Address: token.Hex()}

	values, err := s.view(ctx, token, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := chain.AsUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := s.view(ctx, token, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := s.viewBytes32(ctx, token, "symbol"); err == nil {
		if symbol, ok := chain.Bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		s.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := s.view(ctx, token, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := s.viewBytes32(ctx, token, "name"); err == nil {
		if name, ok := chain.Bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	}

	s.cache.Set(token, meta)
	return meta, nil
}

// BalanceOf returns the token balance of the account.
func (s *Service) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	values, err := s.view(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return chain.AsBigInt(values[0])
}

// Transfer sends amount of token from the engine account to the recipient.
func (s *Service) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("transfer amount must be positive")
	}
	receipt, err := s.send(ctx, token, "transfer", to, amount)
	if err != nil {
		return "", err
	}
	return receipt, nil
}

// Approve grants the spender an allowance from the engine account.
func (s *Service) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error) {
	return s.send(ctx, token, "approve", spender, amount)
}

func (s *Service) view(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return s.callMethod(ctx, token, parsed, method, args...)
}

func (s *Service) viewBytes32(ctx context.Context, token common.Address, method string) ([]interface{}, error) {
	parsed, err := erc20ABIBytes32Instance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}
	return s.callMethod(ctx, token, parsed, method)
}

func (s *Service) callMethod(ctx context.Context, token common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := s.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (s *Service) send(ctx context.Context, token common.Address, method string, args ...interface{}) (string, error) {
	if s.sender == nil {
		return "", fmt.Errorf("token service is read-only, no transaction sender")
	}
	parsed, err := erc20ABIInstance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := s.sender.Send(ctx, token, data, nil)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", method, err)
	}
	return receipt.TxHash.Hex(), nil
}
