package poolview

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

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    uint32
}

// Reader provides live pool state. Immutable fields (pool address, tick
// spacing) are cached; slot0 and liquidity are always read fresh.
type Reader struct {
	client  *chain.Client
	factory common.Address
	logger  *zap.Logger

	mu           sync.RWMutex
	addresses    map[poolKey]common.Address
	tickSpacings map[common.Address]int32
}

// NewReader builds a pool reader against the given factory.
func NewReader(client *chain.Client, factory common.Address, logger *zap.Logger) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		client:       client,
		factory:      factory,
		logger:       logger,
		addresses:    make(map[poolKey]common.Address),
		tickSpacings: make(map[common.Address]int32),
	}, nil
}

// PoolAddress resolves the pool for a token pair and fee tier via the
// factory.
func (r *Reader) PoolAddress(ctx context.Context, token0, token1 common.Address, fee uint32) (common.Address, error) {
	key := poolKey{token0, token1, fee}
	r.mu.RLock()
	addr, ok := r.addresses[key]
	r.mu.RUnlock()
	if ok {
		return addr, nil
	}

	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := r.callMethod(ctx, r.factory, factoryABI, "getPool", token0, token1, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	addr, err = chain.AsAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("pool address: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no pool for %s/%s fee %d", token0.Hex(), token1.Hex(), fee)
	}

	r.mu.Lock()
	r.addresses[key] = addr
	r.mu.Unlock()
	return addr, nil
}

// State reads the current pool slot, active liquidity, and tick spacing.
func (r *Reader) State(ctx context.Context, pool common.Address) (model.PoolState, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.callMethod(ctx, pool, poolABI, "slot0")
	if err != nil {
		return model.PoolState{}, err
	}
	if len(values) < 2 {
		return model.PoolState{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	sqrtPrice, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := chain.AsBigInt(values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := chain.Int24FromBig(tickInt)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}

	values, err = r.callMethod(ctx, pool, poolABI, "liquidity")
	if err != nil {
		return model.PoolState{}, err
	}
	liquidity, err := chain.AsBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("liquidity: %w", err)
	}

	tickSpacing, err := r.tickSpacing(ctx, pool, poolABI)
	if err != nil {
		return model.PoolState{}, err
	}

	return model.PoolState{
		SqrtPriceX96: sqrtPrice,
		Tick:         tick,
		Liquidity:    liquidity,
		TickSpacing:  tickSpacing,
	}, nil
}

func (r *Reader) tickSpacing(ctx context.Context, pool common.Address, poolABI abi.ABI) (int32, error) {
	r.mu.RLock()
	spacing, ok := r.tickSpacings[pool]
	r.mu.RUnlock()
	if ok {
		return spacing, nil
	}

	values, err := r.callMethod(ctx, pool, poolABI, "tickSpacing")
	if err != nil {
		return 0, err
	}
	spacingInt, err := chain.AsBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}
	spacing, err = chain.Int24FromBig(spacingInt)
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}

	r.mu.Lock()
	r.tickSpacings[pool] = spacing
	r.mu.Unlock()
	return spacing, nil
}

func (r *Reader) callMethod(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
