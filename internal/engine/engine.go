package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionTools/internal/model"
)

// Registry is the position registry the engine mutates. It is the sole
// authority on ownership and position lifecycle; the engine never bypasses
// it.
type Registry interface {
	Address() common.Address
	OwnerOf(ctx context.Context, id *big.Int) (common.Address, error)
	GetApproved(ctx context.Context, id *big.Int) (common.Address, error)
	PositionState(ctx context.Context, id *big.Int) (model.Position, error)
	Collect(ctx context.Context, id *big.Int, recipient common.Address, amount0Max, amount1Max *big.Int) (model.CollectResult, error)
	IncreaseLiquidity(ctx context.Context, id *big.Int, amount0Desired, amount1Desired *big.Int) (model.IncreaseResult, error)
	DecreaseLiquidity(ctx context.Context, id *big.Int, liquidity *big.Int) (model.DecreaseResult, error)
	Mint(ctx context.Context, params model.MintParams) (model.MintResult, error)
}

// PoolReader provides live pool state. Reads are never cached by the engine
// across sub-steps; state is fetched where needed and threaded explicitly.
type PoolReader interface {
	PoolAddress(ctx context.Context, token0, token1 common.Address, fee uint32) (common.Address, error)
	State(ctx context.Context, pool common.Address) (model.PoolState, error)
}

// TokenService moves assets held in the engine's custody.
type TokenService interface {
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (string, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error)
}

// Swapper converts one asset into another at the prevailing pool price.
// The venue pulls the input from the engine's custody, so the engine must
// approve Address() for the input amount before calling Swap.
type Swapper interface {
	Address() common.Address
	Swap(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn, minAmountOut *big.Int, recipient common.Address) (model.SwapResult, error)
}

// EventSink receives engine events. Events are emitted only after an
// operation fully succeeded.
type EventSink interface {
	Compounded(event model.CompoundedEvent)
	Reminted(event model.RemintedEvent)
	LiquidityRemoved(event model.LiquidityRemovedEvent)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Compounded(model.CompoundedEvent)             {}
func (NopSink) Reminted(model.RemintedEvent)                 {}
func (NopSink) LiquidityRemoved(model.LiquidityRemovedEvent) {}

// MutatorConfig wires a Mutator together.
type MutatorConfig struct {
	Registry Registry
	Pools    PoolReader
	Tokens   TokenService
	Swapper  Swapper
	Events   EventSink
	// Self is the engine's custody account; collected assets pass through
	// it and must never remain there after an operation returns.
	Self common.Address
	// OpTimeout bounds one whole operation so a stalled sub-step cannot
	// hold a position lock forever.
	OpTimeout time.Duration
	Logger    *zap.Logger
}

// Mutator orchestrates compound, remint, and withdraw-and-convert as atomic
// multi-step operations. Mutations on the same position are serialized; any
// failure sweeps engine custody back to the owner before returning.
type Mutator struct {
	registry  Registry
	pools     PoolReader
	tokens    TokenService
	swapper   Swapper
	events    EventSink
	self      common.Address
	opTimeout time.Duration
	logger    *zap.Logger
	locks     positionLocks
}

// NewMutator builds a Mutator from its collaborators.
func NewMutator(cfg MutatorConfig) (*Mutator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if cfg.Pools == nil {
		return nil, fmt.Errorf("pool reader is nil")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token service is nil")
	}
	if cfg.Swapper == nil {
		return nil, fmt.Errorf("swapper is nil")
	}
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Mutator{
		registry:  cfg.Registry,
		pools:     cfg.Pools,
		tokens:    cfg.Tokens,
		swapper:   cfg.Swapper,
		events:    cfg.Events,
		self:      cfg.Self,
		opTimeout: cfg.OpTimeout,
		logger:    cfg.Logger,
	}, nil
}

// Self returns the engine's custody account.
func (m *Mutator) Self() common.Address {
	return m.self
}

func (m *Mutator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opTimeout)
}
