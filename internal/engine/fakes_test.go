package engine

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"positionTools/internal/model"
	"positionTools/internal/univ3math"
)

var (
	engineAddr   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	routerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	poolAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	token0Addr   = common.HexToAddress("0x0000000000000000000000000000000000000101")
	token1Addr   = common.HexToAddress("0x0000000000000000000000000000000000000102")
	ownerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000201")
	delegateAddr = common.HexToAddress("0x0000000000000000000000000000000000000202")
	strangerAddr = common.HexToAddress("0x0000000000000000000000000000000000000203")
)

type fakeTokens struct {
	self       common.Address
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func newFakeTokens(self common.Address) *fakeTokens {
	return &fakeTokens{
		self:       self,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (f *fakeTokens) balance(token, account common.Address) *big.Int {
	accounts, ok := f.balances[token]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := accounts[account]
	if !ok {
		return big.NewInt(0)
	}
	return bal
}

func (f *fakeTokens) credit(token, account common.Address, amount *big.Int) {
	if f.balances[token] == nil {
		f.balances[token] = make(map[common.Address]*big.Int)
	}
	cur := f.balance(token, account)
	f.balances[token][account] = new(big.Int).Add(cur, amount)
}

func (f *fakeTokens) debit(token, account common.Address, amount *big.Int) error {
	cur := f.balance(token, account)
	if cur.Cmp(amount) < 0 {
		return fmt.Errorf("balance %s below %s", cur, amount)
	}
	f.balances[token][account] = new(big.Int).Sub(cur, amount)
	return nil
}

func (f *fakeTokens) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.balance(token, account)), nil
}

func (f *fakeTokens) Transfer(_ context.Context, token, to common.Address, amount *big.Int) (string, error) {
	if err := f.debit(token, f.self, amount); err != nil {
		return "", err
	}
	f.credit(token, to, amount)
	return "0xtransfer", nil
}

func (f *fakeTokens) Approve(_ context.Context, token, spender common.Address, amount *big.Int) (string, error) {
	if f.allowances[token] == nil {
		f.allowances[token] = make(map[common.Address]*big.Int)
	}
	f.allowances[token][spender] = new(big.Int).Set(amount)
	return "0xapprove", nil
}

// pull spends an allowance granted to spender and burns the engine balance,
// like a contract pulling a deposit.
func (f *fakeTokens) pull(token, spender common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	allowed := big.NewInt(0)
	if f.allowances[token] != nil && f.allowances[token][spender] != nil {
		allowed = f.allowances[token][spender]
	}
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("allowance %s below %s", allowed, amount)
	}
	if err := f.debit(token, f.self, amount); err != nil {
		return err
	}
	f.allowances[token][spender] = new(big.Int).Sub(allowed, amount)
	return nil
}

type fakePosition struct {
	owner     common.Address
	approved  common.Address
	token0    common.Address
	token1    common.Address
	fee       uint32
	tickLower int32
	tickUpper int32
	liquidity *big.Int
	owed0     *big.Int
	owed1     *big.Int
}

type fakeRegistry struct {
	address      common.Address
	tokens       *fakeTokens
	price        *big.Int
	positions    map[string]*fakePosition
	nextID       int64
	failIncrease bool
	failMint     bool
}

func newFakeRegistry(tokens *fakeTokens, price *big.Int) *fakeRegistry {
	return &fakeRegistry{
		address:   registryAddr,
		tokens:    tokens,
		price:     price,
		positions: make(map[string]*fakePosition),
		nextID:    1,
	}
}

func (r *fakeRegistry) add(pos *fakePosition) *big.Int {
	id := big.NewInt(r.nextID)
	r.nextID++
	r.positions[id.String()] = pos
	return id
}

func (r *fakeRegistry) get(id *big.Int) (*fakePosition, error) {
	pos, ok := r.positions[id.String()]
	if !ok {
		return nil, fmt.Errorf("unknown position %s", id)
	}
	return pos, nil
}

func (r *fakeRegistry) Address() common.Address { return r.address }

func (r *fakeRegistry) OwnerOf(_ context.Context, id *big.Int) (common.Address, error) {
	pos, err := r.get(id)
	if err != nil {
		return common.Address{}, err
	}
	return pos.owner, nil
}

func (r *fakeRegistry) GetApproved(_ context.Context, id *big.Int) (common.Address, error) {
	pos, err := r.get(id)
	if err != nil {
		return common.Address{}, err
	}
	return pos.approved, nil
}

func (r *fakeRegistry) PositionState(_ context.Context, id *big.Int) (model.Position, error) {
	pos, err := r.get(id)
	if err != nil {
		return model.Position{}, err
	}
	return model.Position{
		ID:          new(big.Int).Set(id),
		Owner:       pos.owner,
		Approved:    pos.approved,
		Token0:      pos.token0,
		Token1:      pos.token1,
		Fee:         pos.fee,
		TickLower:   pos.tickLower,
		TickUpper:   pos.tickUpper,
		Liquidity:   new(big.Int).Set(pos.liquidity),
		TokensOwed0: new(big.Int).Set(pos.owed0),
		TokensOwed1: new(big.Int).Set(pos.owed1),
	}, nil
}

func (r *fakeRegistry) Collect(_ context.Context, id *big.Int, recipient common.Address, amount0Max, amount1Max *big.Int) (model.CollectResult, error) {
	pos, err := r.get(id)
	if err != nil {
		return model.CollectResult{}, err
	}
	take0 := new(big.Int).Set(pos.owed0)
	if take0.Cmp(amount0Max) > 0 {
		take0.Set(amount0Max)
	}
	take1 := new(big.Int).Set(pos.owed1)
	if take1.Cmp(amount1Max) > 0 {
		take1.Set(amount1Max)
	}
	pos.owed0.Sub(pos.owed0, take0)
	pos.owed1.Sub(pos.owed1, take1)
	if take0.Sign() > 0 {
		r.tokens.credit(pos.token0, recipient, take0)
	}
	if take1.Sign() > 0 {
		r.tokens.credit(pos.token1, recipient, take1)
	}
	return model.CollectResult{Amount0: take0, Amount1: take1, TxHash: "0xcollect"}, nil
}

func (r *fakeRegistry) rangeRatios(tickLower, tickUpper int32) (*big.Int, *big.Int, error) {
	sqrtA, err := univ3math.SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtB, err := univ3math.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	return sqrtA, sqrtB, nil
}

func (r *fakeRegistry) IncreaseLiquidity(_ context.Context, id *big.Int, amount0Desired, amount1Desired *big.Int) (model.IncreaseResult, error) {
	if r.failIncrease {
		return model.IncreaseResult{}, fmt.Errorf("increase reverted")
	}
	pos, err := r.get(id)
	if err != nil {
		return model.IncreaseResult{}, err
	}
	sqrtA, sqrtB, err := r.rangeRatios(pos.tickLower, pos.tickUpper)
	if err != nil {
		return model.IncreaseResult{}, err
	}
	liquidity, err := univ3math.LiquidityForAmounts(r.price, sqrtA, sqrtB, amount0Desired, amount1Desired)
	if err != nil {
		return model.IncreaseResult{}, err
	}
	used0, used1, err := univ3math.AmountsForLiquidity(r.price, sqrtA, sqrtB, liquidity)
	if err != nil {
		return model.IncreaseResult{}, err
	}
	if err := r.tokens.pull(pos.token0, r.address, used0); err != nil {
		return model.IncreaseResult{}, err
	}
	if err := r.tokens.pull(pos.token1, r.address, used1); err != nil {
		return model.IncreaseResult{}, err
	}
	pos.liquidity.Add(pos.liquidity, liquidity)
	return model.IncreaseResult{Liquidity: liquidity, Amount0: used0, Amount1: used1, TxHash: "0xincrease"}, nil
}

func (r *fakeRegistry) DecreaseLiquidity(_ context.Context, id *big.Int, liquidity *big.Int) (model.DecreaseResult, error) {
	pos, err := r.get(id)
	if err != nil {
		return model.DecreaseResult{}, err
	}
	if liquidity.Cmp(pos.liquidity) > 0 {
		return model.DecreaseResult{}, fmt.Errorf("burn exceeds liquidity")
	}
	sqrtA, sqrtB, err := r.rangeRatios(pos.tickLower, pos.tickUpper)
	if err != nil {
		return model.DecreaseResult{}, err
	}
	amount0, amount1, err := univ3math.AmountsForLiquidity(r.price, sqrtA, sqrtB, liquidity)
	if err != nil {
		return model.DecreaseResult{}, err
	}
	pos.liquidity.Sub(pos.liquidity, liquidity)
	pos.owed0.Add(pos.owed0, amount0)
	pos.owed1.Add(pos.owed1, amount1)
	return model.DecreaseResult{Amount0: amount0, Amount1: amount1, TxHash: "0xdecrease"}, nil
}

func (r *fakeRegistry) Mint(_ context.Context, params model.MintParams) (model.MintResult, error) {
	if r.failMint {
		return model.MintResult{}, fmt.Errorf("mint reverted")
	}
	sqrtA, sqrtB, err := r.rangeRatios(params.TickLower, params.TickUpper)
	if err != nil {
		return model.MintResult{}, err
	}
	liquidity, err := univ3math.LiquidityForAmounts(r.price, sqrtA, sqrtB, params.Amount0Desired, params.Amount1Desired)
	if err != nil {
		return model.MintResult{}, err
	}
	used0, used1, err := univ3math.AmountsForLiquidity(r.price, sqrtA, sqrtB, liquidity)
	if err != nil {
		return model.MintResult{}, err
	}
	if err := r.tokens.pull(params.Token0, r.address, used0); err != nil {
		return model.MintResult{}, err
	}
	if err := r.tokens.pull(params.Token1, r.address, used1); err != nil {
		return model.MintResult{}, err
	}
	id := r.add(&fakePosition{
		owner:     params.Recipient,
		token0:    params.Token0,
		token1:    params.Token1,
		fee:       params.Fee,
		tickLower: params.TickLower,
		tickUpper: params.TickUpper,
		liquidity: new(big.Int).Set(liquidity),
		owed0:     big.NewInt(0),
		owed1:     big.NewInt(0),
	})
	return model.MintResult{TokenID: id, Liquidity: liquidity, Amount0: used0, Amount1: used1, TxHash: "0xmint"}, nil
}

type fakePools struct {
	state model.PoolState
}

func (f *fakePools) PoolAddress(_ context.Context, _, _ common.Address, _ uint32) (common.Address, error) {
	return poolAddr, nil
}

func (f *fakePools) State(_ context.Context, _ common.Address) (model.PoolState, error) {
	return f.state, nil
}

// fakeSwapper converts at a flat 1:1 price. Like the registry fake it pulls
// the input through an allowance, so a missing approval fails the swap.
type fakeSwapper struct {
	address common.Address
	tokens  *fakeTokens
}

func (f *fakeSwapper) Address() common.Address {
	return f.address
}

func (f *fakeSwapper) Swap(_ context.Context, tokenIn, tokenOut common.Address, _ uint32, amountIn, minAmountOut *big.Int, recipient common.Address) (model.SwapResult, error) {
	amountOut := new(big.Int).Set(amountIn)
	if minAmountOut != nil && minAmountOut.Sign() > 0 && amountOut.Cmp(minAmountOut) < 0 {
		return model.SwapResult{}, fmt.Errorf("quoted %s below minimum %s: %w", amountOut, minAmountOut, ErrSlippageExceeded)
	}
	if err := f.tokens.pull(tokenIn, f.address, amountIn); err != nil {
		return model.SwapResult{}, fmt.Errorf("pull swap input: %w", err)
	}
	f.tokens.credit(tokenOut, recipient, amountOut)
	return model.SwapResult{AmountIn: amountIn, AmountOut: amountOut, TxHash: "0xswap"}, nil
}

type recordSink struct {
	compounded []model.CompoundedEvent
	reminted   []model.RemintedEvent
	removed    []model.LiquidityRemovedEvent
}

func (s *recordSink) Compounded(e model.CompoundedEvent)             { s.compounded = append(s.compounded, e) }
func (s *recordSink) Reminted(e model.RemintedEvent)                 { s.reminted = append(s.reminted, e) }
func (s *recordSink) LiquidityRemoved(e model.LiquidityRemovedEvent) { s.removed = append(s.removed, e) }

type testEnv struct {
	mutator  *Mutator
	registry *fakeRegistry
	tokens   *fakeTokens
	sink     *recordSink
	id       *big.Int
}

// newTestEnv builds a mutator over an in-range position: pool at tick 0,
// spacing 60, position over [-600, 600] with fees owed in both tokens.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	price, err := univ3math.SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("sqrt ratio at tick 0: %v", err)
	}

	tokens := newFakeTokens(engineAddr)
	registry := newFakeRegistry(tokens, price)
	id := registry.add(&fakePosition{
		owner:     ownerAddr,
		token0:    token0Addr,
		token1:    token1Addr,
		fee:       3000,
		tickLower: -600,
		tickUpper: 600,
		liquidity: big.NewInt(1_000_000_000),
		owed0:     big.NewInt(500_000),
		owed1:     big.NewInt(500_000),
	})
	pools := &fakePools{state: model.PoolState{
		SqrtPriceX96: price,
		Tick:         0,
		Liquidity:    big.NewInt(1_000_000_000),
		TickSpacing:  60,
	}}
	sink := &recordSink{}

	mutator, err := NewMutator(MutatorConfig{
		Registry: registry,
		Pools:    pools,
		Tokens:   tokens,
		Swapper:  &fakeSwapper{address: routerAddr, tokens: tokens},
		Events:   sink,
		Self:     engineAddr,
	})
	if err != nil {
		t.Fatalf("new mutator: %v", err)
	}
	return &testEnv{mutator: mutator, registry: registry, tokens: tokens, sink: sink, id: id}
}

func (e *testEnv) position(t *testing.T) *fakePosition {
	t.Helper()
	pos, err := e.registry.get(e.id)
	if err != nil {
		t.Fatalf("position lookup: %v", err)
	}
	return pos
}

func assertZeroCustody(t *testing.T, tokens *fakeTokens) {
	t.Helper()
	if bal := tokens.balance(token0Addr, engineAddr); bal.Sign() != 0 {
		t.Fatalf("engine still holds %s of token0", bal)
	}
	if bal := tokens.balance(token1Addr, engineAddr); bal.Sign() != 0 {
		t.Fatalf("engine still holds %s of token1", bal)
	}
}
