package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func TestCompoundReinvestsOwedFees(t *testing.T) {
	env := newTestEnv(t)
	before := new(big.Int).Set(env.position(t).liquidity)

	res, err := env.mutator.Compound(context.Background(), env.id, ownerAddr)
	if err != nil {
		t.Fatalf("compound: %v", err)
	}
	if res.LiquidityDelta.Sign() <= 0 {
		t.Fatalf("expected positive liquidity delta, got %s", res.LiquidityDelta)
	}

	after := env.position(t).liquidity
	wantAfter := new(big.Int).Add(before, res.LiquidityDelta)
	if after.Cmp(wantAfter) != 0 {
		t.Fatalf("position liquidity = %s, want %s", after, wantAfter)
	}

	// Everything harvested is either deposited or returned to the owner.
	assertZeroCustody(t, env.tokens)
	owner0 := env.tokens.balance(token0Addr, ownerAddr)
	if owner0.Cmp(res.Returned0) != 0 {
		t.Fatalf("owner token0 balance = %s, want remainder %s", owner0, res.Returned0)
	}
	owner1 := env.tokens.balance(token1Addr, ownerAddr)
	if owner1.Cmp(res.Returned1) != 0 {
		t.Fatalf("owner token1 balance = %s, want remainder %s", owner1, res.Returned1)
	}

	total0 := new(big.Int).Add(res.Amount0, res.Returned0)
	if total0.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("deposited+returned token0 = %s, want 500000", total0)
	}

	if len(env.sink.compounded) != 1 {
		t.Fatalf("expected 1 compounded event, got %d", len(env.sink.compounded))
	}
	event := env.sink.compounded[0]
	if event.Owner != ownerAddr || event.LiquidityDelta.Cmp(res.LiquidityDelta) != 0 {
		t.Fatalf("unexpected compounded event %+v", event)
	}
}

func TestCompoundNoFeesIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	pos := env.position(t)
	pos.owed0.SetInt64(0)
	pos.owed1.SetInt64(0)
	before := new(big.Int).Set(pos.liquidity)

	res, err := env.mutator.Compound(context.Background(), env.id, ownerAddr)
	if err != nil {
		t.Fatalf("compound with nothing owed: %v", err)
	}
	if res.LiquidityDelta.Sign() != 0 {
		t.Fatalf("expected zero delta, got %s", res.LiquidityDelta)
	}
	if env.position(t).liquidity.Cmp(before) != 0 {
		t.Fatalf("liquidity changed on no-op")
	}
	if len(env.sink.compounded) != 0 {
		t.Fatalf("no-op emitted %d events", len(env.sink.compounded))
	}
	assertZeroCustody(t, env.tokens)
}

func TestCompoundAllowsApprovedDelegate(t *testing.T) {
	env := newTestEnv(t)
	env.position(t).approved = delegateAddr

	res, err := env.mutator.Compound(context.Background(), env.id, delegateAddr)
	if err != nil {
		t.Fatalf("compound as delegate: %v", err)
	}

	// Remainders go to the owner, never to the delegate.
	if bal := env.tokens.balance(token0Addr, delegateAddr); bal.Sign() != 0 {
		t.Fatalf("delegate received %s of token0", bal)
	}
	if owner0 := env.tokens.balance(token0Addr, ownerAddr); owner0.Cmp(res.Returned0) != 0 {
		t.Fatalf("owner token0 balance = %s, want %s", owner0, res.Returned0)
	}
}

func TestCompoundRejectsStranger(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.mutator.Compound(context.Background(), env.id, strangerAddr)
	if !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("expected ErrNotOwnerOrApproved, got %v", err)
	}
	if env.position(t).owed0.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("fees were touched by an unauthorized caller")
	}
}

func TestCompoundDepositFailureReturnsHarvest(t *testing.T) {
	env := newTestEnv(t)
	env.registry.failIncrease = true

	_, err := env.mutator.Compound(context.Background(), env.id, ownerAddr)
	if !errors.Is(err, ErrDepositFailed) {
		t.Fatalf("expected ErrDepositFailed, got %v", err)
	}

	// The failed deposit must not strand the harvest in engine custody.
	assertZeroCustody(t, env.tokens)
	if owner0 := env.tokens.balance(token0Addr, ownerAddr); owner0.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("owner token0 balance = %s, want full harvest 500000", owner0)
	}
	if owner1 := env.tokens.balance(token1Addr, ownerAddr); owner1.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("owner token1 balance = %s, want full harvest 500000", owner1)
	}
	if len(env.sink.compounded) != 0 {
		t.Fatalf("failed compound emitted an event")
	}
}
