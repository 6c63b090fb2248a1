package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"positionTools/internal/model"
)

func TestWithdrawFullKeepBoth(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, nil, model.KeepBoth, nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if env.position(t).liquidity.Sign() != 0 {
		t.Fatalf("position still has liquidity %s after full withdrawal", env.position(t).liquidity)
	}
	if res.Amount0.Sign() <= 0 || res.Amount1.Sign() <= 0 {
		t.Fatalf("expected principal plus fees in both tokens, got %s / %s", res.Amount0, res.Amount1)
	}

	// Delivered amounts include the pre-existing owed fees.
	if res.Amount0.Cmp(big.NewInt(500_000)) <= 0 {
		t.Fatalf("token0 delivery %s does not exceed owed fees alone", res.Amount0)
	}

	assertZeroCustody(t, env.tokens)
	if owner0 := env.tokens.balance(token0Addr, ownerAddr); owner0.Cmp(res.Amount0) != 0 {
		t.Fatalf("owner token0 balance = %s, want %s", owner0, res.Amount0)
	}
	if owner1 := env.tokens.balance(token1Addr, ownerAddr); owner1.Cmp(res.Amount1) != 0 {
		t.Fatalf("owner token1 balance = %s, want %s", owner1, res.Amount1)
	}

	if len(env.sink.removed) != 1 {
		t.Fatalf("expected 1 removal event, got %d", len(env.sink.removed))
	}
	event := env.sink.removed[0]
	if event.Amount0.Cmp(res.Amount0) != 0 || event.Amount1.Cmp(res.Amount1) != 0 {
		t.Fatalf("event amounts %s/%s do not match delivery %s/%s",
			event.Amount0, event.Amount1, res.Amount0, res.Amount1)
	}
}

func TestWithdrawPartial(t *testing.T) {
	env := newTestEnv(t)
	before := new(big.Int).Set(env.position(t).liquidity)
	part := big.NewInt(400_000_000)

	_, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, part, model.KeepBoth, nil)
	if err != nil {
		t.Fatalf("partial withdraw: %v", err)
	}

	want := new(big.Int).Sub(before, part)
	if env.position(t).liquidity.Cmp(want) != 0 {
		t.Fatalf("remaining liquidity = %s, want %s", env.position(t).liquidity, want)
	}
	assertZeroCustody(t, env.tokens)
}

func TestWithdrawMoreThanLiquidity(t *testing.T) {
	env := newTestEnv(t)
	tooMuch := new(big.Int).Add(env.position(t).liquidity, big.NewInt(1))

	_, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, tooMuch, model.KeepBoth, nil)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if env.position(t).liquidity.Sign() == 0 {
		t.Fatalf("position was drained by an oversized request")
	}
}

func TestWithdrawConvertAllToToken1(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, nil, model.ConvertAllToToken1, nil)
	if err != nil {
		t.Fatalf("withdraw with conversion: %v", err)
	}

	if res.Amount0.Sign() != 0 {
		t.Fatalf("converted withdrawal still delivered %s of token0", res.Amount0)
	}
	if res.Amount1.Sign() <= 0 {
		t.Fatalf("expected all proceeds in token1, got %s", res.Amount1)
	}

	assertZeroCustody(t, env.tokens)
	if owner0 := env.tokens.balance(token0Addr, ownerAddr); owner0.Sign() != 0 {
		t.Fatalf("owner received %s of token0 despite conversion", owner0)
	}
	if owner1 := env.tokens.balance(token1Addr, ownerAddr); owner1.Cmp(res.Amount1) != 0 {
		t.Fatalf("owner token1 balance = %s, want %s", owner1, res.Amount1)
	}
}

func TestWithdrawConvertAllToToken0(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, nil, model.ConvertAllToToken0, nil)
	if err != nil {
		t.Fatalf("withdraw with conversion: %v", err)
	}
	if res.Amount1.Sign() != 0 {
		t.Fatalf("converted withdrawal still delivered %s of token1", res.Amount1)
	}
	assertZeroCustody(t, env.tokens)
	if owner0 := env.tokens.balance(token0Addr, ownerAddr); owner0.Cmp(res.Amount0) != 0 {
		t.Fatalf("owner token0 balance = %s, want %s", owner0, res.Amount0)
	}
}

func TestWithdrawConvertGrantsRouterAllowance(t *testing.T) {
	env := newTestEnv(t)

	// The swapper only pays through transferFrom, so the conversion can
	// succeed only if the engine approved the router for the input first.
	res, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, nil, model.ConvertAllToToken0, nil)
	if err != nil {
		t.Fatalf("withdraw with conversion: %v", err)
	}
	if res.Amount0.Sign() <= 0 {
		t.Fatalf("conversion delivered nothing: %s", res.Amount0)
	}

	// The approval matched the input exactly and was fully consumed.
	if left := env.tokens.allowances[token1Addr][routerAddr]; left == nil || left.Sign() != 0 {
		t.Fatalf("router allowance for token1 = %s, want fully spent", left)
	}
	assertZeroCustody(t, env.tokens)
}

func TestWithdrawSlippageRollsBackUnconverted(t *testing.T) {
	env := newTestEnv(t)
	// The flat-price swapper can never beat this minimum.
	impossibleMin := new(big.Int).Lsh(big.NewInt(1), 120)

	_, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, nil, model.ConvertAllToToken1, impossibleMin)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}

	// The failed conversion sweeps the unconverted proceeds to the owner.
	assertZeroCustody(t, env.tokens)
	if owner0 := env.tokens.balance(token0Addr, ownerAddr); owner0.Sign() <= 0 {
		t.Fatalf("owner did not get the unconverted token0 back")
	}
	if len(env.sink.removed) != 0 {
		t.Fatalf("failed withdrawal emitted an event")
	}
}

func TestWithdrawRejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, ownerAddr, nil, model.ConversionMode(9), nil)
	if err == nil {
		t.Fatalf("expected error for unknown conversion mode")
	}
	if env.position(t).liquidity.Sign() == 0 {
		t.Fatalf("position was drained by an invalid request")
	}
}

func TestWithdrawStrangerSeesAuthErrorNotModeError(t *testing.T) {
	env := newTestEnv(t)

	// Authorization is checked before request validation; an unauthorized
	// caller learns nothing about what would have been wrong with the call.
	_, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, strangerAddr, nil, model.ConversionMode(9), nil)
	if !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("expected ErrNotOwnerOrApproved, got %v", err)
	}
}

func TestWithdrawRejectsStranger(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.mutator.WithdrawAndConvert(context.Background(), env.id, strangerAddr, nil, model.KeepBoth, nil)
	if !errors.Is(err, ErrNotOwnerOrApproved) {
		t.Fatalf("expected ErrNotOwnerOrApproved, got %v", err)
	}
}
