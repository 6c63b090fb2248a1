package univ3math

import (
	"fmt"
	"math/big"
)

// AmountsForLiquidity computes the token0/token1 amounts a position of the
// given liquidity holds between sqrtRatioAX96 and sqrtRatioBX96 at the
// current sqrtRatioX96.
func AmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int) (*big.Int, *big.Int, error) {
	if sqrtRatioAX96 == nil || sqrtRatioBX96 == nil || sqrtRatioX96 == nil || liquidity == nil {
		return nil, nil, fmt.Errorf("nil argument")
	}
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) >= 0 {
		return nil, nil, fmt.Errorf("sqrt ratio bounds inverted")
	}

	amount0 := big.NewInt(0)
	amount1 := big.NewInt(0)

	switch {
	case sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0:
		// Below the range, all token0.
		amount0 = amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity)
	case sqrtRatioX96.Cmp(sqrtRatioBX96) >= 0:
		// Above the range, all token1.
		amount1 = amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity)
	default:
		amount0 = amount0Delta(sqrtRatioX96, sqrtRatioBX96, liquidity)
		amount1 = amount1Delta(sqrtRatioAX96, sqrtRatioX96, liquidity)
	}
	return amount0, amount1, nil
}

// amount0Delta = liquidity * 2^96 * (sqrtB - sqrtA) / (sqrtB * sqrtA)
func amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int) *big.Int {
	numerator := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	numerator.Mul(numerator, liquidity)
	numerator.Mul(numerator, Q96)
	denominator := new(big.Int).Mul(sqrtRatioBX96, sqrtRatioAX96)
	return numerator.Div(numerator, denominator)
}

// amount1Delta = liquidity * (sqrtB - sqrtA) / 2^96
func amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int) *big.Int {
	numerator := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	numerator.Mul(numerator, liquidity)
	return numerator.Div(numerator, Q96)
}

// LiquidityForAmounts computes the maximum liquidity the pool accepts for
// amount0/amount1 between sqrtRatioAX96 and sqrtRatioBX96 at the current
// sqrtRatioX96.
func LiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *big.Int) (*big.Int, error) {
	if sqrtRatioAX96 == nil || sqrtRatioBX96 == nil || sqrtRatioX96 == nil || amount0 == nil || amount1 == nil {
		return nil, fmt.Errorf("nil argument")
	}
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) >= 0 {
		return nil, fmt.Errorf("sqrt ratio bounds inverted")
	}

	switch {
	case sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0:
		return liquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0), nil
	case sqrtRatioX96.Cmp(sqrtRatioBX96) >= 0:
		return liquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1), nil
	default:
		liquidity0 := liquidityForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		liquidity1 := liquidityForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0, nil
		}
		return liquidity1, nil
	}
}

// liquidityForAmount0 = amount0 * (sqrtA * sqrtB / 2^96) / (sqrtB - sqrtA)
func liquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *big.Int) *big.Int {
	intermediate := new(big.Int).Mul(sqrtRatioAX96, sqrtRatioBX96)
	intermediate.Div(intermediate, Q96)
	intermediate.Mul(intermediate, amount0)
	return intermediate.Div(intermediate, new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// liquidityForAmount1 = amount1 * 2^96 / (sqrtB - sqrtA)
func liquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *big.Int) *big.Int {
	numerator := new(big.Int).Mul(amount1, Q96)
	return numerator.Div(numerator, new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}
