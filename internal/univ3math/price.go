package univ3math

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParsePrice converts a human-readable token1-per-token0 price string into a
// raw-unit fraction, scaled by the token decimals. The returned numerator and
// denominator feed PriceToTick directly.
func ParsePrice(price string, token0Decimals, token1Decimals uint8) (*big.Int, *big.Int, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if d.Sign() <= 0 {
		return nil, nil, fmt.Errorf("price must be positive, got %s", price)
	}

	// Human price is token1/token0 in display units; raw units shift by
	// 10^(dec1-dec0).
	scaled := d.Shift(int32(token1Decimals) - int32(token0Decimals))
	rat := scaled.Rat()
	return new(big.Int).Set(rat.Num()), new(big.Int).Set(rat.Denom()), nil
}
