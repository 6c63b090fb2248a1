package univ3math

import (
	"fmt"
	"math/big"
)

// Tick bounds of the V3 price axis.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	// Q96 = 2^96, the fixed-point scale of sqrt prices.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q192 = 2^192, the scale of squared sqrt prices.
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	// MinSqrtRatio and MaxSqrtRatio are sqrt prices at MinTick and MaxTick.
	MinSqrtRatio    = big.NewInt(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	// MaxUint128 is the collect-all sentinel for fee collection.
	MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// Multipliers for each bit of |tick|, Q128 fixed point.
	tickRatios = [20]*big.Int{
		mustHex("fffcb933bd6fad37aa2d162d1a594001"),
		mustHex("fff97272373d413259a46990580e213a"),
		mustHex("fff2e50f5f656932ef12357cf3c7fdcc"),
		mustHex("ffe5caca7e10e4e61c3624eaa0941cd0"),
		mustHex("ffcb9843d60f6159c9db58835c926644"),
		mustHex("ff973b41fa98c081472e6896dfb254c0"),
		mustHex("ff2ea16466c96a3843ec78b326b52861"),
		mustHex("fe5dee046a99a2a811c461f1969c3053"),
		mustHex("fcbe86c7900a88aedcffc83b479aa3a4"),
		mustHex("f987a7253ac413176f2b074cf7815e54"),
		mustHex("f3392b0822b70005940c7a398e4b70f3"),
		mustHex("e7159475a2c29b7443b29c7fa6e889d9"),
		mustHex("d097f3bdfd2022b8845ad8f792aa5825"),
		mustHex("a9f746462d870fdf8a65dc1f90e061e5"),
		mustHex("70d869a156d2a1b890bb3df62baf32f7"),
		mustHex("31be135f97d08fd981231505542fcfa6"),
		mustHex("9aa508b5b7a84e1c677de54f3e99bc9"),
		mustHex("5d6af8dedb81196699c329225ee604"),
		mustHex("2216e584f5fa1ea926041bedfe98"),
		mustHex("48a170391f7dc42444e8fa2"),
	}
)

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("univ3math: bad hex constant " + s)
	}
	return v
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96, matching the pool's own
// fixed-point tick math exactly.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("tick %d out of range", tick)
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(big.Int).Lsh(big.NewInt(1), 128)
	if absTick&1 != 0 {
		ratio.Set(tickRatios[0])
	}
	for i := 1; i < len(tickRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, tickRatios[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up.
	rem := new(big.Int).And(ratio, big.NewInt((1<<32)-1))
	ratio.Rsh(ratio, 32)
	if rem.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return ratio, nil
}

// TickAtSqrtRatio returns the greatest tick whose sqrt ratio is less than or
// equal to sqrtRatioX96. Binary search over the monotonic SqrtRatioAtTick.
func TickAtSqrtRatio(sqrtRatioX96 *big.Int) (int32, error) {
	if sqrtRatioX96 == nil || sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, fmt.Errorf("sqrt ratio %v out of range", sqrtRatioX96)
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtRatioX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// EncodeSqrtRatioX96 returns sqrt(amount1/amount0) * 2^96.
func EncodeSqrtRatioX96(amount1, amount0 *big.Int) (*big.Int, error) {
	if amount0 == nil || amount0.Sign() <= 0 || amount1 == nil || amount1.Sign() <= 0 {
		return nil, fmt.Errorf("amounts must be positive")
	}
	numerator := new(big.Int).Lsh(amount1, 192)
	ratio := new(big.Int).Div(numerator, amount0)
	return ratio.Sqrt(ratio), nil
}

// NearestUsableTick rounds tick to the nearest multiple of tickSpacing. An
// exact half-spacing tie rounds down. The result is clamped to the aligned
// tick range and always satisfies result % tickSpacing == 0.
func NearestUsableTick(tick, tickSpacing int32) (int32, error) {
	if tickSpacing <= 0 {
		return 0, fmt.Errorf("tick spacing must be positive, got %d", tickSpacing)
	}

	div := tick / tickSpacing
	rem := tick % tickSpacing
	if rem < 0 {
		div--
		rem += tickSpacing
	}
	floor := div * tickSpacing

	rounded := floor
	if 2*rem > tickSpacing {
		rounded = floor + tickSpacing
	}

	minUsable := -(MaxTick / tickSpacing) * tickSpacing
	maxUsable := (MaxTick / tickSpacing) * tickSpacing
	if rounded < minUsable {
		rounded = minUsable
	} else if rounded > maxUsable {
		rounded = maxUsable
	}
	return rounded, nil
}

// PriceToTick converts a token1-per-token0 price fraction, in raw token
// units, into the closest tick.
func PriceToTick(numerator, denominator *big.Int) (int32, error) {
	sqrtRatioX96, err := EncodeSqrtRatioX96(numerator, denominator)
	if err != nil {
		return 0, err
	}
	tick, err := TickAtSqrtRatio(sqrtRatioX96)
	if err != nil {
		return 0, err
	}

	// The search floors; bump when the fraction reaches the next tick's
	// price exactly: num/den >= ratio(tick+1)^2 / 2^192.
	if tick < MaxTick {
		next, err := SqrtRatioAtTick(tick + 1)
		if err != nil {
			return 0, err
		}
		lhs := new(big.Int).Mul(numerator, Q192)
		rhs := new(big.Int).Mul(new(big.Int).Mul(next, next), denominator)
		if lhs.Cmp(rhs) >= 0 {
			tick++
		}
	}
	return tick, nil
}
