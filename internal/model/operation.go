package model

import "time"

// Operation names used in records and logs.
const (
	OpCompound = "compound"
	OpRemint   = "remint"
	OpWithdraw = "withdraw"
)

// ConversionMode selects what the owner receives after a withdrawal.
type ConversionMode uint8

const (
	KeepBoth ConversionMode = iota
	ConvertAllToToken0
	ConvertAllToToken1
)

// Valid reports whether the mode is one of the defined values.
func (m ConversionMode) Valid() bool {
	return m <= ConvertAllToToken1
}

func (m ConversionMode) String() string {
	switch m {
	case KeepBoth:
		return "keep_both"
	case ConvertAllToToken0:
		return "convert_to_token0"
	case ConvertAllToToken1:
		return "convert_to_token1"
	default:
		return "unknown"
	}
}

// OperationRecord is one completed engine operation, stored for audit.
// Big amounts are string-encoded so JSON consumers keep full precision.
type OperationRecord struct {
	Operation      string    `json:"operation"`
	Owner          string    `json:"owner"`
	PositionID     string    `json:"position_id"`
	NewPositionID  string    `json:"new_position_id,omitempty"`
	LiquidityDelta string    `json:"liquidity_delta,omitempty"`
	Amount0        string    `json:"amount0,omitempty"`
	Amount1        string    `json:"amount1,omitempty"`
	TickLower      int32     `json:"tick_lower,omitempty"`
	TickUpper      int32     `json:"tick_upper,omitempty"`
	TxHashes       []string  `json:"tx_hashes,omitempty"`
	ExecutedAt     time.Time `json:"executed_at"`
}
