package model

// TokenMeta captures the ERC20 metadata of a position's pair tokens. The
// decimals feed price-range resolution; symbol and name label logs and
// operation records.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
