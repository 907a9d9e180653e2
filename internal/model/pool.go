package model

// Pair is a pool view for listings and storage.
type Pair struct {
	Address        string `json:"address"`
	Index          uint64 `json:"index"`
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	Name0          string `json:"name0,omitempty"`
	Name1          string `json:"name1,omitempty"`
	Symbol0        string `json:"symbol0,omitempty"`
	Symbol1        string `json:"symbol1,omitempty"`
	Reserve0       string `json:"reserve0"`
	Reserve1       string `json:"reserve1"`
	TotalSupply    string `json:"total_supply"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
	Implementation string `json:"implementation"`
	Symbol         string `json:"symbol"`
	CreatedAt      uint64 `json:"created_at"`
}
