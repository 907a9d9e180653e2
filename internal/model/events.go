package model

// Amounts are decimal strings so JSON consumers never lose precision.

// PairCreatedEventData is emitted by the factory for every new pool.
type PairCreatedEventData struct {
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	Pair           string `json:"pair"`
	Implementation string `json:"implementation"`
	Length         uint64 `json:"all_pairs_length"`
}

// ConfigUpdatedEventData is emitted on every factory admin change.
type ConfigUpdatedEventData struct {
	Version        uint64 `json:"version"`
	Owner          string `json:"owner"`
	Implementation string `json:"implementation"`
	FeeTo          string `json:"fee_to"`
	PairSuffix     string `json:"pair_suffix"`
}

type MintEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

type BurnEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
	To      string `json:"to"`
}

type SwapEventData struct {
	Sender     string `json:"sender"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
	To         string `json:"to"`
}

type SyncEventData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// TransferEventData covers pool share movements, mints and burns included.
type TransferEventData struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type ApprovalEventData struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}
