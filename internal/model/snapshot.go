package model

// SnapshotVersion is bumped whenever the Snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is the complete persisted engine state.
type Snapshot struct {
	Version   int          `json:"version"`
	ChainID   uint64       `json:"chain_id"`
	Sequence  uint64       `json:"sequence"`
	Deployer  string       `json:"deployer"`
	Wrapped   string       `json:"wrapped"`
	Router    string       `json:"router"`
	Liquidity string       `json:"liquidity"`
	Chain     ChainState   `json:"chain"`
	Factory   FactoryState `json:"factory"`
	Pools     []PoolState  `json:"pools"`
	SavedAt   string       `json:"saved_at"`
}

type ChainState struct {
	Time       uint64           `json:"time"`
	Tokens     []TokenMeta      `json:"tokens"`
	Balances   []BalanceEntry   `json:"balances"`
	Supplies   []SupplyEntry    `json:"supplies"`
	Allowances []AllowanceEntry `json:"allowances"`
	Nonces     []NonceEntry     `json:"nonces"`
}

type BalanceEntry struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

type SupplyEntry struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type AllowanceEntry struct {
	Asset   string `json:"asset"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type NonceEntry struct {
	Deployer string `json:"deployer"`
	Nonce    uint64 `json:"nonce"`
}

// FactoryConfig is the versioned admin record of a factory.
type FactoryConfig struct {
	Version        uint64 `json:"version"`
	Owner          string `json:"owner"`
	Implementation string `json:"implementation"`
	FeeTo          string `json:"fee_to"`
	PairSuffix     string `json:"pair_suffix"`
}

type FactoryState struct {
	Address         string                `json:"address"`
	Config          FactoryConfig         `json:"config"`
	Implementations []ImplementationState `json:"implementations"`
	Pairs           []string              `json:"pairs"`
}

// ImplementationState describes a pool template.
type ImplementationState struct {
	Address        string `json:"address"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
	MinimumShares  string `json:"minimum_shares"`
}

type PoolState struct {
	Address            string              `json:"address"`
	Factory            string              `json:"factory"`
	Implementation     ImplementationState `json:"implementation"`
	Token0             string              `json:"token0"`
	Token1             string              `json:"token1"`
	Reserve0           string              `json:"reserve0"`
	Reserve1           string              `json:"reserve1"`
	KLast              string              `json:"k_last"`
	BlockTimestampLast uint64              `json:"block_timestamp_last"`
	Name               string              `json:"name"`
	Symbol             string              `json:"symbol"`
	CreatedAt          uint64              `json:"created_at"`
}
