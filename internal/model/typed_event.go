package model

// TypedEvent is an engine event with its decoded payload.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id,omitempty"`
	BlockNumber uint64      `json:"block_number,omitempty"`
	TxHash      string      `json:"tx_hash,omitempty"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp,omitempty"`
	Decoded     interface{} `json:"decoded"`
}

// Event names.
const (
	EventPairCreated   = "PairCreated"
	EventConfigUpdated = "ConfigUpdated"
	EventMint          = "Mint"
	EventBurn          = "Burn"
	EventSwap          = "Swap"
	EventSync          = "Sync"
	EventTransfer      = "Transfer"
	EventApproval      = "Approval"
)
