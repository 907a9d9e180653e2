package model

// LogRecord is an engine event encoded the way a chain log is: topic0 is the
// event signature hash, indexed arguments follow as topics and the rest is
// ABI-encoded in Data. BlockNumber is the engine call sequence number.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Op          string   `json:"op"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}
