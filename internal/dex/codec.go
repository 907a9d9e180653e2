package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// EventCodec converts engine events to and from chain-log form.
type EventCodec struct {
	eventsABI   abi.ABI
	topicToName map[string]string
}

// NewEventCodec builds a codec over the factory/pool events ABI.
func NewEventCodec() (*EventCodec, error) {
	eventsABI, err := PairEventsABI()
	if err != nil {
		return nil, fmt.Errorf("parse events abi: %w", err)
	}

	topicToName := make(map[string]string, len(eventsABI.Events))
	for name, event := range eventsABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	return &EventCodec{eventsABI: eventsABI, topicToName: topicToName}, nil
}

// Topic0 returns the signature hash of a named event.
func (c *EventCodec) Topic0(name string) (common.Hash, bool) {
	event, ok := c.eventsABI.Events[name]
	if !ok {
		return common.Hash{}, false
	}
	return event.ID, true
}

// CanDecode checks if the topic0 is supported.
func (c *EventCodec) CanDecode(topic0 string) bool {
	_, ok := c.topicToName[strings.ToLower(topic0)]
	return ok
}

// Encode turns a typed event into a log record carrying topics and
// ABI-encoded data. Chain position fields are copied from ev.
func (c *EventCodec) Encode(ev model.TypedEvent) (model.LogRecord, error) {
	var (
		topics []common.Hash
		values []interface{}
		err    error
	)

	switch data := ev.Decoded.(type) {
	case model.PairCreatedEventData:
		topics = []common.Hash{addressTopic(data.Token0), addressTopic(data.Token1)}
		values, err = collect(encAddress(data.Pair), encAddress(data.Implementation), encUint(new(big.Int).SetUint64(data.Length)))
	case model.ConfigUpdatedEventData:
		topics = []common.Hash{common.BigToHash(new(big.Int).SetUint64(data.Version))}
		values, err = collect(encAddress(data.Owner), encAddress(data.Implementation), encAddress(data.FeeTo), encString(data.PairSuffix))
	case model.MintEventData:
		topics = []common.Hash{addressTopic(data.Sender)}
		values, err = collect(encAmount(data.Amount0), encAmount(data.Amount1))
	case model.BurnEventData:
		topics = []common.Hash{addressTopic(data.Sender), addressTopic(data.To)}
		values, err = collect(encAmount(data.Amount0), encAmount(data.Amount1))
	case model.SwapEventData:
		topics = []common.Hash{addressTopic(data.Sender), addressTopic(data.To)}
		values, err = collect(encAmount(data.Amount0In), encAmount(data.Amount1In), encAmount(data.Amount0Out), encAmount(data.Amount1Out))
	case model.SyncEventData:
		values, err = collect(encAmount(data.Reserve0), encAmount(data.Reserve1))
	case model.TransferEventData:
		topics = []common.Hash{addressTopic(data.From), addressTopic(data.To)}
		values, err = collect(encAmount(data.Value))
	case model.ApprovalEventData:
		topics = []common.Hash{addressTopic(data.Owner), addressTopic(data.Spender)}
		values, err = collect(encAmount(data.Value))
	default:
		return model.LogRecord{}, fmt.Errorf("unsupported event payload %T", ev.Decoded)
	}
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("encode %s: %w", ev.EventName, err)
	}

	event, ok := c.eventsABI.Events[ev.EventName]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unsupported event name: %s", ev.EventName)
	}
	packed, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", ev.EventName, err)
	}

	hexTopics := make([]string, 0, len(topics)+1)
	hexTopics = append(hexTopics, event.ID.Hex())
	for _, topic := range topics {
		hexTopics = append(hexTopics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     ev.ChainID,
		BlockNumber: ev.BlockNumber,
		TxHash:      ev.TxHash,
		LogIndex:    ev.LogIndex,
		Address:     ev.Address,
		Topics:      hexTopics,
		Data:        hexutil.Encode(packed),
		Timestamp:   ev.Timestamp,
	}, nil
}

// Decode converts a LogRecord into a TypedEvent.
func (c *EventCodec) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := c.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}

	event := c.eventsABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(fields, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}

	f := fieldReader(fields)
	var decoded interface{}
	switch name {
	case model.EventPairCreated:
		decoded = model.PairCreatedEventData{
			Token0:         f.addr("token0"),
			Token1:         f.addr("token1"),
			Pair:           f.addr("pair"),
			Implementation: f.addr("implementation"),
			Length:         f.bigInt("length").Uint64(),
		}
	case model.EventConfigUpdated:
		decoded = model.ConfigUpdatedEventData{
			Version:        f.u64("version"),
			Owner:          f.addr("owner"),
			Implementation: f.addr("implementation"),
			FeeTo:          f.addr("feeTo"),
			PairSuffix:     f.str("pairSuffix"),
		}
	case model.EventMint:
		decoded = model.MintEventData{
			Sender:  f.addr("sender"),
			Amount0: f.bigInt("amount0").String(),
			Amount1: f.bigInt("amount1").String(),
		}
	case model.EventBurn:
		decoded = model.BurnEventData{
			Sender:  f.addr("sender"),
			Amount0: f.bigInt("amount0").String(),
			Amount1: f.bigInt("amount1").String(),
			To:      f.addr("to"),
		}
	case model.EventSwap:
		decoded = model.SwapEventData{
			Sender:     f.addr("sender"),
			Amount0In:  f.bigInt("amount0In").String(),
			Amount1In:  f.bigInt("amount1In").String(),
			Amount0Out: f.bigInt("amount0Out").String(),
			Amount1Out: f.bigInt("amount1Out").String(),
			To:         f.addr("to"),
		}
	case model.EventSync:
		decoded = model.SyncEventData{
			Reserve0: f.bigInt("reserve0").String(),
			Reserve1: f.bigInt("reserve1").String(),
		}
	case model.EventTransfer:
		decoded = model.TransferEventData{
			From:  f.addr("from"),
			To:    f.addr("to"),
			Value: f.bigInt("value").String(),
		}
	case model.EventApproval:
		decoded = model.ApprovalEventData{
			Owner:   f.addr("owner"),
			Spender: f.addr("spender"),
			Value:   f.bigInt("value").String(),
		}
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, f.err)
	}

	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     common.HexToAddress(log.Address).Hex(),
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
	}, nil
}

type encoded struct {
	value interface{}
	err   error
}

func collect(items ...encoded) ([]interface{}, error) {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item.err != nil {
			return nil, item.err
		}
		out = append(out, item.value)
	}
	return out, nil
}

func encAddress(hex string) encoded {
	if !common.IsHexAddress(hex) {
		return encoded{err: fmt.Errorf("invalid address %q", hex)}
	}
	return encoded{value: common.HexToAddress(hex)}
}

func encAmount(dec string) encoded {
	v, ok := new(big.Int).SetString(dec, 10)
	if !ok || v.Sign() < 0 {
		return encoded{err: fmt.Errorf("invalid amount %q", dec)}
	}
	return encoded{value: v}
}

func encUint(v *big.Int) encoded { return encoded{value: v} }
func encString(s string) encoded { return encoded{value: s} }

func addressTopic(hex string) common.Hash {
	return common.BytesToHash(common.HexToAddress(hex).Bytes())
}

// fieldMap reads typed values out of an unpacked argument map, keeping the
// first conversion error.
type fieldMap struct {
	values map[string]interface{}
	err    error
}

func fieldReader(values map[string]interface{}) *fieldMap {
	return &fieldMap{values: values}
}

func (f *fieldMap) fail(key string, v interface{}) {
	if f.err == nil {
		f.err = fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

func (f *fieldMap) addr(key string) string {
	v, err := asAddress(f.values[key])
	if err != nil {
		f.fail(key, f.values[key])
		return ""
	}
	return v.Hex()
}

func (f *fieldMap) bigInt(key string) *big.Int {
	v, err := asBigInt(f.values[key])
	if err != nil {
		f.fail(key, f.values[key])
		return new(big.Int)
	}
	return v
}

func (f *fieldMap) u64(key string) uint64 {
	return f.bigInt(key).Uint64()
}

func (f *fieldMap) str(key string) string {
	v, ok := f.values[key].(string)
	if !ok {
		f.fail(key, f.values[key])
	}
	return v
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
