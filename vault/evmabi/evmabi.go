// Package evmabi encodes vault events as EVM logs and decodes them back,
// using the vault's embedded ABI.
package evmabi

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func MustUnmarshalABI(artifactJSON []byte) *abi.ABI {
	var artifact struct {
		ABI *abi.ABI
	}
	if err := json.Unmarshal(artifactJSON, &artifact); err != nil {
		panic(err)
	}
	return artifact.ABI
}

//go:embed contracts/artifacts/StakedVault.json
var artifactStakedVaultJSON []byte
var StakedVault = MustUnmarshalABI(artifactStakedVaultJSON)

// Log is an encoded event.
type Log struct {
	Topics [][]byte
	Data   []byte
}

// EncodeEvent encodes the named event. args are all of the event's inputs in
// ABI order, indexed ones included.
func EncodeEvent(name string, args []interface{}) (*Log, error) {
	event, ok := StakedVault.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, fmt.Errorf("event %s: got %d args, want %d", name, len(args), len(event.Inputs))
	}

	var indexed [][]interface{}
	var data []interface{}
	for i, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, []interface{}{args[i]})
		} else {
			data = append(data, args[i])
		}
	}
	topics, err := abi.MakeTopics(indexed...)
	if err != nil {
		return nil, fmt.Errorf("event %s topics: %w", name, err)
	}
	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, fmt.Errorf("event %s data: %w", name, err)
	}

	log := &Log{
		Topics: make([][]byte, 0, len(topics)+1),
		Data:   packed,
	}
	log.Topics = append(log.Topics, event.ID.Bytes())
	for _, t := range topics {
		log.Topics = append(log.Topics, t[0].Bytes())
	}
	return log, nil
}

// ParseEvent decodes a log into its event and a map of every input,
// indexed ones included.
func ParseEvent(topics [][]byte, data []byte) (*abi.Event, map[string]interface{}, error) {
	if len(topics) < 1 {
		return nil, nil, fmt.Errorf("topics (%d) too short to have event signature", len(topics))
	}
	event, err := StakedVault.EventByID(ethCommon.BytesToHash(topics[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("contract ABI EventByID: %w", err)
	}
	args := map[string]interface{}{}
	if err := event.Inputs.UnpackIntoMap(args, data); err != nil {
		return nil, nil, fmt.Errorf("event inputs Unpack: %w", err)
	}
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	hashes := make([]ethCommon.Hash, 0, len(topics)-1)
	for _, t := range topics[1:] {
		hashes = append(hashes, ethCommon.BytesToHash(t))
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, hashes); err != nil {
		return nil, nil, fmt.Errorf("event topics: %w", err)
	}
	return event, args, nil
}

// Fields returns the event's inputs by name, converted to values that
// serialize to readable JSON.
func Fields(name string, args []interface{}) (map[string]interface{}, error) {
	event, ok := StakedVault.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, fmt.Errorf("event %s: got %d args, want %d", name, len(args), len(event.Inputs))
	}
	out := make(map[string]interface{}, len(args))
	for i, input := range event.Inputs {
		out[input.Name] = evmPreMarshal(args[i], input.Type)
	}
	return out, nil
}

// evmPreMarshal converts v to a type that gives us the JSON serialization that we like:
// - large integers are JSON strings instead of JSON numbers
// - byte array types are hex strings instead of JSON arrays of numbers
// - addresses are checksummed hex strings.
func evmPreMarshal(v interface{}, t abi.Type) interface{} {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		if t.Size > 32 {
			return fmt.Sprint(v)
		}
	case abi.AddressTy:
		if a, ok := v.(ethCommon.Address); ok {
			return a.Hex()
		}
	case abi.FixedBytesTy:
		c := reflect.New(t.GetType()).Elem()
		c.Set(reflect.ValueOf(v))
		return hexutil.Encode(c.Slice(0, c.Len()).Bytes())
	case abi.BytesTy:
		return hexutil.Encode(reflect.ValueOf(v).Bytes())
	}
	return v
}
