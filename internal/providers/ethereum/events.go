package ethereum

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/oklog/ulid/v2"

	"github.com/harvestline/escrow-ledger/internal/block"
	"github.com/harvestline/escrow-ledger/internal/domain"
)

// logParser turns escrow contract logs into ledger events
type logParser struct {
	blocks block.Provider
}

// parse decodes vLog. Returns nil, nil for logs that are not ledger events.
func (p *logParser) parse(ctx context.Context, vLog types.Log) (*domain.LedgerEvent, error) {
	if len(vLog.Topics) == 0 || vLog.Removed {
		return nil, nil
	}
	ev, err := escrowABI.EventByID(vLog.Topics[0])
	if err != nil {
		return nil, nil
	}
	eventType, ok := eventTypes[ev.Name]
	if !ok {
		return nil, nil
	}

	fields := make(map[string]interface{})
	if len(vLog.Data) > 0 {
		if err := escrowABI.UnpackIntoMap(fields, ev.Name, vLog.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack %s data: %w", ev.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, vLog.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse %s topics: %w", ev.Name, err)
	}

	timestamp, err := p.blocks.GetBlockTimestamp(ctx, vLog.BlockNumber)
	if err != nil {
		return nil, err
	}

	event := &domain.LedgerEvent{
		ID:          eventID(timestamp, vLog),
		Type:        eventType,
		TxHash:      vLog.TxHash.Hex(),
		BlockNumber: vLog.BlockNumber,
		LogIndex:    vLog.Index,
		Timestamp:   timestamp,
	}

	switch eventType {
	case domain.EventBatchCreated:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "farmer")
		event.Amount = bigField(fields, "price")
		event.SerialKeys = keysField(fields, "itemSerialHashes")
	case domain.EventBatchFunded, domain.EventBatchDelivered:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "retailer")
		event.Amount = bigField(fields, "amount")
	case domain.EventBatchPickedUp:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "distributor")
	case domain.EventBatchDenied:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "retailer")
	case domain.EventBatchRefunded:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "farmer")
		event.Amount = bigField(fields, "amount")
	case domain.EventItemsActivated:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "retailer")
		event.SerialKeys = keysField(fields, "itemSerialHashes")
	case domain.EventItemConsumed:
		event.BatchID = uintField(fields, "batchId")
		event.Actor = addressField(fields, "retailer")
		if h, ok := fields["itemSerialHash"].([32]byte); ok {
			event.SerialKeys = []domain.SerialKey{domain.SerialKey(h)}
		}
	case domain.EventShipmentCreated, domain.EventShipmentStarted, domain.EventShipmentCompleted:
		index := uintField(fields, "index")
		event.ShipmentIndex = &index
		event.Actor = addressField(fields, "sender")
		event.Amount = bigField(fields, "price")
	}

	return event, nil
}

// eventID derives a stable ULID from the block time and the log position,
// so replays of the same log share an id
func eventID(timestamp time.Time, vLog types.Log) string {
	seed := crypto.Keccak256(vLog.TxHash.Bytes(), new(big.Int).SetUint64(uint64(vLog.Index)).Bytes())
	id, err := ulid.New(ulid.Timestamp(timestamp), bytes.NewReader(seed))
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

func uintField(fields map[string]interface{}, name string) uint64 {
	if v, ok := fields[name].(*big.Int); ok {
		return v.Uint64()
	}
	return 0
}

func bigField(fields map[string]interface{}, name string) *big.Int {
	if v, ok := fields[name].(*big.Int); ok {
		return v
	}
	return nil
}

func addressField(fields map[string]interface{}, name string) common.Address {
	if v, ok := fields[name].(common.Address); ok {
		return v
	}
	return common.Address{}
}

func keysField(fields map[string]interface{}, name string) []domain.SerialKey {
	hashes, ok := fields[name].([][32]byte)
	if !ok {
		return nil
	}
	keys := make([]domain.SerialKey, len(hashes))
	for i, h := range hashes {
		keys[i] = domain.SerialKey(h)
	}
	return keys
}
