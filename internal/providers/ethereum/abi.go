package ethereum

import (
	_ "embed"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

//go:embed escrow.abi.json
var escrowABIJSON string

// escrowABI is the parsed escrow contract interface
var escrowABI = mustParseABI(escrowABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid escrow ABI: " + err.Error())
	}
	return parsed
}

// eventTypes maps contract event names to ledger event types
var eventTypes = map[string]domain.EventType{
	"BatchCreated":      domain.EventBatchCreated,
	"BatchFunded":       domain.EventBatchFunded,
	"BatchPickedUp":     domain.EventBatchPickedUp,
	"BatchDelivered":    domain.EventBatchDelivered,
	"BatchDenied":       domain.EventBatchDenied,
	"BatchRefunded":     domain.EventBatchRefunded,
	"ItemsActivated":    domain.EventItemsActivated,
	"ItemConsumed":      domain.EventItemConsumed,
	"ShipmentCreated":   domain.EventShipmentCreated,
	"ShipmentStarted":   domain.EventShipmentStarted,
	"ShipmentCompleted": domain.EventShipmentCompleted,
}

// eventTopics returns the topic0 hash of every ledger event
func eventTopics() []common.Hash {
	topics := make([]common.Hash, 0, len(eventTypes))
	for name := range eventTypes {
		topics = append(topics, escrowABI.Events[name].ID)
	}
	return topics
}

// batchTuple mirrors the contract Batch struct; field order matters for decoding
type batchTuple struct {
	BatchId           *big.Int //nolint:revive
	ProduceName       string
	FarmLocation      string
	IpfsHash          string
	Farmer            common.Address
	Distributor       common.Address
	Retailer          common.Address
	Price             *big.Int
	Status            uint8
	IsFunded          bool
	IsPaid            bool
	HarvestTimestamp  *big.Int
	PickupTimestamp   *big.Int
	DeliveryTimestamp *big.Int
	ItemSerialHashes  [][32]byte
}

func (t batchTuple) toDomain() domain.Batch {
	b := domain.Batch{
		ID:                t.BatchId.Uint64(),
		ProduceName:       t.ProduceName,
		FarmLocation:      t.FarmLocation,
		IPFSHash:          t.IpfsHash,
		Farmer:            t.Farmer,
		Distributor:       t.Distributor,
		Retailer:          t.Retailer,
		Price:             bigOrZero(t.Price),
		Status:            domain.BatchStatus(t.Status),
		IsFunded:          t.IsFunded,
		IsPaid:            t.IsPaid,
		HarvestTimestamp:  unixTime(t.HarvestTimestamp),
		PickupTimestamp:   unixTime(t.PickupTimestamp),
		DeliveryTimestamp: unixTime(t.DeliveryTimestamp),
		ItemSerialHashes:  make([]domain.SerialKey, len(t.ItemSerialHashes)),
	}
	for i, h := range t.ItemSerialHashes {
		b.ItemSerialHashes[i] = domain.SerialKey(h)
	}

	// The contract does not expose the escrow balance; it holds the price between funding and release.
	b.Escrow = new(big.Int)
	switch b.Status {
	case domain.BatchStatusFunded, domain.BatchStatusPickedUp, domain.BatchStatusDenied:
		b.Escrow.Set(b.Price)
	}
	return b
}

// shipmentTuple mirrors the contract Shipment struct
type shipmentTuple struct {
	Sender       common.Address
	Receiver     common.Address
	PickupTime   *big.Int
	DeliveryTime *big.Int
	Price        *big.Int
	Distance     *big.Int
	Status       uint8
	IsPaid       bool
}

func (t shipmentTuple) toDomain(index, senderIndex uint64) domain.Shipment {
	return domain.Shipment{
		Index:        index,
		SenderIndex:  senderIndex,
		Sender:       t.Sender,
		Receiver:     t.Receiver,
		PickupTime:   unixTime(t.PickupTime),
		DeliveryTime: unixTime(t.DeliveryTime),
		Distance:     bigOrZero(t.Distance).Uint64(),
		Price:        bigOrZero(t.Price),
		Status:       domain.ShipmentStatus(t.Status),
		IsPaid:       t.IsPaid,
	}
}

func serialHashes(keys []domain.SerialKey) [][32]byte {
	out := make([][32]byte, len(keys))
	for i, k := range keys {
		out[i] = [32]byte(k)
	}
	return out
}

// unixTime converts a contract timestamp; zero means not reached
func unixTime(v *big.Int) *time.Time {
	if v == nil || v.Sign() == 0 {
		return nil
	}
	t := time.Unix(v.Int64(), 0).UTC()
	return &t
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// revertKinds classifies plain revert reason strings, first match wins
var revertKinds = []struct {
	substr string
	kind   domain.ErrorKind
}{
	{"already consumed", domain.KindAlreadyConsumed},
	{"not active", domain.KindNotActive},
	{"unauthorized", domain.KindUnauthorized},
	{"only ", domain.KindUnauthorized},
	{"not part of", domain.KindInvalidItem},
	{"invalid item", domain.KindInvalidItem},
	{"mismatch", domain.KindEscrowMismatch},
	{"incorrect payment", domain.KindEscrowMismatch},
	{"does not exist", domain.KindInvalidInput},
	{"invalid", domain.KindInvalidInput},
}

// decodeRevert turns a contract revert into a domain error.
// Returns nil when err is not a revert, e.g. a network failure.
func decodeRevert(err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if raw, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(raw); decErr == nil && len(data) >= 4 {
				return decodeRevertData(data)
			}
		}
	}

	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		reason := strings.TrimLeft(strings.TrimPrefix(msg[idx:], "execution reverted"), ": ")
		return classifyReason(reason)
	}
	return nil
}

func decodeRevertData(data []byte) error {
	var selector [4]byte
	copy(selector[:], data[:4])

	if customErr, err := escrowABI.ErrorByID(selector); err == nil {
		values, err := customErr.Inputs.Unpack(data[4:])
		if err != nil {
			return domain.NewError(domain.KindInvalidTransition, "contract reverted with malformed %s", customErr.Name)
		}
		return customError(customErr.Name, values)
	}

	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return domain.NewError(domain.KindInvalidTransition, "contract reverted: %s", hexutil.Encode(data))
	}
	return classifyReason(reason)
}

func customError(name string, values []interface{}) error {
	switch name {
	case "InvalidInput":
		return domain.NewError(domain.KindInvalidInput, "%v", values[0])
	case "InvalidTransition":
		return domain.NewError(domain.KindInvalidTransition, "batch %v is %s, expected %s",
			values[0], domain.BatchStatus(values[1].(uint8)), domain.BatchStatus(values[2].(uint8)))
	case "Unauthorized":
		return domain.NewError(domain.KindUnauthorized, "caller %s is not permitted", values[0].(common.Address).Hex())
	case "EscrowMismatch":
		return domain.NewError(domain.KindEscrowMismatch, "value %v does not match price %v", values[0], values[1])
	case "InvalidItem":
		return domain.NewError(domain.KindInvalidItem, "item %s is not part of the batch", hashHex(values[0]))
	case "AlreadyConsumed":
		return domain.NewError(domain.KindAlreadyConsumed, "item %s is already consumed", hashHex(values[0]))
	case "NotActive":
		return domain.NewError(domain.KindNotActive, "item %s is not active", hashHex(values[0]))
	}
	return domain.NewError(domain.KindInvalidTransition, "contract reverted with %s", name)
}

func classifyReason(reason string) error {
	if reason == "" {
		return domain.NewError(domain.KindInvalidTransition, "contract reverted without a reason")
	}
	lower := strings.ToLower(reason)
	for _, rk := range revertKinds {
		if strings.Contains(lower, rk.substr) {
			return domain.NewError(rk.kind, "%s", reason)
		}
	}
	return domain.NewError(domain.KindInvalidTransition, "%s", reason)
}

func hashHex(v interface{}) string {
	if h, ok := v.([32]byte); ok {
		return common.Hash(h).Hex()
	}
	return ""
}
