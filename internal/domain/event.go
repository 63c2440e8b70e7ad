package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of ledger event
type EventType string

const (
	EventBatchCreated      EventType = "batch_created"
	EventBatchFunded       EventType = "batch_funded"
	EventBatchPickedUp     EventType = "batch_picked_up"
	EventBatchDelivered    EventType = "batch_delivered"
	EventBatchDenied       EventType = "batch_denied"
	EventBatchRefunded     EventType = "batch_refunded"
	EventItemsActivated    EventType = "items_activated"
	EventItemConsumed      EventType = "item_consumed"
	EventShipmentCreated   EventType = "shipment_created"
	EventShipmentStarted   EventType = "shipment_started"
	EventShipmentCompleted EventType = "shipment_completed"
)

// AllEventTypes lists every event type the ledger emits
func AllEventTypes() []EventType {
	return []EventType{
		EventBatchCreated,
		EventBatchFunded,
		EventBatchPickedUp,
		EventBatchDelivered,
		EventBatchDenied,
		EventBatchRefunded,
		EventItemsActivated,
		EventItemConsumed,
		EventShipmentCreated,
		EventShipmentStarted,
		EventShipmentCompleted,
	}
}

// IsValidEventType checks if an event type is known
func IsValidEventType(t EventType) bool {
	for _, known := range AllEventTypes() {
		if known == t {
			return true
		}
	}
	return false
}

// LedgerEvent is a state-change notification.
// TxHash, BlockNumber and LogIndex are set only for events read from the contract.
type LedgerEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	BatchID       uint64         `json:"batch_id,omitempty"`
	ShipmentIndex *uint64        `json:"shipment_index,omitempty"`
	Actor         common.Address `json:"actor"`
	SerialKeys    []SerialKey    `json:"serial_keys,omitempty"`
	Amount        *big.Int       `json:"amount,omitempty"`
	TxHash        string         `json:"tx_hash,omitempty"`
	BlockNumber   uint64         `json:"block_number,omitempty"`
	LogIndex      uint           `json:"log_index,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// EventFilter selects event types. An empty filter matches everything.
type EventFilter []EventType

// Match reports whether the filter selects t
func (f EventFilter) Match(t EventType) bool {
	if len(f) == 0 {
		return true
	}
	for _, ft := range f {
		if ft == t {
			return true
		}
	}
	return false
}

// MovementKind classifies an escrow movement
type MovementKind string

const (
	MovementDeposit MovementKind = "deposit"
	MovementRelease MovementKind = "release"
	MovementRefund  MovementKind = "refund"
)

// EscrowAccount is the address used for the escrow side of a movement
var EscrowAccount = common.Address{}

// EscrowMovement is one journaled change of escrowed funds
type EscrowMovement struct {
	ID            string         `json:"id"`
	BatchID       uint64         `json:"batch_id,omitempty"`
	ShipmentIndex *uint64        `json:"shipment_index,omitempty"`
	Kind          MovementKind   `json:"kind"`
	From          common.Address `json:"from"`
	To            common.Address `json:"to"`
	Amount        *big.Int       `json:"amount"`
	CreatedAt     time.Time      `json:"created_at"`
}
