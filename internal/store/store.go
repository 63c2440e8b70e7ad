package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// Reader defines read access to ledger records.
// Single-record getters return nil, nil when the record does not exist.
type Reader interface {
	// GetBatch retrieves a batch with its declared serial keys
	GetBatch(ctx context.Context, id uint64) (*domain.Batch, error)
	// ListBatches retrieves every batch in ascending id order
	ListBatches(ctx context.Context) ([]domain.Batch, error)
	// GetItem retrieves an item by serial key
	GetItem(ctx context.Context, key domain.SerialKey) (*domain.Item, error)
	// ListItems retrieves the items of a batch in declaration order
	ListItems(ctx context.Context, batchID uint64) ([]domain.Item, error)
	// GetShipment retrieves a shipment by sender and the sender's own index
	GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error)
	// ListShipments retrieves every shipment in global order
	ListShipments(ctx context.Context) ([]domain.Shipment, error)
	// CountShipments counts shipments, optionally only those of one sender
	CountShipments(ctx context.Context, sender *common.Address) (uint64, error)
	// ListEscrowMovements retrieves the escrow journal of a batch in commit order
	ListEscrowMovements(ctx context.Context, batchID uint64) ([]domain.EscrowMovement, error)
	// ListEvents retrieves journaled events of a batch in commit order
	ListEvents(ctx context.Context, batchID uint64) ([]domain.LedgerEvent, error)
}

// Tx is a write transaction. Reads inside a Tx lock the rows they return
// until the transaction ends.
type Tx interface {
	Reader

	// NextBatchID allocates the next batch id
	NextBatchID(ctx context.Context) (uint64, error)
	// InsertBatch stores a new batch and registers its serial keys as NOT_ACTIVE items
	InsertBatch(ctx context.Context, batch *domain.Batch) error
	// UpdateBatch writes status, flags, escrow and timestamps if the stored status is still from.
	// Returns domain.ErrStaleWrite otherwise.
	UpdateBatch(ctx context.Context, batch *domain.Batch, from domain.BatchStatus) error
	// UpdateItemStates moves every key from one state to another, or none of them.
	// Returns domain.ErrStaleWrite when any key is not in state from.
	UpdateItemStates(ctx context.Context, keys []domain.SerialKey, from, to domain.ActivationState) error
	// InsertShipment stores a new shipment, assigning Index and SenderIndex
	InsertShipment(ctx context.Context, shipment *domain.Shipment) error
	// UpdateShipment writes status, payment and timestamps if the stored status is still from
	UpdateShipment(ctx context.Context, shipment *domain.Shipment, from domain.ShipmentStatus) error
	// AppendEscrowMovement journals an escrow change
	AppendEscrowMovement(ctx context.Context, movement *domain.EscrowMovement) error
	// AppendEvent journals a ledger event with its canonical digest
	AppendEvent(ctx context.Context, event *domain.LedgerEvent, digest string) error
}

// Store defines the interface for the ledger record store
type Store interface {
	Reader
	CursorStore

	// WithTx runs fn inside one write transaction. Transactions are applied in a single
	// global order; fn's error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Snapshot runs fn against one consistent read-only view
	Snapshot(ctx context.Context, fn func(r Reader) error) error
}
