// Package ledger defines the escrow ledger contract shared by the engine and
// contract backends, and implements the engine backend over a record store.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// Reader is the read side of the ledger
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Reader=MockLedgerReader,Writer=MockLedgerWriter,Notifier=MockNotifier,Subscription=MockSubscription,Ledger=MockLedger
type Reader interface {
	// GetAllBatches returns every batch in ascending id order
	GetAllBatches(ctx context.Context) ([]domain.Batch, error)
	// GetBatch returns one batch; an unknown id is InvalidInput
	GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error)
	// GetHistory returns the item and its owning batch from one consistent view.
	// Returns nil, nil when no batch declared the key.
	GetHistory(ctx context.Context, key domain.SerialKey) (*domain.History, error)

	// GetAllShipments returns every shipment in global order
	GetAllShipments(ctx context.Context) ([]domain.Shipment, error)
	// GetShipment returns the sender's senderIndex-th shipment; unknown is InvalidInput
	GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error)
	// GetShipmentCount counts the shipments of one sender
	GetShipmentCount(ctx context.Context, sender common.Address) (uint64, error)
	// ShipmentCount counts all shipments
	ShipmentCount(ctx context.Context) (uint64, error)
}

// CreateBatchRequest carries the farmer's declaration of a new batch
type CreateBatchRequest struct {
	ProduceName  string
	FarmLocation string
	IPFSHash     string
	Distributor  common.Address
	Retailer     common.Address
	Price        *big.Int
	SerialKeys   []domain.SerialKey
}

// CreateShipmentRequest carries a sender's new shipment; Value is the escrowed payment
type CreateShipmentRequest struct {
	Receiver common.Address
	Distance uint64
	Price    *big.Int
	Value    *big.Int
}

// Writer holds every mutating operation. The first address is always the caller.
type Writer interface {
	CreateBatch(ctx context.Context, farmer common.Address, req CreateBatchRequest) (*domain.Batch, error)
	FundBatch(ctx context.Context, retailer common.Address, batchID uint64, value *big.Int) (*domain.Batch, error)
	ConfirmPickupByDistributor(ctx context.Context, distributor common.Address, batchID uint64) (*domain.Batch, error)
	ConfirmDelivery(ctx context.Context, retailer common.Address, batchID uint64) (*domain.Batch, error)
	DenyDelivery(ctx context.Context, retailer common.Address, batchID uint64) (*domain.Batch, error)
	ApproveRefund(ctx context.Context, farmer common.Address, batchID uint64) (*domain.Batch, error)

	ActivateItemsByRetailer(ctx context.Context, retailer common.Address, batchID uint64, keys []domain.SerialKey) (*domain.Batch, error)
	ConsumeItemByRetailer(ctx context.Context, retailer common.Address, key domain.SerialKey) (*domain.Item, error)

	CreateShipment(ctx context.Context, sender common.Address, req CreateShipmentRequest) (*domain.Shipment, error)
	StartShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64) (*domain.Shipment, error)
	CompleteShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64) (*domain.Shipment, error)
}

// Handler receives ledger events. It runs on the notifier's goroutine and must not block for long.
type Handler func(event *domain.LedgerEvent)

// Subscription is a live registration with a Notifier
type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()
}

// Notifier delivers ledger events after they are committed
type Notifier interface {
	// Subscribe registers handler for events matching filter until Unsubscribe or ctx is done
	Subscribe(ctx context.Context, filter domain.EventFilter, handler Handler) (Subscription, error)
}

// Ledger is the full contract surface of an escrow ledger backend
type Ledger interface {
	Reader
	Writer
	Notifier
}
