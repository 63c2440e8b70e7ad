package messaging

import (
	"context"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// EventHandler is called for every ledger event read from the source
type EventHandler func(event *domain.LedgerEvent) error

// Subscriber defines the interface for reading ledger events from the escrow contract
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeEvents streams contract events starting at fromBlock (0 for latest)
	// until ctx is done or the subscription fails
	SubscribeEvents(ctx context.Context, fromBlock uint64, handler EventHandler) error

	// GetLatestBlock returns the latest block number
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}
