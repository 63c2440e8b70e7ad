package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/messaging"
	"github.com/harvestline/escrow-ledger/internal/store"
)

// NoIPFSHash is stored when a batch is created without a certificate pointer
const NoIPFSHash = "N/A"

// Engine is the authoritative ledger backend. Every write is one store transaction;
// committed events go to the hub and then to the configured publishers.
type Engine struct {
	store      store.Store
	hub        *Hub
	clock      adapter.Clock
	json       adapter.JSON
	jcs        adapter.JCS
	publishers []messaging.Publisher
}

var _ Ledger = (*Engine)(nil)

// NewEngine creates a ledger engine over st
func NewEngine(
	st store.Store,
	hub *Hub,
	clock adapter.Clock,
	jsonAdapter adapter.JSON,
	jcsAdapter adapter.JCS,
	publishers ...messaging.Publisher,
) *Engine {
	if hub == nil {
		hub = NewHub(0)
	}
	return &Engine{
		store:      st,
		hub:        hub,
		clock:      clock,
		json:       jsonAdapter,
		jcs:        jcsAdapter,
		publishers: publishers,
	}
}

// Subscribe implements Notifier through the engine's hub
func (e *Engine) Subscribe(ctx context.Context, filter domain.EventFilter, handler Handler) (Subscription, error) {
	return e.hub.Subscribe(ctx, filter, handler)
}

// now is the ledger clock at second precision, matching contract block timestamps
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Second)
}

// =============================================================================
// Reads
// =============================================================================

func (e *Engine) GetAllBatches(ctx context.Context) ([]domain.Batch, error) {
	batches, err := e.store.ListBatches(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return batches, nil
}

func (e *Engine) GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error) {
	b, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, storeError(err)
	}
	if b == nil {
		return nil, errBatchNotFound(batchID)
	}
	return b, nil
}

func (e *Engine) GetHistory(ctx context.Context, key domain.SerialKey) (*domain.History, error) {
	var history *domain.History
	err := e.store.Snapshot(ctx, func(r store.Reader) error {
		item, err := r.GetItem(ctx, key)
		if err != nil || item == nil {
			return err
		}
		b, err := r.GetBatch(ctx, item.BatchID)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("item %s references missing batch %d", key.Hex(), item.BatchID)
		}
		history = &domain.History{Item: *item, Batch: *b}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return history, nil
}

func (e *Engine) GetAllShipments(ctx context.Context) ([]domain.Shipment, error) {
	shipments, err := e.store.ListShipments(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return shipments, nil
}

func (e *Engine) GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error) {
	s, err := e.store.GetShipment(ctx, sender, senderIndex)
	if err != nil {
		return nil, storeError(err)
	}
	if s == nil {
		return nil, errShipmentNotFound(sender, senderIndex)
	}
	return s, nil
}

func (e *Engine) GetShipmentCount(ctx context.Context, sender common.Address) (uint64, error) {
	n, err := e.store.CountShipments(ctx, &sender)
	if err != nil {
		return 0, storeError(err)
	}
	return n, nil
}

func (e *Engine) ShipmentCount(ctx context.Context) (uint64, error) {
	n, err := e.store.CountShipments(ctx, nil)
	if err != nil {
		return 0, storeError(err)
	}
	return n, nil
}

// EscrowMovements returns the escrow journal of a batch
func (e *Engine) EscrowMovements(ctx context.Context, batchID uint64) ([]domain.EscrowMovement, error) {
	if _, err := e.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	movements, err := e.store.ListEscrowMovements(ctx, batchID)
	if err != nil {
		return nil, storeError(err)
	}
	return movements, nil
}

// Events returns the journaled events of a batch in commit order
func (e *Engine) Events(ctx context.Context, batchID uint64) ([]domain.LedgerEvent, error) {
	if _, err := e.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	events, err := e.store.ListEvents(ctx, batchID)
	if err != nil {
		return nil, storeError(err)
	}
	return events, nil
}

// =============================================================================
// Batch lifecycle
// =============================================================================

func (e *Engine) CreateBatch(ctx context.Context, farmer common.Address, req CreateBatchRequest) (*domain.Batch, error) {
	if err := validateCreateBatch(farmer, req); err != nil {
		return nil, err
	}

	var created *domain.Batch
	err := e.commit(ctx, func(w *txWriter) error {
		for _, key := range req.SerialKeys {
			existing, err := w.GetItem(ctx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.NewError(domain.KindInvalidInput,
					"serial %s is already registered in batch %d", key.Hex(), existing.BatchID)
			}
		}

		id, err := w.NextBatchID(ctx)
		if err != nil {
			return err
		}

		harvested := w.now
		ipfs := strings.TrimSpace(req.IPFSHash)
		if ipfs == "" {
			ipfs = NoIPFSHash
		}
		b := &domain.Batch{
			ID:               id,
			ProduceName:      strings.TrimSpace(req.ProduceName),
			FarmLocation:     strings.TrimSpace(req.FarmLocation),
			IPFSHash:         ipfs,
			Farmer:           farmer,
			Distributor:      req.Distributor,
			Retailer:         req.Retailer,
			Price:            new(big.Int).Set(req.Price),
			Escrow:           new(big.Int),
			HarvestTimestamp: &harvested,
			ItemSerialHashes: append([]domain.SerialKey(nil), req.SerialKeys...),
		}
		b.SetStatus(domain.BatchStatusHarvested)

		if err := w.InsertBatch(ctx, b); err != nil {
			return err
		}
		created = b

		return w.record(ctx, &domain.LedgerEvent{
			Type:       domain.EventBatchCreated,
			BatchID:    b.ID,
			Actor:      farmer,
			SerialKeys: b.ItemSerialHashes,
			Amount:     b.Price,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Batch created",
		zap.Uint64("batch_id", created.ID),
		zap.String("farmer", farmer.Hex()),
		zap.Int("items", len(created.ItemSerialHashes)),
	)
	return created, nil
}

func validateCreateBatch(farmer common.Address, req CreateBatchRequest) error {
	switch {
	case strings.TrimSpace(req.ProduceName) == "":
		return domain.NewError(domain.KindInvalidInput, "produce name is required")
	case strings.TrimSpace(req.FarmLocation) == "":
		return domain.NewError(domain.KindInvalidInput, "farm location is required")
	case farmer == (common.Address{}):
		return domain.NewError(domain.KindInvalidInput, "farmer address is required")
	case req.Distributor == (common.Address{}):
		return domain.NewError(domain.KindInvalidInput, "distributor address is required")
	case req.Retailer == (common.Address{}):
		return domain.NewError(domain.KindInvalidInput, "retailer address is required")
	case req.Distributor == farmer:
		return domain.NewError(domain.KindInvalidInput, "distributor must differ from the farmer")
	case req.Retailer == farmer:
		return domain.NewError(domain.KindInvalidInput, "retailer must differ from the farmer")
	case req.Price == nil || req.Price.Sign() <= 0:
		return domain.NewError(domain.KindInvalidInput, "price must be positive")
	case len(req.SerialKeys) == 0:
		return domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "at least one serial number is required")
	}
	if err := domain.CheckAmount("price", req.Price); err != nil {
		return err
	}

	seen := make(map[domain.SerialKey]struct{}, len(req.SerialKeys))
	for _, key := range req.SerialKeys {
		if key.IsZero() {
			return domain.NewError(domain.KindInvalidInput, "serial key must not be zero")
		}
		if _, dup := seen[key]; dup {
			return domain.NewError(domain.KindInvalidInput, "serial %s is listed twice", key.Hex())
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (e *Engine) FundBatch(ctx context.Context, retailer common.Address, batchID uint64, value *big.Int) (*domain.Batch, error) {
	return e.transition(ctx, transitionFund, retailer, batchID, value)
}

func (e *Engine) ConfirmPickupByDistributor(ctx context.Context, distributor common.Address, batchID uint64) (*domain.Batch, error) {
	return e.transition(ctx, transitionPickup, distributor, batchID, nil)
}

func (e *Engine) ConfirmDelivery(ctx context.Context, retailer common.Address, batchID uint64) (*domain.Batch, error) {
	return e.transition(ctx, transitionDeliver, retailer, batchID, nil)
}

func (e *Engine) DenyDelivery(ctx context.Context, retailer common.Address, batchID uint64) (*domain.Batch, error) {
	return e.transition(ctx, transitionDeny, retailer, batchID, nil)
}

func (e *Engine) ApproveRefund(ctx context.Context, farmer common.Address, batchID uint64) (*domain.Batch, error) {
	return e.transition(ctx, transitionRefund, farmer, batchID, nil)
}

// transition applies t to a batch: exists, role, status, value, then a compare-and-set write
func (e *Engine) transition(ctx context.Context, t transition, caller common.Address, batchID uint64, value *big.Int) (*domain.Batch, error) {
	var updated *domain.Batch
	err := e.commit(ctx, func(w *txWriter) error {
		b, err := w.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return errBatchNotFound(batchID)
		}
		if err := t.check(b, caller); err != nil {
			return err
		}

		now := w.now
		var movement *domain.EscrowMovement
		switch t.to {
		case domain.BatchStatusFunded:
			if value == nil || value.Cmp(b.Price) != 0 {
				return domain.NewError(domain.KindEscrowMismatch,
					"value %s does not equal price %s of batch %d", weiText(value), b.Price, b.ID)
			}
			b.Escrow = new(big.Int).Set(b.Price)
			movement = &domain.EscrowMovement{
				Kind: domain.MovementDeposit, From: b.Retailer, To: domain.EscrowAccount, Amount: b.Escrow,
			}
		case domain.BatchStatusPickedUp:
			b.PickupTimestamp = &now
		case domain.BatchStatusDelivered:
			b.DeliveryTimestamp = &now
			movement = &domain.EscrowMovement{
				Kind: domain.MovementRelease, From: domain.EscrowAccount, To: b.Farmer, Amount: heldEscrow(b),
			}
			b.Escrow = new(big.Int)
		case domain.BatchStatusRefunded:
			movement = &domain.EscrowMovement{
				Kind: domain.MovementRefund, From: domain.EscrowAccount, To: b.Retailer, Amount: heldEscrow(b),
			}
			b.Escrow = new(big.Int)
		}
		b.SetStatus(t.to)

		if err := w.UpdateBatch(ctx, b, t.from); err != nil {
			return err
		}

		event := &domain.LedgerEvent{Type: t.event, BatchID: b.ID, Actor: caller}
		if movement != nil {
			movement.BatchID = b.ID
			if err := w.move(ctx, movement); err != nil {
				return err
			}
			event.Amount = movement.Amount
		}
		updated = b
		return w.record(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Batch transitioned",
		zap.Uint64("batch_id", batchID),
		zap.String("transition", t.name),
		zap.Stringer("status", updated.Status),
		zap.String("caller", caller.Hex()),
	)
	return updated, nil
}

func heldEscrow(b *domain.Batch) *big.Int {
	if b.Escrow == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.Escrow)
}

func weiText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// =============================================================================
// Transactions and journaling
// =============================================================================

// txWriter is a store transaction plus the journal of the transition running in it
type txWriter struct {
	store.Tx
	engine *Engine
	now    time.Time
	events []*domain.LedgerEvent
}

// record assigns id and time to event and appends it to the journal
func (w *txWriter) record(ctx context.Context, event *domain.LedgerEvent) error {
	event.ID = ulid.MustNewDefault(w.now).String()
	event.Timestamp = w.now

	digest, err := adapter.Digest(w.engine.json, w.engine.jcs, event)
	if err != nil {
		return fmt.Errorf("failed to digest event: %w", err)
	}
	if err := w.AppendEvent(ctx, event, digest); err != nil {
		return err
	}
	w.events = append(w.events, event)
	return nil
}

// move appends an escrow movement
func (w *txWriter) move(ctx context.Context, m *domain.EscrowMovement) error {
	m.ID = ulid.MustNewDefault(w.now).String()
	m.CreatedAt = w.now
	return w.AppendEscrowMovement(ctx, m)
}

// commit runs fn in one store transaction, then announces what it journaled
func (e *Engine) commit(ctx context.Context, fn func(w *txWriter) error) error {
	var w *txWriter
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		w = &txWriter{Tx: tx, engine: e, now: e.now()}
		return fn(w)
	})
	if err != nil {
		return storeError(err)
	}

	for _, event := range w.events {
		e.announce(ctx, event)
	}
	return nil
}

// announce hands a committed event to the hub and the publishers.
// Publish failures are logged; the transition has already committed.
func (e *Engine) announce(ctx context.Context, event *domain.LedgerEvent) {
	e.hub.Publish(event)

	for _, p := range e.publishers {
		if err := p.PublishEvent(ctx, event); err != nil {
			logger.WarnCtx(ctx, "Failed to publish ledger event",
				zap.Error(err),
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
			)
		}
	}
}

// storeError classifies errors coming out of a store call
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case domain.KindOf(err) != "":
		return err
	case errors.Is(err, domain.ErrStaleWrite):
		return domain.WrapError(domain.KindInvalidTransition, err, "a concurrent transition was applied first")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return domain.WrapError(domain.KindTransportFailure, err, "ledger store unavailable")
}

func errBatchNotFound(batchID uint64) error {
	return domain.NewError(domain.KindInvalidInput, "batch %d does not exist", batchID)
}

func errShipmentNotFound(sender common.Address, senderIndex uint64) error {
	return domain.NewError(domain.KindInvalidInput, "shipment %d of sender %s does not exist", senderIndex, sender.Hex())
}
