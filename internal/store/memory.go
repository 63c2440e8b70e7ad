package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// memState is the full content of a memory store. Transactions work on a copy
// and swap it in on success.
type memState struct {
	seq       uint64
	batches   map[uint64]*domain.Batch
	items     map[domain.SerialKey]*domain.Item
	shipments []*domain.Shipment
	movements []domain.EscrowMovement
	events    []domain.LedgerEvent
	cursors   map[string]uint64
}

func newMemState() *memState {
	return &memState{
		batches: make(map[uint64]*domain.Batch),
		items:   make(map[domain.SerialKey]*domain.Item),
		cursors: make(map[string]uint64),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		seq:       s.seq,
		batches:   make(map[uint64]*domain.Batch, len(s.batches)),
		items:     make(map[domain.SerialKey]*domain.Item, len(s.items)),
		shipments: make([]*domain.Shipment, 0, len(s.shipments)),
		movements: append([]domain.EscrowMovement(nil), s.movements...),
		events:    append([]domain.LedgerEvent(nil), s.events...),
		cursors:   make(map[string]uint64, len(s.cursors)),
	}
	for id, b := range s.batches {
		c.batches[id] = b.Clone()
	}
	for k, it := range s.items {
		item := *it
		c.items[k] = &item
	}
	for _, sh := range s.shipments {
		c.shipments = append(c.shipments, sh.Clone())
	}
	for k, v := range s.cursors {
		c.cursors[k] = v
	}
	return c
}

type memoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore creates a store that keeps everything in process memory.
// It is used by tests and by the API when no database is configured.
func NewMemoryStore() Store {
	return &memoryStore{state: newMemState()}
}

func (m *memoryStore) reader() *memReader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &memReader{state: m.state}
}

// WithTx runs fn against a private copy of the state and commits it when fn succeeds
func (m *memoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := m.state.clone()
	if err := fn(&memTx{memReader: memReader{state: staged}}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

// Snapshot runs fn while writers are held off
func (m *memoryStore) Snapshot(ctx context.Context, fn func(r Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memReader{state: m.state})
}

func (m *memoryStore) GetBatch(ctx context.Context, id uint64) (*domain.Batch, error) {
	return m.reader().GetBatch(ctx, id)
}

func (m *memoryStore) ListBatches(ctx context.Context) ([]domain.Batch, error) {
	return m.reader().ListBatches(ctx)
}

func (m *memoryStore) GetItem(ctx context.Context, key domain.SerialKey) (*domain.Item, error) {
	return m.reader().GetItem(ctx, key)
}

func (m *memoryStore) ListItems(ctx context.Context, batchID uint64) ([]domain.Item, error) {
	return m.reader().ListItems(ctx, batchID)
}

func (m *memoryStore) GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error) {
	return m.reader().GetShipment(ctx, sender, senderIndex)
}

func (m *memoryStore) ListShipments(ctx context.Context) ([]domain.Shipment, error) {
	return m.reader().ListShipments(ctx)
}

func (m *memoryStore) CountShipments(ctx context.Context, sender *common.Address) (uint64, error) {
	return m.reader().CountShipments(ctx, sender)
}

func (m *memoryStore) ListEscrowMovements(ctx context.Context, batchID uint64) ([]domain.EscrowMovement, error) {
	return m.reader().ListEscrowMovements(ctx, batchID)
}

func (m *memoryStore) ListEvents(ctx context.Context, batchID uint64) ([]domain.LedgerEvent, error) {
	return m.reader().ListEvents(ctx, batchID)
}

func (m *memoryStore) GetBlockCursor(_ context.Context, source string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.cursors[source], nil
}

func (m *memoryStore) SetBlockCursor(_ context.Context, source string, blockNumber uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.cursors[source] = blockNumber
	return nil
}

// memReader reads a state without locking; callers hold the store lock or own the state
type memReader struct {
	state *memState
}

func (r *memReader) GetBatch(_ context.Context, id uint64) (*domain.Batch, error) {
	return r.state.batches[id].Clone(), nil
}

func (r *memReader) ListBatches(_ context.Context) ([]domain.Batch, error) {
	batches := make([]domain.Batch, 0, len(r.state.batches))
	for _, b := range r.state.batches {
		batches = append(batches, *b.Clone())
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

func (r *memReader) GetItem(_ context.Context, key domain.SerialKey) (*domain.Item, error) {
	it, ok := r.state.items[key]
	if !ok {
		return nil, nil
	}
	item := *it
	return &item, nil
}

func (r *memReader) ListItems(_ context.Context, batchID uint64) ([]domain.Item, error) {
	b, ok := r.state.batches[batchID]
	if !ok {
		return []domain.Item{}, nil
	}
	items := make([]domain.Item, 0, len(b.ItemSerialHashes))
	for _, key := range b.ItemSerialHashes {
		if it, ok := r.state.items[key]; ok {
			items = append(items, *it)
		}
	}
	return items, nil
}

func (r *memReader) GetShipment(_ context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error) {
	for _, sh := range r.state.shipments {
		if sh.Sender == sender && sh.SenderIndex == senderIndex {
			return sh.Clone(), nil
		}
	}
	return nil, nil
}

func (r *memReader) ListShipments(_ context.Context) ([]domain.Shipment, error) {
	shipments := make([]domain.Shipment, 0, len(r.state.shipments))
	for _, sh := range r.state.shipments {
		shipments = append(shipments, *sh.Clone())
	}
	return shipments, nil
}

func (r *memReader) CountShipments(_ context.Context, sender *common.Address) (uint64, error) {
	if sender == nil {
		return uint64(len(r.state.shipments)), nil
	}
	var n uint64
	for _, sh := range r.state.shipments {
		if sh.Sender == *sender {
			n++
		}
	}
	return n, nil
}

func (r *memReader) ListEscrowMovements(_ context.Context, batchID uint64) ([]domain.EscrowMovement, error) {
	movements := []domain.EscrowMovement{}
	for _, m := range r.state.movements {
		if m.BatchID == batchID {
			movements = append(movements, m)
		}
	}
	return movements, nil
}

func (r *memReader) ListEvents(_ context.Context, batchID uint64) ([]domain.LedgerEvent, error) {
	events := []domain.LedgerEvent{}
	for _, e := range r.state.events {
		if e.BatchID == batchID {
			events = append(events, e)
		}
	}
	return events, nil
}

type memTx struct {
	memReader
}

func (t *memTx) NextBatchID(_ context.Context) (uint64, error) {
	t.state.seq++
	return t.state.seq, nil
}

func (t *memTx) InsertBatch(_ context.Context, batch *domain.Batch) error {
	if _, ok := t.state.batches[batch.ID]; ok {
		return domain.NewError(domain.KindInvalidInput, "batch %d already exists", batch.ID)
	}
	for _, key := range batch.ItemSerialHashes {
		if _, ok := t.state.items[key]; ok {
			return domain.NewError(domain.KindInvalidInput, "serial %s already registered", key.Hex())
		}
	}

	t.state.batches[batch.ID] = batch.Clone()
	for _, key := range batch.ItemSerialHashes {
		t.state.items[key] = &domain.Item{
			SerialKey: key,
			BatchID:   batch.ID,
			State:     domain.ItemNotActive,
		}
	}
	return nil
}

func (t *memTx) UpdateBatch(_ context.Context, batch *domain.Batch, from domain.BatchStatus) error {
	stored, ok := t.state.batches[batch.ID]
	if !ok || stored.Status != from {
		return domain.ErrStaleWrite
	}

	updated := stored.Clone()
	updated.Status = batch.Status
	updated.IsFunded = batch.IsFunded
	updated.IsPaid = batch.IsPaid
	updated.Escrow = cloneWei(batch.Escrow)
	updated.PickupTimestamp = batch.PickupTimestamp
	updated.DeliveryTimestamp = batch.DeliveryTimestamp
	t.state.batches[batch.ID] = updated.Clone()
	return nil
}

func (t *memTx) UpdateItemStates(_ context.Context, keys []domain.SerialKey, from, to domain.ActivationState) error {
	unique := make(map[domain.SerialKey]struct{}, len(keys))
	for _, key := range keys {
		it, ok := t.state.items[key]
		if !ok || it.State != from {
			if _, dup := unique[key]; !dup {
				return domain.ErrStaleWrite
			}
		}
		unique[key] = struct{}{}
	}
	for key := range unique {
		t.state.items[key].State = to
	}
	return nil
}

func (t *memTx) InsertShipment(_ context.Context, shipment *domain.Shipment) error {
	own, _ := t.CountShipments(context.Background(), &shipment.Sender)
	shipment.Index = uint64(len(t.state.shipments))
	shipment.SenderIndex = own
	t.state.shipments = append(t.state.shipments, shipment.Clone())
	return nil
}

func (t *memTx) UpdateShipment(_ context.Context, shipment *domain.Shipment, from domain.ShipmentStatus) error {
	if shipment.Index >= uint64(len(t.state.shipments)) {
		return domain.ErrStaleWrite
	}
	stored := t.state.shipments[shipment.Index]
	if stored.Status != from {
		return domain.ErrStaleWrite
	}
	updated := stored.Clone()
	updated.Status = shipment.Status
	updated.IsPaid = shipment.IsPaid
	updated.PickupTime = shipment.PickupTime
	updated.DeliveryTime = shipment.DeliveryTime
	t.state.shipments[shipment.Index] = updated.Clone()
	return nil
}

func (t *memTx) AppendEscrowMovement(_ context.Context, movement *domain.EscrowMovement) error {
	m := *movement
	m.Amount = cloneWei(movement.Amount)
	t.state.movements = append(t.state.movements, m)
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, event *domain.LedgerEvent, _ string) error {
	e := *event
	e.SerialKeys = append([]domain.SerialKey(nil), event.SerialKeys...)
	e.Amount = cloneWei(event.Amount)
	t.state.events = append(t.state.events, e)
	return nil
}
