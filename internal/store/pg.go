package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/store/schema"
)

// ledgerWriteLock is the advisory lock key held by every write transaction
const ledgerWriteLock int64 = 0x4841525645535431

type pgStore struct {
	pgReader
	CursorStore
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{
		pgReader:    pgReader{db: db},
		CursorStore: NewCursorStore(db),
		db:          db,
	}
}

// Migrate creates or updates the ledger tables
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	maxIdleConns = min(maxIdleConns, maxOpenConns)

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// WithTx runs fn in a transaction holding the ledger-wide advisory lock
func (s *pgStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ledgerWriteLock).Error; err != nil {
			return fmt.Errorf("failed to acquire ledger write lock: %w", err)
		}
		return fn(&pgTx{pgReader: pgReader{db: tx, lock: true}})
	})
}

// Snapshot runs fn in a read-only repeatable-read transaction
func (s *pgStore) Snapshot(ctx context.Context, fn func(r Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgReader{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// pgReader implements Reader. With lock set, single-row reads take row locks.
type pgReader struct {
	db   *gorm.DB
	lock bool
}

func (r *pgReader) row(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// GetBatch retrieves a batch with its declared serial keys
func (r *pgReader) GetBatch(ctx context.Context, id uint64) (*domain.Batch, error) {
	var row schema.Batch
	err := r.row(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	var items []schema.Item
	err = r.db.WithContext(ctx).Where("batch_id = ?", id).Order("position ASC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get batch items: %w", err)
	}

	return fromSchemaBatch(&row, items)
}

// ListBatches retrieves every batch in ascending id order
func (r *pgReader) ListBatches(ctx context.Context) ([]domain.Batch, error) {
	var rows []schema.Batch
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	var items []schema.Item
	if err := r.db.WithContext(ctx).Order("batch_id ASC, position ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	byBatch := make(map[uint64][]schema.Item, len(rows))
	for _, it := range items {
		byBatch[it.BatchID] = append(byBatch[it.BatchID], it)
	}

	batches := make([]domain.Batch, 0, len(rows))
	for i := range rows {
		b, err := fromSchemaBatch(&rows[i], byBatch[rows[i].ID])
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, nil
}

// GetItem retrieves an item by serial key
func (r *pgReader) GetItem(ctx context.Context, key domain.SerialKey) (*domain.Item, error) {
	var row schema.Item
	err := r.row(ctx).Where("serial_key = ?", key.Hex()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return fromSchemaItem(&row), nil
}

// ListItems retrieves the items of a batch in declaration order
func (r *pgReader) ListItems(ctx context.Context, batchID uint64) ([]domain.Item, error) {
	var rows []schema.Item
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("position ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	items := make([]domain.Item, 0, len(rows))
	for i := range rows {
		items = append(items, *fromSchemaItem(&rows[i]))
	}
	return items, nil
}

// GetShipment retrieves a shipment by sender and the sender's own index
func (r *pgReader) GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error) {
	var row schema.Shipment
	err := r.row(ctx).Where("sender = ? AND sender_index = ?", sender.Hex(), senderIndex).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	return fromSchemaShipment(&row)
}

// ListShipments retrieves every shipment in global order
func (r *pgReader) ListShipments(ctx context.Context) ([]domain.Shipment, error) {
	var rows []schema.Shipment
	if err := r.db.WithContext(ctx).Order("shipment_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	shipments := make([]domain.Shipment, 0, len(rows))
	for i := range rows {
		s, err := fromSchemaShipment(&rows[i])
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *s)
	}
	return shipments, nil
}

// CountShipments counts shipments, optionally only those of one sender
func (r *pgReader) CountShipments(ctx context.Context, sender *common.Address) (uint64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&schema.Shipment{})
	if sender != nil {
		q = q.Where("sender = ?", sender.Hex())
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return uint64(n), nil //nolint:gosec,G115
}

// ListEscrowMovements retrieves the escrow journal of a batch in commit order
func (r *pgReader) ListEscrowMovements(ctx context.Context, batchID uint64) ([]domain.EscrowMovement, error) {
	var rows []schema.EscrowMovement
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("created_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list escrow movements: %w", err)
	}
	movements := make([]domain.EscrowMovement, 0, len(rows))
	for i := range rows {
		m, err := fromSchemaMovement(&rows[i])
		if err != nil {
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, nil
}

// ListEvents retrieves journaled events of a batch in commit order
func (r *pgReader) ListEvents(ctx context.Context, batchID uint64) ([]domain.LedgerEvent, error) {
	var rows []schema.LedgerEvent
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("cursor ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]domain.LedgerEvent, 0, len(rows))
	for _, row := range rows {
		var e domain.LedgerEvent
		if err := json.Unmarshal(row.Payload, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event %s: %w", row.EventID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

type pgTx struct {
	pgReader
}

// NextBatchID allocates the next batch id
func (t *pgTx) NextBatchID(ctx context.Context) (uint64, error) {
	id, err := nextSequence(t.db.WithContext(ctx), batchSequenceKey)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate batch id: %w", err)
	}
	return id, nil
}

// InsertBatch stores a new batch and registers its serial keys as NOT_ACTIVE items
func (t *pgTx) InsertBatch(ctx context.Context, batch *domain.Batch) error {
	row := toSchemaBatch(batch)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if len(batch.ItemSerialHashes) == 0 {
		return nil
	}
	items := make([]schema.Item, 0, len(batch.ItemSerialHashes))
	for i, key := range batch.ItemSerialHashes {
		items = append(items, schema.Item{
			SerialKey: key.Hex(),
			BatchID:   batch.ID,
			Position:  i,
			State:     string(domain.ItemNotActive),
		})
	}
	if err := t.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(&items, 1000).Error; err != nil {
		return fmt.Errorf("failed to insert items: %w", err)
	}
	return nil
}

// UpdateBatch writes the mutable batch columns guarded by the expected status
func (t *pgTx) UpdateBatch(ctx context.Context, batch *domain.Batch, from domain.BatchStatus) error {
	res := t.db.WithContext(ctx).
		Model(&schema.Batch{}).
		Where("id = ? AND status = ?", batch.ID, int16(from)).
		Updates(map[string]interface{}{
			"status":       int16(batch.Status),
			"is_funded":    batch.IsFunded,
			"is_paid":      batch.IsPaid,
			"escrow_wei":   weiString(batch.Escrow),
			"picked_up_at": batch.PickupTimestamp,
			"delivered_at": batch.DeliveryTimestamp,
			"updated_at":   gorm.Expr("now()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update batch: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleWrite
	}
	return nil
}

// UpdateItemStates moves every key from one state to another, or none of them
func (t *pgTx) UpdateItemStates(ctx context.Context, keys []domain.SerialKey, from, to domain.ActivationState) error {
	hexKeys := uniqueHex(keys)
	if len(hexKeys) == 0 {
		return nil
	}

	res := t.db.WithContext(ctx).
		Model(&schema.Item{}).
		Where("serial_key IN ? AND state = ?", hexKeys, string(from)).
		Updates(map[string]interface{}{
			"state":      string(to),
			"updated_at": gorm.Expr("now()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update items: %w", res.Error)
	}
	if res.RowsAffected != int64(len(hexKeys)) {
		return domain.ErrStaleWrite
	}
	return nil
}

// InsertShipment stores a new shipment, assigning Index and SenderIndex
func (t *pgTx) InsertShipment(ctx context.Context, shipment *domain.Shipment) error {
	total, err := t.CountShipments(ctx, nil)
	if err != nil {
		return err
	}
	own, err := t.CountShipments(ctx, &shipment.Sender)
	if err != nil {
		return err
	}
	shipment.Index = total
	shipment.SenderIndex = own

	row := toSchemaShipment(shipment)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

// UpdateShipment writes the mutable shipment columns guarded by the expected status
func (t *pgTx) UpdateShipment(ctx context.Context, shipment *domain.Shipment, from domain.ShipmentStatus) error {
	res := t.db.WithContext(ctx).
		Model(&schema.Shipment{}).
		Where("shipment_index = ? AND status = ?", shipment.Index, int16(from)).
		Updates(map[string]interface{}{
			"status":        int16(shipment.Status),
			"is_paid":       shipment.IsPaid,
			"pickup_time":   shipment.PickupTime,
			"delivery_time": shipment.DeliveryTime,
			"updated_at":    gorm.Expr("now()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update shipment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleWrite
	}
	return nil
}

// AppendEscrowMovement journals an escrow change
func (t *pgTx) AppendEscrowMovement(ctx context.Context, movement *domain.EscrowMovement) error {
	row := toSchemaMovement(movement)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append escrow movement: %w", err)
	}
	return nil
}

// AppendEvent journals a ledger event with its canonical digest
func (t *pgTx) AppendEvent(ctx context.Context, event *domain.LedgerEvent, digest string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	row := schema.LedgerEvent{
		EventID:       event.ID,
		EventType:     string(event.Type),
		ShipmentIndex: event.ShipmentIndex,
		Actor:         event.Actor.Hex(),
		Payload:       payload,
		Digest:        digest,
		OccurredAt:    event.Timestamp,
	}
	if event.BatchID != 0 {
		id := event.BatchID
		row.BatchID = &id
	}

	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func uniqueHex(keys []domain.SerialKey) []string {
	seen := make(map[domain.SerialKey]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k.Hex())
	}
	return out
}
