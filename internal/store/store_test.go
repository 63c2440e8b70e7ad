package store

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

var (
	testFarmer      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testDistributor = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testRetailer    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testHarvestTime = time.Unix(1_700_000_000, 0).UTC()
)

func testKey(serial string) domain.SerialKey {
	return domain.SerialKey(crypto.Keccak256Hash([]byte(serial)))
}

// buildTestBatch creates a HARVESTED batch declaring the given serials
func buildTestBatch(id uint64, serials ...string) *domain.Batch {
	keys := make([]domain.SerialKey, 0, len(serials))
	for _, s := range serials {
		keys = append(keys, testKey(s))
	}
	harvested := testHarvestTime
	return &domain.Batch{
		ID:               id,
		ProduceName:      "Tomatoes",
		FarmLocation:     "Valley Farm",
		IPFSHash:         "N/A",
		Farmer:           testFarmer,
		Distributor:      testDistributor,
		Retailer:         testRetailer,
		Price:            big.NewInt(1_000_000_000_000_000_000),
		Escrow:           big.NewInt(0),
		Status:           domain.BatchStatusHarvested,
		HarvestTimestamp: &harvested,
		ItemSerialHashes: keys,
	}
}

// insertTestBatch allocates an id and inserts a batch in its own transaction
func insertTestBatch(t *testing.T, store Store, serials ...string) *domain.Batch {
	t.Helper()
	var batch *domain.Batch
	err := store.WithTx(context.Background(), func(tx Tx) error {
		id, err := tx.NextBatchID(context.Background())
		if err != nil {
			return err
		}
		batch = buildTestBatch(id, serials...)
		return tx.InsertBatch(context.Background(), batch)
	})
	require.NoError(t, err)
	return batch
}

func assertSameTime(t *testing.T, expected time.Time, actual *time.Time) {
	t.Helper()
	require.NotNil(t, actual)
	assert.True(t, expected.Equal(*actual), "expected %s, got %s", expected, *actual)
}

// =============================================================================
// Tests
// =============================================================================

func testBatchInsertAndGet(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("batch ids start at one and increase", func(t *testing.T) {
		first := insertTestBatch(t, store, "SN-1", "SN-2")
		second := insertTestBatch(t, store)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)
	})

	t.Run("stored batch round trips", func(t *testing.T) {
		got, err := store.GetBatch(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "Tomatoes", got.ProduceName)
		assert.Equal(t, "Valley Farm", got.FarmLocation)
		assert.Equal(t, "N/A", got.IPFSHash)
		assert.Equal(t, testFarmer, got.Farmer)
		assert.Equal(t, testDistributor, got.Distributor)
		assert.Equal(t, testRetailer, got.Retailer)
		assert.Equal(t, 0, got.Price.Cmp(big.NewInt(1_000_000_000_000_000_000)))
		assert.Equal(t, 0, got.Escrow.Sign())
		assert.Equal(t, domain.BatchStatusHarvested, got.Status)
		assertSameTime(t, testHarvestTime, got.HarvestTimestamp)
		assert.Nil(t, got.PickupTimestamp)
		assert.Equal(t, []domain.SerialKey{testKey("SN-1"), testKey("SN-2")}, got.ItemSerialHashes)
	})

	t.Run("items are registered as not active in declaration order", func(t *testing.T) {
		items, err := store.ListItems(ctx, 1)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, testKey("SN-1"), items[0].SerialKey)
		assert.Equal(t, testKey("SN-2"), items[1].SerialKey)
		for _, it := range items {
			assert.Equal(t, domain.ItemNotActive, it.State)
			assert.Equal(t, uint64(1), it.BatchID)
		}

		item, err := store.GetItem(ctx, testKey("SN-2"))
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, uint64(1), item.BatchID)
	})

	t.Run("missing records return nil without error", func(t *testing.T) {
		b, err := store.GetBatch(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, b)

		it, err := store.GetItem(ctx, testKey("unknown"))
		require.NoError(t, err)
		assert.Nil(t, it)
	})

	t.Run("list batches is ordered by id", func(t *testing.T) {
		batches, err := store.ListBatches(ctx)
		require.NoError(t, err)
		require.Len(t, batches, 2)
		assert.Equal(t, uint64(1), batches[0].ID)
		assert.Equal(t, uint64(2), batches[1].ID)
		assert.Len(t, batches[0].ItemSerialHashes, 2)
		assert.Empty(t, batches[1].ItemSerialHashes)
	})
}

func testUpdateBatch(t *testing.T, store Store) {
	ctx := context.Background()
	batch := insertTestBatch(t, store, "SN-A")

	t.Run("update applies when status matches", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Tx) error {
			b, err := tx.GetBatch(ctx, batch.ID)
			if err != nil {
				return err
			}
			b.SetStatus(domain.BatchStatusFunded)
			b.Escrow = new(big.Int).Set(b.Price)
			return tx.UpdateBatch(ctx, b, domain.BatchStatusHarvested)
		})
		require.NoError(t, err)

		got, err := store.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchStatusFunded, got.Status)
		assert.True(t, got.IsFunded)
		assert.False(t, got.IsPaid)
		assert.Equal(t, 0, got.Escrow.Cmp(got.Price))
	})

	t.Run("stale expected status is rejected", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Tx) error {
			b := batch.Clone()
			b.SetStatus(domain.BatchStatusFunded)
			return tx.UpdateBatch(ctx, b, domain.BatchStatusHarvested)
		})
		assert.ErrorIs(t, err, domain.ErrStaleWrite)
	})

	t.Run("timestamps are written once set", func(t *testing.T) {
		pickup := testHarvestTime.Add(time.Hour)
		err := store.WithTx(ctx, func(tx Tx) error {
			b, err := tx.GetBatch(ctx, batch.ID)
			if err != nil {
				return err
			}
			b.SetStatus(domain.BatchStatusPickedUp)
			b.PickupTimestamp = &pickup
			return tx.UpdateBatch(ctx, b, domain.BatchStatusFunded)
		})
		require.NoError(t, err)

		got, err := store.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assertSameTime(t, pickup, got.PickupTimestamp)
		assert.Nil(t, got.DeliveryTimestamp)
	})
}

func testUpdateItemStates(t *testing.T, store Store) {
	ctx := context.Background()
	batch := insertTestBatch(t, store, "SN-X", "SN-Y")
	keys := batch.ItemSerialHashes

	t.Run("all keys move together", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateItemStates(ctx, keys, domain.ItemNotActive, domain.ItemActive)
		})
		require.NoError(t, err)

		items, err := store.ListItems(ctx, batch.ID)
		require.NoError(t, err)
		for _, it := range items {
			assert.Equal(t, domain.ItemActive, it.State)
		}
	})

	t.Run("one stale key rolls back the whole update", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateItemStates(ctx, keys[:1], domain.ItemActive, domain.ItemConsumed)
		})
		require.NoError(t, err)

		err = store.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateItemStates(ctx, keys, domain.ItemActive, domain.ItemConsumed)
		})
		assert.ErrorIs(t, err, domain.ErrStaleWrite)

		second, err := store.GetItem(ctx, keys[1])
		require.NoError(t, err)
		assert.Equal(t, domain.ItemActive, second.State)
	})

	t.Run("unknown key is stale", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateItemStates(ctx, []domain.SerialKey{testKey("nope")}, domain.ItemActive, domain.ItemConsumed)
		})
		assert.ErrorIs(t, err, domain.ErrStaleWrite)
	})
}

func testWithTxRollback(t *testing.T, store Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx Tx) error {
		id, err := tx.NextBatchID(ctx)
		if err != nil {
			return err
		}
		if err := tx.InsertBatch(ctx, buildTestBatch(id, "SN-R")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	batches, err := store.ListBatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)

	item, err := store.GetItem(ctx, testKey("SN-R"))
	require.NoError(t, err)
	assert.Nil(t, item)

	// the sequence is rolled back with the batch
	next := insertTestBatch(t, store)
	assert.Equal(t, uint64(1), next.ID)
}

func testShipments(t *testing.T, store Store) {
	ctx := context.Background()
	sender := testFarmer
	other := testDistributor

	insert := func(from, to common.Address) *domain.Shipment {
		s := &domain.Shipment{
			Sender:   from,
			Receiver: to,
			Distance: 42,
			Price:    big.NewInt(500),
			Status:   domain.ShipmentPending,
		}
		require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
			return tx.InsertShipment(ctx, s)
		}))
		return s
	}

	first := insert(sender, testRetailer)
	second := insert(other, testRetailer)
	third := insert(sender, testDistributor)

	t.Run("indexes are assigned globally and per sender", func(t *testing.T) {
		assert.Equal(t, uint64(0), first.Index)
		assert.Equal(t, uint64(0), first.SenderIndex)
		assert.Equal(t, uint64(1), second.Index)
		assert.Equal(t, uint64(0), second.SenderIndex)
		assert.Equal(t, uint64(2), third.Index)
		assert.Equal(t, uint64(1), third.SenderIndex)
	})

	t.Run("counts", func(t *testing.T) {
		total, err := store.CountShipments(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total)

		own, err := store.CountShipments(ctx, &sender)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), own)
	})

	t.Run("get by sender index", func(t *testing.T) {
		got, err := store.GetShipment(ctx, sender, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(2), got.Index)
		assert.Equal(t, testDistributor, got.Receiver)
		assert.Equal(t, 0, got.Price.Cmp(big.NewInt(500)))

		missing, err := store.GetShipment(ctx, other, 5)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("update is guarded by status", func(t *testing.T) {
		pickup := testHarvestTime
		s := first.Clone()
		s.Status = domain.ShipmentInTransit
		s.PickupTime = &pickup
		require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateShipment(ctx, s, domain.ShipmentPending)
		}))

		err := store.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateShipment(ctx, s, domain.ShipmentPending)
		})
		assert.ErrorIs(t, err, domain.ErrStaleWrite)

		all, err := store.ListShipments(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, domain.ShipmentInTransit, all[0].Status)
		assertSameTime(t, pickup, all[0].PickupTime)
		assert.Equal(t, domain.ShipmentPending, all[1].Status)
	})
}

func testJournals(t *testing.T, store Store) {
	ctx := context.Background()
	batch := insertTestBatch(t, store, "SN-J")
	at := testHarvestTime.Add(time.Minute)

	err := store.WithTx(ctx, func(tx Tx) error {
		if err := tx.AppendEscrowMovement(ctx, &domain.EscrowMovement{
			ID:        "01HZZZZZZZZZZZZZZZZZZZZZZ1",
			BatchID:   batch.ID,
			Kind:      domain.MovementDeposit,
			From:      testRetailer,
			To:        domain.EscrowAccount,
			Amount:    big.NewInt(1000),
			CreatedAt: at,
		}); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, &domain.LedgerEvent{
			ID:         "01HZZZZZZZZZZZZZZZZZZZZZZ2",
			Type:       domain.EventBatchFunded,
			BatchID:    batch.ID,
			Actor:      testRetailer,
			SerialKeys: []domain.SerialKey{testKey("SN-J")},
			Amount:     big.NewInt(1000),
			Timestamp:  at,
		}, "0x"+common.Bytes2Hex(make([]byte, 32)))
	})
	require.NoError(t, err)

	movements, err := store.ListEscrowMovements(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementDeposit, movements[0].Kind)
	assert.Equal(t, testRetailer, movements[0].From)
	assert.Equal(t, domain.EscrowAccount, movements[0].To)
	assert.Equal(t, 0, movements[0].Amount.Cmp(big.NewInt(1000)))

	events, err := store.ListEvents(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventBatchFunded, events[0].Type)
	assert.Equal(t, []domain.SerialKey{testKey("SN-J")}, events[0].SerialKeys)
	assert.Equal(t, 0, events[0].Amount.Cmp(big.NewInt(1000)))
	assert.True(t, at.Equal(events[0].Timestamp))

	empty, err := store.ListEvents(ctx, batch.ID+1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testSnapshot(t *testing.T, store Store) {
	ctx := context.Background()
	insertTestBatch(t, store, "SN-S1")
	insertTestBatch(t, store, "SN-S2")

	var batches []domain.Batch
	var shipments uint64
	err := store.Snapshot(ctx, func(r Reader) error {
		var err error
		batches, err = r.ListBatches(ctx)
		if err != nil {
			return err
		}
		shipments, err = r.CountShipments(ctx, nil)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, batches, 2)
	assert.Zero(t, shipments)
}

func testBlockCursor(t *testing.T, store Store) {
	ctx := context.Background()

	cursor, err := store.GetBlockCursor(ctx, "escrow")
	require.NoError(t, err)
	assert.Zero(t, cursor)

	require.NoError(t, store.SetBlockCursor(ctx, "escrow", 12345))
	require.NoError(t, store.SetBlockCursor(ctx, "escrow", 12400))

	cursor, err = store.GetBlockCursor(ctx, "escrow")
	require.NoError(t, err)
	assert.Equal(t, uint64(12400), cursor)

	other, err := store.GetBlockCursor(ctx, "shipments")
	require.NoError(t, err)
	assert.Zero(t, other)
}

// RunStoreTests runs every store test against a Store implementation.
// initDB must return an empty store.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"BatchInsertAndGet", testBatchInsertAndGet},
		{"UpdateBatch", testUpdateBatch},
		{"UpdateItemStates", testUpdateItemStates},
		{"WithTxRollback", testWithTxRollback},
		{"Shipments", testShipments},
		{"Journals", testJournals},
		{"Snapshot", testSnapshot},
		{"BlockCursor", testBlockCursor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
