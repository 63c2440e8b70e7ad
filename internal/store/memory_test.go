package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

func initMemoryTestDB(t *testing.T) Store {
	return NewMemoryStore()
}

func cleanupMemoryTestDB(t *testing.T) {}

// TestMemoryStore runs all store tests against the in-memory store
func TestMemoryStore(t *testing.T) {
	RunStoreTests(t, initMemoryTestDB, cleanupMemoryTestDB)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	batch := insertTestBatch(t, store, "SN-1")

	got, err := store.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	got.Status = domain.BatchStatusRefunded
	got.Price.SetInt64(1)
	got.ItemSerialHashes[0] = testKey("other")

	again, err := store.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusHarvested, again.Status)
	assert.Equal(t, "1000000000000000000", again.Price.String())
	assert.Equal(t, testKey("SN-1"), again.ItemSerialHashes[0])
}

func TestMemoryStore_DuplicateSerialRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	insertTestBatch(t, store, "SN-1")

	err := store.WithTx(ctx, func(tx Tx) error {
		return tx.InsertBatch(ctx, buildTestBatch(2, "SN-1"))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMemoryStore_ConcurrentTransactionsSerialize(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithTx(ctx, func(tx Tx) error {
				id, err := tx.NextBatchID(ctx)
				if err != nil {
					return err
				}
				return tx.InsertBatch(ctx, buildTestBatch(id))
			})
		}()
	}
	wg.Wait()

	batches, err := store.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 50)
	for i, b := range batches {
		assert.Equal(t, uint64(i+1), b.ID)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	err := store.WithTx(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
