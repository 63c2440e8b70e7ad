package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
)

func TestNewestBatchesFirst(t *testing.T) {
	in := []domain.Batch{{ID: 1}, {ID: 3}, {ID: 2}}
	out := ledger.NewestBatchesFirst(in)

	assert.Equal(t, []uint64{3, 2, 1}, []uint64{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, uint64(1), in[0].ID, "input is not reordered")
	assert.Empty(t, ledger.NewestBatchesFirst(nil))
}

func TestNewestShipmentsFirst(t *testing.T) {
	out := ledger.NewestShipmentsFirst([]domain.Shipment{{Index: 0}, {Index: 2}, {Index: 1}})
	assert.Equal(t, []uint64{2, 1, 0}, []uint64{out[0].Index, out[1].Index, out[2].Index})
}
