package ledger

import (
	"sort"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// NewestBatchesFirst returns a copy of batches ordered by descending id
func NewestBatchesFirst(batches []domain.Batch) []domain.Batch {
	out := append([]domain.Batch(nil), batches...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// NewestShipmentsFirst returns a copy of shipments ordered by descending global index
func NewestShipmentsFirst(shipments []domain.Shipment) []domain.Shipment {
	out := append([]domain.Shipment(nil), shipments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index > out[j].Index })
	return out
}
