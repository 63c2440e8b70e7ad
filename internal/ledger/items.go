package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

// ActivateItemsByRetailer moves every listed key of a batch from NOT_ACTIVE to ACTIVE, or none of them
func (e *Engine) ActivateItemsByRetailer(ctx context.Context, retailer common.Address, batchID uint64, keys []domain.SerialKey) (*domain.Batch, error) {
	if len(keys) == 0 {
		return nil, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "at least one serial number is required")
	}

	var activated *domain.Batch
	err := e.commit(ctx, func(w *txWriter) error {
		b, err := w.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return errBatchNotFound(batchID)
		}
		if b.Retailer != retailer {
			return domain.NewError(domain.KindUnauthorized,
				"caller %s is not the retailer of batch %d", retailer.Hex(), batchID)
		}
		if !CanActivate(b.Status) {
			return domain.NewError(domain.KindInvalidTransition,
				"batch %d is %s, expected %s or %s", batchID, b.Status,
				domain.BatchStatusPickedUp, domain.BatchStatusDelivered)
		}

		seen := make(map[domain.SerialKey]struct{}, len(keys))
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				return domain.NewError(domain.KindInvalidItem, "serial %s is listed twice", key.Hex())
			}
			seen[key] = struct{}{}

			if !b.HasSerial(key) {
				return domain.NewError(domain.KindInvalidItem,
					"serial %s does not belong to batch %d", key.Hex(), batchID)
			}
			item, err := w.GetItem(ctx, key)
			if err != nil {
				return err
			}
			if item == nil || item.State != domain.ItemNotActive {
				state := domain.ActivationState("UNREGISTERED")
				if item != nil {
					state = item.State
				}
				return domain.NewError(domain.KindInvalidItem,
					"serial %s is %s, expected %s", key.Hex(), state, domain.ItemNotActive)
			}
		}

		if err := w.UpdateItemStates(ctx, keys, domain.ItemNotActive, domain.ItemActive); err != nil {
			return err
		}
		activated = b

		return w.record(ctx, &domain.LedgerEvent{
			Type:       domain.EventItemsActivated,
			BatchID:    batchID,
			Actor:      retailer,
			SerialKeys: append([]domain.SerialKey(nil), keys...),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Items activated",
		zap.Uint64("batch_id", batchID),
		zap.Int("count", len(keys)),
	)
	return activated, nil
}

// ConsumeItemByRetailer marks one ACTIVE item as sold
func (e *Engine) ConsumeItemByRetailer(ctx context.Context, retailer common.Address, key domain.SerialKey) (*domain.Item, error) {
	var consumed *domain.Item
	err := e.commit(ctx, func(w *txWriter) error {
		item, err := w.GetItem(ctx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.NewError(domain.KindInvalidItem, "serial %s is not registered", key.Hex())
		}
		b, err := w.GetBatch(ctx, item.BatchID)
		if err != nil {
			return err
		}
		if b == nil || b.Retailer != retailer {
			return domain.NewError(domain.KindUnauthorized,
				"caller %s is not the retailer of batch %d", retailer.Hex(), item.BatchID)
		}

		switch item.State {
		case domain.ItemConsumed:
			return domain.NewError(domain.KindAlreadyConsumed, "serial %s was already consumed", key.Hex())
		case domain.ItemNotActive:
			return domain.NewError(domain.KindNotActive, "serial %s is not active", key.Hex())
		}

		if err := w.UpdateItemStates(ctx, []domain.SerialKey{key}, domain.ItemActive, domain.ItemConsumed); err != nil {
			return err
		}
		item.State = domain.ItemConsumed
		consumed = item

		return w.record(ctx, &domain.LedgerEvent{
			Type:       domain.EventItemConsumed,
			BatchID:    item.BatchID,
			Actor:      retailer,
			SerialKeys: []domain.SerialKey{key},
		})
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// ConsumeResult is the outcome of consuming one key
type ConsumeResult struct {
	SerialKey domain.SerialKey
	Item      *domain.Item
	Err       error
}

// ConsumeEach consumes keys one call at a time. Each call is atomic on its own;
// a failure does not undo earlier successes. Keys left when ctx ends report ctx.Err().
func ConsumeEach(ctx context.Context, w Writer, retailer common.Address, keys []domain.SerialKey) []ConsumeResult {
	results := make([]ConsumeResult, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			results = append(results, ConsumeResult{SerialKey: key, Err: err})
			continue
		}
		item, err := w.ConsumeItemByRetailer(ctx, retailer, key)
		results = append(results, ConsumeResult{SerialKey: key, Item: item, Err: err})
	}
	return results
}
