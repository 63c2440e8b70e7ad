package ledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

// RetryConfig bounds read retries
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig is used for zero fields
var DefaultRetryConfig = RetryConfig{
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
	MaxElapsedTime:  15 * time.Second,
}

type retryingReader struct {
	next Reader
	cfg  RetryConfig
}

// NewRetryingReader retries reads that fail with TransportFailure using exponential backoff.
// Any other error is returned at once. Writes are never wrapped.
func NewRetryingReader(next Reader, cfg RetryConfig) Reader {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultRetryConfig.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultRetryConfig.MaxInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = DefaultRetryConfig.MaxElapsedTime
	}
	return &retryingReader{next: next, cfg: cfg}
}

func retryRead[T any](ctx context.Context, cfg RetryConfig, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = cfg.MaxElapsedTime

	var result T
	operation := func() error {
		v, err := fn()
		if err != nil {
			if domain.IsTransportFailure(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = v
		return nil
	}

	var attempts int
	notify := func(err error, next time.Duration) {
		attempts++
		logger.WarnCtx(ctx, "Ledger read failed, retrying",
			zap.String("operation", op),
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Duration("next_retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (r *retryingReader) GetAllBatches(ctx context.Context) ([]domain.Batch, error) {
	return retryRead(ctx, r.cfg, "get_all_batches", func() ([]domain.Batch, error) {
		return r.next.GetAllBatches(ctx)
	})
}

func (r *retryingReader) GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error) {
	return retryRead(ctx, r.cfg, "get_batch", func() (*domain.Batch, error) {
		return r.next.GetBatch(ctx, batchID)
	})
}

func (r *retryingReader) GetHistory(ctx context.Context, key domain.SerialKey) (*domain.History, error) {
	return retryRead(ctx, r.cfg, "get_history", func() (*domain.History, error) {
		return r.next.GetHistory(ctx, key)
	})
}

func (r *retryingReader) GetAllShipments(ctx context.Context) ([]domain.Shipment, error) {
	return retryRead(ctx, r.cfg, "get_all_shipments", func() ([]domain.Shipment, error) {
		return r.next.GetAllShipments(ctx)
	})
}

func (r *retryingReader) GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error) {
	return retryRead(ctx, r.cfg, "get_shipment", func() (*domain.Shipment, error) {
		return r.next.GetShipment(ctx, sender, senderIndex)
	})
}

func (r *retryingReader) GetShipmentCount(ctx context.Context, sender common.Address) (uint64, error) {
	return retryRead(ctx, r.cfg, "get_shipment_count", func() (uint64, error) {
		return r.next.GetShipmentCount(ctx, sender)
	})
}

func (r *retryingReader) ShipmentCount(ctx context.Context) (uint64, error) {
	return retryRead(ctx, r.cfg, "shipment_count", func() (uint64, error) {
		return r.next.ShipmentCount(ctx)
	})
}
