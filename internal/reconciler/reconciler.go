// Package reconciler keeps a local projection of ledger batches and shipments.
// The projection is rebuilt by full rescans triggered by ledger notifications.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

const defaultScanTimeout = 30 * time.Second

// Lister is the part of the ledger a rescan reads
type Lister interface {
	GetAllBatches(ctx context.Context) ([]domain.Batch, error)
	GetAllShipments(ctx context.Context) ([]domain.Shipment, error)
}

// Config configures a Reconciler
type Config struct {
	// EventTypes trigger a rescan. Empty means every ledger event; batch_created is always included.
	EventTypes []domain.EventType
	// ScanTimeout bounds one rescan
	ScanTimeout time.Duration
}

// Reconciler holds the projection. It is safe for concurrent use.
type Reconciler struct {
	lister      Lister
	scanTimeout time.Duration
	sub         ledger.Subscription

	mu        sync.RWMutex
	batches   []domain.Batch
	shipments []domain.Shipment
	applied   uint64

	scanMu     sync.Mutex
	generation uint64
	cancelScan context.CancelFunc

	trigger   chan struct{}
	refreshed chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New subscribes to notifier and seeds the projection with one full scan.
// The reconciler stops when ctx ends or Close is called.
func New(ctx context.Context, lister Lister, notifier ledger.Notifier, cfg Config) (*Reconciler, error) {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = defaultScanTimeout
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &Reconciler{
		lister:      lister,
		scanTimeout: cfg.ScanTimeout,
		trigger:     make(chan struct{}, 1),
		refreshed:   make(chan struct{}, 1),
		ctx:         rctx,
		cancel:      cancel,
	}

	// Subscribe before seeding so commits racing the seed scan leave a pending trigger
	sub, err := notifier.Subscribe(rctx, Filter(cfg.EventTypes), r.notify)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to ledger events: %w", err)
	}
	r.sub = sub

	batches, shipments, err := r.scan(rctx)
	if err != nil {
		sub.Unsubscribe()
		cancel()
		return nil, fmt.Errorf("failed to seed projection: %w", err)
	}
	r.batches, r.shipments = batches, shipments

	r.wg.Add(1)
	go r.loop()

	logger.InfoCtx(ctx, "Projection seeded",
		zap.Int("batches", len(batches)),
		zap.Int("shipments", len(shipments)),
	)
	return r, nil
}

// Filter returns the event filter for the configured types
func Filter(types []domain.EventType) domain.EventFilter {
	if len(types) == 0 {
		return domain.EventFilter(domain.AllEventTypes())
	}
	filter := domain.EventFilter{domain.EventBatchCreated}
	for _, t := range types {
		if !filter.Match(t) {
			filter = append(filter, t)
		}
	}
	return filter
}

// notify coalesces notifications into the one-slot trigger
func (r *Reconciler) notify(event *domain.LedgerEvent) {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Reconciler) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.trigger:
			r.startRescan()
		}
	}
}

// startRescan cancels the in-flight rescan and starts a newer one
func (r *Reconciler) startRescan() {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	if r.cancelScan != nil {
		r.cancelScan()
	}
	r.generation++
	gen := r.generation

	scanCtx, cancel := context.WithTimeout(r.ctx, r.scanTimeout)
	r.cancelScan = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.rescan(scanCtx, gen)
	}()
}

func (r *Reconciler) rescan(ctx context.Context, gen uint64) {
	batches, shipments, err := r.scan(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			logger.DebugCtx(ctx, "Rescan superseded", zap.Uint64("generation", gen))
			return
		}
		logger.WarnCtx(ctx, "Rescan failed, keeping previous projection",
			zap.Error(err),
			zap.Uint64("generation", gen),
		)
		return
	}

	r.mu.Lock()
	if gen <= r.applied {
		r.mu.Unlock()
		return
	}
	r.batches, r.shipments, r.applied = batches, shipments, gen
	r.mu.Unlock()

	select {
	case r.refreshed <- struct{}{}:
	default:
	}
}

func (r *Reconciler) scan(ctx context.Context) ([]domain.Batch, []domain.Shipment, error) {
	batches, err := r.lister.GetAllBatches(ctx)
	if err != nil {
		return nil, nil, err
	}
	shipments, err := r.lister.GetAllShipments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return batches, shipments, nil
}

// Batches returns the projected batches in ledger order
func (r *Reconciler) Batches() []domain.Batch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Batch, len(r.batches))
	for i := range r.batches {
		out[i] = *r.batches[i].Clone()
	}
	return out
}

// Shipments returns the projected shipments in ledger order
func (r *Reconciler) Shipments() []domain.Shipment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Shipment, len(r.shipments))
	for i := range r.shipments {
		out[i] = *r.shipments[i].Clone()
	}
	return out
}

// Refreshed is signalled after a rescan is applied
func (r *Reconciler) Refreshed() <-chan struct{} {
	return r.refreshed
}

// Close unsubscribes and waits for in-flight rescans. Safe to call more than once.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		if r.sub != nil {
			r.sub.Unsubscribe()
		}
		r.cancel()
		r.wg.Wait()
	})
}
