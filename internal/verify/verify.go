// Package verify answers consumer authenticity queries for serial numbers.
package verify

import (
	"context"
	"strings"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/serial"
)

const defaultConcurrency = 8

// Config configures a Verifier
type Config struct {
	// Concurrency bounds the lookups VerifyMany runs at once
	Concurrency int
}

// Verifier is a read-only lookup over a ledger reader
type Verifier struct {
	reader ledger.Reader
	pool   pond.Pool
}

// New creates a verifier. Close releases its worker pool.
func New(reader ledger.Reader, cfg Config) *Verifier {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Verifier{
		reader: reader,
		pool:   pond.NewPool(concurrency),
	}
}

// Verify derives the key of serialNumber and reports its verdict.
// A serial no batch declared is INVALID without a batch; a blank serial is InvalidInput.
func (v *Verifier) Verify(ctx context.Context, serialNumber string) (*domain.Verification, error) {
	key, err := serial.DeriveKey(serialNumber)
	if err != nil {
		return nil, err
	}

	result, err := v.VerifyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	result.Serial = strings.TrimSpace(serialNumber)
	return result, nil
}

// VerifyKey reports the verdict for an already derived key
func (v *Verifier) VerifyKey(ctx context.Context, key domain.SerialKey) (*domain.Verification, error) {
	history, err := v.reader.GetHistory(ctx, key)
	if err != nil {
		return nil, err
	}

	if history == nil {
		return &domain.Verification{SerialKey: key, Status: domain.VerificationInvalid}, nil
	}

	batch := history.Batch
	return &domain.Verification{
		SerialKey: key,
		Status:    domain.VerificationFor(history.Item.State),
		Batch:     &batch,
	}, nil
}

// Result is the outcome of one serial in a bulk verification
type Result struct {
	Serial       string
	Verification *domain.Verification
	Err          error
}

// VerifyMany verifies serials on the worker pool. Results keep input order;
// one failed lookup does not fail the others.
func (v *Verifier) VerifyMany(ctx context.Context, serials []string) []Result {
	results := make([]Result, len(serials))
	tasks := make([]pond.Task, 0, len(serials))

	for i, s := range serials {
		results[i].Serial = strings.TrimSpace(s)
		tasks = append(tasks, v.pool.Submit(func() {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Verification, results[i].Err = v.Verify(ctx, s)
		}))
	}

	for i, task := range tasks {
		if err := task.Wait(); err != nil {
			logger.WarnCtx(ctx, "Verification task did not run", zap.Error(err), zap.Int("index", i))
			if results[i].Err == nil && results[i].Verification == nil {
				results[i].Err = err
			}
		}
	}
	return results
}

// Close waits for running lookups and stops the pool
func (v *Verifier) Close() {
	v.pool.StopAndWait()
}
