package block

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

// defaultMaxTimestamps bounds the timestamp cache of a long running subscriber
const defaultMaxTimestamps = 4096

// Head is the cached chain head
type Head struct {
	Number    uint64
	FetchedAt time.Time
}

// Provider gives cached access to the chain head and to block timestamps.
// Contract event parsing stamps every log with its block time, and logs
// arrive grouped by block, so most lookups are served from memory.
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=Provider=MockBlockProvider,Fetcher=MockBlockFetcher
type Provider interface {
	// GetLatestBlock returns the latest block number, possibly from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetBlockTimestamp returns the timestamp of blockNumber, possibly from cache
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Fetcher reads block information from the node
type Fetcher interface {
	FetchLatestBlock(ctx context.Context) (uint64, error)
	FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Config holds configuration for the Provider
type Config struct {
	// TTL is how long the head is served from cache
	TTL time.Duration

	// StaleWindow is how long a cached head may stand in for a failed fetch
	StaleWindow time.Duration

	// MaxTimestamps caps the cached block timestamps; the oldest blocks go first.
	// Zero uses a default.
	MaxTimestamps int
}

type provider struct {
	fetcher Fetcher
	config  Config
	clock   adapter.Clock

	mu         sync.RWMutex
	head       *Head
	timestamps map[uint64]time.Time
}

// NewProvider creates a caching Provider over fetcher
func NewProvider(fetcher Fetcher, config Config, clock adapter.Clock) Provider {
	if config.MaxTimestamps <= 0 {
		config.MaxTimestamps = defaultMaxTimestamps
	}
	return &provider{
		fetcher:    fetcher,
		config:     config,
		clock:      clock,
		timestamps: make(map[uint64]time.Time),
	}
}

func (p *provider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && now.Sub(cached.FetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.Number))
		return cached.Number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.FetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Using stale block number", zap.Uint64("block_number", cached.Number), zap.Error(err))
			return cached.Number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &Head{Number: number, FetchedAt: now}
	p.mu.Unlock()

	return number, nil
}

// GetBlockTimestamp caches timestamps without expiry; a mined block's time never changes
func (p *provider) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	p.mu.RLock()
	ts, ok := p.timestamps[blockNumber]
	p.mu.RUnlock()
	if ok {
		return ts, nil
	}

	ts, err := p.fetcher.FetchBlockTimestamp(ctx, blockNumber)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to fetch block timestamp for block %d: %w", blockNumber, err)
	}

	p.mu.Lock()
	p.timestamps[blockNumber] = ts
	if len(p.timestamps) > p.config.MaxTimestamps {
		p.evictOldest(len(p.timestamps) - p.config.MaxTimestamps)
	}
	p.mu.Unlock()

	return ts, nil
}

// evictOldest drops the n lowest block numbers. Caller holds mu.
func (p *provider) evictOldest(n int) {
	blocks := make([]uint64, 0, len(p.timestamps))
	for b := range p.timestamps {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	for _, b := range blocks[:n] {
		delete(p.timestamps, b)
	}
}
