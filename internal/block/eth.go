package block

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/harvestline/escrow-ledger/internal/adapter"
)

type ethFetcher struct {
	client adapter.EthClient
}

// NewEthFetcher reads heads and headers over JSON-RPC
func NewEthFetcher(client adapter.EthClient) Fetcher {
	return &ethFetcher{client: client}
}

func (f *ethFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	return f.client.BlockNumber(ctx)
}

func (f *ethFetcher) FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := f.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get block %d: %w", blockNumber, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil //nolint:gosec,G115
}
