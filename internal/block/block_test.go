package block_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/block"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type testProviderMocks struct {
	fetcher  *mocks.MockBlockFetcher
	clock    *mocks.MockClock
	provider block.Provider
}

func setupTest(t *testing.T, cfg block.Config) *testProviderMocks {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockBlockFetcher(ctrl)
	clock := mocks.NewMockClock(ctrl)
	return &testProviderMocks{
		fetcher:  fetcher,
		clock:    clock,
		provider: block.NewProvider(fetcher, cfg, clock),
	}
}

var (
	testConfig = block.Config{TTL: 10 * time.Second, StaleWindow: 2 * time.Minute}
	epoch      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestGetLatestBlock_Caching(t *testing.T) {
	tm := setupTest(t, testConfig)
	ctx := context.Background()

	tm.clock.EXPECT().Now().Return(epoch)
	tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(1000), nil)
	n, err := tm.provider.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), n)

	// Within the TTL the fetcher is not asked again
	tm.clock.EXPECT().Now().Return(epoch.Add(5 * time.Second))
	n, err = tm.provider.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), n)

	tm.clock.EXPECT().Now().Return(epoch.Add(15 * time.Second))
	tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(1100), nil)
	n, err = tm.provider.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), n)
}

func TestGetLatestBlock_FetchFailure(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    uint64
		wantErr bool
	}{
		{name: "stale head within window", elapsed: time.Minute, want: 1000},
		{name: "stale head beyond window", elapsed: 3 * time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTest(t, testConfig)
			ctx := context.Background()

			tm.clock.EXPECT().Now().Return(epoch)
			tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(1000), nil)
			_, err := tm.provider.GetLatestBlock(ctx)
			require.NoError(t, err)

			tm.clock.EXPECT().Now().Return(epoch.Add(tt.elapsed))
			tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(0), errors.New("rpc down"))
			n, err := tm.provider.GetLatestBlock(ctx)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "rpc down")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestGetLatestBlock_NoCacheAndFetchFails(t *testing.T) {
	tm := setupTest(t, testConfig)
	ctx := context.Background()

	tm.clock.EXPECT().Now().Return(epoch)
	tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(0), errors.New("rpc down"))

	_, err := tm.provider.GetLatestBlock(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid cache available")
}

func TestGetBlockTimestamp_CachesForever(t *testing.T) {
	tm := setupTest(t, testConfig)
	ctx := context.Background()

	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(7)).Return(epoch, nil).Times(1)
	for i := 0; i < 3; i++ {
		ts, err := tm.provider.GetBlockTimestamp(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, epoch, ts)
	}
}

func TestGetBlockTimestamp_Error(t *testing.T) {
	tm := setupTest(t, testConfig)
	ctx := context.Background()

	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(7)).Return(time.Time{}, errors.New("header not found"))
	_, err := tm.provider.GetBlockTimestamp(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 7")

	// Failures are not cached
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(7)).Return(epoch, nil)
	ts, err := tm.provider.GetBlockTimestamp(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, epoch, ts)
}

func TestGetBlockTimestamp_EvictsOldestBlocks(t *testing.T) {
	tm := setupTest(t, block.Config{MaxTimestamps: 2})
	ctx := context.Background()

	for _, n := range []uint64{1, 2, 3} {
		tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, n).Return(epoch.Add(time.Duration(n)*time.Second), nil)
		_, err := tm.provider.GetBlockTimestamp(ctx, n)
		require.NoError(t, err)
	}

	// 2 and 3 are still cached, 1 was evicted
	_, err := tm.provider.GetBlockTimestamp(ctx, 3)
	require.NoError(t, err)
	_, err = tm.provider.GetBlockTimestamp(ctx, 2)
	require.NoError(t, err)
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(1)).Return(epoch, nil)
	_, err = tm.provider.GetBlockTimestamp(ctx, 1)
	require.NoError(t, err)
}

func TestGetBlockTimestamp_ConcurrentAccess(t *testing.T) {
	tm := setupTest(t, testConfig)
	ctx := context.Background()
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, gomock.Any()).Return(epoch, nil).MinTimes(1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			ts, err := tm.provider.GetBlockTimestamp(ctx, n%3)
			assert.NoError(t, err)
			assert.Equal(t, epoch, ts)
		}(uint64(i))
	}
	wg.Wait()
}

func TestEthFetcher(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	fetcher := block.NewEthFetcher(eth)
	ctx := context.Background()

	eth.EXPECT().BlockNumber(ctx).Return(uint64(42), nil)
	n, err := fetcher.FetchLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	eth.EXPECT().HeaderByNumber(ctx, big.NewInt(42)).Return(&types.Header{Time: 1700000000}, nil)
	ts, err := fetcher.FetchBlockTimestamp(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ts)

	eth.EXPECT().HeaderByNumber(ctx, big.NewInt(43)).Return(nil, errors.New("not found"))
	_, err = fetcher.FetchBlockTimestamp(ctx, 43)
	require.Error(t, err)
}
