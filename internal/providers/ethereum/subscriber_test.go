package ethereum

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

func newTestSubscriber(t *testing.T) (*Subscriber, *mocks.MockEthClient) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	sub, err := NewSubscriber(Config{ContractAddress: testContract.Hex()}, eth)
	require.NoError(t, err)
	return sub, eth
}

func deniedLog(t *testing.T, block uint64, batchID int64) types.Log {
	return contractLog(t, "BatchDenied", block, 0, []common.Hash{uintTopic(batchID), addressTopic(testRetailer)})
}

func TestSubscribeEvents_BackfillsThenStreams(t *testing.T) {
	sub, eth := newTestSubscriber(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eth.EXPECT().BlockNumber(gomock.Any()).Return(uint64(105), nil)
	eth.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			assert.Equal(t, uint64(100), q.FromBlock.Uint64())
			assert.Equal(t, uint64(105), q.ToBlock.Uint64())
			assert.Equal(t, []common.Address{testContract}, q.Addresses)
			return []types.Log{deniedLog(t, 101, 1)}, nil
		})
	eth.EXPECT().HeaderByNumber(gomock.Any(), gomock.Any()).Return(&types.Header{Time: 1700000000}, nil).AnyTimes()

	fake := newFakeSubscription()
	eth.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
			assert.Equal(t, uint64(106), q.FromBlock.Uint64())
			go func() {
				ch <- deniedLog(t, 104, 99) // already backfilled
				ch <- deniedLog(t, 106, 2)
			}()
			return fake, nil
		})

	var got []uint64
	done := make(chan error, 1)
	go func() {
		done <- sub.SubscribeEvents(ctx, 100, func(e *domain.LedgerEvent) error {
			got = append(got, e.BatchID)
			if len(got) == 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	assert.Equal(t, []uint64{1, 2}, got)

	select {
	case <-fake.unsubscribed:
	default:
		t.Fatal("log subscription was not released")
	}
}

func TestSubscribeEvents_FromLatestSkipsBackfill(t *testing.T) {
	sub, eth := newTestSubscriber(t)

	eth.EXPECT().BlockNumber(gomock.Any()).Return(uint64(50), nil)
	fake := newFakeSubscription()
	fake.errCh <- errors.New("websocket closed")
	eth.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(fake, nil)

	err := sub.SubscribeEvents(context.Background(), 0, func(*domain.LedgerEvent) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket closed")
}

func TestSubscribeEvents_HandlerErrorStops(t *testing.T) {
	sub, eth := newTestSubscriber(t)

	eth.EXPECT().BlockNumber(gomock.Any()).Return(uint64(10), nil)
	eth.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return([]types.Log{deniedLog(t, 9, 1)}, nil)
	eth.EXPECT().HeaderByNumber(gomock.Any(), gomock.Any()).Return(&types.Header{Time: 1}, nil)

	err := sub.SubscribeEvents(context.Background(), 5, func(*domain.LedgerEvent) error {
		return errors.New("broker down")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestFilterLogsWithPagination_HalvesOnTooManyResults(t *testing.T) {
	sub, eth := newTestSubscriber(t)

	var ranges [][2]uint64
	eth.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			ranges = append(ranges, [2]uint64{q.FromBlock.Uint64(), q.ToBlock.Uint64()})
			if len(ranges) == 1 {
				return nil, errors.New("query returned more than 10000 results")
			}
			return []types.Log{{BlockNumber: q.FromBlock.Uint64()}}, nil
		}).AnyTimes()

	logs, err := sub.filterLogsWithPagination(context.Background(), 1, 150000)
	require.NoError(t, err)

	assert.Equal(t, [2]uint64{1, 100000}, ranges[0])
	assert.Equal(t, [2]uint64{1, 50000}, ranges[1])
	assert.Equal(t, [2]uint64{50001, 100000}, ranges[2])
	assert.Equal(t, [2]uint64{100001, 150000}, ranges[3])
	assert.Len(t, logs, 3)
}

func TestFilterLogsWithPagination_OtherErrors(t *testing.T) {
	sub, eth := newTestSubscriber(t)
	eth.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return(nil, errors.New("unauthorized"))

	_, err := sub.filterLogsWithPagination(context.Background(), 1, 10)
	require.Error(t, err)
}

func TestSubscribe_Notifier(t *testing.T) {
	sub, eth := newTestSubscriber(t)
	eth.EXPECT().HeaderByNumber(gomock.Any(), gomock.Any()).Return(&types.Header{Time: 1}, nil).AnyTimes()

	fake := newFakeSubscription()
	logs := make(chan chan<- types.Log, 1)
	eth.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
			logs <- ch
			return fake, nil
		})

	var mu sync.Mutex
	var got []domain.EventType
	s, err := sub.Subscribe(context.Background(), domain.EventFilter{domain.EventBatchDenied}, func(e *domain.LedgerEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
	})
	require.NoError(t, err)

	ch := <-logs
	ch <- contractLog(t, "BatchPickedUp", 1, 0, []common.Hash{uintTopic(1), addressTopic(testDist)})
	ch <- deniedLog(t, 2, 1)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.EventType{domain.EventBatchDenied}, got)

	s.Unsubscribe()
	s.Unsubscribe()
	assert.Eventually(t, func() bool {
		select {
		case <-fake.unsubscribed:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_Errors(t *testing.T) {
	sub, eth := newTestSubscriber(t)

	_, err := sub.Subscribe(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	eth.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("notifications not supported"))
	_, err = sub.Subscribe(context.Background(), nil, func(*domain.LedgerEvent) {})
	require.Error(t, err)
	assert.True(t, domain.IsTransportFailure(err))
}

func TestGetLatestBlock(t *testing.T) {
	sub, eth := newTestSubscriber(t)
	eth.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), errors.New("boom"))

	_, err := sub.GetLatestBlock(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block")
}
