package emitter_test

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/emitter"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/messaging"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

const testSource = "eip155:11155111:0x5fbdb2315678afecb367f032d93f642f64180aa3"

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testEmitterMocks contains all the mocks needed for testing the emitter
type testEmitterMocks struct {
	ctrl       *gomock.Controller
	subscriber *mocks.MockSubscriber
	publisher  *mocks.MockPublisher
	cursors    *mocks.MockCursorStore
	clock      *mocks.MockClock
}

func setupTestEmitter(t *testing.T) *testEmitterMocks {
	ctrl := gomock.NewController(t)
	return &testEmitterMocks{
		ctrl:       ctrl,
		subscriber: mocks.NewMockSubscriber(ctrl),
		publisher:  mocks.NewMockPublisher(ctrl),
		cursors:    mocks.NewMockCursorStore(ctrl),
		clock:      mocks.NewMockClock(ctrl),
	}
}

func (m *testEmitterMocks) newEmitter(startBlock, saveFreq uint64) emitter.Emitter {
	return emitter.NewEmitter(m.subscriber, m.publisher, m.cursors, emitter.Config{
		Source:          testSource,
		StartBlock:      startBlock,
		CursorSaveFreq:  saveFreq,
		CursorSaveDelay: 5 * time.Second,
	}, m.clock)
}

func (m *testEmitterMocks) expectClock() {
	m.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	m.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()
}

func fundedEvent(block uint64) *domain.LedgerEvent {
	return &domain.LedgerEvent{
		ID:          "01JNQ2Z5M3R0B8Y6V4T2W9X7KD",
		Type:        domain.EventBatchFunded,
		BatchID:     1,
		Actor:       common.HexToAddress("0xE000000000000000000000000000000000000003"),
		Amount:      big.NewInt(100),
		TxHash:      "0xabc",
		BlockNumber: block,
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestEmitter_Run_WithStartBlock(t *testing.T) {
	m := setupTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.expectClock()
	event := fundedEvent(1001)

	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, handler messaging.EventHandler) error {
			_ = handler(event)
			cancel()
			return nil
		})
	m.publisher.EXPECT().PublishEvent(gomock.Any(), event).Return(nil)
	m.cursors.EXPECT().SetBlockCursor(gomock.Any(), testSource, uint64(1001)).Return(nil)

	err := m.newEmitter(1000, 10).Run(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_WithLastBlockCursor(t *testing.T) {
	m := setupTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.expectClock()
	m.cursors.EXPECT().GetBlockCursor(gomock.Any(), testSource).Return(uint64(500), nil)
	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(500), gomock.Any()).
		DoAndReturn(func(context.Context, uint64, messaging.EventHandler) error {
			cancel()
			return nil
		})

	err := m.newEmitter(0, 10).Run(ctx)
	assert.Equal(t, context.Canceled, err)
}

// A restart after the cursor was saved mid-block republishes the rest of that block
func TestEmitter_Run_ResumeRepublishesCursorBlock(t *testing.T) {
	m := setupTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.expectClock()
	first := fundedEvent(1200)
	second := fundedEvent(1200)
	second.ID = "01JNQ2Z5M3R0B8Y6V4T2W9X7KE"
	second.Type = domain.EventBatchPickedUp

	// the first run stopped after saving the cursor on the first event of block 1200
	m.cursors.EXPECT().GetBlockCursor(gomock.Any(), testSource).Return(uint64(1200), nil)
	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1200), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, handler messaging.EventHandler) error {
			assert.NoError(t, handler(first))
			assert.NoError(t, handler(second))
			cancel()
			return nil
		})
	gomock.InOrder(
		m.publisher.EXPECT().PublishEvent(gomock.Any(), first).Return(nil),
		m.publisher.EXPECT().PublishEvent(gomock.Any(), second).Return(nil),
	)
	m.cursors.EXPECT().SetBlockCursor(gomock.Any(), testSource, uint64(1200)).Return(nil)

	err := m.newEmitter(0, 10).Run(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_WithNoLastBlockCursor(t *testing.T) {
	m := setupTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.expectClock()
	m.cursors.EXPECT().GetBlockCursor(gomock.Any(), testSource).Return(uint64(0), nil)
	m.subscriber.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(2000), nil)
	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(2000), gomock.Any()).
		DoAndReturn(func(context.Context, uint64, messaging.EventHandler) error {
			cancel()
			return nil
		})

	err := m.newEmitter(0, 10).Run(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_CursorSaveByBlockFrequency(t *testing.T) {
	m := setupTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.expectClock()
	m.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil).Times(4)

	// 1000: 1000-0 >= 5; 1003: 3 < 5, skipped; 1005 and 1010 save
	for _, block := range []uint64{1000, 1005, 1010} {
		m.cursors.EXPECT().SetBlockCursor(gomock.Any(), testSource, block).Return(nil)
	}

	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, handler messaging.EventHandler) error {
			for _, block := range []uint64{1000, 1003, 1005, 1010} {
				if err := handler(fundedEvent(block)); err != nil {
					return err
				}
			}
			cancel()
			return nil
		})

	err := m.newEmitter(1000, 5).Run(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_CursorSaveFailureIsNotFatal(t *testing.T) {
	m := setupTestEmitter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.expectClock()
	m.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		m.cursors.EXPECT().SetBlockCursor(gomock.Any(), testSource, uint64(1000)).Return(assert.AnError),
		m.cursors.EXPECT().SetBlockCursor(gomock.Any(), testSource, uint64(1001)).Return(nil),
	)

	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, handler messaging.EventHandler) error {
			assert.NoError(t, handler(fundedEvent(1000)))
			assert.NoError(t, handler(fundedEvent(1001)))
			cancel()
			return nil
		})

	err := m.newEmitter(1000, 1).Run(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestEmitter_Run_GetBlockCursorError(t *testing.T) {
	m := setupTestEmitter(t)
	m.cursors.EXPECT().GetBlockCursor(gomock.Any(), testSource).Return(uint64(0), assert.AnError)

	err := m.newEmitter(0, 10).Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block cursor")
}

func TestEmitter_Run_GetLatestBlockError(t *testing.T) {
	m := setupTestEmitter(t)
	m.cursors.EXPECT().GetBlockCursor(gomock.Any(), testSource).Return(uint64(0), nil)
	m.subscriber.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(0), assert.AnError)

	err := m.newEmitter(0, 10).Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block number")
}

func TestEmitter_Run_SubscribeEventsError(t *testing.T) {
	m := setupTestEmitter(t)
	m.expectClock()
	m.subscriber.EXPECT().SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).Return(assert.AnError)

	err := m.newEmitter(1000, 10).Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEmitter_Run_PublishEventError(t *testing.T) {
	m := setupTestEmitter(t)
	m.expectClock()
	m.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(assert.AnError)
	m.subscriber.EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, handler messaging.EventHandler) error {
			return handler(fundedEvent(1001))
		})

	err := m.newEmitter(1000, 10).Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}

func TestEmitter_Close(t *testing.T) {
	m := setupTestEmitter(t)
	m.subscriber.EXPECT().Close()
	m.newEmitter(0, 10).Close()
}
