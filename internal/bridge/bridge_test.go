package bridge_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/bridge"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	mockspkg "github.com/harvestline/escrow-ledger/internal/mocks"
)

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

// testBridgeMocks contains all the mocks needed for testing the bridge
type testBridgeMocks struct {
	ctrl      *gomock.Controller
	natsJS    *mockspkg.MockNatsJetStream
	natsConn  *mockspkg.MockNatsConn
	jetStream *mockspkg.MockJetStream
	consumer  *mockspkg.MockNatsConsumer
	consumeCx *mockspkg.MockConsumeContext
	hub       *ledger.Hub
}

func setupTestBridge(t *testing.T) *testBridgeMocks {
	ctrl := gomock.NewController(t)
	return &testBridgeMocks{
		ctrl:      ctrl,
		natsJS:    mockspkg.NewMockNatsJetStream(ctrl),
		natsConn:  mockspkg.NewMockNatsConn(ctrl),
		jetStream: mockspkg.NewMockJetStream(ctrl),
		consumer:  mockspkg.NewMockNatsConsumer(ctrl),
		consumeCx: mockspkg.NewMockConsumeContext(ctrl),
		hub:       ledger.NewHub(0),
	}
}

var testConfig = bridge.Config{
	URL:            "nats://localhost:4222",
	StreamName:     "LEDGER",
	ConsumerName:   "ledger-api",
	MaxReconnects:  10,
	ReconnectWait:  time.Second,
	ConnectionName: "test-bridge",
	AckWaitTimeout: 30 * time.Second,
	MaxDeliver:     5,
}

func newTestBridge(t *testing.T, m *testBridgeMocks) bridge.Bridge {
	t.Helper()
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.natsConn, m.jetStream, nil)
	b, err := bridge.NewBridge(testConfig, m.natsJS, m.hub, adapter.NewJSON())
	require.NoError(t, err)
	return b
}

func TestBridge_NewBridge_ConnectError(t *testing.T) {
	m := setupTestBridge(t)
	m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil, nil, assert.AnError)

	b, err := bridge.NewBridge(testConfig, m.natsJS, m.hub, adapter.NewJSON())
	assert.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestBridge_Run_CreateConsumerError(t *testing.T) {
	m := setupTestBridge(t)
	b := newTestBridge(t, m)

	m.jetStream.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), "LEDGER", jetstream.ConsumerConfig{
			Durable:       testConfig.ConsumerName,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       testConfig.AckWaitTimeout,
			MaxDeliver:    testConfig.MaxDeliver,
			FilterSubject: "ledger.>",
		}).
		Return(nil, assert.AnError)

	err := b.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create/update consumer")
}

func TestBridge_Run_ConsumerInfoError(t *testing.T) {
	m := setupTestBridge(t)
	b := newTestBridge(t, m)

	m.jetStream.EXPECT().CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.consumer, nil)
	m.consumer.EXPECT().Info(gomock.Any()).Return(nil, assert.AnError)

	err := b.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get consumer info")
}

func TestBridge_Run_ConsumeError(t *testing.T) {
	m := setupTestBridge(t)
	b := newTestBridge(t, m)

	m.jetStream.EXPECT().CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.consumer, nil)
	m.consumer.EXPECT().Info(gomock.Any()).Return(&jetstream.ConsumerInfo{Name: "ledger-api"}, nil)
	m.consumer.EXPECT().Consume(gomock.Any()).Return(nil, assert.AnError)

	err := b.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create subscription")
}

// expectConsume wires the consumer and returns a function that delivers messages
func expectConsume(m *testBridgeMocks) <-chan adapter.MessageHandler {
	handlers := make(chan adapter.MessageHandler, 1)
	m.jetStream.EXPECT().CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.consumer, nil)
	m.consumer.EXPECT().Info(gomock.Any()).Return(&jetstream.ConsumerInfo{Name: "ledger-api"}, nil)
	m.consumer.EXPECT().Consume(gomock.Any()).
		DoAndReturn(func(h adapter.MessageHandler, _ ...jetstream.PullConsumeOpt) (adapter.ConsumeContext, error) {
			handlers <- h
			return m.consumeCx, nil
		})
	m.consumeCx.EXPECT().Closed().Return(make(chan struct{})).AnyTimes()
	m.consumeCx.EXPECT().Stop()
	return handlers
}

func TestBridge_Run_ForwardsEventsToHub(t *testing.T) {
	m := setupTestBridge(t)
	b := newTestBridge(t, m)
	handlers := expectConsume(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *domain.LedgerEvent, 1)
	sub, err := m.hub.Subscribe(ctx, nil, func(e *domain.LedgerEvent) { received <- e })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	acked := make(chan struct{})
	msg := mockspkg.NewMockJetStreamMessage(m.ctrl)
	msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 1}, nil)
	msg.EXPECT().Data().Return([]byte(`{"id":"01JNQ2Z5M3R0B8Y6V4T2W9X7KD","type":"batch_funded","batch_id":7,"actor":"0xe000000000000000000000000000000000000003","timestamp":"2026-03-01T10:00:00Z"}`))
	msg.EXPECT().Ack().DoAndReturn(func() error {
		close(acked)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	h := <-handlers
	h(msg)

	select {
	case e := <-received:
		assert.Equal(t, domain.EventBatchFunded, e.Type)
		assert.Equal(t, uint64(7), e.BatchID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not forwarded")
	}
	<-acked

	cancel()
	assert.True(t, errors.Is(<-errCh, context.Canceled))
}

func TestBridge_Run_TerminatesBadMessages(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unparseable", `{not json`},
		{"unknown type", `{"id":"x","type":"token_minted","timestamp":"2026-03-01T10:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupTestBridge(t)
			b := newTestBridge(t, m)
			handlers := expectConsume(m)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			terminated := make(chan struct{})
			msg := mockspkg.NewMockJetStreamMessage(m.ctrl)
			msg.EXPECT().Metadata().Return(nil, errors.New("no metadata"))
			msg.EXPECT().Data().Return([]byte(tt.data))
			msg.EXPECT().Subject().Return("ledger.unknown").AnyTimes()
			msg.EXPECT().Term().DoAndReturn(func() error {
				close(terminated)
				return nil
			})

			errCh := make(chan error, 1)
			go func() { errCh <- b.Run(ctx) }()

			(<-handlers)(msg)
			select {
			case <-terminated:
			case <-time.After(2 * time.Second):
				t.Fatal("message not terminated")
			}

			cancel()
			<-errCh
		})
	}
}

func TestBridge_Close(t *testing.T) {
	m := setupTestBridge(t)
	b := newTestBridge(t, m)
	m.natsConn.EXPECT().Close()
	b.Close()
}
