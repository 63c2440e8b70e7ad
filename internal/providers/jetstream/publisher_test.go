package jetstream_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/mocks"
	"github.com/harvestline/escrow-ledger/internal/providers/jetstream"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type publisherMocks struct {
	ctrl   *gomock.Controller
	natsJS *mocks.MockNatsJetStream
	conn   *mocks.MockNatsConn
	js     *mocks.MockJetStream
}

func setupPublisherMocks(t *testing.T) *publisherMocks {
	ctrl := gomock.NewController(t)
	return &publisherMocks{
		ctrl:   ctrl,
		natsJS: mocks.NewMockNatsJetStream(ctrl),
		conn:   mocks.NewMockNatsConn(ctrl),
		js:     mocks.NewMockJetStream(ctrl),
	}
}

var testConfig = jetstream.Config{
	URL:            "nats://localhost:4222",
	MaxReconnects:  3,
	ReconnectWait:  time.Second,
	ConnectionName: "ledger-test",
}

func TestNewPublisher_EnsuresStream(t *testing.T) {
	m := setupPublisherMocks(t)
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cfg natsjs.StreamConfig) error {
			assert.Equal(t, jetstream.DefaultStreamName, cfg.Name)
			assert.Equal(t, []string{"ledger.>"}, cfg.Subjects)
			return nil
		})

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)
	assert.NotNil(t, pub)
}

func TestNewPublisher_ConnectFailure(t *testing.T) {
	m := setupPublisherMocks(t)
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nil, nil, nats.ErrNoServers)

	_, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	assert.ErrorIs(t, err, nats.ErrNoServers)
}

func TestNewPublisher_StreamFailureClosesConnection(t *testing.T) {
	m := setupPublisherMocks(t)
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(errors.New("insufficient resources"))
	m.conn.EXPECT().Close()

	_, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER")
}

func TestPublisher_PublishEvent(t *testing.T) {
	m := setupPublisherMocks(t)
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(nil)

	event := &domain.LedgerEvent{
		ID:        "01JNQ2Z5M3R0B8Y6V4T2W9X7KD",
		Type:      domain.EventBatchFunded,
		BatchID:   3,
		Actor:     common.HexToAddress("0xE000000000000000000000000000000000000003"),
		Amount:    big.NewInt(100),
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
	}

	m.js.EXPECT().Publish(gomock.Any(), "ledger.batch_funded", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			var decoded domain.LedgerEvent
			require.NoError(t, adapter.NewJSON().Unmarshal(data, &decoded))
			assert.Equal(t, event.ID, decoded.ID)
			assert.Equal(t, uint64(3), decoded.BatchID)
			assert.Len(t, opts, 1)
			return &natsjs.PubAck{Stream: jetstream.DefaultStreamName, Sequence: 1}, nil
		})

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)
	require.NoError(t, pub.PublishEvent(context.Background(), event))
}

func TestPublisher_PublishFailure(t *testing.T) {
	m := setupPublisherMocks(t)
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(nil)
	m.js.EXPECT().Publish(gomock.Any(), "ledger.item_consumed", gomock.Any()).Return(nil, natsjs.ErrNoStreamResponse)

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	err = pub.PublishEvent(context.Background(), &domain.LedgerEvent{Type: domain.EventItemConsumed})
	assert.ErrorIs(t, err, natsjs.ErrNoStreamResponse)
}

func TestPublisher_Close(t *testing.T) {
	m := setupPublisherMocks(t)
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(nil)
	m.conn.EXPECT().Close().Times(1)

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	pub.Close()
	pub.Close()

	select {
	case <-pub.CloseChan():
	default:
		t.Fatal("close channel not closed")
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "ledger.shipment_completed", jetstream.Subject(domain.EventShipmentCompleted))
}
