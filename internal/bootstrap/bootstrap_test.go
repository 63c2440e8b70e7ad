package bootstrap_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/bootstrap"
	"github.com/harvestline/escrow-ledger/internal/config"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubDialer struct {
	client adapter.EthClient
	err    error
	url    string
}

func (d *stubDialer) Dial(_ context.Context, rawurl string) (adapter.EthClient, error) {
	d.url = rawurl
	return d.client, d.err
}

func TestOpen_EngineInMemory(t *testing.T) {
	backend, err := bootstrap.Open(context.Background(), bootstrap.Options{Backend: config.BackendEngine})
	require.NoError(t, err)
	defer backend.Close()

	require.NotNil(t, backend.Engine)
	assert.Same(t, backend.Engine, backend.Ledger)

	farmer := common.HexToAddress("0xF000000000000000000000000000000000000001")
	batch, err := backend.Ledger.CreateBatch(context.Background(), farmer, ledger.CreateBatchRequest{
		ProduceName:  "Mangoes",
		FarmLocation: "Ratnagiri",
		Distributor:  common.HexToAddress("0xD000000000000000000000000000000000000002"),
		Retailer:     common.HexToAddress("0xE000000000000000000000000000000000000003"),
		Price:        big.NewInt(1000),
		SerialKeys:   []domain.SerialKey{domain.SerialKey(common.HexToHash("0x01"))},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), batch.ID)
}

func TestOpen_Contract(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	eth.EXPECT().Close().MinTimes(1)

	dialer := &stubDialer{client: eth}
	backend, err := bootstrap.Open(context.Background(), bootstrap.Options{
		Backend: config.BackendContract,
		Ethereum: config.EthereumConfig{
			RPCURL:          "ws://localhost:8545",
			ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		},
		Dialer: dialer,
	})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8545", dialer.url)
	assert.Nil(t, backend.Engine)
	assert.NotNil(t, backend.Ledger)
	backend.Close()
}

func TestOpen_Errors(t *testing.T) {
	_, err := bootstrap.Open(context.Background(), bootstrap.Options{Backend: "sqlite"})
	require.Error(t, err)

	_, err = bootstrap.Open(context.Background(), bootstrap.Options{
		Backend:  config.BackendContract,
		Ethereum: config.EthereumConfig{RPCURL: "ws://localhost:1"},
		Dialer:   &stubDialer{err: errors.New("connection refused")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dial Ethereum RPC")
}

func TestEventTypes(t *testing.T) {
	types, err := bootstrap.EventTypes([]string{" Batch_Funded ", "", "item_consumed"})
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventBatchFunded, domain.EventItemConsumed}, types)

	types, err = bootstrap.EventTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)

	_, err = bootstrap.EventTypes([]string{"batch_lost"})
	require.Error(t, err)
}
