package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/block"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

func newTestParser(t *testing.T) (*logParser, *mocks.MockEthClient) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	blocks := block.NewProvider(block.NewEthFetcher(eth), block.Config{}, adapter.NewClock())
	return &logParser{blocks: blocks}, eth
}

func TestParse_BatchEvents(t *testing.T) {
	serial := crypto.Keccak256Hash([]byte("SN-1"))

	tests := []struct {
		name   string
		log    func(t *testing.T) types.Log
		expect func(t *testing.T, e *domain.LedgerEvent)
	}{
		{
			name: "batch created",
			log: func(t *testing.T) types.Log {
				return contractLog(t, "BatchCreated", 10, 0,
					[]common.Hash{uintTopic(1), addressTopic(testFarmer)},
					big.NewInt(1000), [][32]byte{serial})
			},
			expect: func(t *testing.T, e *domain.LedgerEvent) {
				assert.Equal(t, domain.EventBatchCreated, e.Type)
				assert.Equal(t, uint64(1), e.BatchID)
				assert.Equal(t, testFarmer, e.Actor)
				assert.Equal(t, "1000", e.Amount.String())
				assert.Equal(t, []domain.SerialKey{domain.SerialKey(serial)}, e.SerialKeys)
			},
		},
		{
			name: "batch funded",
			log: func(t *testing.T) types.Log {
				return contractLog(t, "BatchFunded", 10, 1,
					[]common.Hash{uintTopic(2), addressTopic(testRetailer)}, big.NewInt(500))
			},
			expect: func(t *testing.T, e *domain.LedgerEvent) {
				assert.Equal(t, domain.EventBatchFunded, e.Type)
				assert.Equal(t, uint64(2), e.BatchID)
				assert.Equal(t, testRetailer, e.Actor)
				assert.Equal(t, "500", e.Amount.String())
			},
		},
		{
			name: "picked up has no data",
			log: func(t *testing.T) types.Log {
				return contractLog(t, "BatchPickedUp", 10, 2,
					[]common.Hash{uintTopic(2), addressTopic(testDist)})
			},
			expect: func(t *testing.T, e *domain.LedgerEvent) {
				assert.Equal(t, domain.EventBatchPickedUp, e.Type)
				assert.Equal(t, testDist, e.Actor)
				assert.Nil(t, e.Amount)
			},
		},
		{
			name: "item consumed",
			log: func(t *testing.T) types.Log {
				return contractLog(t, "ItemConsumed", 10, 3,
					[]common.Hash{uintTopic(4), addressTopic(testRetailer)}, [32]byte(serial))
			},
			expect: func(t *testing.T, e *domain.LedgerEvent) {
				assert.Equal(t, domain.EventItemConsumed, e.Type)
				assert.Equal(t, uint64(4), e.BatchID)
				assert.Equal(t, []domain.SerialKey{domain.SerialKey(serial)}, e.SerialKeys)
			},
		},
		{
			name: "shipment completed",
			log: func(t *testing.T) types.Log {
				return contractLog(t, "ShipmentCompleted", 10, 4,
					[]common.Hash{uintTopic(5), addressTopic(testFarmer), addressTopic(testDist)}, big.NewInt(42))
			},
			expect: func(t *testing.T, e *domain.LedgerEvent) {
				assert.Equal(t, domain.EventShipmentCompleted, e.Type)
				require.NotNil(t, e.ShipmentIndex)
				assert.Equal(t, uint64(5), *e.ShipmentIndex)
				assert.Equal(t, testFarmer, e.Actor)
				assert.Equal(t, "42", e.Amount.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser, eth := newTestParser(t)
			eth.EXPECT().HeaderByNumber(gomock.Any(), big.NewInt(10)).Return(&types.Header{Time: 1700000000}, nil)

			vLog := tt.log(t)
			event, err := parser.parse(context.Background(), vLog)
			require.NoError(t, err)
			require.NotNil(t, event)

			assert.NotEmpty(t, event.ID)
			assert.Equal(t, vLog.TxHash.Hex(), event.TxHash)
			assert.Equal(t, uint64(10), event.BlockNumber)
			assert.Equal(t, vLog.Index, event.LogIndex)
			assert.Equal(t, int64(1700000000), event.Timestamp.Unix())
			tt.expect(t, event)
		})
	}
}

func TestParse_CachesBlockTimestamp(t *testing.T) {
	parser, eth := newTestParser(t)
	eth.EXPECT().HeaderByNumber(gomock.Any(), big.NewInt(10)).Return(&types.Header{Time: 1700000000}, nil).Times(1)

	for i := uint(0); i < 3; i++ {
		vLog := contractLog(t, "BatchDenied", 10, i, []common.Hash{uintTopic(1), addressTopic(testRetailer)})
		_, err := parser.parse(context.Background(), vLog)
		require.NoError(t, err)
	}
}

func TestParse_StableIDs(t *testing.T) {
	parser, eth := newTestParser(t)
	eth.EXPECT().HeaderByNumber(gomock.Any(), gomock.Any()).Return(&types.Header{Time: 1700000000}, nil).AnyTimes()

	first := contractLog(t, "BatchDenied", 10, 0, []common.Hash{uintTopic(1), addressTopic(testRetailer)})
	second := contractLog(t, "BatchDenied", 10, 1, []common.Hash{uintTopic(1), addressTopic(testRetailer)})

	a, err := parser.parse(context.Background(), first)
	require.NoError(t, err)
	again, err := parser.parse(context.Background(), first)
	require.NoError(t, err)
	b, err := parser.parse(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, a.ID, again.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestParse_IgnoresForeignLogs(t *testing.T) {
	parser, _ := newTestParser(t)

	transfer := types.Log{
		Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}
	event, err := parser.parse(context.Background(), transfer)
	require.NoError(t, err)
	assert.Nil(t, event)

	removed := contractLog(t, "BatchDenied", 10, 0, []common.Hash{uintTopic(1), addressTopic(testRetailer)})
	removed.Removed = true
	event, err = parser.parse(context.Background(), removed)
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = parser.parse(context.Background(), types.Log{})
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestParse_HeaderFailure(t *testing.T) {
	parser, eth := newTestParser(t)
	eth.EXPECT().HeaderByNumber(gomock.Any(), gomock.Any()).Return(nil, errors.New("rpc down"))

	vLog := contractLog(t, "BatchDenied", 10, 0, []common.Hash{uintTopic(1), addressTopic(testRetailer)})
	_, err := parser.parse(context.Background(), vLog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block 10")
}
