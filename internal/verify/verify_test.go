package verify_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/mocks"
	"github.com/harvestline/escrow-ledger/internal/serial"
	"github.com/harvestline/escrow-ledger/internal/store"
	"github.com/harvestline/escrow-ledger/internal/verify"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var (
	farmer      = common.HexToAddress("0xF000000000000000000000000000000000000001")
	distributor = common.HexToAddress("0xD000000000000000000000000000000000000002")
	retailer    = common.HexToAddress("0xE000000000000000000000000000000000000003")
)

func mustKey(t *testing.T, s string) domain.SerialKey {
	t.Helper()
	key, err := serial.DeriveKey(s)
	require.NoError(t, err)
	return key
}

func TestVerify_StatusMapping(t *testing.T) {
	batch := domain.Batch{ID: 4, ProduceName: "Mangoes"}
	tests := []struct {
		name  string
		state domain.ActivationState
		want  domain.VerificationStatus
	}{
		{"not active", domain.ItemNotActive, domain.VerificationNotYetInStore},
		{"active", domain.ItemActive, domain.VerificationVerifiedActive},
		{"consumed", domain.ItemConsumed, domain.VerificationAlreadyConsumed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			reader := mocks.NewMockLedgerReader(ctrl)
			key := mustKey(t, "X1")
			reader.EXPECT().GetHistory(gomock.Any(), key).Return(&domain.History{
				Item:  domain.Item{SerialKey: key, BatchID: 4, State: tt.state},
				Batch: batch,
			}, nil)

			v := verify.New(reader, verify.Config{})
			defer v.Close()

			got, err := v.Verify(context.Background(), "  X1 ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, "X1", got.Serial)
			assert.Equal(t, key, got.SerialKey)
			require.NotNil(t, got.Batch)
			assert.Equal(t, uint64(4), got.Batch.ID)
		})
	}
}

// Scenario C
func TestVerify_UnknownSerialIsInvalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLedgerReader(ctrl)
	reader.EXPECT().GetHistory(gomock.Any(), mustKey(t, "unknown-serial")).Return(nil, nil)

	v := verify.New(reader, verify.Config{})
	defer v.Close()

	got, err := v.Verify(context.Background(), "unknown-serial")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationInvalid, got.Status)
	assert.Nil(t, got.Batch)
}

func TestVerify_BlankSerial(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLedgerReader(ctrl)

	v := verify.New(reader, verify.Config{})
	defer v.Close()

	_, err := v.Verify(context.Background(), "   ")
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestVerify_ReaderErrorIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLedgerReader(ctrl)
	failure := domain.WrapError(domain.KindTransportFailure, errors.New("dial tcp: refused"), "rpc unavailable")
	reader.EXPECT().GetHistory(gomock.Any(), gomock.Any()).Return(nil, failure)

	v := verify.New(reader, verify.Config{})
	defer v.Close()

	_, err := v.Verify(context.Background(), "X1")
	assert.True(t, domain.IsTransportFailure(err))
}

func TestVerifyMany_KeepsOrderAndPerSerialErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLedgerReader(ctrl)

	active, consumed := mustKey(t, "A"), mustKey(t, "C")
	reader.EXPECT().GetHistory(gomock.Any(), active).Return(&domain.History{
		Item: domain.Item{SerialKey: active, BatchID: 1, State: domain.ItemActive}, Batch: domain.Batch{ID: 1},
	}, nil)
	reader.EXPECT().GetHistory(gomock.Any(), consumed).Return(&domain.History{
		Item: domain.Item{SerialKey: consumed, BatchID: 1, State: domain.ItemConsumed}, Batch: domain.Batch{ID: 1},
	}, nil)
	reader.EXPECT().GetHistory(gomock.Any(), mustKey(t, "Z")).Return(nil, nil)

	v := verify.New(reader, verify.Config{Concurrency: 2})
	defer v.Close()

	results := v.VerifyMany(context.Background(), []string{"A", "", "C", "Z"})
	require.Len(t, results, 4)

	assert.Equal(t, domain.VerificationVerifiedActive, results[0].Verification.Status)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(results[1].Err))
	assert.Equal(t, domain.VerificationAlreadyConsumed, results[2].Verification.Status)
	assert.Equal(t, domain.VerificationInvalid, results[3].Verification.Status)
	assert.Equal(t, "Z", results[3].Serial)
}

func TestVerifyMany_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLedgerReader(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := verify.New(reader, verify.Config{})
	defer v.Close()

	results := v.VerifyMany(ctx, []string{"A", "B"})
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

// Scenario B against the engine ledger
func TestVerify_ActivateThenConsume(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)).AnyTimes()

	engine := ledger.NewEngine(store.NewMemoryStore(), nil, clock, adapter.NewJSON(), adapter.NewJCS())
	b, err := engine.CreateBatch(ctx, farmer, ledger.CreateBatchRequest{
		ProduceName:  "Tomatoes",
		FarmLocation: "Nashik",
		Distributor:  distributor,
		Retailer:     retailer,
		Price:        big.NewInt(100),
		SerialKeys:   serial.DeriveKeys([]string{"X1", "X2"}),
	})
	require.NoError(t, err)

	v := verify.New(engine, verify.Config{})
	defer v.Close()

	got, err := v.Verify(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationNotYetInStore, got.Status)

	_, err = engine.FundBatch(ctx, retailer, b.ID, big.NewInt(100))
	require.NoError(t, err)
	_, err = engine.ConfirmPickupByDistributor(ctx, distributor, b.ID)
	require.NoError(t, err)
	_, err = engine.ActivateItemsByRetailer(ctx, retailer, b.ID, serial.DeriveKeys([]string{"X1"}))
	require.NoError(t, err)

	got, err = v.Verify(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationVerifiedActive, got.Status)
	assert.Equal(t, domain.BatchStatusPickedUp, got.Batch.Status)

	_, err = engine.ConsumeItemByRetailer(ctx, retailer, mustKey(t, "X1"))
	require.NoError(t, err)

	got, err = v.Verify(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationAlreadyConsumed, got.Status)

	got, err = v.Verify(ctx, "X2")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationNotYetInStore, got.Status)
}
