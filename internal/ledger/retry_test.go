package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

var fastRetry = ledger.RetryConfig{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

func transportErr() error {
	return domain.WrapError(domain.KindTransportFailure, errors.New("connection reset"), "rpc unavailable")
}

func TestRetryingReader_RetriesTransportFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockLedgerReader(ctrl)

	want := &domain.Batch{ID: 7}
	gomock.InOrder(
		next.EXPECT().GetBatch(gomock.Any(), uint64(7)).Return(nil, transportErr()),
		next.EXPECT().GetBatch(gomock.Any(), uint64(7)).Return(nil, transportErr()),
		next.EXPECT().GetBatch(gomock.Any(), uint64(7)).Return(want, nil),
	)

	got, err := ledger.NewRetryingReader(next, fastRetry).GetBatch(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRetryingReader_DomainErrorsAreNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockLedgerReader(ctrl)

	notFound := domain.NewError(domain.KindInvalidInput, "batch 9 does not exist")
	next.EXPECT().GetBatch(gomock.Any(), uint64(9)).Return(nil, notFound).Times(1)

	_, err := ledger.NewRetryingReader(next, fastRetry).GetBatch(context.Background(), 9)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestRetryingReader_GivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockLedgerReader(ctrl)
	next.EXPECT().ShipmentCount(gomock.Any()).Return(uint64(0), transportErr()).MinTimes(2)

	cfg := fastRetry
	cfg.MaxElapsedTime = 50 * time.Millisecond
	_, err := ledger.NewRetryingReader(next, cfg).ShipmentCount(context.Background())
	assert.True(t, domain.IsTransportFailure(err))
}

func TestRetryingReader_StopsOnCanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockLedgerReader(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	next.EXPECT().GetAllBatches(gomock.Any()).DoAndReturn(func(context.Context) ([]domain.Batch, error) {
		cancel()
		return nil, transportErr()
	}).Times(1)

	_, err := ledger.NewRetryingReader(next, ledger.RetryConfig{}).GetAllBatches(ctx)
	assert.Error(t, err)
}
