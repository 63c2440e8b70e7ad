package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/mocks"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testFarmer   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testDist     = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testRetailer = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testChainID  = big.NewInt(31337)
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testClient struct {
	ledger *contractClient
	eth    *mocks.MockEthClient
	key    *ecdsa.PrivateKey
	signer common.Address
}

// newTestClient builds a contract client with a fresh signing key
func newTestClient(t *testing.T) *testClient {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	eth.EXPECT().ChainID(gomock.Any()).Return(testChainID, nil)

	l, err := NewClient(context.Background(), Config{
		ContractAddress: testContract.Hex(),
		PrivateKey:      hexutil.Encode(crypto.FromECDSA(key)),
		ConfirmTimeout:  200 * time.Millisecond,
		PollInterval:    time.Millisecond,
	}, eth)
	require.NoError(t, err)

	return &testClient{
		ledger: l.(*contractClient),
		eth:    eth,
		key:    key,
		signer: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// expectCalls answers eth_call by method name with pre-packed outputs
func (tc *testClient) expectCalls(t *testing.T, outputs map[string][]byte) {
	tc.eth.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			require.Equal(t, testContract, *msg.To)
			method, err := escrowABI.MethodById(msg.Data[:4])
			require.NoError(t, err)
			out, ok := outputs[method.Name]
			if !ok {
				return nil, fmt.Errorf("unexpected call to %s", method.Name)
			}
			return out, nil
		}).AnyTimes()
}

func packOutputs(t *testing.T, method string, values ...interface{}) []byte {
	data, err := escrowABI.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return data
}

func sampleBatch(id int64, status uint8) batchTuple {
	return batchTuple{
		BatchId:           big.NewInt(id),
		ProduceName:       "Tomatoes",
		FarmLocation:      "Nashik",
		IpfsHash:          "N/A",
		Farmer:            testFarmer,
		Distributor:       testDist,
		Retailer:          testRetailer,
		Price:             big.NewInt(1000),
		Status:            status,
		IsFunded:          status != 0,
		IsPaid:            status == 3,
		HarvestTimestamp:  big.NewInt(1700000000),
		PickupTimestamp:   big.NewInt(0),
		DeliveryTimestamp: big.NewInt(0),
		ItemSerialHashes:  [][32]byte{crypto.Keccak256Hash([]byte("SN-1"))},
	}
}

// contractLog builds an escrow contract log; data holds the non-indexed values
func contractLog(t *testing.T, event string, block uint64, index uint, topics []common.Hash, data ...interface{}) types.Log {
	ev := escrowABI.Events[event]
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)
	return types.Log{
		Address:     testContract,
		Topics:      append([]common.Hash{ev.ID}, topics...),
		Data:        packed,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
	}
}

func uintTopic(v int64) common.Hash {
	return common.BigToHash(big.NewInt(v))
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

// revertError mimics the JSON-RPC error returned for a reverted call
type revertError struct {
	data string
}

func (e *revertError) Error() string          { return "execution reverted" }
func (e *revertError) ErrorData() interface{} { return e.data }

func customRevert(t *testing.T, name string, values ...interface{}) *revertError {
	customErr := escrowABI.Errors[name]
	packed, err := customErr.Inputs.Pack(values...)
	require.NoError(t, err)
	return &revertError{data: hexutil.Encode(append(append([]byte{}, customErr.ID[:4]...), packed...))}
}

// fakeSubscription is an ethereum.Subscription driven by the test
type fakeSubscription struct {
	errCh        chan error
	unsubscribed chan struct{}
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errCh: make(chan error, 1), unsubscribed: make(chan struct{})}
}

func (s *fakeSubscription) Err() <-chan error { return s.errCh }

func (s *fakeSubscription) Unsubscribe() {
	select {
	case <-s.unsubscribed:
	default:
		close(s.unsubscribed)
	}
}
