// Package ethereum implements the escrow ledger over the deployed escrow contract.
// Reads are eth_calls, writes are signed transactions and notifications come from contract logs.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

const (
	DefaultConfirmTimeout = 2 * time.Minute
	DefaultPollInterval   = 2 * time.Second
)

// Config holds the configuration for the contract ledger
type Config struct {
	RPCURL          string // HTTP or WebSocket endpoint; log subscriptions need WebSocket
	ContractAddress string
	// PrivateKey is the hex signing key. Without it the client is read-only.
	PrivateKey     string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

type contractClient struct {
	*Subscriber

	client   adapter.EthClient
	contract common.Address
	cfg      Config

	key     *ecdsa.PrivateKey
	signer  common.Address
	chainID *big.Int

	// serializes nonce allocation
	sendMu sync.Mutex
}

var _ ledger.Ledger = (*contractClient)(nil)

// NewClient creates a contract-backed ledger
func NewClient(ctx context.Context, cfg Config, client adapter.EthClient) (ledger.Ledger, error) {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	sub, err := NewSubscriber(cfg, client)
	if err != nil {
		return nil, err
	}

	c := &contractClient{
		Subscriber: sub,
		client:     client,
		contract:   sub.contract,
		cfg:        cfg,
	}

	if key := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"); key != "" {
		c.key, err = crypto.HexToECDSA(key)
		if err != nil {
			return nil, fmt.Errorf("invalid signing key: %w", err)
		}
		c.signer = crypto.PubkeyToAddress(c.key.PublicKey)

		c.chainID, err = client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
		logger.InfoCtx(ctx, "Contract ledger signer configured",
			zap.String("signer", c.signer.Hex()),
			zap.String("chainID", c.chainID.String()))
	}

	return c, nil
}

func parseContractAddress(addr string) (common.Address, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid contract address: %q", addr)
	}
	return common.HexToAddress(addr), nil
}

// call runs a read-only contract method and returns its decoded outputs
func (c *contractClient) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := escrowABI.Pack(method, args...)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, err, "failed to pack %s", method)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		if revertErr := decodeRevert(err); revertErr != nil {
			return nil, revertErr
		}
		return nil, domain.WrapError(domain.KindTransportFailure, err, "failed to call %s", method)
	}

	values, err := escrowABI.Unpack(method, result)
	if err != nil {
		return nil, domain.WrapError(domain.KindTransportFailure, err, "failed to unpack %s", method)
	}
	return values, nil
}

func (c *contractClient) GetAllBatches(ctx context.Context) ([]domain.Batch, error) {
	values, err := c.call(ctx, "getAllBatches")
	if err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(values[0], new([]batchTuple)).(*[]batchTuple)

	batches := make([]domain.Batch, len(tuples))
	for i, t := range tuples {
		batches[i] = t.toDomain()
	}
	return batches, nil
}

func (c *contractClient) GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error) {
	values, err := c.call(ctx, "getBatch", new(big.Int).SetUint64(batchID))
	if err != nil {
		return nil, err
	}
	t := *abi.ConvertType(values[0], new(batchTuple)).(*batchTuple)
	if t.BatchId == nil || t.BatchId.Sign() == 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "batch %d does not exist", batchID)
	}
	b := t.toDomain()
	return &b, nil
}

// GetHistory maps the contract verification status back to an item state.
// INVALID means no batch declared the key.
func (c *contractClient) GetHistory(ctx context.Context, key domain.SerialKey) (*domain.History, error) {
	values, err := c.call(ctx, "getHistory", [32]byte(key))
	if err != nil {
		return nil, err
	}
	status, _ := values[0].(string)
	state, ok := domain.ActivationFor(domain.VerificationStatus(status))
	if !ok {
		return nil, nil
	}

	t := *abi.ConvertType(values[1], new(batchTuple)).(*batchTuple)
	b := t.toDomain()
	return &domain.History{
		Item:  domain.Item{SerialKey: key, BatchID: b.ID, State: state},
		Batch: b,
	}, nil
}

func (c *contractClient) GetAllShipments(ctx context.Context) ([]domain.Shipment, error) {
	values, err := c.call(ctx, "getAllTransactions")
	if err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(values[0], new([]shipmentTuple)).(*[]shipmentTuple)

	perSender := make(map[common.Address]uint64)
	shipments := make([]domain.Shipment, len(tuples))
	for i, t := range tuples {
		shipments[i] = t.toDomain(uint64(i), perSender[t.Sender])
		perSender[t.Sender]++
	}
	return shipments, nil
}

func (c *contractClient) GetShipment(ctx context.Context, sender common.Address, senderIndex uint64) (*domain.Shipment, error) {
	count, err := c.GetShipmentCount(ctx, sender)
	if err != nil {
		return nil, err
	}
	if senderIndex >= count {
		return nil, domain.NewError(domain.KindInvalidInput, "shipment %d of sender %s does not exist", senderIndex, sender.Hex())
	}

	values, err := c.call(ctx, "getShipment", sender, new(big.Int).SetUint64(senderIndex))
	if err != nil {
		return nil, err
	}
	t := shipmentTuple{
		Sender:       values[0].(common.Address),
		Receiver:     values[1].(common.Address),
		PickupTime:   values[2].(*big.Int),
		DeliveryTime: values[3].(*big.Int),
		Price:        values[4].(*big.Int),
		Distance:     values[5].(*big.Int),
		Status:       values[6].(uint8),
		IsPaid:       values[7].(bool),
	}

	// getShipment has no global position; resolve it from the full list
	index, err := c.globalIndex(ctx, sender, senderIndex)
	if err != nil {
		return nil, err
	}
	s := t.toDomain(index, senderIndex)
	return &s, nil
}

func (c *contractClient) globalIndex(ctx context.Context, sender common.Address, senderIndex uint64) (uint64, error) {
	all, err := c.GetAllShipments(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range all {
		if s.Sender == sender && s.SenderIndex == senderIndex {
			return s.Index, nil
		}
	}
	return 0, domain.NewError(domain.KindInvalidInput, "shipment %d of sender %s does not exist", senderIndex, sender.Hex())
}

func (c *contractClient) GetShipmentCount(ctx context.Context, sender common.Address) (uint64, error) {
	values, err := c.call(ctx, "getShipmentCount", sender)
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

func (c *contractClient) ShipmentCount(ctx context.Context) (uint64, error) {
	values, err := c.call(ctx, "shipmentCount")
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// transact signs and sends a contract call from caller and waits for its receipt.
// A revert during gas estimation is decoded and nothing is sent.
func (c *contractClient) transact(ctx context.Context, caller common.Address, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	if c.key == nil {
		return nil, domain.NewError(domain.KindUnauthorized, "contract ledger has no signing key")
	}
	if caller != c.signer {
		return nil, domain.NewError(domain.KindUnauthorized, "caller %s is not the configured signer %s", caller.Hex(), c.signer.Hex())
	}

	data, err := escrowABI.Pack(method, args...)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, err, "failed to pack %s", method)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.signer,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		if revertErr := decodeRevert(err); revertErr != nil {
			return nil, revertErr
		}
		return nil, domain.WrapError(domain.KindTransportFailure, err, "failed to estimate gas for %s", method)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.signer)
	if err != nil {
		return nil, domain.WrapError(domain.KindTransportFailure, err, "failed to get nonce")
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindTransportFailure, err, "failed to get gas price")
	}

	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas + gas/5,
		To:       &c.contract,
		Value:    value,
		Data:     data,
	}), types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", method, err)
	}

	txHash := tx.Hash()
	if err := c.client.SendTransaction(ctx, tx); err != nil {
		return nil, outcomeUnknown(txHash, method, err)
	}
	logger.InfoCtx(ctx, "Sent contract transaction",
		zap.String("method", method),
		zap.String("txHash", txHash.Hex()),
		zap.Uint64("nonce", nonce))

	receipt, err := c.waitMined(ctx, txHash)
	if err != nil {
		return nil, outcomeUnknown(txHash, method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, domain.NewError(domain.KindInvalidTransition, "transaction %s for %s reverted", txHash.Hex(), method)
	}
	return receipt, nil
}

// waitMined polls for the receipt until ConfirmTimeout
func (c *contractClient) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	var receipt *types.Receipt
	operation := func() error {
		r, err := c.client.TransactionReceipt(ctx, txHash)
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				logger.WarnCtx(ctx, "Receipt lookup failed, retrying", zap.Error(err), zap.String("txHash", txHash.Hex()))
			}
			return err
		}
		receipt = r
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.cfg.PollInterval), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return receipt, nil
}

func outcomeUnknown(txHash common.Hash, method string, err error) error {
	return domain.WrapError(domain.KindTransportFailure,
		fmt.Errorf("%w: %w", domain.ErrOutcomeUnknown, err),
		"transaction %s for %s", txHash.Hex(), method)
}

// findLog returns the first receipt log emitted by the contract for event
func (c *contractClient) findLog(receipt *types.Receipt, event string) *types.Log {
	id := escrowABI.Events[event].ID
	for _, l := range receipt.Logs {
		if l.Address == c.contract && len(l.Topics) > 0 && l.Topics[0] == id {
			return l
		}
	}
	return nil
}

func (c *contractClient) CreateBatch(ctx context.Context, farmer common.Address, req ledger.CreateBatchRequest) (*domain.Batch, error) {
	if len(req.SerialKeys) == 0 {
		return nil, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "a batch needs at least one item serial")
	}
	if req.Price == nil || req.Price.Sign() <= 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "price must be positive")
	}
	ipfsHash := req.IPFSHash
	if strings.TrimSpace(ipfsHash) == "" {
		ipfsHash = "N/A"
	}

	receipt, err := c.transact(ctx, farmer, nil, "createBatch",
		req.ProduceName, req.FarmLocation, ipfsHash,
		req.Distributor, req.Retailer, req.Price, serialHashes(req.SerialKeys))
	if err != nil {
		return nil, err
	}

	l := c.findLog(receipt, "BatchCreated")
	if l == nil || len(l.Topics) < 2 {
		return nil, domain.NewError(domain.KindTransportFailure, "transaction %s emitted no BatchCreated event", receipt.TxHash.Hex())
	}
	return c.GetBatch(ctx, new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64())
}

func (c *contractClient) batchCall(ctx context.Context, caller common.Address, value *big.Int, method string, batchID uint64) (*domain.Batch, error) {
	if _, err := c.transact(ctx, caller, value, method, new(big.Int).SetUint64(batchID)); err != nil {
		return nil, err
	}
	return c.GetBatch(ctx, batchID)
}

func (c *contractClient) FundBatch(ctx context.Context, retailer common.Address, batchID uint64, value *big.Int) (*domain.Batch, error) {
	if value == nil {
		value = new(big.Int)
	}
	return c.batchCall(ctx, retailer, value, "fundBatch", batchID)
}

func (c *contractClient) ConfirmPickupByDistributor(ctx context.Context, distributor common.Address, batchID uint64) (*domain.Batch, error) {
	return c.batchCall(ctx, distributor, nil, "confirmPickupByDistributor", batchID)
}

func (c *contractClient) ConfirmDelivery(ctx context.Context, retailer common.Address, batchID uint64) (*domain.Batch, error) {
	return c.batchCall(ctx, retailer, nil, "confirmDelivery", batchID)
}

func (c *contractClient) DenyDelivery(ctx context.Context, retailer common.Address, batchID uint64) (*domain.Batch, error) {
	return c.batchCall(ctx, retailer, nil, "denyDelivery", batchID)
}

func (c *contractClient) ApproveRefund(ctx context.Context, farmer common.Address, batchID uint64) (*domain.Batch, error) {
	return c.batchCall(ctx, farmer, nil, "approveRefund", batchID)
}

func (c *contractClient) ActivateItemsByRetailer(ctx context.Context, retailer common.Address, batchID uint64, keys []domain.SerialKey) (*domain.Batch, error) {
	if len(keys) == 0 {
		return nil, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "no serials to activate")
	}
	if _, err := c.transact(ctx, retailer, nil, "activateItemsByRetailer", new(big.Int).SetUint64(batchID), serialHashes(keys)); err != nil {
		return nil, err
	}
	return c.GetBatch(ctx, batchID)
}

func (c *contractClient) ConsumeItemByRetailer(ctx context.Context, retailer common.Address, key domain.SerialKey) (*domain.Item, error) {
	if _, err := c.transact(ctx, retailer, nil, "consumeItemByRetailer", [32]byte(key)); err != nil {
		return nil, err
	}
	h, err := c.GetHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, domain.NewError(domain.KindInvalidItem, "item %s is not registered", key.Hex())
	}
	return &h.Item, nil
}

func (c *contractClient) CreateShipment(ctx context.Context, sender common.Address, req ledger.CreateShipmentRequest) (*domain.Shipment, error) {
	if req.Price == nil || req.Price.Sign() <= 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "price must be positive")
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	receipt, err := c.transact(ctx, sender, value, "createShipment",
		req.Receiver, new(big.Int).SetUint64(req.Distance), req.Price)
	if err != nil {
		return nil, err
	}

	l := c.findLog(receipt, "ShipmentCreated")
	if l == nil || len(l.Topics) < 2 {
		return nil, domain.NewError(domain.KindTransportFailure, "transaction %s emitted no ShipmentCreated event", receipt.TxHash.Hex())
	}
	return c.shipmentAt(ctx, new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64())
}

func (c *contractClient) shipmentAt(ctx context.Context, index uint64) (*domain.Shipment, error) {
	all, err := c.GetAllShipments(ctx)
	if err != nil {
		return nil, err
	}
	if index >= uint64(len(all)) {
		return nil, domain.NewError(domain.KindTransportFailure, "shipment %d is not visible yet", index)
	}
	s := all[index]
	return &s, nil
}

func (c *contractClient) StartShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64) (*domain.Shipment, error) {
	if _, err := c.transact(ctx, sender, nil, "startShipment", receiver, new(big.Int).SetUint64(senderIndex)); err != nil {
		return nil, err
	}
	return c.GetShipment(ctx, sender, senderIndex)
}

func (c *contractClient) CompleteShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64) (*domain.Shipment, error) {
	if _, err := c.transact(ctx, sender, nil, "completeShipment", receiver, new(big.Int).SetUint64(senderIndex)); err != nil {
		return nil, err
	}
	return c.GetShipment(ctx, sender, senderIndex)
}
