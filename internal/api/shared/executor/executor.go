package executor

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/api/shared/dto"
	apierrors "github.com/harvestline/escrow-ledger/internal/api/shared/errors"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/serial"
	"github.com/harvestline/escrow-ledger/internal/verify"
)

// MaxBulkSerials caps the serials of one bulk verify or consume request
const MaxBulkSerials = 500

// Executor holds the ledger use cases behind the REST handlers.
// Every mutating call takes the authenticated caller's address.
type Executor interface {
	ListBatches(ctx context.Context, opts BatchListOptions) (*dto.BatchListResponse, error)
	GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error)
	GetEscrowMovements(ctx context.Context, batchID uint64) (*dto.EscrowMovementListResponse, error)

	CreateBatch(ctx context.Context, caller common.Address, req dto.CreateBatchRequest) (*domain.Batch, error)
	FundBatch(ctx context.Context, caller common.Address, batchID uint64, req dto.FundBatchRequest) (*domain.Batch, error)
	ConfirmPickup(ctx context.Context, caller common.Address, batchID uint64) (*domain.Batch, error)
	ConfirmDelivery(ctx context.Context, caller common.Address, batchID uint64) (*domain.Batch, error)
	DenyDelivery(ctx context.Context, caller common.Address, batchID uint64, req dto.DenyDeliveryRequest) (*domain.Batch, error)
	ApproveRefund(ctx context.Context, caller common.Address, batchID uint64) (*domain.Batch, error)

	ActivateItems(ctx context.Context, caller common.Address, batchID uint64, req dto.SerialsRequest) (*domain.Batch, error)
	ConsumeItems(ctx context.Context, caller common.Address, req dto.SerialsRequest) (*dto.ConsumeResponse, error)

	Verify(ctx context.Context, serialNumber string) (*domain.Verification, error)
	VerifyMany(ctx context.Context, req dto.VerifyRequest) (*dto.VerifyResponse, error)

	ListShipments(ctx context.Context, opts ShipmentListOptions) (*dto.ShipmentListResponse, error)
	CountShipments(ctx context.Context, sender string) (*dto.ShipmentCountResponse, error)
	CreateShipment(ctx context.Context, caller common.Address, req dto.CreateShipmentRequest) (*domain.Shipment, error)
	StartShipment(ctx context.Context, caller common.Address, senderIndex uint64, req dto.ShipmentActionRequest) (*domain.Shipment, error)
	CompleteShipment(ctx context.Context, caller common.Address, senderIndex uint64, req dto.ShipmentActionRequest) (*domain.Shipment, error)
}

// BatchListOptions filters and pages a batch listing. A zero Limit means no limit.
type BatchListOptions struct {
	Status *domain.BatchStatus
	Limit  int
	Offset int
}

// ShipmentListOptions filters and pages a shipment listing
type ShipmentListOptions struct {
	Status *domain.ShipmentStatus
	Limit  int
	Offset int
}

// Projection is the reconciled read model served by list endpoints
type Projection interface {
	Batches() []domain.Batch
	Shipments() []domain.Shipment
}

// EscrowJournal exposes escrow movements; only the engine backend keeps one
type EscrowJournal interface {
	EscrowMovements(ctx context.Context, batchID uint64) ([]domain.EscrowMovement, error)
}

// Verifier answers authenticity queries
type Verifier interface {
	Verify(ctx context.Context, serialNumber string) (*domain.Verification, error)
	VerifyMany(ctx context.Context, serials []string) []verify.Result
}

type executor struct {
	writer     ledger.Writer
	reader     ledger.Reader
	verifier   Verifier
	projection Projection
	journal    EscrowJournal
}

// NewExecutor creates the executor. projection and journal may be nil; lists then
// read the ledger directly and escrow movements are not available.
func NewExecutor(writer ledger.Writer, reader ledger.Reader, verifier Verifier, projection Projection, journal EscrowJournal) Executor {
	return &executor{
		writer:     writer,
		reader:     reader,
		verifier:   verifier,
		projection: projection,
		journal:    journal,
	}
}

func (e *executor) ListBatches(ctx context.Context, opts BatchListOptions) (*dto.BatchListResponse, error) {
	var batches []domain.Batch
	if e.projection != nil {
		batches = e.projection.Batches()
	} else {
		var err error
		if batches, err = e.reader.GetAllBatches(ctx); err != nil {
			return nil, err
		}
	}

	if opts.Status != nil {
		filtered := batches[:0:0]
		for _, b := range batches {
			if b.Status == *opts.Status {
				filtered = append(filtered, b)
			}
		}
		batches = filtered
	}
	batches = ledger.NewestBatchesFirst(batches)
	return &dto.BatchListResponse{
		Batches: page(batches, opts.Limit, opts.Offset),
		Total:   len(batches),
	}, nil
}

func (e *executor) GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error) {
	return e.reader.GetBatch(ctx, batchID)
}

func (e *executor) GetEscrowMovements(ctx context.Context, batchID uint64) (*dto.EscrowMovementListResponse, error) {
	if e.journal == nil {
		return nil, apierrors.NewNotImplementedError("Escrow movements are only recorded by the engine ledger")
	}
	movements, err := e.journal.EscrowMovements(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &dto.EscrowMovementListResponse{BatchID: batchID, Movements: movements}, nil
}

func (e *executor) CreateBatch(ctx context.Context, caller common.Address, req dto.CreateBatchRequest) (*domain.Batch, error) {
	distributor, err := domain.ParseAddress(req.Distributor)
	if err != nil {
		return nil, err
	}
	retailer, err := domain.ParseAddress(req.Retailer)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount(req.Price, req.PriceEth, "price")
	if err != nil {
		return nil, err
	}
	pairs, err := serialPairs(req.Serials, req.SerialsText)
	if err != nil {
		return nil, err
	}

	return e.writer.CreateBatch(ctx, caller, ledger.CreateBatchRequest{
		ProduceName:  strings.TrimSpace(req.ProduceName),
		FarmLocation: strings.TrimSpace(req.FarmLocation),
		IPFSHash:     strings.TrimSpace(req.IPFSHash),
		Distributor:  distributor,
		Retailer:     retailer,
		Price:        price,
		SerialKeys:   keysOf(pairs),
	})
}

func (e *executor) FundBatch(ctx context.Context, caller common.Address, batchID uint64, req dto.FundBatchRequest) (*domain.Batch, error) {
	value, err := parseAmount(req.Value, req.ValueEth, "value")
	if err != nil {
		return nil, err
	}
	return e.writer.FundBatch(ctx, caller, batchID, value)
}

func (e *executor) ConfirmPickup(ctx context.Context, caller common.Address, batchID uint64) (*domain.Batch, error) {
	return e.writer.ConfirmPickupByDistributor(ctx, caller, batchID)
}

func (e *executor) ConfirmDelivery(ctx context.Context, caller common.Address, batchID uint64) (*domain.Batch, error) {
	return e.writer.ConfirmDelivery(ctx, caller, batchID)
}

func (e *executor) DenyDelivery(ctx context.Context, caller common.Address, batchID uint64, req dto.DenyDeliveryRequest) (*domain.Batch, error) {
	if !req.Confirm {
		return nil, apierrors.NewBadRequestError("Denying delivery cannot be undone", "set confirm to true")
	}
	return e.writer.DenyDelivery(ctx, caller, batchID)
}

func (e *executor) ApproveRefund(ctx context.Context, caller common.Address, batchID uint64) (*domain.Batch, error) {
	return e.writer.ApproveRefund(ctx, caller, batchID)
}

func (e *executor) ActivateItems(ctx context.Context, caller common.Address, batchID uint64, req dto.SerialsRequest) (*domain.Batch, error) {
	pairs, err := serialPairs(req.Serials, req.SerialsText)
	if err != nil {
		return nil, err
	}
	return e.writer.ActivateItemsByRetailer(ctx, caller, batchID, keysOf(pairs))
}

func (e *executor) ConsumeItems(ctx context.Context, caller common.Address, req dto.SerialsRequest) (*dto.ConsumeResponse, error) {
	pairs, err := serialPairs(req.Serials, req.SerialsText)
	if err != nil {
		return nil, err
	}
	if len(pairs) > MaxBulkSerials {
		return nil, apierrors.NewValidationError("at most 500 serials per request")
	}

	results := ledger.ConsumeEach(ctx, e.writer, caller, keysOf(pairs))

	resp := &dto.ConsumeResponse{Results: make([]dto.ConsumeResult, len(results))}
	for i, r := range results {
		out := dto.ConsumeResult{Serial: pairs[i].Serial, SerialKey: r.SerialKey, Item: r.Item}
		if r.Err != nil {
			_, out.Error = apierrors.FromError(r.Err)
			resp.Failed++
		} else {
			resp.Consumed++
		}
		resp.Results[i] = out
	}
	return resp, nil
}

func (e *executor) Verify(ctx context.Context, serialNumber string) (*domain.Verification, error) {
	return e.verifier.Verify(ctx, serialNumber)
}

func (e *executor) VerifyMany(ctx context.Context, req dto.VerifyRequest) (*dto.VerifyResponse, error) {
	if len(req.Serials) == 0 {
		return nil, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "no serials to verify")
	}
	if len(req.Serials) > MaxBulkSerials {
		return nil, apierrors.NewValidationError("at most 500 serials per request")
	}

	results := e.verifier.VerifyMany(ctx, req.Serials)
	resp := &dto.VerifyResponse{Results: make([]dto.VerifyResult, len(results))}
	for i, r := range results {
		out := dto.VerifyResult{Serial: r.Serial, Verification: r.Verification}
		if r.Err != nil {
			_, out.Error = apierrors.FromError(r.Err)
		}
		resp.Results[i] = out
	}
	return resp, nil
}

func (e *executor) ListShipments(ctx context.Context, opts ShipmentListOptions) (*dto.ShipmentListResponse, error) {
	var shipments []domain.Shipment
	if e.projection != nil {
		shipments = e.projection.Shipments()
	} else {
		var err error
		if shipments, err = e.reader.GetAllShipments(ctx); err != nil {
			return nil, err
		}
	}

	if opts.Status != nil {
		filtered := shipments[:0:0]
		for _, s := range shipments {
			if s.Status == *opts.Status {
				filtered = append(filtered, s)
			}
		}
		shipments = filtered
	}
	shipments = ledger.NewestShipmentsFirst(shipments)
	return &dto.ShipmentListResponse{
		Shipments: page(shipments, opts.Limit, opts.Offset),
		Total:     len(shipments),
	}, nil
}

func (e *executor) CountShipments(ctx context.Context, sender string) (*dto.ShipmentCountResponse, error) {
	total, err := e.reader.ShipmentCount(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.ShipmentCountResponse{Total: total}

	if strings.TrimSpace(sender) != "" {
		addr, err := domain.ParseAddress(sender)
		if err != nil {
			return nil, err
		}
		count, err := e.reader.GetShipmentCount(ctx, addr)
		if err != nil {
			return nil, err
		}
		resp.Sender = addr.Hex()
		resp.Count = &count
	}
	return resp, nil
}

func (e *executor) CreateShipment(ctx context.Context, caller common.Address, req dto.CreateShipmentRequest) (*domain.Shipment, error) {
	receiver, err := domain.ParseAddress(req.Receiver)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount(req.Price, req.PriceEth, "price")
	if err != nil {
		return nil, err
	}
	value := price
	if req.Value != "" || req.ValueEth != "" {
		if value, err = parseAmount(req.Value, req.ValueEth, "value"); err != nil {
			return nil, err
		}
	}

	return e.writer.CreateShipment(ctx, caller, ledger.CreateShipmentRequest{
		Receiver: receiver,
		Distance: req.Distance,
		Price:    price,
		Value:    value,
	})
}

func (e *executor) StartShipment(ctx context.Context, caller common.Address, senderIndex uint64, req dto.ShipmentActionRequest) (*domain.Shipment, error) {
	receiver, err := domain.ParseAddress(req.Receiver)
	if err != nil {
		return nil, err
	}
	return e.writer.StartShipment(ctx, caller, receiver, senderIndex)
}

func (e *executor) CompleteShipment(ctx context.Context, caller common.Address, senderIndex uint64, req dto.ShipmentActionRequest) (*domain.Shipment, error) {
	receiver, err := domain.ParseAddress(req.Receiver)
	if err != nil {
		return nil, err
	}
	return e.writer.CompleteShipment(ctx, caller, receiver, senderIndex)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// parseAmount reads a wei amount, falling back to its decimal ether form
func parseAmount(wei, eth, field string) (*big.Int, error) {
	switch {
	case strings.TrimSpace(wei) != "":
		return domain.ParseWei(wei)
	case strings.TrimSpace(eth) != "":
		return domain.ParseEther(eth)
	}
	return nil, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "%s is required", field)
}

// serialPairs merges the list and text forms and derives each key
func serialPairs(list []string, text string) ([]serial.Pair, error) {
	serials := append(append([]string{}, list...), serial.SplitLines(text)...)
	pairs := serial.DerivePairs(serials)
	if len(pairs) == 0 {
		return nil, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "no serial numbers given")
	}
	return pairs, nil
}

func keysOf(pairs []serial.Pair) []domain.SerialKey {
	keys := make([]domain.SerialKey, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	return keys
}
