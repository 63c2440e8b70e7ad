package rest

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/harvestline/escrow-ledger/internal/api/middleware"
	"github.com/harvestline/escrow-ledger/internal/api/shared/dto"
	apierrors "github.com/harvestline/escrow-ledger/internal/api/shared/errors"
	"github.com/harvestline/escrow-ledger/internal/api/shared/executor"
	"github.com/harvestline/escrow-ledger/internal/domain"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// ListBatches lists the reconciled batches, newest first
	// GET /api/v1/batches?status=<status>&limit=<limit>&offset=<offset>
	ListBatches(c *gin.Context)

	// GetBatch reads one batch from the ledger
	// GET /api/v1/batches/:id
	GetBatch(c *gin.Context)

	// GetEscrowMovements lists the escrow journal of a batch
	// GET /api/v1/batches/:id/escrow
	GetEscrowMovements(c *gin.Context)

	// CreateBatch registers a harvest; the caller is the farmer
	// POST /api/v1/batches
	CreateBatch(c *gin.Context)

	// FundBatch deposits escrow; the caller is the retailer
	// POST /api/v1/batches/:id/fund
	FundBatch(c *gin.Context)

	// ConfirmPickup POST /api/v1/batches/:id/pickup
	ConfirmPickup(c *gin.Context)

	// ConfirmDelivery POST /api/v1/batches/:id/deliver
	ConfirmDelivery(c *gin.Context)

	// DenyDelivery POST /api/v1/batches/:id/deny with {"confirm": true}
	DenyDelivery(c *gin.Context)

	// ApproveRefund POST /api/v1/batches/:id/refund
	ApproveRefund(c *gin.Context)

	// ActivateItems puts serials of a delivered batch in store
	// POST /api/v1/batches/:id/items/activate
	ActivateItems(c *gin.Context)

	// ConsumeItems consumes serials one by one and reports each outcome
	// POST /api/v1/items/consume
	ConsumeItems(c *gin.Context)

	// Verify GET /api/v1/verify/:serial
	Verify(c *gin.Context)

	// VerifyMany POST /api/v1/verify
	VerifyMany(c *gin.Context)

	// ListShipments GET /api/v1/shipments?status=<status>&limit=<limit>&offset=<offset>
	ListShipments(c *gin.Context)

	// CountShipments GET /api/v1/shipments/count?sender=<address>
	CountShipments(c *gin.Context)

	// CreateShipment POST /api/v1/shipments
	CreateShipment(c *gin.Context)

	// StartShipment POST /api/v1/shipments/:index/start
	StartShipment(c *gin.Context)

	// CompleteShipment POST /api/v1/shipments/:index/complete
	CompleteShipment(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

func (h *handler) ListBatches(c *gin.Context) {
	params, err := ParseListQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	opts, err := params.BatchOptions()
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.ListBatches(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetBatch(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	batch, err := h.executor.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *handler) GetEscrowMovements(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	resp, err := h.executor.GetEscrowMovements(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CreateBatch(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	var req dto.CreateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.executor.CreateBatch(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (h *handler) FundBatch(c *gin.Context) {
	caller, batchID, ok := batchAction(c)
	if !ok {
		return
	}
	var req dto.FundBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondBatch(c, func() (*domain.Batch, error) {
		return h.executor.FundBatch(c.Request.Context(), caller, batchID, req)
	})
}

func (h *handler) ConfirmPickup(c *gin.Context) {
	caller, batchID, ok := batchAction(c)
	if !ok {
		return
	}
	h.respondBatch(c, func() (*domain.Batch, error) {
		return h.executor.ConfirmPickup(c.Request.Context(), caller, batchID)
	})
}

func (h *handler) ConfirmDelivery(c *gin.Context) {
	caller, batchID, ok := batchAction(c)
	if !ok {
		return
	}
	h.respondBatch(c, func() (*domain.Batch, error) {
		return h.executor.ConfirmDelivery(c.Request.Context(), caller, batchID)
	})
}

func (h *handler) DenyDelivery(c *gin.Context) {
	caller, batchID, ok := batchAction(c)
	if !ok {
		return
	}
	var req dto.DenyDeliveryRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondBatch(c, func() (*domain.Batch, error) {
		return h.executor.DenyDelivery(c.Request.Context(), caller, batchID, req)
	})
}

func (h *handler) ApproveRefund(c *gin.Context) {
	caller, batchID, ok := batchAction(c)
	if !ok {
		return
	}
	h.respondBatch(c, func() (*domain.Batch, error) {
		return h.executor.ApproveRefund(c.Request.Context(), caller, batchID)
	})
}

func (h *handler) ActivateItems(c *gin.Context) {
	caller, batchID, ok := batchAction(c)
	if !ok {
		return
	}
	var req dto.SerialsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondBatch(c, func() (*domain.Batch, error) {
		return h.executor.ActivateItems(c.Request.Context(), caller, batchID, req)
	})
}

func (h *handler) ConsumeItems(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	var req dto.SerialsRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.executor.ConsumeItems(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	// Per-serial failures are reported in the body
	c.JSON(http.StatusOK, resp)
}

func (h *handler) Verify(c *gin.Context) {
	verification, err := h.executor.Verify(c.Request.Context(), c.Param("serial"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}

func (h *handler) VerifyMany(c *gin.Context) {
	var req dto.VerifyRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.executor.VerifyMany(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) ListShipments(c *gin.Context) {
	params, err := ParseListQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	opts, err := params.ShipmentOptions()
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.ListShipments(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CountShipments(c *gin.Context) {
	resp, err := h.executor.CountShipments(c.Request.Context(), c.Query("sender"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CreateShipment(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	var req dto.CreateShipmentRequest
	if !bindJSON(c, &req) {
		return
	}

	shipment, err := h.executor.CreateShipment(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

func (h *handler) StartShipment(c *gin.Context) {
	caller, index, req, ok := shipmentAction(c)
	if !ok {
		return
	}
	shipment, err := h.executor.StartShipment(c.Request.Context(), caller, index, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func (h *handler) CompleteShipment(c *gin.Context) {
	caller, index, req, ok := shipmentAction(c)
	if !ok {
		return
	}
	shipment, err := h.executor.CompleteShipment(c.Request.Context(), caller, index, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "escrow-ledger-api",
	})
}

func (h *handler) respondBatch(c *gin.Context, call func() (*domain.Batch, error)) {
	batch, err := call()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// callerOf reads the address the auth middleware resolved for this request
func callerOf(c *gin.Context) (common.Address, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		respondError(c, apierrors.NewUnauthorizedError("Authentication required", "token subject is not an address"))
	}
	return caller, ok
}

func batchIDParam(c *gin.Context) (uint64, bool) {
	batchID, err := parseUintParam(c, "id")
	if err != nil {
		respondBadRequest(c, "Invalid batch id", err.Error())
		return 0, false
	}
	return batchID, true
}

func batchAction(c *gin.Context) (common.Address, uint64, bool) {
	caller, ok := callerOf(c)
	if !ok {
		return common.Address{}, 0, false
	}
	batchID, ok := batchIDParam(c)
	return caller, batchID, ok
}

func shipmentAction(c *gin.Context) (common.Address, uint64, dto.ShipmentActionRequest, bool) {
	var req dto.ShipmentActionRequest
	caller, ok := callerOf(c)
	if !ok {
		return caller, 0, req, false
	}
	index, err := parseUintParam(c, "index")
	if err != nil {
		respondBadRequest(c, "Invalid shipment index", err.Error())
		return caller, 0, req, false
	}
	if !bindJSON(c, &req) {
		return caller, 0, req, false
	}
	return caller, index, req, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}
