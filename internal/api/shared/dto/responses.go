package dto

import (
	apierrors "github.com/harvestline/escrow-ledger/internal/api/shared/errors"
	"github.com/harvestline/escrow-ledger/internal/domain"
)

// BatchListResponse lists batches newest first
type BatchListResponse struct {
	Batches []domain.Batch `json:"batches"`
	Total   int            `json:"total"`
}

// ShipmentListResponse lists shipments newest first
type ShipmentListResponse struct {
	Shipments []domain.Shipment `json:"shipments"`
	Total     int               `json:"total"`
}

// EscrowMovementListResponse is the escrow journal of one batch
type EscrowMovementListResponse struct {
	BatchID   uint64                  `json:"batch_id"`
	Movements []domain.EscrowMovement `json:"movements"`
}

// ConsumeResult is the outcome for one serial of a consume request
type ConsumeResult struct {
	Serial    string              `json:"serial"`
	SerialKey domain.SerialKey    `json:"serial_key"`
	Item      *domain.Item        `json:"item,omitempty"`
	Error     *apierrors.APIError `json:"error,omitempty"`
}

// ConsumeResponse reports every serial; one failure does not stop the others
type ConsumeResponse struct {
	Results  []ConsumeResult `json:"results"`
	Consumed int             `json:"consumed"`
	Failed   int             `json:"failed"`
}

// VerifyResult is the verdict for one serial of a bulk request
type VerifyResult struct {
	Serial       string               `json:"serial"`
	Verification *domain.Verification `json:"verification,omitempty"`
	Error        *apierrors.APIError  `json:"error,omitempty"`
}

// VerifyResponse keeps the request order
type VerifyResponse struct {
	Results []VerifyResult `json:"results"`
}

// ShipmentCountResponse counts shipments globally and, when asked, for one sender
type ShipmentCountResponse struct {
	Sender string  `json:"sender,omitempty"`
	Count  *uint64 `json:"count,omitempty"`
	Total  uint64  `json:"total"`
}
