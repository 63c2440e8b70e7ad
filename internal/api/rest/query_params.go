package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harvestline/escrow-ledger/internal/api/shared/executor"
	"github.com/harvestline/escrow-ledger/internal/domain"
)

const MAX_PAGE_SIZE = 100

// ListQueryParams holds query parameters for GET /batches and GET /shipments
type ListQueryParams struct {
	Status string `form:"status"`

	// Pagination
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// Validate validates the pagination parameters
func (p *ListQueryParams) Validate() error {
	if p.Limit < 1 || p.Limit > MAX_PAGE_SIZE {
		return fmt.Errorf("limit must be between 1 and %d", MAX_PAGE_SIZE)
	}
	if p.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	return nil
}

// ParseListQuery parses and validates list query parameters
func ParseListQuery(c *gin.Context) (*ListQueryParams, error) {
	var params ListQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, fmt.Errorf("invalid query parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

// BatchOptions converts the parameters to a batch listing
func (p *ListQueryParams) BatchOptions() (executor.BatchListOptions, error) {
	opts := executor.BatchListOptions{Limit: p.Limit, Offset: p.Offset}
	if p.Status != "" {
		status, err := domain.ParseBatchStatus(p.Status)
		if err != nil {
			return opts, err
		}
		opts.Status = &status
	}
	return opts, nil
}

// ShipmentOptions converts the parameters to a shipment listing
func (p *ListQueryParams) ShipmentOptions() (executor.ShipmentListOptions, error) {
	opts := executor.ShipmentListOptions{Limit: p.Limit, Offset: p.Offset}
	if p.Status != "" {
		var status domain.ShipmentStatus
		if err := status.UnmarshalText([]byte(p.Status)); err != nil {
			return opts, err
		}
		opts.Status = &status
	}
	return opts, nil
}

// parseUintParam reads a numeric path parameter such as a batch id
func parseUintParam(c *gin.Context, name string) (uint64, error) {
	raw := c.Param(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}
