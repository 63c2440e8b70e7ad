package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/harvestline/escrow-ledger/internal/api/shared/errors"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

// errorResponse is the envelope of every error body
type errorResponse struct {
	Error *apierrors.APIError `json:"error"`
}

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondError(c, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	respondError(c, apierrors.NewValidationError(message))
}

// respondError maps err onto its status. Unclassified errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	status, apiErr := apierrors.FromError(err)
	if status >= 500 {
		logger.ErrorCtx(c.Request.Context(), err,
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: apiErr})
}
