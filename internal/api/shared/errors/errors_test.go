package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apierrors "github.com/harvestline/escrow-ledger/internal/api/shared/errors"
	"github.com/harvestline/escrow-ledger/internal/domain"
)

func TestFromError_LedgerKinds(t *testing.T) {
	tests := []struct {
		kind   domain.ErrorKind
		status int
	}{
		{domain.KindInvalidInput, http.StatusBadRequest},
		{domain.KindUnauthorized, http.StatusForbidden},
		{domain.KindInvalidTransition, http.StatusConflict},
		{domain.KindAlreadyConsumed, http.StatusConflict},
		{domain.KindNotActive, http.StatusConflict},
		{domain.KindEscrowMismatch, http.StatusUnprocessableEntity},
		{domain.KindInvalidItem, http.StatusUnprocessableEntity},
		{domain.KindTransportFailure, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			status, apiErr := apierrors.FromError(domain.NewError(tt.kind, "batch %d rejected", 3))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, apierrors.ErrorCode(tt.kind), apiErr.Code)
			assert.Equal(t, "batch 3 rejected", apiErr.Message)
		})
	}
}

func TestFromError_WrappedLedgerError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("failed to fund: %w",
		domain.WrapError(domain.KindTransportFailure, cause, "ledger store unavailable"))

	status, apiErr := apierrors.FromError(err)
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "ledger store unavailable", apiErr.Message)
	assert.Equal(t, "connection reset", apiErr.Details)
}

func TestFromError_APIErrors(t *testing.T) {
	status, apiErr := apierrors.FromError(apierrors.NewValidationError("limit must be positive"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apierrors.ErrCodeValidationFailed, apiErr.Code)

	status, _ = apierrors.FromError(apierrors.NewNotImplementedError("nope"))
	assert.Equal(t, http.StatusNotImplemented, status)

	status, _ = apierrors.FromError(apierrors.NewUnauthorizedError("no token"))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestFromError_UnclassifiedIsHidden(t *testing.T) {
	status, apiErr := apierrors.FromError(errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apierrors.ErrCodeInternalError, apiErr.Code)
	assert.NotContains(t, apiErr.Message, "password")
}
