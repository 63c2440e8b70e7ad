package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// ErrorCode represents a standardized error code.
// Ledger rejections use the domain error kind as their code.
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeForbidden        ErrorCode = "forbidden"

	// Server errors (5xx)
	ErrCodeInternalError  ErrorCode = "internal_error"
	ErrCodeNotImplemented ErrorCode = "not_implemented"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewNotFoundError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewValidationError(details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: "Validation failed",
		Details: strings.Join(details, ", "),
	}
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewInternalError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeInternalError,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewNotImplementedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeNotImplemented,
		Message: message,
	}
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindInvalidInput:      http.StatusBadRequest,
	domain.KindUnauthorized:      http.StatusForbidden,
	domain.KindInvalidTransition: http.StatusConflict,
	domain.KindAlreadyConsumed:   http.StatusConflict,
	domain.KindNotActive:         http.StatusConflict,
	domain.KindEscrowMismatch:    http.StatusUnprocessableEntity,
	domain.KindInvalidItem:       http.StatusUnprocessableEntity,
	domain.KindTransportFailure:  http.StatusGatewayTimeout,
}

var codeStatus = map[ErrorCode]int{
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeNotImplemented:   http.StatusNotImplemented,
}

// FromError maps any error to its HTTP status and API error.
// Ledger errors keep their kind as the code; anything unclassified is a 500.
func FromError(err error) (int, *APIError) {
	if apiErr, ok := err.(*APIError); ok {
		if status, ok := codeStatus[apiErr.Code]; ok {
			return status, apiErr
		}
		return http.StatusInternalServerError, apiErr
	}

	var ledgerErr *domain.Error
	if stderrors.As(err, &ledgerErr) {
		if status, ok := kindStatus[ledgerErr.Kind]; ok {
			message := ledgerErr.Reason
			if message == "" {
				message = ledgerErr.Error()
			}
			apiErr := &APIError{Code: ErrorCode(ledgerErr.Kind), Message: message}
			if ledgerErr.Err != nil {
				apiErr.Details = ledgerErr.Err.Error()
			}
			return status, apiErr
		}
	}
	return http.StatusInternalServerError, NewInternalError("Internal server error")
}
