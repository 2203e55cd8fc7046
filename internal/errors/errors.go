package errors

import (
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Authentication errors (401xx)
	ErrInvalidCredentials ErrorCode = "40101"
	ErrTokenExpired       ErrorCode = "40102"

	// Authorization errors (403xx)
	ErrForbidden       ErrorCode = "40301"
	ErrAccountNotOwned ErrorCode = "40302"

	// Resource errors (404xx)
	ErrPeriodNotFound      ErrorCode = "40401"
	ErrAccountNotFound     ErrorCode = "40402"
	ErrTransactionNotFound ErrorCode = "40403"
	ErrUserNotFound        ErrorCode = "40404"

	// Request errors (400xx)
	ErrInvalidRequest      ErrorCode = "40001"
	ErrValidationFailed    ErrorCode = "40002"
	ErrInsufficientBalance ErrorCode = "40003"
	ErrAccountNotVerified  ErrorCode = "40004"
	ErrPeriodAlreadyFinal  ErrorCode = "40005"

	// Conflict errors (409xx)
	ErrPayoutInFlight ErrorCode = "40901"

	// Server errors (500xx)
	ErrInternalServer      ErrorCode = "50001"
	ErrProviderUnavailable ErrorCode = "50301"
)

// APIError represents a standardized API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorResponse represents the error response format
type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id"`
	Path      string   `json:"path,omitempty"`
	Method    string   `json:"method,omitempty"`
}

// NewErrorResponse builds the standard error envelope
func NewErrorResponse(err *APIError, requestID, path, method string) *ErrorResponse {
	return &ErrorResponse{
		Error:     *err,
		RequestID: requestID,
		Path:      path,
		Method:    method,
	}
}

// Common errors
var (
	ErrInvalidCredentialsError = &APIError{
		Code:       ErrInvalidCredentials,
		Message:    "Invalid or missing credentials",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpiredError = &APIError{
		Code:       ErrTokenExpired,
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbiddenError = &APIError{
		Code:       ErrForbidden,
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	ErrPeriodNotFoundError = &APIError{
		Code:       ErrPeriodNotFound,
		Message:    "Earnings period not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrAccountNotFoundError = &APIError{
		Code:       ErrAccountNotFound,
		Message:    "Payout account not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrTransactionNotFoundError = &APIError{
		Code:       ErrTransactionNotFound,
		Message:    "Payout transaction not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrInsufficientBalanceError = &APIError{
		Code:       ErrInsufficientBalance,
		Message:    "Available balance is insufficient for this payout",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrAccountNotVerifiedError = &APIError{
		Code:       ErrAccountNotVerified,
		Message:    "Payout account is not verified",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrPeriodAlreadyFinalError = &APIError{
		Code:       ErrPeriodAlreadyFinal,
		Message:    "Earnings period is already finalized",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrPayoutInFlightError = &APIError{
		Code:       ErrPayoutInFlight,
		Message:    "Another payout is already in progress for this creator",
		HTTPStatus: http.StatusConflict,
	}

	ErrInternalServerError = &APIError{
		Code:       ErrInternalServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrProviderUnavailableError = &APIError{
		Code:       ErrProviderUnavailable,
		Message:    "Payout provider unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// NewValidationError creates a validation error with details
func NewValidationError(details any) *APIError {
	return &APIError{
		Code:       ErrValidationFailed,
		Message:    "Validation failed",
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewProviderError creates a provider failure error carrying the provider message
func NewProviderError(message string) *APIError {
	return &APIError{
		Code:       ErrProviderUnavailable,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
	}
}
