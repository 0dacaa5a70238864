// Package errors provides custom error types for the famledger API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is a sentinel AppError with the same code,
// so wrapped and re-messaged errors still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// CapacityError builds a capacity error that reports both the available
// and requested amounts, so clients can render an actionable message.
func CapacityError(sentinel *AppError, available, requested decimal.Decimal) *AppError {
	return WithMessage(sentinel, fmt.Sprintf("%s: available %s, requested %s",
		sentinel.Message, available.StringFixed(2), requested.StringFixed(2)))
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Spending category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse    = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing transactions", StatusCode: http.StatusConflict}
)

// Payment and income event errors.
var (
	ErrPaymentNotFound      = &AppError{Code: "PAYMENT_NOT_FOUND", Message: "Payment not found", StatusCode: http.StatusNotFound}
	ErrIncomeEventNotFound  = &AppError{Code: "INCOME_EVENT_NOT_FOUND", Message: "Income event not found", StatusCode: http.StatusNotFound}
	ErrPaymentCancelled     = &AppError{Code: "PAYMENT_CANCELLED", Message: "Payment has been cancelled", StatusCode: http.StatusBadRequest}
	ErrIncomeEventCancelled = &AppError{Code: "INCOME_EVENT_CANCELLED", Message: "Income event has been cancelled", StatusCode: http.StatusBadRequest}
	ErrInvalidIncomeStatus  = &AppError{Code: "INVALID_INCOME_STATUS", Message: "Income event is not in a valid status for this operation", StatusCode: http.StatusBadRequest}
	ErrInvalidPaymentStatus = &AppError{Code: "INVALID_PAYMENT_STATUS", Message: "Payment is not in a valid status for this operation", StatusCode: http.StatusBadRequest}
)

// Attribution errors. The two capacity errors distinguish which side of the
// ledger would be overcommitted.
var (
	ErrAttributionNotFound     = &AppError{Code: "ATTRIBUTION_NOT_FOUND", Message: "Attribution not found", StatusCode: http.StatusNotFound}
	ErrPaymentCapacityExceeded = &AppError{Code: "PAYMENT_CAPACITY_EXCEEDED", Message: "Amount exceeds the payment's remaining capacity", StatusCode: http.StatusUnprocessableEntity}
	ErrIncomeCapacityExceeded  = &AppError{Code: "INCOME_CAPACITY_EXCEEDED", Message: "Amount exceeds the income event's remaining amount", StatusCode: http.StatusUnprocessableEntity}
	ErrAttributionConflict     = &AppError{Code: "ATTRIBUTION_CONFLICT", Message: "Attribution does not belong to the referenced resource", StatusCode: http.StatusConflict}
	ErrConcurrentModification  = &AppError{Code: "CONCURRENT_MODIFICATION", Message: "The record was modified concurrently, please retry", StatusCode: http.StatusConflict}
	ErrInvalidAttributionType  = &AppError{Code: "INVALID_ATTRIBUTION_TYPE", Message: "Unsupported attribution type", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound      = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrBankAccountNotFound      = &AppError{Code: "BANK_ACCOUNT_NOT_FOUND", Message: "Bank account not found", StatusCode: http.StatusNotFound}
	ErrTransactionAlreadyLinked = &AppError{Code: "TRANSACTION_ALREADY_LINKED", Message: "Transaction is already linked to a payment", StatusCode: http.StatusConflict}
)
