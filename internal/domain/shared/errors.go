package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrStaleBaseline) matches any error carrying that code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps cause reachable through errors.Unwrap
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes shared by the catalog, ledger and sync contexts.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidScope           = "INVALID_SCOPE"
	CodeInvalidState           = "INVALID_STATE"
	CodeStaleBaseline          = "STALE_BASELINE"
	CodeNegativeStockRejected  = "NEGATIVE_STOCK_REJECTED"
	CodeSyncAlreadyRunning     = "SYNC_ALREADY_RUNNING"
	CodeProviderError          = "PROVIDER_ERROR"
	CodeReconciliationConflict = "RECONCILIATION_CONFLICT"
	CodeDuplicateRequest       = "DUPLICATE_REQUEST"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidScope           = NewDomainError(CodeInvalidScope, "Organization is missing or cannot be resolved")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrStaleBaseline          = NewDomainError(CodeStaleBaseline, "Stock baseline is stale, re-read current stock and retry")
	ErrNegativeStockRejected  = NewDomainError(CodeNegativeStockRejected, "Adjustment would drive stock below zero")
	ErrSyncAlreadyRunning     = NewDomainError(CodeSyncAlreadyRunning, "A sync of this type is already running for the organization")
	ErrReconciliationConflict = NewDomainError(CodeReconciliationConflict, "Ledger adjustments conflict with external stock")
	ErrDuplicateRequest       = NewDomainError(CodeDuplicateRequest, "A request with this idempotency key was already accepted")
)

// IsCode reports whether err carries the given domain error code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
