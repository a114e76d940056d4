package dto

import (
	"net/http"

	"github.com/catalogmirror/backend/internal/domain/shared"
)

// Transport level codes that have no domain counterpart
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:   http.StatusBadRequest,
	shared.CodeInvalidScope: http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	shared.CodeNotFound: http.StatusNotFound,

	shared.CodeStaleBaseline:          http.StatusConflict,
	shared.CodeSyncAlreadyRunning:     http.StatusConflict,
	shared.CodeInvalidState:           http.StatusConflict,
	shared.CodeReconciliationConflict: http.StatusConflict,
	shared.CodeDuplicateRequest:       http.StatusConflict,

	shared.CodeNegativeStockRejected: http.StatusUnprocessableEntity,

	shared.CodeProviderError: http.StatusBadGateway,

	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
