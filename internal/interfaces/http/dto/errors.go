package dto

import (
	"net/http"

	"github.com/clutch/ledger/internal/domain/shared"
)

// Transport-level error codes. Domain failures keep the code of their
// shared.DomainError.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"

	ErrCodeRequestInProgress   = "REQUEST_IN_PROGRESS"
	ErrCodeIdempotencyKeyReuse = "IDEMPOTENCY_KEY_REUSED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,

	ErrCodeRequestInProgress:   http.StatusConflict,
	ErrCodeIdempotencyKeyReuse: http.StatusUnprocessableEntity,

	shared.CodeInvalidInput: http.StatusBadRequest,
	shared.CodeNotFound:     http.StatusNotFound,

	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeDoubleClaim:         http.StatusConflict,
	shared.CodeLockNotObtained:     http.StatusConflict,

	shared.CodeInvalidState:           http.StatusUnprocessableEntity,
	shared.CodeUnbalancedEntry:        http.StatusUnprocessableEntity,
	shared.CodeInvalidAccountState:    http.StatusUnprocessableEntity,
	shared.CodeNoMatchingTier:         http.StatusUnprocessableEntity,
	shared.CodeMissingCategoryRate:    http.StatusUnprocessableEntity,
	shared.CodeSplitConservation:      http.StatusUnprocessableEntity,
	shared.CodeUnreconciledDifference: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
