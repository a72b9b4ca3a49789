package shared

import (
	"errors"
	"fmt"
	"maps"
)

// Error codes shared by every bounded context. The HTTP layer maps them to
// status codes, so a code must never change meaning once published.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidState           = "INVALID_STATE"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeLockNotObtained        = "LOCK_NOT_OBTAINED"
	CodeUnbalancedEntry        = "UNBALANCED_ENTRY"
	CodeInvalidAccountState    = "INVALID_ACCOUNT_STATE"
	CodeNoMatchingTier         = "NO_MATCHING_TIER"
	CodeMissingCategoryRate    = "MISSING_CATEGORY_RATE"
	CodeSplitConservation      = "SPLIT_CONSERVATION"
	CodeUnreconciledDifference = "UNRECONCILED_DIFFERENCE"
	CodeDoubleClaim            = "DOUBLE_CLAIM"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrNotFound) holds for any not-found error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail field
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	maps.Copy(details, e.Details)
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed input rejected before any mutation
func NewValidationError(field, reason string) *DomainError {
	return NewDomainError(CodeInvalidInput, fmt.Sprintf("%s: %s", field, reason)).
		WithDetail("field", field)
}

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrLockNotObtained        = NewDomainError(CodeLockNotObtained, "Resource is busy, retry later")
	ErrUnbalancedEntry        = NewDomainError(CodeUnbalancedEntry, "Journal entry debits and credits differ")
	ErrInvalidAccountState    = NewDomainError(CodeInvalidAccountState, "Account cannot accept this operation")
	ErrNoMatchingTier         = NewDomainError(CodeNoMatchingTier, "No commission tier matches the amount")
	ErrMissingCategoryRate    = NewDomainError(CodeMissingCategoryRate, "No commission rate configured for category")
	ErrSplitConservation      = NewDomainError(CodeSplitConservation, "Commission split does not sum to the order amount")
	ErrUnreconciledDifference = NewDomainError(CodeUnreconciledDifference, "Reconciliation difference is not zero")
	ErrDoubleClaim            = NewDomainError(CodeDoubleClaim, "Commission already claimed by another payout")
)

// AsDomainError extracts the DomainError carried by err, if any
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsNotFound reports whether err carries the NOT_FOUND code
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
