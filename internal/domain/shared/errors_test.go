package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewDomainError(CodeNotFound, "account 42 not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidState))

	wrapped := fmt.Errorf("load: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestDomainError_WithDetailCopies(t *testing.T) {
	base := NewDomainError(CodeUnbalancedEntry, "unbalanced")
	withDebit := base.WithDetail("debit", "100.00")
	withBoth := withDebit.WithDetail("credit", "90.00")

	assert.Nil(t, base.Details)
	assert.Len(t, withDebit.Details, 1)
	assert.Len(t, withBoth.Details, 2)
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("amount", "must be positive")
	assert.Equal(t, CodeInvalidInput, err.Code)
	assert.Equal(t, "amount: must be positive", err.Error())
	assert.Equal(t, "amount", err.Details["field"])
}

func TestAsDomainError(t *testing.T) {
	de, ok := AsDomainError(fmt.Errorf("ctx: %w", ErrDoubleClaim))
	require.True(t, ok)
	assert.Equal(t, CodeDoubleClaim, de.Code)

	_, ok = AsDomainError(errors.New("plain"))
	assert.False(t, ok)
}
