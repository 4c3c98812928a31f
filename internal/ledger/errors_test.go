package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	driverErr := errors.New("pq: connection reset")
	wrapped := storeErr("apply_delta", driverErr)

	assert.ErrorIs(t, wrapped, ErrStore)
	assert.ErrorIs(t, wrapped, driverErr)
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsUserError(wrapped))

	// Engine errors pass through unchanged.
	insufficient := fmt.Errorf("%w: balance 0.00", ErrInsufficientFunds)
	assert.Same(t, insufficient, storeErr("apply_delta", insufficient))
	assert.True(t, IsUserError(insufficient))
	assert.False(t, IsRetryable(insufficient))

	assert.True(t, IsNotFound(ErrAccountNotFound))
	assert.True(t, IsNotFound(ErrRequestNotFound))
	assert.False(t, IsNotFound(ErrAlreadyDecided))

	busy := fmt.Errorf("%w: seller-1: %w", ErrBusy, errors.New("context deadline exceeded"))
	assert.True(t, IsRetryable(busy))
	assert.True(t, IsUserError(busy))

	inUse := fmt.Errorf("%w: seller-1 has 3 ledger entries", ErrAccountInUse)
	assert.Same(t, inUse, storeErr("delete_account", inUse))
	assert.True(t, IsUserError(inUse))

	assert.False(t, IsUserError(ErrLedgerCorrupt))
	assert.Nil(t, storeErr("noop", nil))
}
