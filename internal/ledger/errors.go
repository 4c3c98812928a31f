package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Callers match them with errors.Is.
var (
	ErrNotFound        = errors.New("ledger: not found")
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("%w: credit request", ErrNotFound)

	ErrAlreadyDecided    = errors.New("ledger: credit request already decided")
	ErrInvalidAmount     = errors.New("ledger: invalid amount")
	ErrInvalidTarget     = errors.New("ledger: invalid target")
	ErrInvalidInput      = errors.New("ledger: invalid input")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrAccountInUse refuses deleting an account that has ledger entries or
	// credit requests.
	ErrAccountInUse = errors.New("ledger: account in use")

	// ErrBusy means the account lock could not be acquired in time. Nothing
	// was written.
	ErrBusy = errors.New("ledger: account busy")

	// ErrStore marks a durable-write or read fault in the backing store.
	ErrStore = errors.New("ledger: store error")

	ErrLedgerCorrupt = errors.New("ledger: ledger does not reconcile")
)

// StoreError wraps a fault reported by a Store implementation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// storeErr wraps err as a StoreError unless it already carries an engine
// sentinel.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isEngineError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isEngineError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountInUse) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrStore) ||
		errors.Is(err, ErrLedgerCorrupt)
}

// IsNotFound returns true if the error reports a missing account or request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the same logical operation may be retried by
// the caller. Nothing has been committed in either case.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrStore)
}

// IsUserError returns true for expected, user-facing rejections.
func IsUserError(err error) bool {
	return err != nil && isEngineError(err) &&
		!errors.Is(err, ErrStore) && !errors.Is(err, ErrLedgerCorrupt)
}
