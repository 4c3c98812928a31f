package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

// tx buffers the writes of one Atomic unit. Reads see the buffered state
// first, then the store.
type tx struct {
	store *Store

	accounts map[string]models.Account
	deleted  map[string]bool
	entries  []models.LedgerEntry
	requests map[string]models.CreditRequest
	spends   []models.SpendTransaction
}

var _ ledger.Tx = (*tx)(nil)

func (t *tx) LockAccount(_ context.Context, accountID string) (*models.Account, error) {
	if a, ok := t.accounts[accountID]; ok {
		return &a, nil
	}

	t.store.mu.RLock()
	a, ok := t.store.accounts[accountID]
	t.store.mu.RUnlock()
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	t.accounts[accountID] = a
	return &a, nil
}

func (t *tx) SaveBalance(ctx context.Context, accountID string, balance decimal.Decimal, seq int64, updatedAt time.Time) error {
	a, err := t.LockAccount(ctx, accountID)
	if err != nil {
		return err
	}
	a.Balance = balance
	a.LedgerSeq = seq
	a.UpdatedAt = updatedAt
	t.accounts[accountID] = *a
	return nil
}

func (t *tx) AppendEntry(_ context.Context, entry *models.LedgerEntry) error {
	if _, ok := t.accounts[entry.AccountID]; !ok {
		return fmt.Errorf("memory: account %s not locked in this unit", entry.AccountID)
	}
	t.entries = append(t.entries, *entry)
	return nil
}

func (t *tx) UpdateAccount(_ context.Context, account *models.Account) error {
	a, ok := t.accounts[account.ID]
	if !ok {
		return fmt.Errorf("memory: account %s not locked in this unit", account.ID)
	}
	a.Name = account.Name
	a.Email = account.Email
	a.PhoneNumber = account.PhoneNumber
	a.UpdatedAt = account.UpdatedAt
	t.accounts[account.ID] = a
	return nil
}

func (t *tx) DeleteAccount(_ context.Context, accountID string) error {
	if _, ok := t.accounts[accountID]; !ok {
		return fmt.Errorf("memory: account %s not locked in this unit", accountID)
	}

	t.store.mu.RLock()
	err := t.store.inUse(accountID)
	t.store.mu.RUnlock()
	if err != nil {
		return err
	}
	t.deleted[accountID] = true
	return nil
}

func (t *tx) LockCreditRequest(_ context.Context, requestID string) (*models.CreditRequest, error) {
	if r, ok := t.requests[requestID]; ok {
		return &r, nil
	}

	t.store.mu.RLock()
	r, ok := t.store.requests[requestID]
	t.store.mu.RUnlock()
	if !ok {
		return nil, ledger.ErrRequestNotFound
	}
	t.requests[requestID] = r
	return &r, nil
}

func (t *tx) SaveCreditRequest(_ context.Context, r *models.CreditRequest) error {
	if _, ok := t.requests[r.ID]; !ok {
		return fmt.Errorf("memory: credit request %s not locked in this unit", r.ID)
	}
	t.requests[r.ID] = *r
	return nil
}

func (t *tx) InsertSpend(_ context.Context, sp *models.SpendTransaction) error {
	t.spends = append(t.spends, *sp)
	return nil
}
