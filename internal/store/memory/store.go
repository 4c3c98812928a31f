// Package memory is an in-process ledger.Store. It keeps no data across
// restarts and is meant for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	accounts map[string]models.Account
	entries  map[string][]models.LedgerEntry
	requests map[string]models.CreditRequest
	spends   map[string][]models.SpendTransaction
}

func New() *Store {
	return &Store{
		accounts: make(map[string]models.Account),
		entries:  make(map[string][]models.LedgerEntry),
		requests: make(map[string]models.CreditRequest),
		spends:   make(map[string][]models.SpendTransaction),
	}
}

// Atomic stages every write of fn and applies them under a single lock once
// fn succeeds. LockAccount does not block here; exclusion between units on
// the same account comes from the engine's Locker, and commit refuses a
// unit whose sequence numbers no longer follow the stored ones.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	t := &tx{
		store:    s,
		accounts: make(map[string]models.Account),
		deleted:  make(map[string]bool),
		requests: make(map[string]models.CreditRequest),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]int64, len(t.entries))
	for _, e := range t.entries {
		last, ok := next[e.AccountID]
		if !ok {
			last = int64(len(s.entries[e.AccountID]))
		}
		if e.Seq != last+1 {
			return fmt.Errorf("memory: ledger entry %s/%d out of sequence, expected %d", e.AccountID, e.Seq, last+1)
		}
		next[e.AccountID] = e.Seq
	}
	for id, a := range t.accounts {
		if a.LedgerSeq != int64(len(s.entries[id]))+countFor(t.entries, id) {
			return fmt.Errorf("memory: account %s seq %d does not match its ledger", id, a.LedgerSeq)
		}
	}
	for id := range t.deleted {
		if countFor(t.entries, id) > 0 {
			return fmt.Errorf("%w: %s", ledger.ErrAccountInUse, id)
		}
		if err := s.inUse(id); err != nil {
			return err
		}
	}

	for id, a := range t.accounts {
		if t.deleted[id] {
			delete(s.accounts, id)
			continue
		}
		s.accounts[id] = a
	}
	for _, e := range t.entries {
		s.entries[e.AccountID] = append(s.entries[e.AccountID], e)
	}
	for id, r := range t.requests {
		s.requests[id] = r
	}
	for _, sp := range t.spends {
		s.spends[sp.AccountID] = append(s.spends[sp.AccountID], sp)
	}
	return nil
}

// inUse reports ErrAccountInUse while entries or credit requests reference
// the account. Callers hold s.mu.
func (s *Store) inUse(accountID string) error {
	if n := len(s.entries[accountID]); n > 0 {
		return fmt.Errorf("%w: %s has %d ledger entries", ledger.ErrAccountInUse, accountID, n)
	}
	for _, r := range s.requests {
		if r.AccountID == accountID {
			return fmt.Errorf("%w: %s has credit requests", ledger.ErrAccountInUse, accountID)
		}
	}
	return nil
}

func countFor(entries []models.LedgerEntry, accountID string) int64 {
	var n int64
	for _, e := range entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n
}

// CreateAccount stores a new account. Balances always start at zero and
// only move through the ledger.
func (s *Store) CreateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return fmt.Errorf("%w: account %s already exists", ledger.ErrInvalidInput, a.ID)
	}
	a.Balance = decimal.Zero
	a.LedgerSeq = 0
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &a, nil
}

func (s *Store) ListAccounts(_ context.Context, page ledger.Page) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return window(result, page.Offset, page.Limit), nil
}

func (s *Store) ListLedger(_ context.Context, accountID string, page ledger.Page) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[accountID]
	// Seq n lives at index n-1.
	start := int(page.AfterSeq)
	if start > len(all) {
		start = len(all)
	}
	result := make([]models.LedgerEntry, len(all)-start)
	copy(result, all[start:])
	return window(result, 0, page.Limit), nil
}

func (s *Store) CreateCreditRequest(_ context.Context, r *models.CreditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[r.AccountID]; !ok {
		return ledger.ErrAccountNotFound
	}
	if _, exists := s.requests[r.ID]; exists {
		return fmt.Errorf("memory: credit request %s already exists", r.ID)
	}
	s.requests[r.ID] = *r
	return nil
}

func (s *Store) GetCreditRequest(_ context.Context, requestID string) (*models.CreditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, ledger.ErrRequestNotFound
	}
	return &r, nil
}

func (s *Store) ListCreditRequests(_ context.Context, filter ledger.RequestFilter) ([]models.CreditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.CreditRequest, 0)
	for _, r := range s.requests {
		if filter.AccountID != "" && r.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return window(result, filter.Page.Offset, filter.Page.Limit), nil
}

func (s *Store) ListSpends(_ context.Context, accountID string, page ledger.Page) ([]models.SpendTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.spends[accountID]
	result := make([]models.SpendTransaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		result = append(result, all[i])
	}
	return window(result, page.Offset, page.Limit), nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
