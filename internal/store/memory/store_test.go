package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

func credit(ctx context.Context, s *Store, accountID string, amount int64) error {
	return s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		a, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		balance := a.Balance.Add(decimal.NewFromInt(amount))
		seq := a.LedgerSeq + 1
		now := time.Now()
		if err := tx.SaveBalance(ctx, accountID, balance, seq, now); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &models.LedgerEntry{
			AccountID: accountID, Seq: seq, Amount: decimal.NewFromInt(amount),
			BalanceSnapshot: balance, Reason: "approval", CreatedAt: now,
		})
	})
}

func TestStore_AtomicCommitsTogether(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada", Balance: decimal.NewFromInt(500)}))

	a, err := s.GetAccount(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero(), "accounts start at zero")

	for i := 0; i < 5; i++ {
		require.NoError(t, credit(ctx, s, "seller-1", 10))
	}

	a, err = s.GetAccount(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "50", a.Balance.String())
	assert.Equal(t, int64(5), a.LedgerSeq)

	page, err := s.ListLedger(ctx, "seller-1", ledger.Page{AfterSeq: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].Seq)
	assert.Equal(t, int64(4), page[1].Seq)

	page, err = s.ListLedger(ctx, "seller-1", ledger.Page{AfterSeq: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStore_AtomicDiscardsOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))

	err := s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.SaveBalance(ctx, "seller-1", decimal.NewFromInt(99), 1, time.Now()); err != nil {
			return err
		}
		return ledger.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	a, err := s.GetAccount(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())
	assert.Equal(t, int64(0), a.LedgerSeq)
}

func TestStore_RefusesOutOfSequenceCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))

	err := s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.LockAccount(ctx, "seller-1"); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, "seller-1", decimal.NewFromInt(1), 2, time.Now()); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &models.LedgerEntry{AccountID: "seller-1", Seq: 2, Amount: decimal.NewFromInt(1)})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of sequence")

	// Two units that both read seq 0 cannot both land.
	s2 := New()
	require.NoError(t, s2.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))
	first := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		errs <- s2.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
			if _, err := tx.LockAccount(ctx, "seller-1"); err != nil {
				return err
			}
			<-first
			if err := tx.SaveBalance(ctx, "seller-1", decimal.NewFromInt(1), 1, time.Now()); err != nil {
				return err
			}
			return tx.AppendEntry(ctx, &models.LedgerEntry{AccountID: "seller-1", Seq: 1, Amount: decimal.NewFromInt(1)})
		})
	}()
	require.NoError(t, credit(ctx, s2, "seller-1", 5))
	close(first)
	assert.Error(t, <-errs)

	a, err := s2.GetAccount(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "5", a.Balance.String())
}

func TestStore_AppendRequiresLock(t *testing.T) {
	s := New()
	err := s.Atomic(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		return tx.AppendEntry(ctx, &models.LedgerEntry{AccountID: "seller-1", Seq: 1})
	})
	assert.Error(t, err)
}

func TestStore_CreditRequests(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))

	err := s.CreateCreditRequest(ctx, &models.CreditRequest{ID: "req-x", AccountID: "ghost"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	for i, id := range []string{"req-1", "req-2", "req-3"} {
		require.NoError(t, s.CreateCreditRequest(ctx, &models.CreditRequest{
			ID: id, AccountID: "seller-1", Amount: decimal.NewFromInt(1),
			Status: models.RequestPending, CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	err = s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		r, err := tx.LockCreditRequest(ctx, "req-2")
		if err != nil {
			return err
		}
		r.Status = models.RequestRejected
		return tx.SaveCreditRequest(ctx, r)
	})
	require.NoError(t, err)

	all, err := s.ListCreditRequests(ctx, ledger.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "req-3", all[0].ID, "newest first")

	pending, err := s.ListCreditRequests(ctx, ledger.RequestFilter{Status: models.RequestPending, Page: ledger.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "req-1", pending[0].ID)

	_, err = s.GetCreditRequest(ctx, "req-9")
	assert.ErrorIs(t, err, ledger.ErrRequestNotFound)

	err = s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveCreditRequest(ctx, &models.CreditRequest{ID: "req-1"})
	})
	assert.Error(t, err, "saving an unlocked request must fail")
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, window(items, 0, 0))
	assert.Equal(t, []int{3, 4}, window(items, 2, 2))
	assert.Equal(t, []int{5}, window(items, 4, 10))
	assert.Empty(t, window(items, 9, 1))
}

func TestStore_UpdateAccountKeepsBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))
	require.NoError(t, credit(ctx, s, "seller-1", 25))

	changed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		a, err := tx.LockAccount(ctx, "seller-1")
		if err != nil {
			return err
		}
		a.Name = "Ada Obi"
		a.Email = "ada@example.com"
		a.Balance = decimal.NewFromInt(1000)
		a.LedgerSeq = 40
		a.UpdatedAt = changed
		return tx.UpdateAccount(ctx, a)
	})
	require.NoError(t, err)

	a, err := s.GetAccount(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", a.Name)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.Equal(t, changed, a.UpdatedAt)
	assert.Equal(t, "25", a.Balance.String())
	assert.Equal(t, int64(1), a.LedgerSeq)
}

func TestStore_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	remove := func(s *Store, id string) error {
		return s.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
			if _, err := tx.LockAccount(ctx, id); err != nil {
				return err
			}
			return tx.DeleteAccount(ctx, id)
		})
	}

	t.Run("unused account", func(t *testing.T) {
		s := New()
		require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))
		require.NoError(t, remove(s, "seller-1"))

		_, err := s.GetAccount(ctx, "seller-1")
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
		assert.ErrorIs(t, remove(s, "seller-1"), ledger.ErrAccountNotFound)
	})

	t.Run("account with ledger entries", func(t *testing.T) {
		s := New()
		require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))
		require.NoError(t, credit(ctx, s, "seller-1", 5))

		assert.ErrorIs(t, remove(s, "seller-1"), ledger.ErrAccountInUse)
		_, err := s.GetAccount(ctx, "seller-1")
		assert.NoError(t, err)
	})

	t.Run("account with credit requests", func(t *testing.T) {
		s := New()
		require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "seller-1", Name: "Ada"}))
		require.NoError(t, s.CreateCreditRequest(ctx, &models.CreditRequest{
			ID: "req-1", AccountID: "seller-1", Amount: decimal.NewFromInt(5), Status: models.RequestPending,
		}))

		assert.ErrorIs(t, remove(s, "seller-1"), ledger.ErrAccountInUse)
	})
}
