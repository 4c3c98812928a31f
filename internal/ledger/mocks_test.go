package ledger_test

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
	"github.com/ruralpay/creditledger/internal/store/memory"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event ledger.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogEntry(entry *models.LedgerEntry) {
	m.Called(entry)
}

func (m *MockAuditor) LogDecision(req *models.CreditRequest) {
	m.Called(req)
}

func (m *MockAuditor) LogError(referenceID, accountID string, err error) {
	m.Called(referenceID, accountID, err)
}

type MockTargets struct {
	mock.Mock
}

func (m *MockTargets) IsValid(ctx context.Context, target string) (bool, error) {
	args := m.Called(ctx, target)
	return args.Bool(0), args.Error(1)
}

var errDiskFull = errors.New("disk full")

// faultyStore fails selected writes inside Atomic, after earlier writes of
// the same unit have already been staged.
type faultyStore struct {
	*memory.Store
	failSpend  bool
	failCommit bool
}

func (s *faultyStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.Store.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := fn(ctx, &faultyTx{Tx: tx, store: s}); err != nil {
			return err
		}
		if s.failCommit {
			return errDiskFull
		}
		return nil
	})
}

type faultyTx struct {
	ledger.Tx
	store *faultyStore
}

func (t *faultyTx) InsertSpend(ctx context.Context, sp *models.SpendTransaction) error {
	if t.store.failSpend {
		return errDiskFull
	}
	return t.Tx.InsertSpend(ctx, sp)
}
