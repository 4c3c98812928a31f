package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/creditledger/internal/models"
)

// Store is the account store and ledger log the engine runs against.
// Implementations report missing rows with ErrAccountNotFound or
// ErrRequestNotFound; any other error is treated as a store fault.
type Store interface {
	// Atomic runs fn inside one transactional unit. Every write made through
	// tx commits together when fn returns nil, and none of them is visible
	// if fn or the commit fails.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, page Page) ([]models.Account, error)

	// ListLedger returns entries with Seq > page.AfterSeq, ascending.
	ListLedger(ctx context.Context, accountID string, page Page) ([]models.LedgerEntry, error)

	CreateCreditRequest(ctx context.Context, req *models.CreditRequest) error
	GetCreditRequest(ctx context.Context, requestID string) (*models.CreditRequest, error)
	ListCreditRequests(ctx context.Context, filter RequestFilter) ([]models.CreditRequest, error)

	ListSpends(ctx context.Context, accountID string, page Page) ([]models.SpendTransaction, error)
}

// Tx is the write side of a Store, valid only inside Atomic.
type Tx interface {
	CommitTx

	// LockAccount reads the account and holds it for update until the unit
	// ends.
	LockAccount(ctx context.Context, accountID string) (*models.Account, error)
	// SaveBalance writes balance and seq, refusing a seq that does not
	// directly follow the stored one. updatedAt becomes the account's
	// UpdatedAt.
	SaveBalance(ctx context.Context, accountID string, balance decimal.Decimal, seq int64, updatedAt time.Time) error
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error

	// UpdateAccount writes the profile fields (name, email, phone number,
	// updated_at) of a locked account. Balance and seq are left alone.
	UpdateAccount(ctx context.Context, account *models.Account) error
	// DeleteAccount removes a locked account. It fails with ErrAccountInUse
	// while ledger entries or credit requests reference it.
	DeleteAccount(ctx context.Context, accountID string) error
}

// CommitTx is the part of a Tx exposed to steps attached to a commit. It
// cannot touch balances.
type CommitTx interface {
	LockCreditRequest(ctx context.Context, requestID string) (*models.CreditRequest, error)
	SaveCreditRequest(ctx context.Context, req *models.CreditRequest) error
	InsertSpend(ctx context.Context, spend *models.SpendTransaction) error
}

// Page selects a window of a sequence- or time-ordered listing.
type Page struct {
	AfterSeq int64
	Offset   int
	Limit    int
}

type RequestFilter struct {
	AccountID string
	Status    models.RequestStatus
	Page      Page
}
