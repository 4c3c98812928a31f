package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/creditledger/internal/models"
)

// Queries is the read-only surface. Nothing here takes an account lock, so
// results may be stale by the time they are used; they never authorize a
// mutation.
type Queries struct {
	store Store
	pages pager
}

func newQueries(s Store, o options) *Queries {
	return &Queries{
		store: s,
		pages: pager{defaultSize: o.defaultPageSize, maxSize: o.maxPageSize},
	}
}

func (q *Queries) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (q *Queries) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	account, err := q.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, storeErr("get_account", err)
	}
	return account, nil
}

// ListLedger returns the account's entries with Seq > page.AfterSeq in
// ascending Seq order.
func (q *Queries) ListLedger(ctx context.Context, accountID string, page Page) ([]models.LedgerEntry, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	entries, err := q.store.ListLedger(ctx, accountID, q.pages.normalize(page))
	if err != nil {
		return nil, storeErr("list_ledger", err)
	}
	return entries, nil
}

// Reconcile replays the account's ledger from zero and checks it against
// the stored balance: sequence numbers are gap-free, every snapshot equals
// the running sum, the balance equals the sum of all amounts and is not
// negative.
func (q *Queries) Reconcile(ctx context.Context, accountID string) error {
	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	// Entries past the account's LedgerSeq were committed after the read
	// above and are ignored.
	running := decimal.Zero
	var seq int64
	for seq < account.LedgerSeq {
		entries, err := q.store.ListLedger(ctx, accountID, Page{AfterSeq: seq, Limit: q.pages.maxSize})
		if err != nil {
			return storeErr("list_ledger", err)
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			if e.Seq > account.LedgerSeq {
				break
			}
			if e.Seq != seq+1 {
				return fmt.Errorf("%w: %s: expected seq %d, found %d", ErrLedgerCorrupt, accountID, seq+1, e.Seq)
			}
			running = running.Add(e.Amount)
			if !running.Equal(e.BalanceSnapshot) {
				return fmt.Errorf("%w: %s: seq %d snapshot %s, replayed %s",
					ErrLedgerCorrupt, accountID, e.Seq, Cents(e.BalanceSnapshot), Cents(running))
			}
			seq = e.Seq
		}
	}

	if seq != account.LedgerSeq {
		return fmt.Errorf("%w: %s: account at seq %d, ledger ends at %d", ErrLedgerCorrupt, accountID, account.LedgerSeq, seq)
	}
	if !running.Equal(account.Balance) {
		return fmt.Errorf("%w: %s: balance %s, ledger sums to %s",
			ErrLedgerCorrupt, accountID, Cents(account.Balance), Cents(running))
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("%w: %s: negative balance %s", ErrLedgerCorrupt, accountID, Cents(account.Balance))
	}
	return nil
}

type pager struct {
	defaultSize int
	maxSize     int
}

func (p pager) normalize(page Page) Page {
	if page.Limit <= 0 {
		page.Limit = p.defaultSize
	}
	if page.Limit > p.maxSize {
		page.Limit = p.maxSize
	}
	if page.AfterSeq < 0 {
		page.AfterSeq = 0
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}
