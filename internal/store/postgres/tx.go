package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

type tx struct {
	tx *sql.Tx
}

var _ ledger.Tx = (*tx)(nil)

func (t *tx) LockAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID)
	return scanAccount(row)
}

// SaveBalance only succeeds when seq directly follows the stored ledger_seq,
// so a write that lost track of the ledger never lands.
func (t *tx) SaveBalance(ctx context.Context, accountID string, balance decimal.Decimal, seq int64, updatedAt time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, ledger_seq = $2, updated_at = $3
		WHERE id = $4 AND ledger_seq = $5`,
		balance, seq, updatedAt, accountID, seq-1)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ledger sequence conflict for account %s at seq %d", accountID, seq)
	}
	return nil
}

func (t *tx) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (account_id, seq, amount, balance_snapshot, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.AccountID, e.Seq, e.Amount, e.BalanceSnapshot, e.Reason, e.ReferenceID, e.CreatedAt)
	return err
}

func (t *tx) UpdateAccount(ctx context.Context, a *models.Account) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET name = $1, email = $2, phone_number = $3, updated_at = $4
		WHERE id = $5`,
		a.Name, a.Email, a.PhoneNumber, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount relies on the ON DELETE RESTRICT foreign keys of
// ledger_entries and credit_requests to refuse accounts in use.
func (t *tx) DeleteAccount(ctx context.Context, accountID string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return fmt.Errorf("%w: %s", ledger.ErrAccountInUse, accountID)
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (t *tx) LockCreditRequest(ctx context.Context, requestID string) (*models.CreditRequest, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM credit_requests
		WHERE id = $1
		FOR UPDATE`, requestID)
	return scanRequest(row)
}

func (t *tx) SaveCreditRequest(ctx context.Context, r *models.CreditRequest) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE credit_requests
		SET status = $1, approved_by = $2, decided_at = $3
		WHERE id = $4`,
		string(r.Status), r.ApprovedBy, r.DecidedAt, r.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ledger.ErrRequestNotFound
	}
	return nil
}

func (t *tx) InsertSpend(ctx context.Context, sp *models.SpendTransaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO spend_transactions (id, account_id, target, amount, ledger_seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sp.ID, sp.AccountID, sp.Target, sp.Amount, sp.LedgerSeq, sp.CreatedAt)
	return err
}
