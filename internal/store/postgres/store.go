// Package postgres is the ledger.Store backed by PostgreSQL. Row locks taken
// with SELECT ... FOR UPDATE make it safe to run several engine processes
// against the same database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

// SQLSTATE codes the store translates into engine errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const accountColumns = `id, name, email, phone_number, balance, ledger_seq, created_at, updated_at`

const requestColumns = `id, account_id, amount, status, approved_by, note, created_at, decided_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, &tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, name, email, phone_number, balance, ledger_seq, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $5)
		RETURNING balance, ledger_seq`,
		a.ID, a.Name, a.Email, a.PhoneNumber, a.CreatedAt,
	).Scan(&a.Balance, &a.LedgerSeq)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: account %s already exists", ledger.ErrInvalidInput, a.ID)
		}
		return err
	}
	a.UpdatedAt = a.CreatedAt
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

func (s *Store) ListAccounts(ctx context.Context, page ledger.Page) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		ORDER BY created_at DESC, id ASC
		LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *Store) ListLedger(ctx context.Context, accountID string, page ledger.Page) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, seq, amount, balance_snapshot, reason, reference_id, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3`,
		accountID, page.AfterSeq, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.AccountID, &e.Seq, &e.Amount, &e.BalanceSnapshot, &e.Reason, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CreateCreditRequest(ctx context.Context, r *models.CreditRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_requests (id, account_id, amount, status, approved_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.AccountID, r.Amount, string(r.Status), r.ApprovedBy, r.Note, r.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return ledger.ErrAccountNotFound
	}
	return err
}

func (s *Store) GetCreditRequest(ctx context.Context, requestID string) (*models.CreditRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM credit_requests WHERE id = $1`, requestID)
	return scanRequest(row)
}

func (s *Store) ListCreditRequests(ctx context.Context, filter ledger.RequestFilter) ([]models.CreditRequest, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + requestColumns + ` FROM credit_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []models.CreditRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *r)
	}
	return reqs, rows.Err()
}

func (s *Store) ListSpends(ctx context.Context, accountID string, page ledger.Page) ([]models.SpendTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, target, amount, ledger_seq, created_at
		FROM spend_transactions
		WHERE account_id = $1
		ORDER BY ledger_seq DESC
		LIMIT $2 OFFSET $3`,
		accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spends []models.SpendTransaction
	for rows.Next() {
		var sp models.SpendTransaction
		if err := rows.Scan(&sp.ID, &sp.AccountID, &sp.Target, &sp.Amount, &sp.LedgerSeq, &sp.CreatedAt); err != nil {
			return nil, err
		}
		spends = append(spends, sp)
	}
	return spends, rows.Err()
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PhoneNumber, &a.Balance, &a.LedgerSeq, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanRequest(row rowScanner) (*models.CreditRequest, error) {
	var (
		r         models.CreditRequest
		status    string
		decidedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.AccountID, &r.Amount, &status, &r.ApprovedBy, &r.Note, &r.CreatedAt, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = models.RequestStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return &r, nil
}
