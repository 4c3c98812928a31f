package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable balance change. Replaying an account's entries
// in Seq order from zero reproduces every BalanceSnapshot.
type LedgerEntry struct {
	AccountID       string          `json:"account_id" db:"account_id"`
	Seq             int64           `json:"seq" db:"seq"`
	Amount          decimal.Decimal `json:"amount" db:"amount"` // signed: + credit, - spend
	BalanceSnapshot decimal.Decimal `json:"balance_snapshot" db:"balance_snapshot"`
	Reason          string          `json:"reason" db:"reason"`
	ReferenceID     string          `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Account is a seller holding credit.
type Account struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Email       string          `json:"email" db:"email"`
	PhoneNumber string          `json:"phone_number" db:"phone_number"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	LedgerSeq   int64           `json:"ledger_seq" db:"ledger_seq"` // seq of the last committed entry
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
