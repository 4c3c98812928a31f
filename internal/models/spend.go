package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendTransaction is a recharge paid out of an account's credit.
type SpendTransaction struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"account_id" db:"account_id"`
	Target    string          `json:"target" db:"target"` // phone number
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	LedgerSeq int64           `json:"ledger_seq" db:"ledger_seq"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PhoneNumber is an allow-list row for spend targets.
type PhoneNumber struct {
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	Description string    `json:"description,omitempty" db:"description"`
	AddedAt     time.Time `json:"added_at" db:"added_at"`
}
