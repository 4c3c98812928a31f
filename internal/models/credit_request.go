package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// CreditRequest asks for a balance increase. It is terminal once it leaves
// PENDING.
type CreditRequest struct {
	ID         string          `json:"id" db:"id"`
	AccountID  string          `json:"account_id" db:"account_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Status     RequestStatus   `json:"status" db:"status"`
	ApprovedBy string          `json:"approved_by,omitempty" db:"approved_by"`
	Note       string          `json:"note,omitempty" db:"note"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	DecidedAt  *time.Time      `json:"decided_at,omitempty" db:"decided_at"`
}

func (r *CreditRequest) IsPending() bool {
	return r.Status == RequestPending
}
