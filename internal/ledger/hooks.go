package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/creditledger/internal/models"
)

type EventType string

const (
	EventCredit   EventType = "CREDIT"
	EventSpend    EventType = "SPEND"
	EventDecision EventType = "DECISION"
)

// Event describes a committed change. It is published after the account
// lock has been released.
type Event struct {
	Type        EventType       `json:"type"`
	AccountID   string          `json:"account_id"`
	Seq         int64           `json:"seq,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Status      string          `json:"status,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Publisher receives committed events. Failures are logged by the engine and
// never undo a commit.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Auditor records the audit trail of engine outcomes.
type Auditor interface {
	LogEntry(entry *models.LedgerEntry)
	LogDecision(req *models.CreditRequest)
	LogError(referenceID, accountID string, err error)
}

// TargetValidator is the spend-target allow-list.
type TargetValidator interface {
	IsValid(ctx context.Context, target string) (bool, error)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type nopAuditor struct{}

func (nopAuditor) LogEntry(*models.LedgerEntry)      {}
func (nopAuditor) LogDecision(*models.CreditRequest) {}
func (nopAuditor) LogError(string, string, error)    {}
