package audit

import (
	"time"

	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

type AuditEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	ReferenceID string    `json:"reference_id"`
	AccountID   string    `json:"account_id"`
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"`
	Details     any       `json:"details,omitempty"`
}

var _ ledger.Auditor = (*AuditLogger)(nil)

type AuditLogger struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.Named("audit"), now: time.Now}
}

// LogEntry records a committed ledger entry as CREDIT or SPEND.
func (a *AuditLogger) LogEntry(entry *models.LedgerEntry) {
	eventType := string(ledger.EventCredit)
	if entry.Amount.IsNegative() {
		eventType = string(ledger.EventSpend)
	}
	a.log(AuditEvent{
		Timestamp:   entry.CreatedAt,
		EventType:   eventType,
		ReferenceID: entry.ReferenceID,
		AccountID:   entry.AccountID,
		Amount:      ledger.Cents(entry.Amount),
		Status:      "SUCCESS",
		Details: map[string]any{
			"seq":              entry.Seq,
			"reason":           entry.Reason,
			"balance_snapshot": ledger.Cents(entry.BalanceSnapshot),
		},
	})
}

func (a *AuditLogger) LogDecision(req *models.CreditRequest) {
	timestamp := a.now().UTC()
	if req.DecidedAt != nil {
		timestamp = *req.DecidedAt
	}
	details := map[string]string{}
	if req.ApprovedBy != "" {
		details["approved_by"] = req.ApprovedBy
	}
	a.log(AuditEvent{
		Timestamp:   timestamp,
		EventType:   string(ledger.EventDecision),
		ReferenceID: req.ID,
		AccountID:   req.AccountID,
		Amount:      ledger.Cents(req.Amount),
		Status:      string(req.Status),
		Details:     details,
	})
}

func (a *AuditLogger) LogError(referenceID, accountID string, err error) {
	a.log(AuditEvent{
		Timestamp:   a.now().UTC(),
		EventType:   "ERROR",
		ReferenceID: referenceID,
		AccountID:   accountID,
		Status:      "FAILED",
		Details:     map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	a.logger.Info("AUDIT",
		zap.String("event_type", event.EventType),
		zap.Any("event", event),
	)
}
