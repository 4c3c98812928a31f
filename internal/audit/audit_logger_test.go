package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ruralpay/creditledger/internal/models"
)

func newObserved() (*AuditLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewAuditLogger(zap.New(core)), logs
}

func lastEvent(t *testing.T, logs *observer.ObservedLogs) AuditEvent {
	t.Helper()
	entries := logs.All()
	require.NotEmpty(t, entries)
	entry := entries[len(entries)-1]
	assert.Equal(t, "audit", entry.LoggerName)
	assert.Equal(t, "AUDIT", entry.Message)

	event, ok := entry.ContextMap()["event"].(AuditEvent)
	require.True(t, ok, "event field should carry an AuditEvent")
	return event
}

func TestAuditLogger_LogEntry(t *testing.T) {
	a, logs := newObserved()
	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	a.LogEntry(&models.LedgerEntry{
		AccountID:       "seller-1",
		Seq:             3,
		Amount:          decimal.RequireFromString("-12.5"),
		BalanceSnapshot: decimal.RequireFromString("87.5"),
		Reason:          "spend:+2348012345678",
		ReferenceID:     "sp-1",
		CreatedAt:       createdAt,
	})

	event := lastEvent(t, logs)
	assert.Equal(t, "SPEND", event.EventType)
	assert.Equal(t, "-12.50", event.Amount)
	assert.Equal(t, "sp-1", event.ReferenceID)
	assert.Equal(t, createdAt, event.Timestamp)
	assert.Equal(t, "87.50", event.Details.(map[string]any)["balance_snapshot"])

	a.LogEntry(&models.LedgerEntry{
		AccountID: "seller-1", Seq: 4, Amount: decimal.NewFromInt(40),
		BalanceSnapshot: decimal.RequireFromString("127.5"), Reason: "approval", CreatedAt: createdAt,
	})
	assert.Equal(t, "CREDIT", lastEvent(t, logs).EventType)
}

func TestAuditLogger_LogDecision(t *testing.T) {
	a, logs := newObserved()
	decidedAt := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)

	a.LogDecision(&models.CreditRequest{
		ID:         "req-1",
		AccountID:  "seller-1",
		Amount:     decimal.NewFromInt(100),
		Status:     models.RequestApproved,
		ApprovedBy: "admin-1",
		DecidedAt:  &decidedAt,
	})

	event := lastEvent(t, logs)
	assert.Equal(t, "DECISION", event.EventType)
	assert.Equal(t, "APPROVED", event.Status)
	assert.Equal(t, decidedAt, event.Timestamp)
	assert.Equal(t, map[string]string{"approved_by": "admin-1"}, event.Details)
}

func TestAuditLogger_LogError(t *testing.T) {
	a, logs := newObserved()
	fixed := time.Date(2024, 3, 1, 9, 10, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	a.LogError("sp-9", "seller-1", errors.New("ledger: store apply_delta: connection reset"))

	event := lastEvent(t, logs)
	assert.Equal(t, "ERROR", event.EventType)
	assert.Equal(t, "FAILED", event.Status)
	assert.Equal(t, fixed, event.Timestamp)
	assert.Equal(t, "ledger: store apply_delta: connection reset", event.Details.(map[string]string)["error"])
}
