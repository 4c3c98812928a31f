package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/models"
)

// Controller is the only component allowed to change a balance. Every
// mutation runs under the account's lock as one atomic store unit.
type Controller struct {
	store     Store
	locks     *Locker
	logger    *zap.Logger
	auditor   Auditor
	publisher Publisher

	lockTimeout time.Duration
	now         func() time.Time
}

// Result is a committed balance change.
type Result struct {
	NewBalance decimal.Decimal
	Seq        int64
	Entry      models.LedgerEntry
}

type options struct {
	logger          *zap.Logger
	auditor         Auditor
	publisher       Publisher
	lockTimeout     time.Duration
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

// Option configures the engine.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithAuditor(a Auditor) Option {
	return func(o *options) { o.auditor = a }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithLockTimeout bounds how long a caller waits for an account lock. Zero
// means wait as long as the caller's context allows.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

func WithPageSizes(defaultSize, maxSize int) Option {
	return func(o *options) {
		o.defaultPageSize = defaultSize
		o.maxPageSize = maxSize
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:          zap.NewNop(),
		auditor:         nopAuditor{},
		publisher:       NopPublisher{},
		lockTimeout:     5 * time.Second,
		defaultPageSize: 50,
		maxPageSize:     500,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newController(s Store, o options) *Controller {
	return &Controller{
		store:       s,
		locks:       NewLocker(),
		logger:      o.logger.Named("controller"),
		auditor:     o.auditor,
		publisher:   o.publisher,
		lockTimeout: o.lockTimeout,
		now:         o.now,
	}
}

type delta struct {
	reference string
	event     EventType
	step      func(ctx context.Context, tx CommitTx, entry *models.LedgerEntry) error
}

// DeltaOption attaches extra behavior to a single ApplyDelta call.
type DeltaOption func(*delta)

// WithReference records the id of the request or spend behind the entry.
func WithReference(id string) DeltaOption {
	return func(d *delta) { d.reference = id }
}

// WithinCommit runs step inside the same atomic unit, after the balance and
// entry are written. An error from step rolls everything back.
func WithinCommit(step func(ctx context.Context, tx CommitTx, entry *models.LedgerEntry) error) DeltaOption {
	return func(d *delta) { d.step = step }
}

// ApplyDelta adds signedAmount to the account's balance and appends the
// matching ledger entry. A negative amount that would take the balance below
// zero fails with ErrInsufficientFunds and writes nothing.
func (c *Controller) ApplyDelta(ctx context.Context, accountID string, signedAmount decimal.Decimal, reason string, opts ...DeltaOption) (*Result, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if !validAmount(signedAmount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, signedAmount)
	}

	d := delta{event: EventCredit}
	if signedAmount.IsNegative() {
		d.event = EventSpend
	}
	for _, opt := range opts {
		opt(&d)
	}

	var res Result
	err := c.withAccount(ctx, accountID, func(ctx context.Context) error {
		return c.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
			account, err := tx.LockAccount(ctx, accountID)
			if err != nil {
				return err
			}

			newBalance := account.Balance.Add(signedAmount)
			if signedAmount.IsNegative() && newBalance.IsNegative() {
				return fmt.Errorf("%w: balance %s, requested %s",
					ErrInsufficientFunds, Cents(account.Balance), Cents(signedAmount.Neg()))
			}
			if newBalance.GreaterThan(MaxBalance) {
				return fmt.Errorf("%w: balance would exceed %s", ErrInvalidAmount, Cents(MaxBalance))
			}

			entry := models.LedgerEntry{
				AccountID:       accountID,
				Seq:             account.LedgerSeq + 1,
				Amount:          signedAmount,
				BalanceSnapshot: newBalance,
				Reason:          reason,
				ReferenceID:     d.reference,
				CreatedAt:       c.now().UTC(),
			}

			if err := tx.SaveBalance(ctx, accountID, newBalance, entry.Seq, entry.CreatedAt); err != nil {
				return err
			}
			if err := tx.AppendEntry(ctx, &entry); err != nil {
				return err
			}
			if d.step != nil {
				if err := d.step(ctx, tx, &entry); err != nil {
					return err
				}
			}

			res = Result{NewBalance: newBalance, Seq: entry.Seq, Entry: entry}
			return nil
		})
	})
	if err != nil {
		err = storeErr("apply_delta", err)
		c.failed(d.reference, accountID, err)
		return nil, err
	}

	c.logger.Debug("delta committed",
		zap.String("account_id", accountID),
		zap.Int64("seq", res.Seq),
		zap.String("amount", Cents(signedAmount)),
		zap.String("balance", Cents(res.NewBalance)),
	)
	c.auditor.LogEntry(&res.Entry)
	c.publish(ctx, Event{
		Type:        d.event,
		AccountID:   accountID,
		Seq:         res.Seq,
		Amount:      signedAmount,
		Balance:     res.NewBalance,
		ReferenceID: d.reference,
		CreatedAt:   res.Entry.CreatedAt,
	})

	return &res, nil
}

// exclusive runs fn under the account's lock in one atomic unit without
// touching the balance. Failures are logged and audited like ApplyDelta's.
func (c *Controller) exclusive(ctx context.Context, accountID, referenceID string, fn func(ctx context.Context, tx Tx) error) error {
	err := c.withAccount(ctx, accountID, func(ctx context.Context) error {
		return c.store.Atomic(ctx, fn)
	})
	if err != nil {
		err = storeErr("exclusive", err)
		c.failed(referenceID, accountID, err)
		return err
	}
	return nil
}

// withAccount holds the account's lock around fn. Cancellation of ctx only
// matters while waiting: once fn starts it runs to completion.
func (c *Controller) withAccount(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	waitCtx := ctx
	if c.lockTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.lockTimeout)
		defer cancel()
	}

	release, err := c.locks.Acquire(waitCtx, accountID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBusy, accountID, err)
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBusy, accountID, err)
	}

	return fn(context.WithoutCancel(ctx))
}

func (c *Controller) failed(referenceID, accountID string, err error) {
	fields := []zap.Field{
		zap.String("account_id", accountID),
		zap.String("reference_id", referenceID),
		zap.Error(err),
	}
	if IsUserError(err) {
		c.logger.Info("ledger operation rejected", fields...)
		return
	}
	c.logger.Error("ledger operation failed", fields...)
	c.auditor.LogError(referenceID, accountID, err)
}

func (c *Controller) publish(ctx context.Context, event Event) {
	if err := c.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("failed to publish ledger event",
			zap.String("account_id", event.AccountID),
			zap.Int64("seq", event.Seq),
			zap.Error(err),
		)
	}
}
