package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/models"
)

// ReasonSpendPrefix prefixes the ledger reason of every spend.
const ReasonSpendPrefix = "spend:"

// Spender applies recharges against account credit.
type Spender struct {
	ctrl    *Controller
	store   Store
	targets TargetValidator
	logger  *zap.Logger
	pages   pager
}

// phoneDigits is a phone number with its optional leading + removed.
type phoneDigits struct {
	Digits string `validate:"required,number,min=7,max=15"`
}

var phoneValidator = validator.New()

// ValidTarget reports whether phone is 7 to 15 digits, optionally prefixed
// with a single +.
func ValidTarget(phone string) bool {
	return phoneValidator.Struct(phoneDigits{Digits: strings.TrimPrefix(phone, "+")}) == nil
}

func newSpender(ctrl *Controller, targets TargetValidator, o options) *Spender {
	return &Spender{
		ctrl:    ctrl,
		store:   ctrl.store,
		targets: targets,
		logger:  o.logger.Named("spender"),
		pages:   pager{defaultSize: o.defaultPageSize, maxSize: o.maxPageSize},
	}
}

// Spend debits amount from the account for a recharge to target. The
// balance check happens inside the account's critical section; the spend
// record is written in the same commit as the debit.
func (s *Spender) Spend(ctx context.Context, accountID, target string, amount decimal.Decimal) (*models.SpendTransaction, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if !positiveAmount(amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	target = strings.TrimSpace(target)
	if !ValidTarget(target) {
		return nil, fmt.Errorf("%w: %q is not a phone number", ErrInvalidTarget, target)
	}

	ok, err := s.targets.IsValid(ctx, target)
	if err != nil {
		return nil, &StoreError{Op: "allowlist", Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is not on the allow-list", ErrInvalidTarget, target)
	}

	spend := &models.SpendTransaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Target:    target,
		Amount:    amount,
	}
	_, err = s.ctrl.ApplyDelta(ctx, accountID, amount.Neg(), ReasonSpendPrefix+target,
		WithReference(spend.ID),
		WithinCommit(func(ctx context.Context, tx CommitTx, entry *models.LedgerEntry) error {
			spend.LedgerSeq = entry.Seq
			spend.CreatedAt = entry.CreatedAt
			return tx.InsertSpend(ctx, spend)
		}),
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("spend committed",
		zap.String("account_id", accountID),
		zap.String("target", target),
		zap.String("amount", Cents(amount)),
		zap.Int64("seq", spend.LedgerSeq),
	)
	return spend, nil
}

func (s *Spender) ListSpends(ctx context.Context, accountID string, page Page) ([]models.SpendTransaction, error) {
	spends, err := s.store.ListSpends(ctx, accountID, s.pages.normalize(page))
	if err != nil {
		return nil, storeErr("list_spends", err)
	}
	return spends, nil
}
