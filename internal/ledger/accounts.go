package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/models"
)

// Accounts registers sellers. A new account always starts at a zero balance
// with an empty ledger.
type Accounts struct {
	ctrl     *Controller
	store    Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	pages    pager
}

// NewAccount is the input of CreateAccount.
type NewAccount struct {
	ID          string `validate:"omitempty,max=64"`
	Name        string `validate:"required,max=255"`
	Email       string `validate:"omitempty,email"`
	PhoneNumber string `validate:"omitempty,min=7,max=15"`
}

// AccountUpdate replaces the profile fields of an account.
type AccountUpdate struct {
	Name        string `validate:"required,max=255"`
	Email       string `validate:"omitempty,email"`
	PhoneNumber string `validate:"omitempty,min=7,max=15"`
}

func newAccounts(ctrl *Controller, o options) *Accounts {
	return &Accounts{
		ctrl:     ctrl,
		store:    ctrl.store,
		validate: validator.New(),
		logger:   o.logger.Named("accounts"),
		now:      o.now,
		pages:    pager{defaultSize: o.defaultPageSize, maxSize: o.maxPageSize},
	}
}

func (a *Accounts) CreateAccount(ctx context.Context, in NewAccount) (*models.Account, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := a.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	now := a.now().UTC()
	account := &models.Account{
		ID:          in.ID,
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateAccount(ctx, account); err != nil {
		return nil, storeErr("create_account", err)
	}

	a.logger.Info("account created", zap.String("account_id", account.ID))
	return account, nil
}

// ListAccounts returns accounts newest first.
func (a *Accounts) ListAccounts(ctx context.Context, page Page) ([]models.Account, error) {
	accounts, err := a.store.ListAccounts(ctx, a.pages.normalize(page))
	if err != nil {
		return nil, storeErr("list_accounts", err)
	}
	return accounts, nil
}

// UpdateAccount replaces the account's name, email and phone number under
// the account lock. Balance and ledger are never touched.
func (a *Accounts) UpdateAccount(ctx context.Context, accountID string, in AccountUpdate) (*models.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := a.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var updated *models.Account
	err := a.ctrl.exclusive(ctx, accountID, accountID, func(ctx context.Context, tx Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		account.Name = in.Name
		account.Email = in.Email
		account.PhoneNumber = in.PhoneNumber
		account.UpdatedAt = a.now().UTC()
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("account updated", zap.String("account_id", accountID))
	return updated, nil
}

// DeleteAccount removes an account that never had a ledger entry or a
// credit request.
func (a *Accounts) DeleteAccount(ctx context.Context, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	err := a.ctrl.exclusive(ctx, accountID, accountID, func(ctx context.Context, tx Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.LedgerSeq > 0 {
			return fmt.Errorf("%w: %s has %d ledger entries", ErrAccountInUse, accountID, account.LedgerSeq)
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}

	a.logger.Info("account deleted", zap.String("account_id", accountID))
	return nil
}
