package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/models"
)

// ReasonApproval is the ledger reason of credits from approved requests.
const ReasonApproval = "approval"

// Approvals runs the credit request workflow: PENDING -> APPROVED with a
// ledger credit, or PENDING -> REJECTED with none.
type Approvals struct {
	ctrl    *Controller
	store   Store
	logger  *zap.Logger
	auditor Auditor
	pages   pager
}

func newApprovals(ctrl *Controller, o options) *Approvals {
	return &Approvals{
		ctrl:    ctrl,
		store:   ctrl.store,
		logger:  o.logger.Named("approvals"),
		auditor: o.auditor,
		pages:   pager{defaultSize: o.defaultPageSize, maxSize: o.maxPageSize},
	}
}

// Submit files a new PENDING request for accountID.
func (a *Approvals) Submit(ctx context.Context, accountID string, amount decimal.Decimal, note string) (*models.CreditRequest, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if !positiveAmount(amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if _, err := a.store.GetAccount(ctx, accountID); err != nil {
		return nil, storeErr("get_account", err)
	}

	req := &models.CreditRequest{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Status:    models.RequestPending,
		Note:      strings.TrimSpace(note),
		CreatedAt: a.ctrl.now().UTC(),
	}
	if err := a.store.CreateCreditRequest(ctx, req); err != nil {
		return nil, storeErr("create_credit_request", err)
	}

	a.logger.Info("credit request submitted",
		zap.String("request_id", req.ID),
		zap.String("account_id", accountID),
		zap.String("amount", Cents(amount)),
	)
	return req, nil
}

// Approve credits the request's amount to its account and marks it
// APPROVED in the same commit. A request that is no longer PENDING fails
// with ErrAlreadyDecided and credits nothing.
func (a *Approvals) Approve(ctx context.Context, requestID, approverID string) (*models.CreditRequest, error) {
	approverID = strings.TrimSpace(approverID)
	if approverID == "" {
		return nil, fmt.Errorf("%w: approver is required", ErrInvalidInput)
	}

	req, err := a.pending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var decided *models.CreditRequest
	_, err = a.ctrl.ApplyDelta(ctx, req.AccountID, req.Amount, ReasonApproval,
		WithReference(req.ID),
		WithinCommit(func(ctx context.Context, tx CommitTx, entry *models.LedgerEntry) error {
			locked, err := lockPending(ctx, tx, req.ID)
			if err != nil {
				return err
			}
			decidedAt := entry.CreatedAt
			locked.Status = models.RequestApproved
			locked.ApprovedBy = approverID
			locked.DecidedAt = &decidedAt
			if err := tx.SaveCreditRequest(ctx, locked); err != nil {
				return err
			}
			decided = locked
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	a.decided(decided)
	return decided, nil
}

// Reject marks a PENDING request REJECTED. The ledger is not touched.
func (a *Approvals) Reject(ctx context.Context, requestID string) (*models.CreditRequest, error) {
	req, err := a.pending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var decided *models.CreditRequest
	err = a.ctrl.exclusive(ctx, req.AccountID, req.ID, func(ctx context.Context, tx Tx) error {
		locked, err := lockPending(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		decidedAt := a.ctrl.now().UTC()
		locked.Status = models.RequestRejected
		locked.DecidedAt = &decidedAt
		if err := tx.SaveCreditRequest(ctx, locked); err != nil {
			return err
		}
		decided = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.decided(decided)
	return decided, nil
}

func (a *Approvals) GetRequest(ctx context.Context, requestID string) (*models.CreditRequest, error) {
	req, err := a.store.GetCreditRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("get_credit_request", err)
	}
	return req, nil
}

// ListRequests returns requests matching filter, newest first.
func (a *Approvals) ListRequests(ctx context.Context, filter RequestFilter) ([]models.CreditRequest, error) {
	filter.Page = a.pages.normalize(filter.Page)
	reqs, err := a.store.ListCreditRequests(ctx, filter)
	if err != nil {
		return nil, storeErr("list_credit_requests", err)
	}
	return reqs, nil
}

// pending is the lock-free fast path of the decided guard.
func (a *Approvals) pending(ctx context.Context, requestID string) (*models.CreditRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}
	req, err := a.store.GetCreditRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("get_credit_request", err)
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyDecided, req.ID, req.Status)
	}
	return req, nil
}

// lockPending re-checks the guard inside the critical section.
func lockPending(ctx context.Context, tx CommitTx, requestID string) (*models.CreditRequest, error) {
	req, err := tx.LockCreditRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyDecided, req.ID, req.Status)
	}
	return req, nil
}

func (a *Approvals) decided(req *models.CreditRequest) {
	a.logger.Info("credit request decided",
		zap.String("request_id", req.ID),
		zap.String("account_id", req.AccountID),
		zap.String("status", string(req.Status)),
		zap.String("approved_by", req.ApprovedBy),
	)
	a.auditor.LogDecision(req)
	if req.Status == models.RequestRejected {
		a.ctrl.publish(context.Background(), Event{
			Type:        EventDecision,
			AccountID:   req.AccountID,
			Amount:      req.Amount,
			ReferenceID: req.ID,
			Status:      string(req.Status),
			CreatedAt:   *req.DecidedAt,
		})
	}
}
