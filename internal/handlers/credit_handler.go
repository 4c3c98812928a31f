package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/ledger"
	mW "github.com/ruralpay/creditledger/internal/middleware"
	"github.com/ruralpay/creditledger/internal/models"
)

// CreditHandler serves the seller's own balance, ledger, credit requests
// and spends. The account is always taken from the caller's token.
type CreditHandler struct {
	service   *ledger.Service
	validator *ValidationHelper
	logger    *zap.Logger
}

func NewCreditHandler(service *ledger.Service, logger *zap.Logger) *CreditHandler {
	return &CreditHandler{
		service:   service,
		validator: NewValidationHelper(),
		logger:    logger.Named("credit_handler"),
	}
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

type CreditRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"max=500"`
}

type SpendRequestBody struct {
	Target string          `json:"target" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// GetBalance returns the caller's current balance.
// @Summary Get own balance
// @Tags credit
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 404 {object} ErrorResponse
// @Router /credit/balance [get]
func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	balance, err := h.service.GetBalance(r.Context(), identity.AccountID)
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: identity.AccountID,
		Balance:   ledger.Cents(balance),
	})
}

// ListLedger pages through the caller's ledger, oldest first.
// @Summary List own ledger entries
// @Tags credit
// @Produce json
// @Security BearerAuth
// @Param after_seq query int false "Return entries after this sequence number"
// @Param limit query int false "Page size"
// @Success 200 {object} LedgerPage
// @Router /ledger [get]
func (h *CreditHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	entries, err := h.service.ListLedger(r.Context(), identity.AccountID, pageFromQuery(r))
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerPage(entries))
}

// SubmitRequest files a credit request for the caller's account.
// @Summary Request credit
// @Tags credit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreditRequestBody true "Amount and note"
// @Success 201 {object} models.CreditRequest
// @Failure 400 {object} ErrorResponse
// @Router /credit-requests [post]
func (h *CreditHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	var req CreditRequestBody
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	created, err := h.service.Submit(r.Context(), identity.AccountID, req.Amount, req.Note)
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListRequests lists the caller's credit requests, newest first.
// @Summary List own credit requests
// @Tags credit
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} RequestList
// @Router /credit-requests/mine [get]
func (h *CreditHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	reqs, err := h.service.ListRequests(r.Context(), ledger.RequestFilter{
		AccountID: identity.AccountID,
		Status:    models.RequestStatus(r.URL.Query().Get("status")),
		Page:      pageFromQuery(r),
	})
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestList{Requests: nonNil(reqs)})
}

// Spend recharges target out of the caller's credit.
// @Summary Spend credit on an allow-listed number
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param spend body SpendRequestBody true "Target and amount"
// @Success 201 {object} models.SpendTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /transactions [post]
func (h *CreditHandler) Spend(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	var req SpendRequestBody
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	spend, err := h.service.Spend(r.Context(), identity.AccountID, req.Target, req.Amount)
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, spend)
}

// ListSpends lists the caller's spends, newest first.
// @Summary List own spends
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} SpendList
// @Router /transactions [get]
func (h *CreditHandler) ListSpends(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	spends, err := h.service.ListSpends(r.Context(), identity.AccountID, pageFromQuery(r))
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SpendList{Transactions: nonNil(spends)})
}

type RequestList struct {
	Requests []models.CreditRequest `json:"requests"`
}

type SpendList struct {
	Transactions []models.SpendTransaction `json:"transactions"`
}

type SellerList struct {
	Sellers []models.Account `json:"sellers"`
}

type LedgerPage struct {
	Entries []models.LedgerEntry `json:"entries"`
	NextSeq int64                `json:"next_after_seq,omitempty"`
}

func ledgerPage(entries []models.LedgerEntry) LedgerPage {
	page := LedgerPage{Entries: nonNil(entries)}
	if n := len(entries); n > 0 {
		page.NextSeq = entries[n-1].Seq
	}
	return page
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
