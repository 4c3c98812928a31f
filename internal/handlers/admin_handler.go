package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/ledger"
	mW "github.com/ruralpay/creditledger/internal/middleware"
	"github.com/ruralpay/creditledger/internal/models"
)

// PhoneBook manages the spend-target allow-list.
type PhoneBook interface {
	Add(ctx context.Context, phone, description string) (*models.PhoneNumber, error)
	Deactivate(ctx context.Context, phone string) error
}

// AdminHandler serves seller management, credit decisions and the
// allow-list.
type AdminHandler struct {
	service   *ledger.Service
	phones    PhoneBook
	validator *ValidationHelper
	logger    *zap.Logger
}

func NewAdminHandler(service *ledger.Service, phones PhoneBook, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:   service,
		phones:    phones,
		validator: NewValidationHelper(),
		logger:    logger.Named("admin_handler"),
	}
}

type CreateSellerBody struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type UpdateSellerBody struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// PhoneNumberBody takes the same form Spend accepts: 7 to 15 digits with
// an optional leading +.
type PhoneNumberBody struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=16"`
	Description string `json:"description,omitempty" validate:"max=255"`
}

type ReconcileResponse struct {
	AccountID  string `json:"account_id"`
	Consistent bool   `json:"consistent"`
	Problem    string `json:"problem,omitempty"`
}

// CreateSeller provisions a seller account with a zero balance.
// @Summary Create seller
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param seller body CreateSellerBody true "Seller"
// @Success 201 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Router /sellers [post]
func (h *AdminHandler) CreateSeller(w http.ResponseWriter, r *http.Request) {
	var req CreateSellerBody
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	account, err := h.service.CreateAccount(r.Context(), ledger.NewAccount{
		ID:          req.ID,
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// @Summary List sellers
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} SellerList
// @Router /sellers [get]
func (h *AdminHandler) ListSellers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), pageFromQuery(r))
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SellerList{Sellers: nonNil(accounts)})
}

// @Summary Get seller
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} ErrorResponse
// @Router /sellers/{id} [get]
func (h *AdminHandler) GetSeller(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateSeller replaces a seller's name, email and phone number.
// @Summary Update seller
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Param seller body UpdateSellerBody true "Seller profile"
// @Success 200 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sellers/{id} [put]
func (h *AdminHandler) UpdateSeller(w http.ResponseWriter, r *http.Request) {
	var req UpdateSellerBody
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), ledger.AccountUpdate{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteSeller removes a seller that has no ledger history.
// @Summary Delete seller
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sellers/{id} [delete]
func (h *AdminHandler) DeleteSeller(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List a seller's ledger entries
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Param after_seq query int false "Return entries after this sequence number"
// @Param limit query int false "Page size"
// @Success 200 {object} LedgerPage
// @Failure 404 {object} ErrorResponse
// @Router /sellers/{id}/ledger [get]
func (h *AdminHandler) SellerLedger(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if _, err := h.service.GetAccount(r.Context(), accountID); err != nil {
		SendEngineError(w, h.logger, err)
		return
	}

	entries, err := h.service.ListLedger(r.Context(), accountID, pageFromQuery(r))
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerPage(entries))
}

// Reconcile replays a seller's ledger against the stored balance.
// @Summary Reconcile a seller's ledger
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Success 200 {object} ReconcileResponse
// @Failure 404 {object} ErrorResponse
// @Router /sellers/{id}/reconcile [get]
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	resp := ReconcileResponse{AccountID: accountID, Consistent: true}

	err := h.service.Reconcile(r.Context(), accountID)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrLedgerCorrupt):
		h.logger.Error("ledger does not reconcile", zap.String("account_id", accountID), zap.Error(err))
		resp.Consistent = false
		resp.Problem = err.Error()
	default:
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary List credit requests
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param account_id query string false "Seller ID"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} RequestList
// @Router /credit-requests [get]
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reqs, err := h.service.ListRequests(r.Context(), ledger.RequestFilter{
		AccountID: q.Get("account_id"),
		Status:    models.RequestStatus(q.Get("status")),
		Page:      pageFromQuery(r),
	})
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestList{Requests: nonNil(reqs)})
}

// Approve credits a pending request. The approver is the token subject.
// @Summary Approve credit request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Credit request ID"
// @Success 200 {object} models.CreditRequest
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /credit-requests/{id}/approve [post]
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	identity, _ := mW.IdentityFrom(r.Context())

	req, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), identity.Subject)
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// @Summary Reject credit request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Credit request ID"
// @Success 200 {object} models.CreditRequest
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /credit-requests/{id}/reject [post]
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// @Summary Allow-list a phone number
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param phone body PhoneNumberBody true "Phone number"
// @Success 201 {object} models.PhoneNumber
// @Failure 400 {object} ErrorResponse
// @Router /phone-numbers [post]
func (h *AdminHandler) AddPhoneNumber(w http.ResponseWriter, r *http.Request) {
	var req PhoneNumberBody
	if !h.validator.decodeBody(w, r, &req) {
		return
	}
	if !ledger.ValidTarget(req.PhoneNumber) {
		SendErrorResponse(w, "phone_number must be 7 to 15 digits with an optional leading +", http.StatusBadRequest, nil)
		return
	}

	phone, err := h.phones.Add(r.Context(), req.PhoneNumber, req.Description)
	if err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, phone)
}

// @Summary Remove a phone number from the allow-list
// @Tags admin
// @Security BearerAuth
// @Param phone path string true "Phone number"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /phone-numbers/{phone} [delete]
func (h *AdminHandler) DeactivatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	if err := h.phones.Deactivate(r.Context(), chi.URLParam(r, "phone")); err != nil {
		SendEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
