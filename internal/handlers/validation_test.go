package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/allowlist"
	"github.com/ruralpay/creditledger/internal/ledger"
)

type TestStruct struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&TestStruct{Name: "Ada Obi", Email: "ada@example.com"})
		assert.NoError(t, err)
	})

	t.Run("invalid email format", func(t *testing.T) {
		err := vh.ValidateStruct(&TestStruct{Name: "Ada Obi", Email: "invalid-email"})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Email", validationErrors[0].Field())
		assert.Equal(t, "email", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := NewValidationHelper().ValidateStruct(&TestStruct{Name: "A", Email: "ada@example.com"})

		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Field Validation Failed on 'min' tag", response.Details["Name"])
	})
}

func TestSendEngineError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ledger.ErrAccountNotFound, http.StatusNotFound, "NOT_FOUND"},
		{ledger.ErrRequestNotFound, http.StatusNotFound, "NOT_FOUND"},
		{allowlist.ErrNotListed, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: req-1 is APPROVED", ledger.ErrAlreadyDecided), http.StatusConflict, "ALREADY_DECIDED"},
		{fmt.Errorf("%w: seller-1", ledger.ErrAccountInUse), http.StatusConflict, "ACCOUNT_IN_USE"},
		{ledger.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{ledger.ErrInvalidTarget, http.StatusBadRequest, "INVALID_TARGET"},
		{ledger.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{ledger.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{ledger.ErrBusy, http.StatusServiceUnavailable, "BUSY"},
		{&ledger.StoreError{Op: "apply_delta", Err: fmt.Errorf("connection reset")}, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			SendEngineError(w, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			var response ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.code, response.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", response.Error)
			}
			if tt.status == http.StatusServiceUnavailable {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestPageFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ledger?limit=20&after_seq=40&offset=-3", nil)
	page := pageFromQuery(r)
	assert.Equal(t, ledger.Page{AfterSeq: 40, Limit: 20}, page)

	r = httptest.NewRequest(http.MethodGet, "/ledger?limit=abc", nil)
	assert.Equal(t, ledger.Page{}, pageFromQuery(r))
}
