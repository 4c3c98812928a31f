package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/allowlist"
	"github.com/ruralpay/creditledger/internal/ledger"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code,omitempty"`    // Machine-readable error kind
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	sendError(w, ErrorResponse{Error: message}, statusCode, validationErr)
}

func sendError(w http.ResponseWriter, resp ErrorResponse, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		resp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			resp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(resp)
}

// SendEngineError maps an engine error to its HTTP status. Faults are logged
// and hidden from the caller.
func SendEngineError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case ledger.IsNotFound(err), errors.Is(err, allowlist.ErrNotListed):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ledger.ErrAlreadyDecided):
		status, code = http.StatusConflict, "ALREADY_DECIDED"
	case errors.Is(err, ledger.ErrAccountInUse):
		status, code = http.StatusConflict, "ACCOUNT_IN_USE"
	case errors.Is(err, ledger.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, ledger.ErrInvalidTarget):
		status, code = http.StatusBadRequest, "INVALID_TARGET"
	case errors.Is(err, ledger.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"
	case errors.Is(err, ledger.ErrBusy):
		w.Header().Set("Retry-After", "1")
		status, code = http.StatusServiceUnavailable, "BUSY"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		message = "Internal server error"
	}
	sendError(w, ErrorResponse{Error: message, Code: code}, status, nil)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeBody reads a single JSON object of at most 1 MiB into dst and
// validates it. It writes the error response itself and reports false on
// failure.
func (vh *ValidationHelper) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := vh.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// pageFromQuery reads limit, offset and after_seq. Absent or malformed
// values fall back to zero, which the engine replaces with its defaults.
func pageFromQuery(r *http.Request) ledger.Page {
	q := r.URL.Query()
	atoi := func(key string) int {
		n, err := strconv.Atoi(q.Get(key))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	afterSeq, err := strconv.ParseInt(q.Get("after_seq"), 10, 64)
	if err != nil || afterSeq < 0 {
		afterSeq = 0
	}
	return ledger.Page{
		AfterSeq: afterSeq,
		Offset:   atoi("offset"),
		Limit:    atoi("limit"),
	}
}
