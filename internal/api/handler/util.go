package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Jae876/crestara/internal/api/middleware"
	"github.com/Jae876/crestara/internal/api/problem"
	"github.com/Jae876/crestara/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestAccount(r *http.Request) (uuid.UUID, bool, error) {
	accountID := middleware.AccountIDFromContext(r.Context())
	if accountID == "" {
		return uuid.Nil, false, errors.New("missing account in auth context")
	}
	id, err := uuid.Parse(accountID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid account_id in auth context")
	}
	return id, middleware.AccountRoleFromContext(r.Context()) == "admin", nil
}

// respondDomainError maps the service error taxonomy onto HTTP statuses.
// Unknown errors fall through to a generic 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		RespondError(w, r, http.StatusUnprocessableEntity, "ledger/insufficient-funds", "insufficient funds")
	case errors.Is(err, models.ErrInvalidBet):
		RespondError(w, r, http.StatusBadRequest, "casino/invalid-bet", "bet violates game limits")
	case errors.Is(err, models.ErrGameNotAvailable):
		RespondError(w, r, http.StatusNotFound, "casino/game-not-available", "game is not available")
	case errors.Is(err, models.ErrAccountNotFound):
		RespondError(w, r, http.StatusNotFound, "accounts/not-found", "account not found")
	case errors.Is(err, models.ErrBetNotFound):
		RespondError(w, r, http.StatusNotFound, "casino/bet-not-found", "bet not found")
	case errors.Is(err, models.ErrTransactionNotFound):
		RespondError(w, r, http.StatusNotFound, "funding/transaction-not-found", "transaction not found")
	case errors.Is(err, models.ErrReferralNotFound):
		RespondError(w, r, http.StatusNotFound, "referral/not-found", "referral not found")
	case errors.Is(err, models.ErrPositionNotFound):
		RespondError(w, r, http.StatusNotFound, "mining/position-not-found", "mining position not found")
	case errors.Is(err, models.ErrAlreadyReferred):
		RespondError(w, r, http.StatusConflict, "referral/already-referred", "account already has a referrer")
	case errors.Is(err, models.ErrReferralNotConverted):
		RespondError(w, r, http.StatusConflict, "referral/not-converted", "referral has not converted yet")
	case errors.Is(err, models.ErrInvalidTransition):
		RespondError(w, r, http.StatusConflict, "ledger/invalid-transition", "invalid status transition")
	default:
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
