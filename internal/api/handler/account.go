package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jae876/crestara/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AccountHandler handles account registration and reads.
type AccountHandler struct {
	accounts *service.AccountService
	ledger   *service.LedgerService
}

func NewAccountHandler(accounts *service.AccountService, ledger *service.LedgerService) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger}
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// Register handles POST /v1/accounts.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Email == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-email", "email is required")
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Email, req.ReferralCode)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]any{
		"id":            account.ID,
		"email":         account.Email,
		"referral_code": account.ReferralCode,
		"created_at":    account.CreatedAt.Format(time.RFC3339),
	})
}

// Balance handles GET /v1/accounts/balance.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	balances, err := h.ledger.Balances(r.Context(), accountID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int64{
		"cash_micros":  balances.CashMicros,
		"bonus_micros": balances.BonusMicros,
		"total_micros": balances.Total(),
	})
}

// Get handles GET /v1/accounts/{id}. Admin-only.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	if !isAdmin {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account id")
		return
	}
	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"id":            account.ID,
		"email":         account.Email,
		"cash_micros":   account.CashMicros,
		"bonus_micros":  account.BonusMicros,
		"referral_code": account.ReferralCode,
		"referred_by":   account.ReferredBy,
		"created_at":    account.CreatedAt,
	})
}
