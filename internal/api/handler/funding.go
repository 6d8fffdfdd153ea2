package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundingHandler handles deposits, withdrawals and transaction history.
type FundingHandler struct {
	funding *service.FundingService
}

func NewFundingHandler(funding *service.FundingService) *FundingHandler {
	return &FundingHandler{funding: funding}
}

// DepositRequest is the request body for initiating a deposit.
type DepositRequest struct {
	CoinSymbol string `json:"coin_symbol"`
	CoinAmount string `json:"coin_amount"`
}

// WithdrawRequest is the request body for initiating a withdrawal.
type WithdrawRequest struct {
	CoinSymbol   string `json:"coin_symbol"`
	Destination  string `json:"destination"`
	AmountMicros int64  `json:"amount_micros"`
}

// TransactionResponse is one ledger transaction.
type TransactionResponse struct {
	ID           uuid.UUID       `json:"id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	AmountMicros int64           `json:"amount_micros"`
	CoinSymbol   string          `json:"coin_symbol"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
}

func newTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:           tx.ID,
		Kind:         tx.Kind,
		Status:       tx.Status,
		AmountMicros: tx.AmountMicros,
		CoinSymbol:   tx.CoinSymbol,
		Metadata:     tx.Metadata,
		CreatedAt:    tx.CreatedAt,
		ConfirmedAt:  tx.ConfirmedAt,
	}
}

// Deposit handles POST /v1/funding/deposits.
func (h *FundingHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.CoinAmount)
	if err != nil || !amount.IsPositive() {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "coin_amount must be a positive number")
		return
	}

	intent, err := h.funding.InitiateDeposit(r.Context(), accountID, req.CoinSymbol, amount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]any{
		"transaction":     newTransactionResponse(intent.Transaction),
		"deposit_address": intent.DepositAddress,
		"coin_amount":     intent.CoinAmount.String(),
	})
}

// ConfirmDeposit handles POST /v1/funding/deposits/{txID}/confirm.
// In production this is driven by the chain watcher; the endpoint is the
// admin escape hatch and the development hook.
func (h *FundingHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "txID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction id")
		return
	}

	tx, err := h.funding.ConfirmDeposit(r.Context(), txID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// Withdraw handles POST /v1/funding/withdrawals.
func (h *FundingHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.AmountMicros <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount_micros must be greater than zero")
		return
	}
	if req.Destination == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-destination", "destination is required")
		return
	}

	tx, err := h.funding.InitiateWithdraw(r.Context(), accountID, req.CoinSymbol, req.Destination, req.AmountMicros)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, newTransactionResponse(tx))
}

// ResolveWithdrawal handles POST /v1/funding/withdrawals/{txID}/resolve.
type ResolveWithdrawalRequest struct {
	Approve bool `json:"approve"`
}

func (h *FundingHandler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "txID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction id")
		return
	}

	var req ResolveWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tx, err := h.funding.ResolveWithdrawal(r.Context(), txID, req.Approve)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// ListTransactions handles GET /v1/funding/transactions.
func (h *FundingHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	limit, offset := pagination(r)

	page, err := h.funding.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]TransactionResponse, 0, len(page.Transactions))
	for i := range page.Transactions {
		out = append(out, newTransactionResponse(&page.Transactions[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"total":        page.Total,
		"limit":        limit,
		"offset":       offset,
	})
}

// ListCoins handles GET /v1/funding/coins.
func (h *FundingHandler) ListCoins(w http.ResponseWriter, r *http.Request) {
	coins := h.funding.SupportedCoins()
	out := make([]map[string]any, 0, len(coins))
	for _, c := range coins {
		out = append(out, map[string]any{
			"symbol":    c.Symbol,
			"name":      c.Name,
			"price_usd": c.PriceUSD.String(),
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"coins": out})
}
