package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CasinoHandler handles HTTP requests for bets and verification.
type CasinoHandler struct {
	casino *service.CasinoService
}

func NewCasinoHandler(casino *service.CasinoService) *CasinoHandler {
	return &CasinoHandler{casino: casino}
}

// PlaceBetRequest is the request body for placing a bet.
type PlaceBetRequest struct {
	GameType    string `json:"game_type"`
	StakeMicros int64  `json:"stake_micros"`
	ClientSeed  string `json:"client_seed"`
}

// BetResponse is the settled bet. The server seed is revealed immediately:
// each bet uses a fresh seed, so there is nothing left to protect once the
// outcome is recorded.
type BetResponse struct {
	ID           uuid.UUID `json:"id"`
	GameType     string    `json:"game_type"`
	StakeMicros  int64     `json:"stake_micros"`
	Multiplier   string    `json:"multiplier"`
	PayoutMicros int64     `json:"payout_micros"`
	Outcome      string    `json:"outcome"`
	ClientSeed   string    `json:"client_seed"`
	ServerSeed   string    `json:"server_seed"`
	CommitHash   string    `json:"commit_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func newBetResponse(bet *models.Bet) BetResponse {
	return BetResponse{
		ID:           bet.ID,
		GameType:     bet.GameType,
		StakeMicros:  bet.StakeMicros,
		Multiplier:   bet.Multiplier.String(),
		PayoutMicros: bet.PayoutMicros,
		Outcome:      bet.Outcome,
		ClientSeed:   bet.ClientSeed,
		ServerSeed:   bet.ServerSeed,
		CommitHash:   bet.CommitHash,
		CreatedAt:    bet.CreatedAt,
	}
}

// PlaceBet handles POST /v1/casino/bets.
func (h *CasinoHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.StakeMicros <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "stake_micros must be greater than zero")
		return
	}
	if req.GameType == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-game-type", "game_type is required")
		return
	}

	result, err := h.casino.PlaceBet(r.Context(), accountID, req.GameType, req.ClientSeed, req.StakeMicros)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]any{
		"bet": newBetResponse(result.Bet),
		"balances": map[string]int64{
			"cash_micros":  result.Balances.CashMicros,
			"bonus_micros": result.Balances.BonusMicros,
			"total_micros": result.Balances.Total(),
		},
	})
}

// VerifyBet handles GET /v1/casino/verify/{betID}.
func (h *CasinoHandler) VerifyBet(w http.ResponseWriter, r *http.Request) {
	betID, err := uuid.Parse(chi.URLParam(r, "betID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-bet-id", "Invalid bet id")
		return
	}

	result, err := h.casino.VerifyBet(r.Context(), betID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"bet":             newBetResponse(result.Bet),
		"recomputed_hash": result.RecomputedHash,
		"hash_matches":    result.HashMatches,
	})
}

// ListBets handles GET /v1/casino/bets.
func (h *CasinoHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	limit, offset := pagination(r)

	bets, total, err := h.casino.ListBets(r.Context(), accountID, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, newBetResponse(&bets[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"bets":   out,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ListGames handles GET /v1/casino/games.
func (h *CasinoHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games := h.casino.Games()
	out := make([]map[string]any, 0, len(games))
	for _, g := range games {
		out = append(out, map[string]any{
			"game_type":          g.GameType,
			"min_stake_micros":   g.MinStakeMicros,
			"max_stake_micros":   g.MaxStakeMicros,
			"house_edge_percent": g.HouseEdgePercent,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"games": out})
}
