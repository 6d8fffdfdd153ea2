package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/service"
	"github.com/google/uuid"
)

// MiningHandler handles HTTP requests for mining packages and positions.
type MiningHandler struct {
	mining *service.MiningService
}

func NewMiningHandler(mining *service.MiningService) *MiningHandler {
	return &MiningHandler{mining: mining}
}

// PurchaseRequest is the request body for buying a mining package.
type PurchaseRequest struct {
	PackageTier string `json:"package_tier"`
}

// PositionResponse is one mining position.
type PositionResponse struct {
	ID              uuid.UUID  `json:"id"`
	PackageTier     string     `json:"package_tier"`
	CoinSymbol      string     `json:"coin_symbol"`
	DailyRateMicros int64      `json:"daily_rate_micros"`
	StartedAt       time.Time  `json:"started_at"`
	EndsAt          time.Time  `json:"ends_at"`
	TotalPaidMicros int64      `json:"total_paid_micros"`
	Status          string     `json:"status"`
	LastPaidCycle   *time.Time `json:"last_paid_cycle,omitempty"`
}

func newPositionResponse(pos *models.MiningPosition) PositionResponse {
	return PositionResponse{
		ID:              pos.ID,
		PackageTier:     pos.PackageTier,
		CoinSymbol:      pos.CoinSymbol,
		DailyRateMicros: pos.DailyRateMicros,
		StartedAt:       pos.StartedAt,
		EndsAt:          pos.EndsAt,
		TotalPaidMicros: pos.TotalPaidMicros,
		Status:          pos.Status,
		LastPaidCycle:   pos.LastPaidCycle,
	}
}

// ListPackages handles GET /v1/mining/packages.
func (h *MiningHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs := h.mining.Packages()
	out := make([]map[string]any, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, map[string]any{
			"tier":              p.Tier,
			"price_micros":      p.PriceMicros,
			"duration_days":     p.DurationDays,
			"daily_rate_micros": p.DailyRateMicros,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"packages": out})
}

// Purchase handles POST /v1/mining/positions.
func (h *MiningHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.PackageTier == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-package-tier", "package_tier is required")
		return
	}

	pos, err := h.mining.PurchasePosition(r.Context(), accountID, req.PackageTier)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, newPositionResponse(pos))
}

// ListPositions handles GET /v1/mining/positions.
func (h *MiningHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	positions, err := h.mining.Positions(r.Context(), accountID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]PositionResponse, 0, len(positions))
	for i := range positions {
		out = append(out, newPositionResponse(&positions[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"positions": out})
}

// RunCycle handles POST /v1/mining/cycles/run. Admin-only escape hatch for
// triggering a payout cycle outside the worker schedule.
func (h *MiningHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	report, err := h.mining.RunPayoutCycle(r.Context(), time.Now().UTC())
	if err != nil && report == nil {
		respondDomainError(w, r, err)
		return
	}
	resp := map[string]any{
		"cycle":     report.Cycle,
		"paid":      report.Paid,
		"completed": report.Completed,
		"failed":    report.Failed,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	RespondJSON(w, http.StatusOK, resp)
}
