package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/service"
	"github.com/google/uuid"
)

// ReferralHandler handles HTTP requests for the referral program.
type ReferralHandler struct {
	referrals *service.ReferralService
}

func NewReferralHandler(referrals *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// TrackRequest is the request body for claiming a referral code.
type TrackRequest struct {
	ReferralCode string `json:"referral_code"`
}

// ReferralResponse is one tracked referral.
type ReferralResponse struct {
	ID                uuid.UUID  `json:"id"`
	ReferredAccountID uuid.UUID  `json:"referred_account_id"`
	BonusMicros       int64      `json:"bonus_micros"`
	Status            string     `json:"status"`
	CreditedAt        *time.Time `json:"credited_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func newReferralResponse(ref *models.Referral) ReferralResponse {
	return ReferralResponse{
		ID:                ref.ID,
		ReferredAccountID: ref.ReferredAccountID,
		BonusMicros:       ref.BonusMicros,
		Status:            ref.Status,
		CreditedAt:        ref.CreditedAt,
		CreatedAt:         ref.CreatedAt,
	}
}

// Track handles POST /v1/referral/track.
func (h *ReferralHandler) Track(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.ReferralCode == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-referral-code", "referral_code is required")
		return
	}

	ref, err := h.referrals.Track(r.Context(), accountID, req.ReferralCode)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, newReferralResponse(ref))
}

// CreditRequest names the referred account whose referral should pay out.
type CreditRequest struct {
	ReferredAccountID uuid.UUID `json:"referred_account_id"`
}

// Credit handles POST /v1/referral/credit. Admin-only escape hatch for
// paying out a converted referral outside the deposit-confirmation path.
func (h *ReferralHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.ReferredAccountID == uuid.Nil {
		RespondError(w, r, http.StatusBadRequest, "request/missing-referred-account-id", "referred_account_id is required")
		return
	}

	ref, err := h.referrals.Credit(r.Context(), req.ReferredAccountID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newReferralResponse(ref))
}

// Stats handles GET /v1/referral/stats.
func (h *ReferralHandler) Stats(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := requestAccount(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	stats, err := h.referrals.Stats(r.Context(), accountID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]ReferralResponse, 0, len(stats.Referrals))
	for i := range stats.Referrals {
		out = append(out, newReferralResponse(&stats.Referrals[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"referrals":           out,
		"total_count":         stats.TotalCount,
		"credited_count":      stats.CreditedCount,
		"total_earned_micros": stats.TotalEarnedMicros,
	})
}
