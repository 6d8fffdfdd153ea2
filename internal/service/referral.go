package service

import (
	"context"
	"fmt"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/observability"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReferralService walks referrals through PENDING -> CONVERTED -> CREDITED.
// The progression is strictly monotonic: no transition ever moves a referral
// backwards, and crediting happens at most once per referred account.
type ReferralService struct {
	store       QueryStore
	ledger      *LedgerService
	audit       *AuditService
	bonusMicros int64
}

func NewReferralService(store QueryStore, ledger *LedgerService, audit *AuditService, bonusMicros int64) (*ReferralService, error) {
	if bonusMicros <= 0 {
		return nil, fmt.Errorf("referral bonus must be positive, got %d", bonusMicros)
	}
	return &ReferralService{store: store, ledger: ledger, audit: audit, bonusMicros: bonusMicros}, nil
}

// Track records that referredAccountID signed up through the given referral
// code. Re-tracking the same code returns the existing record; referring
// yourself, or tracking an account another referrer already claimed, is
// rejected.
func (s *ReferralService) Track(ctx context.Context, referredAccountID uuid.UUID, referralCode string) (*models.Referral, error) {
	referrer, err := s.store.Queries().GetAccountByReferralCode(ctx, referralCode)
	if err != nil {
		return nil, err
	}
	if referrer.ID == referredAccountID {
		return nil, fmt.Errorf("%w: cannot refer yourself", models.ErrReferralNotFound)
	}
	var ref *models.Referral
	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		ref, err = q.InsertReferral(ctx, &models.Referral{
			ID:                uuid.New(),
			ReferrerAccountID: referrer.ID,
			ReferredAccountID: referredAccountID,
			BonusMicros:       s.bonusMicros,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if ref.ReferrerAccountID != referrer.ID {
		return nil, models.ErrAlreadyReferred
	}
	return ref, nil
}

// Convert marks the referred account's referral as CONVERTED: the referred
// account completed its qualifying action (first confirmed deposit).
// Converting an already converted or credited referral is a no-op.
func (s *ReferralService) Convert(ctx context.Context, referredAccountID uuid.UUID) (*models.Referral, error) {
	var ref *models.Referral
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		ref, err = q.GetReferralByReferredForUpdate(ctx, referredAccountID)
		if err != nil {
			return err
		}
		if ref.Status != domain.ReferralStatusPending {
			return nil
		}
		rows, err := q.TransitionReferralStatus(ctx, ref.ID, domain.ReferralStatusPending, domain.ReferralStatusConverted)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "convert referral"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "referral", ref.ID, nil, "status_change", domain.ReferralStatusPending, domain.ReferralStatusConverted, nil); err != nil {
			return err
		}
		ref.Status = domain.ReferralStatusConverted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// Credit pays the referrer's bonus for a CONVERTED referral. Crediting an
// already CREDITED referral succeeds without paying again; crediting a
// PENDING one fails, because the qualifying action has not happened yet.
func (s *ReferralService) Credit(ctx context.Context, referredAccountID uuid.UUID) (*models.Referral, error) {
	var ref *models.Referral
	var credited bool
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		ref, err = q.GetReferralByReferredForUpdate(ctx, referredAccountID)
		if err != nil {
			return err
		}
		switch ref.Status {
		case domain.ReferralStatusCredited:
			return nil
		case domain.ReferralStatusPending:
			return models.ErrReferralNotConverted
		}

		if _, err := s.ledger.CreditInTx(ctx, q, ref.ReferrerAccountID, ref.BonusMicros, domain.TxKindReferralBonus, map[string]any{
			"referral_id":         ref.ID,
			"referred_account_id": ref.ReferredAccountID,
		}); err != nil {
			return err
		}
		rows, err := q.TransitionReferralStatus(ctx, ref.ID, domain.ReferralStatusConverted, domain.ReferralStatusCredited)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "credit referral"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "referral", ref.ID, nil, "status_change", domain.ReferralStatusConverted, domain.ReferralStatusCredited, nil); err != nil {
			return err
		}
		ref.Status = domain.ReferralStatusCredited
		credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if credited {
		observability.RecordReferralCredit()
		zap.L().Info("referral credited",
			zap.String("referral_id", ref.ID.String()),
			zap.String("referrer_account_id", ref.ReferrerAccountID.String()),
			zap.Int64("bonus_micros", ref.BonusMicros),
		)
	}
	return ref, nil
}

// ReferralStats summarizes an account's referral activity.
type ReferralStats struct {
	Referrals         []models.Referral
	TotalCount        int
	CreditedCount     int
	TotalEarnedMicros int64
}

// Stats returns the account's referrals and how much bonus they have earned.
func (s *ReferralService) Stats(ctx context.Context, referrerAccountID uuid.UUID) (*ReferralStats, error) {
	refs, err := s.store.Queries().ListReferralsByReferrer(ctx, referrerAccountID)
	if err != nil {
		return nil, err
	}
	stats := &ReferralStats{Referrals: refs, TotalCount: len(refs)}
	for _, r := range refs {
		if r.Status == domain.ReferralStatusCredited {
			stats.CreditedCount++
			stats.TotalEarnedMicros += r.BonusMicros
		}
	}
	return stats, nil
}
