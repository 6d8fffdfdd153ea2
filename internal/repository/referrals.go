package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jae876/crestara/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const referralColumns = `id, referrer_account_id, referred_account_id, bonus_micros, status, credited_at, created_at`

func scanReferral(row pgx.Row) (*models.Referral, error) {
	ref := &models.Referral{}
	err := row.Scan(
		&ref.ID, &ref.ReferrerAccountID, &ref.ReferredAccountID,
		&ref.BonusMicros, &ref.Status, &ref.CreditedAt, &ref.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// InsertReferral creates a PENDING referral for the referred account. An
// account is referred at most once: on conflict the existing record comes
// back unchanged, whoever its referrer is, and the caller decides whether
// that counts as a re-track or a rejection.
func (q *Queries) InsertReferral(ctx context.Context, ref *models.Referral) (*models.Referral, error) {
	created, err := scanReferral(q.db.QueryRow(ctx, `
		INSERT INTO referrals (id, referrer_account_id, referred_account_id, bonus_micros, status, created_at)
		VALUES ($1, $2, $3, $4, 'PENDING', NOW())
		ON CONFLICT (referred_account_id) DO NOTHING
		RETURNING `+referralColumns,
		ref.ID, ref.ReferrerAccountID, ref.ReferredAccountID, ref.BonusMicros,
	))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert referral: %w", err)
	}

	// Conflict: the account is already tracked.
	existing, err := scanReferral(q.db.QueryRow(ctx, `
		SELECT `+referralColumns+`
		FROM referrals
		WHERE referred_account_id = $1
	`, ref.ReferredAccountID))
	if err != nil {
		return nil, fmt.Errorf("load existing referral: %w", err)
	}
	return existing, nil
}

func (q *Queries) GetReferralByReferred(ctx context.Context, referredAccountID uuid.UUID) (*models.Referral, error) {
	ref, err := scanReferral(q.db.QueryRow(ctx, `
		SELECT `+referralColumns+`
		FROM referrals
		WHERE referred_account_id = $1
		ORDER BY created_at
		LIMIT 1
	`, referredAccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrReferralNotFound
		}
		return nil, fmt.Errorf("get referral: %w", err)
	}
	return ref, nil
}

// GetReferralByReferredForUpdate locks the referral row so a concurrent
// duplicate credit observes the final status instead of a stale one.
func (q *Queries) GetReferralByReferredForUpdate(ctx context.Context, referredAccountID uuid.UUID) (*models.Referral, error) {
	ref, err := scanReferral(q.db.QueryRow(ctx, `
		SELECT `+referralColumns+`
		FROM referrals
		WHERE referred_account_id = $1
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE
	`, referredAccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrReferralNotFound
		}
		return nil, fmt.Errorf("lock referral: %w", err)
	}
	return ref, nil
}

// TransitionReferralStatus flips a referral from one status to the next.
// The WHERE guard makes lost races visible as zero affected rows.
func (q *Queries) TransitionReferralStatus(ctx context.Context, id uuid.UUID, from, to string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE referrals
		SET status = $1,
		    credited_at = CASE WHEN $1 = 'CREDITED' THEN NOW() ELSE credited_at END
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return 0, fmt.Errorf("transition referral status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListReferralsByReferrer(ctx context.Context, referrerAccountID uuid.UUID) ([]models.Referral, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+referralColumns+`
		FROM referrals
		WHERE referrer_account_id = $1
		ORDER BY created_at DESC
	`, referrerAccountID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	var out []models.Referral
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(
			&ref.ID, &ref.ReferrerAccountID, &ref.ReferredAccountID,
			&ref.BonusMicros, &ref.Status, &ref.CreditedAt, &ref.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
