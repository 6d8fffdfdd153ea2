package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jae876/crestara/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (q *Queries) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, cash_micros, bonus_micros, referral_code, referred_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`
	err := q.db.QueryRow(ctx, query,
		account.ID, account.Email, account.CashMicros, account.BonusMicros,
		account.ReferralCode, account.ReferredBy,
	).Scan(&account.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, email, cash_micros, bonus_micros, referral_code, referred_by, created_at
		FROM accounts WHERE id = $1
	`
	err := q.db.QueryRow(ctx, query, id).Scan(
		&account.ID, &account.Email, &account.CashMicros, &account.BonusMicros,
		&account.ReferralCode, &account.ReferredBy, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (q *Queries) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, email, cash_micros, bonus_micros, referral_code, referred_by, created_at
		FROM accounts WHERE referral_code = $1
	`
	err := q.db.QueryRow(ctx, query, code).Scan(
		&account.ID, &account.Email, &account.CashMicros, &account.BonusMicros,
		&account.ReferralCode, &account.ReferredBy, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by referral code: %w", err)
	}
	return account, nil
}

// GetBalances reads the current balances without locking. Suitable for
// read endpoints only; mutations must go through GetBalancesForUpdate.
func (q *Queries) GetBalances(ctx context.Context, id uuid.UUID) (models.Balances, error) {
	var b models.Balances
	err := q.db.QueryRow(ctx, `SELECT cash_micros, bonus_micros FROM accounts WHERE id = $1`, id).
		Scan(&b.CashMicros, &b.BonusMicros)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Balances{}, models.ErrAccountNotFound
		}
		return models.Balances{}, fmt.Errorf("get balances: %w", err)
	}
	return b, nil
}

// GetBalancesForUpdate locks the account row so concurrent debits against
// the same account serialize and cannot both pass the sufficiency check
// against a stale balance.
func (q *Queries) GetBalancesForUpdate(ctx context.Context, id uuid.UUID) (models.Balances, error) {
	var b models.Balances
	err := q.db.QueryRow(ctx, `SELECT cash_micros, bonus_micros FROM accounts WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.CashMicros, &b.BonusMicros)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Balances{}, models.ErrAccountNotFound
		}
		return models.Balances{}, fmt.Errorf("lock balances: %w", err)
	}
	return b, nil
}

// AdjustBalances applies signed deltas to the cash and bonus balances.
// The row must already be locked by the calling transaction.
func (q *Queries) AdjustBalances(ctx context.Context, id uuid.UUID, cashDelta, bonusDelta int64) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE accounts
		SET cash_micros = cash_micros + $1, bonus_micros = bonus_micros + $2
		WHERE id = $3
	`, cashDelta, bonusDelta, id)
	if err != nil {
		return 0, fmt.Errorf("adjust balances: %w", err)
	}
	return tag.RowsAffected(), nil
}
