package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jae876/crestara/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const betColumns = `id, account_id, game_type, stake_micros, multiplier, payout_micros, outcome, client_seed, server_seed, commit_hash, created_at`

// CreateBet appends the immutable bet record. There is no update path:
// the row is the audit artifact for fairness verification.
func (q *Queries) CreateBet(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (id, account_id, game_type, stake_micros, multiplier, payout_micros, outcome, client_seed, server_seed, commit_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`
	err := q.db.QueryRow(ctx, query,
		bet.ID, bet.AccountID, bet.GameType, bet.StakeMicros, bet.Multiplier,
		bet.PayoutMicros, bet.Outcome, bet.ClientSeed, bet.ServerSeed, bet.CommitHash,
	).Scan(&bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("create bet: %w", err)
	}
	return nil
}

func (q *Queries) GetBet(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	bet := &models.Bet{}
	err := q.db.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id).Scan(
		&bet.ID, &bet.AccountID, &bet.GameType, &bet.StakeMicros, &bet.Multiplier,
		&bet.PayoutMicros, &bet.Outcome, &bet.ClientSeed, &bet.ServerSeed,
		&bet.CommitHash, &bet.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrBetNotFound
		}
		return nil, fmt.Errorf("get bet: %w", err)
	}
	return bet, nil
}

func (q *Queries) ListBets(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Bet, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []models.Bet
	for rows.Next() {
		var bet models.Bet
		if err := rows.Scan(
			&bet.ID, &bet.AccountID, &bet.GameType, &bet.StakeMicros, &bet.Multiplier,
			&bet.PayoutMicros, &bet.Outcome, &bet.ClientSeed, &bet.ServerSeed,
			&bet.CommitHash, &bet.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, bet)
	}
	return out, rows.Err()
}

func (q *Queries) CountBets(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM bets WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bets: %w", err)
	}
	return count, nil
}
