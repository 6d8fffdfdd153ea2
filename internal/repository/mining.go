package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jae876/crestara/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const positionColumns = `id, account_id, package_tier, coin_symbol, daily_rate_micros, started_at, ends_at, total_paid_micros, status, last_paid_cycle`

func (q *Queries) CreateMiningPosition(ctx context.Context, pos *models.MiningPosition) error {
	query := `
		INSERT INTO mining_positions (id, account_id, package_tier, coin_symbol, daily_rate_micros, started_at, ends_at, total_paid_micros, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
	`
	_, err := q.db.Exec(ctx, query,
		pos.ID, pos.AccountID, pos.PackageTier, pos.CoinSymbol,
		pos.DailyRateMicros, pos.StartedAt, pos.EndsAt, pos.Status,
	)
	if err != nil {
		return fmt.Errorf("create mining position: %w", err)
	}
	return nil
}

func (q *Queries) GetMiningPosition(ctx context.Context, id uuid.UUID) (*models.MiningPosition, error) {
	pos := &models.MiningPosition{}
	err := q.db.QueryRow(ctx, `SELECT `+positionColumns+` FROM mining_positions WHERE id = $1`, id).Scan(
		&pos.ID, &pos.AccountID, &pos.PackageTier, &pos.CoinSymbol, &pos.DailyRateMicros,
		&pos.StartedAt, &pos.EndsAt, &pos.TotalPaidMicros, &pos.Status, &pos.LastPaidCycle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPositionNotFound
		}
		return nil, fmt.Errorf("get mining position: %w", err)
	}
	return pos, nil
}

func (q *Queries) ListMiningPositions(ctx context.Context, accountID uuid.UUID) ([]models.MiningPosition, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+positionColumns+`
		FROM mining_positions
		WHERE account_id = $1
		ORDER BY started_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list mining positions: %w", err)
	}
	defer rows.Close()

	var out []models.MiningPosition
	for rows.Next() {
		var pos models.MiningPosition
		if err := rows.Scan(
			&pos.ID, &pos.AccountID, &pos.PackageTier, &pos.CoinSymbol, &pos.DailyRateMicros,
			&pos.StartedAt, &pos.EndsAt, &pos.TotalPaidMicros, &pos.Status, &pos.LastPaidCycle,
		); err != nil {
			return nil, fmt.Errorf("scan mining position: %w", err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// ClaimNextPayablePosition locks one ACTIVE, unexpired position that has
// not yet been paid for the given cycle. SKIP LOCKED keeps concurrent
// scheduler instances (and the rest of the batch) from blocking on it;
// positions in the skip list are left for the next invocation.
func (q *Queries) ClaimNextPayablePosition(ctx context.Context, cycle, now time.Time, skip []uuid.UUID) (*models.MiningPosition, error) {
	pos := &models.MiningPosition{}
	err := q.db.QueryRow(ctx, `
		SELECT `+positionColumns+`
		FROM mining_positions
		WHERE status = 'ACTIVE'
		  AND ends_at > $1
		  AND (last_paid_cycle IS NULL OR last_paid_cycle < $2)
		  AND NOT (id = ANY($3))
		ORDER BY started_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, now, cycle, skip).Scan(
		&pos.ID, &pos.AccountID, &pos.PackageTier, &pos.CoinSymbol, &pos.DailyRateMicros,
		&pos.StartedAt, &pos.EndsAt, &pos.TotalPaidMicros, &pos.Status, &pos.LastPaidCycle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPositionNotFound
		}
		return nil, fmt.Errorf("claim payable position: %w", err)
	}
	return pos, nil
}

// MarkPositionPaid records a cycle payout against the claimed position.
// The cycle guard makes the update a no-op if some other transaction paid
// the position for this cycle first.
func (q *Queries) MarkPositionPaid(ctx context.Context, id uuid.UUID, amountMicros int64, cycle time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE mining_positions
		SET total_paid_micros = total_paid_micros + $1, last_paid_cycle = $2
		WHERE id = $3
		  AND status = 'ACTIVE'
		  AND (last_paid_cycle IS NULL OR last_paid_cycle < $2)
	`, amountMicros, cycle, id)
	if err != nil {
		return 0, fmt.Errorf("mark position paid: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CompleteExpiredPositions transitions every expired ACTIVE position to
// COMPLETED without paying it.
func (q *Queries) CompleteExpiredPositions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE mining_positions
		SET status = 'COMPLETED'
		WHERE status = 'ACTIVE' AND ends_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("complete expired positions: %w", err)
	}
	return tag.RowsAffected(), nil
}
