package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CountNegativeBalances reports accounts violating the non-negativity
// invariant. The CHECK constraints make this structurally impossible; the
// query is the independent watchdog.
func (q *Queries) CountNegativeBalances(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE cash_micros < 0 OR bonus_micros < 0`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count negative balances: %w", err)
	}
	return count, nil
}

// MiningPayoutMismatch is a position whose recorded total does not match
// the sum of its confirmed MINING_PAYOUT transactions.
type MiningPayoutMismatch struct {
	PositionID      uuid.UUID
	TotalPaidMicros int64
	LedgerMicros    int64
}

func (q *Queries) ListMiningPayoutMismatches(ctx context.Context) ([]MiningPayoutMismatch, error) {
	rows, err := q.db.Query(ctx, `
		SELECT p.id, p.total_paid_micros, COALESCE(SUM(t.amount_micros), 0) AS ledger_micros
		FROM mining_positions p
		LEFT JOIN transactions t
		  ON t.kind = 'MINING_PAYOUT'
		 AND t.status = 'CONFIRMED'
		 AND (t.metadata->>'position_id')::uuid = p.id
		GROUP BY p.id, p.total_paid_micros
		HAVING p.total_paid_micros <> COALESCE(SUM(t.amount_micros), 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("list mining payout mismatches: %w", err)
	}
	defer rows.Close()

	var out []MiningPayoutMismatch
	for rows.Next() {
		var m MiningPayoutMismatch
		if err := rows.Scan(&m.PositionID, &m.TotalPaidMicros, &m.LedgerMicros); err != nil {
			return nil, fmt.Errorf("scan payout mismatch: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
