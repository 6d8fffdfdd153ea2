package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jae876/crestara/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, account_id, kind, status, amount_micros, coin_symbol, metadata, created_at, confirmed_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.Kind, &tx.Status, &tx.AmountMicros,
		&tx.CoinSymbol, &tx.Metadata, &tx.CreatedAt, &tx.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, kind, status, amount_micros, coin_symbol, metadata, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
		RETURNING created_at
	`
	err := q.db.QueryRow(ctx, query,
		tx.ID, tx.AccountID, tx.Kind, tx.Status, tx.AmountMicros,
		tx.CoinSymbol, tx.Metadata, tx.ConfirmedAt,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := scanTransaction(q.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// GetTransactionForUpdate locks the transaction row for a status transition.
func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := scanTransaction(q.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransactionStatus moves a transaction out of PENDING. The from-status
// guard keeps concurrent transitions from clobbering each other; confirmed_at
// is stamped only on CONFIRMED.
func (q *Queries) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE transactions
		SET status = $1,
		    confirmed_at = CASE WHEN $1 = 'CONFIRMED' THEN NOW() ELSE confirmed_at END
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return 0, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.Kind, &tx.Status, &tx.AmountMicros,
			&tx.CoinSymbol, &tx.Metadata, &tx.CreatedAt, &tx.ConfirmedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q *Queries) CountTransactions(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// CountTransactionsByKind reports how many transactions of the given kind
// and status exist for an account. Used by idempotency checks and tests.
func (q *Queries) CountTransactionsByKind(ctx context.Context, accountID uuid.UUID, kind, status string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND kind = $2 AND status = $3`,
		accountID, kind, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions by kind: %w", err)
	}
	return count, nil
}
