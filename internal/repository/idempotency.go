package repository

import (
	"context"
	"fmt"
)

// IdempotencyRow mirrors one row of the idempotency_keys table.
type IdempotencyRow struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyRow, error) {
	var row IdempotencyRow
	err := q.db.QueryRow(ctx, `
		SELECT idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress
		FROM idempotency_keys
		WHERE idempotency_key = $1
	`, key).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress,
	)
	if err != nil {
		return IdempotencyRow{}, err
	}
	return row, nil
}

// ReserveIdempotencyKey claims a key for the in-flight request. Returns
// pgx.ErrNoRows (via the caller's scan) when the key is already taken.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string) (string, error) {
	var reserved string
	err := q.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING idempotency_key
	`, key, requestHash, method, path).Scan(&reserved)
	if err != nil {
		return "", err
	}
	return reserved, nil
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int32, body []byte, contentType string) (IdempotencyRow, error) {
	var row IdempotencyRow
	err := q.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE
		WHERE idempotency_key = $4 AND request_hash = $5
		RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress
	`, status, body, contentType, key, requestHash).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress,
	)
	if err != nil {
		return IdempotencyRow{}, err
	}
	return row, nil
}

// PurgeExpiredIdempotencyKeys drops keys older than the retention window.
func (q *Queries) PurgeExpiredIdempotencyKeys(ctx context.Context, retention string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE created_at < NOW() - $1::interval`, retention)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
