package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AuditEntry is one immutable row in the ledger audit trail. Every balance
// mutation that does not create its own Transaction row (debits) is paired
// with exactly one of these.
type AuditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, entry AuditEntry) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, entry.EntityType, entry.EntityID, entry.ActorID, entry.Action, entry.PrevState, entry.NextState, entry.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (q *Queries) CountAuditEntries(ctx context.Context, entityType string, entityID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE entity_type = $1 AND entity_id = $2`,
		entityType, entityID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}
