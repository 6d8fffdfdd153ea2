package service

import (
	"context"

	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
)

// AuditService writes immutable audit trail entries. Ledger debits do not
// create Transaction rows of their own; the audit entry is their pairing.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable audit record inside the caller's transaction.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	return qtx.InsertAuditLog(ctx, repository.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	})
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
