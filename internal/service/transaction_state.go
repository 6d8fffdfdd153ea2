package service

import (
	"context"
	"fmt"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
)

// transitions holds the allowed transaction status transitions. Terminal
// states have no outgoing edges.
var transitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusConfirmed: {},
		domain.TxStatusFailed:    {},
	},
}

func canTransition(from, to string) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// transitionTransactionStatus moves a locked transaction from one status to
// another, writing an audit entry alongside. Moving to the current status is
// a no-op so confirmation retries stay idempotent.
func transitionTransactionStatus(ctx context.Context, qtx *repository.Queries, audit *AuditService, tx *models.Transaction, to string, actorID *uuid.UUID) error {
	if tx.Status == to {
		return nil
	}
	if !canTransition(tx.Status, to) {
		return fmt.Errorf("%w: transaction %s cannot move %s -> %s", models.ErrInvalidTransition, tx.ID, tx.Status, to)
	}
	rows, err := qtx.UpdateTransactionStatus(ctx, tx.ID, tx.Status, to)
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "update transaction status"); err != nil {
		return err
	}
	if err := audit.Write(ctx, qtx, "transaction", tx.ID, actorID, "status_change", tx.Status, to, nil); err != nil {
		return err
	}
	tx.Status = to
	return nil
}
