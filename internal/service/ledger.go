package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
)

// LedgerService owns every balance mutation. Callers never touch account
// balances directly; everything routes through Debit and Credit so that each
// mutation is paired with exactly one Transaction row or audit entry.
type LedgerService struct {
	store QueryStore
	audit *AuditService
}

func NewLedgerService(store QueryStore, audit *AuditService) *LedgerService {
	return &LedgerService{store: store, audit: audit}
}

// DebitBreakdown reports how a debit was split across the two sub-balances
// and the balances left behind.
type DebitBreakdown struct {
	FromCashMicros  int64
	FromBonusMicros int64
	Balances        models.Balances
}

func (l *LedgerService) Debit(ctx context.Context, accountID uuid.UUID, amount int64, source, action string) (*DebitBreakdown, error) {
	var out *DebitBreakdown
	err := l.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		out, err = l.DebitInTx(ctx, q, accountID, amount, source, action)
		return err
	})
	return out, err
}

// DebitInTx deducts amount from the account inside the caller's transaction.
// The account row is locked for the duration, so the sufficiency check and
// the adjustment are atomic. AUTO drains bonus first, then cash.
func (l *LedgerService) DebitInTx(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, amount int64, source, action string) (*DebitBreakdown, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	bal, err := qtx.GetBalancesForUpdate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var fromCash, fromBonus int64
	switch source {
	case domain.DebitSourceCash:
		if bal.CashMicros < amount {
			return nil, models.ErrInsufficientFunds
		}
		fromCash = amount
	case domain.DebitSourceBonus:
		if bal.BonusMicros < amount {
			return nil, models.ErrInsufficientFunds
		}
		fromBonus = amount
	case domain.DebitSourceAuto:
		if bal.CashMicros+bal.BonusMicros < amount {
			return nil, models.ErrInsufficientFunds
		}
		fromBonus = min(bal.BonusMicros, amount)
		fromCash = amount - fromBonus
	default:
		return nil, fmt.Errorf("unknown debit source %q", source)
	}

	rows, err := qtx.AdjustBalances(ctx, accountID, -fromCash, -fromBonus)
	if err != nil {
		return nil, err
	}
	if err := requireExactlyOne(rows, "debit balances"); err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(map[string]any{
		"amount_micros":     amount,
		"from_cash_micros":  fromCash,
		"from_bonus_micros": fromBonus,
		"source":            source,
	})
	if err := l.audit.Write(ctx, qtx, "account", accountID, &accountID, action, "", "", meta); err != nil {
		return nil, err
	}

	return &DebitBreakdown{
		FromCashMicros:  fromCash,
		FromBonusMicros: fromBonus,
		Balances: models.Balances{
			CashMicros:  bal.CashMicros - fromCash,
			BonusMicros: bal.BonusMicros - fromBonus,
		},
	}, nil
}

func (l *LedgerService) Credit(ctx context.Context, accountID uuid.UUID, amount int64, kind string, metadata map[string]any) (*models.Transaction, error) {
	var out *models.Transaction
	err := l.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		out, err = l.CreditInTx(ctx, q, accountID, amount, kind, metadata)
		return err
	})
	return out, err
}

// CreditInTx adds amount to the account's cash balance and records a
// CONFIRMED transaction of the given kind in the same database transaction.
func (l *LedgerService) CreditInTx(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, amount int64, kind string, metadata map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if _, err := qtx.GetBalancesForUpdate(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := qtx.AdjustBalances(ctx, accountID, amount, 0)
	if err != nil {
		return nil, err
	}
	if err := requireExactlyOne(rows, "credit balances"); err != nil {
		return nil, err
	}

	var meta []byte
	if metadata != nil {
		meta, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal transaction metadata: %w", err)
		}
	}
	now := time.Now().UTC()
	tx := &models.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         kind,
		Status:       domain.TxStatusConfirmed,
		AmountMicros: amount,
		CoinSymbol:   domain.DefaultCoin,
		Metadata:     meta,
		ConfirmedAt:  &now,
	}
	if err := qtx.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ApplyTransactionInTx credits the cash balance for a transaction row that
// already exists (a confirmed deposit, or a withdrawal refund). It writes an
// audit entry instead of a second transaction row.
func (l *LedgerService) ApplyTransactionInTx(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, amount int64, txID uuid.UUID, action string) error {
	if amount <= 0 {
		return fmt.Errorf("apply amount must be positive, got %d", amount)
	}
	if _, err := qtx.GetBalancesForUpdate(ctx, accountID); err != nil {
		return err
	}
	rows, err := qtx.AdjustBalances(ctx, accountID, amount, 0)
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "apply transaction"); err != nil {
		return err
	}
	meta, _ := json.Marshal(map[string]any{"transaction_id": txID, "amount_micros": amount})
	return l.audit.Write(ctx, qtx, "account", accountID, nil, action, "", "", meta)
}

// CreditBonusInTx adds amount to the bonus sub-balance. Used for promotional
// grants; pairs with an audit entry rather than a transaction row.
func (l *LedgerService) CreditBonusInTx(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, amount int64, action string) error {
	if amount <= 0 {
		return fmt.Errorf("bonus credit amount must be positive, got %d", amount)
	}
	if _, err := qtx.GetBalancesForUpdate(ctx, accountID); err != nil {
		return err
	}
	rows, err := qtx.AdjustBalances(ctx, accountID, 0, amount)
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "credit bonus"); err != nil {
		return err
	}
	meta, _ := json.Marshal(map[string]any{"amount_micros": amount})
	return l.audit.Write(ctx, qtx, "account", accountID, nil, action, "", "", meta)
}

// Balances returns the current sub-balances without locking.
func (l *LedgerService) Balances(ctx context.Context, accountID uuid.UUID) (models.Balances, error) {
	return l.store.Queries().GetBalances(ctx, accountID)
}
