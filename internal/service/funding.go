package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/pricing"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FundingService handles coin deposits and withdrawals. Balances are only
// touched when a transaction reaches its terminal status: deposits credit on
// confirmation, withdrawals debit up front and refund on rejection.
type FundingService struct {
	store     QueryStore
	ledger    *LedgerService
	audit     *AuditService
	prices    pricing.Source
	referrals *ReferralService
	notifier  notify.Publisher
}

func NewFundingService(store QueryStore, ledger *LedgerService, audit *AuditService, prices pricing.Source, referrals *ReferralService, notifier notify.Publisher) *FundingService {
	return &FundingService{
		store:     store,
		ledger:    ledger,
		audit:     audit,
		prices:    prices,
		referrals: referrals,
		notifier:  notifier,
	}
}

// DepositIntent is a PENDING deposit waiting for on-chain confirmation.
type DepositIntent struct {
	Transaction    *models.Transaction
	DepositAddress string
	CoinAmount     decimal.Decimal
}

// InitiateDeposit records a PENDING deposit for the USD value of the given
// coin amount and hands back the address to send funds to. Nothing is
// credited until ConfirmDeposit.
func (s *FundingService) InitiateDeposit(ctx context.Context, accountID uuid.UUID, coinSymbol string, coinAmount decimal.Decimal) (*DepositIntent, error) {
	if !coinAmount.IsPositive() {
		return nil, fmt.Errorf("deposit amount must be positive, got %s", coinAmount)
	}
	price, err := s.prices.Price(coinSymbol)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Queries().GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	address, err := pricing.DepositAddress(coinSymbol)
	if err != nil {
		return nil, err
	}

	usdMicros := domain.FromDecimal(coinAmount.Mul(price))
	if usdMicros <= 0 {
		return nil, fmt.Errorf("deposit of %s %s is below the minimum credit unit", coinAmount, coinSymbol)
	}
	tx := &models.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         domain.TxKindDeposit,
		Status:       domain.TxStatusPending,
		AmountMicros: usdMicros,
		CoinSymbol:   coinSymbol,
		Metadata: jsonMeta(map[string]any{
			"coin_amount":     coinAmount.String(),
			"price_usd":       price.String(),
			"deposit_address": address,
		}),
	}
	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		return q.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return &DepositIntent{Transaction: tx, DepositAddress: address, CoinAmount: coinAmount}, nil
}

// ConfirmDeposit moves a PENDING deposit to CONFIRMED and credits its USD
// value. Confirming twice is a no-op. A first confirmed deposit also
// converts and credits the account's referral, if one is tracked.
func (s *FundingService) ConfirmDeposit(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	var tx *models.Transaction
	var credited bool
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		tx, err = q.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Kind != domain.TxKindDeposit {
			return fmt.Errorf("%w: transaction %s is not a deposit", models.ErrInvalidTransition, tx.ID)
		}
		if tx.Status == domain.TxStatusConfirmed {
			return nil
		}
		if err := transitionTransactionStatus(ctx, q, s.audit, tx, domain.TxStatusConfirmed, nil); err != nil {
			return err
		}
		if err := s.ledger.ApplyTransactionInTx(ctx, q, tx.AccountID, tx.AmountMicros, tx.ID, "deposit_credit"); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !credited {
		return tx, nil
	}

	s.notifier.DepositConfirmed(ctx, tx.AccountID, tx.ID, tx.AmountMicros)
	s.settleReferral(ctx, tx.AccountID)
	zap.L().Info("deposit confirmed",
		zap.String("transaction_id", tx.ID.String()),
		zap.Int64("amount_micros", tx.AmountMicros),
		zap.String("coin", tx.CoinSymbol),
	)
	return tx, nil
}

// settleReferral converts and credits the depositor's referral after the
// deposit commit. Referral settlement is deliberately a separate transaction:
// a referral failure must never roll back a confirmed deposit.
func (s *FundingService) settleReferral(ctx context.Context, accountID uuid.UUID) {
	if _, err := s.referrals.Convert(ctx, accountID); err != nil {
		if !errors.Is(err, models.ErrReferralNotFound) {
			zap.L().Error("convert referral after deposit", zap.String("account_id", accountID.String()), zap.Error(err))
		}
		return
	}
	if _, err := s.referrals.Credit(ctx, accountID); err != nil {
		zap.L().Error("credit referral after deposit", zap.String("account_id", accountID.String()), zap.Error(err))
	}
}

// InitiateWithdraw debits the cash balance immediately and records a PENDING
// withdrawal. The hold prevents the same funds from being wagered while the
// withdrawal is reviewed.
func (s *FundingService) InitiateWithdraw(ctx context.Context, accountID uuid.UUID, coinSymbol, destination string, usdMicros int64) (*models.Transaction, error) {
	if usdMicros <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %d", usdMicros)
	}
	if destination == "" {
		return nil, fmt.Errorf("withdrawal destination address is required")
	}
	price, err := s.prices.Price(coinSymbol)
	if err != nil {
		return nil, err
	}
	coinAmount := domain.NewMoney(usdMicros, domain.DefaultCoin).ToDecimal().Div(price)

	var tx *models.Transaction
	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if _, err := s.ledger.DebitInTx(ctx, q, accountID, usdMicros, domain.DebitSourceCash, "withdraw_hold"); err != nil {
			return err
		}
		tx = &models.Transaction{
			ID:           uuid.New(),
			AccountID:    accountID,
			Kind:         domain.TxKindWithdrawal,
			Status:       domain.TxStatusPending,
			AmountMicros: usdMicros,
			CoinSymbol:   coinSymbol,
			Metadata: jsonMeta(map[string]any{
				"destination": destination,
				"coin_amount": coinAmount.StringFixed(8),
				"price_usd":   price.String(),
			}),
		}
		return q.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("withdrawal initiated",
		zap.String("transaction_id", tx.ID.String()),
		zap.Int64("amount_micros", usdMicros),
		zap.String("coin", coinSymbol),
	)
	return tx, nil
}

// ResolveWithdrawal finishes a PENDING withdrawal. Approval confirms the
// transaction; rejection fails it and refunds the held amount, since the
// debit already happened at initiation.
func (s *FundingService) ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool) (*models.Transaction, error) {
	var tx *models.Transaction
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		tx, err = q.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Kind != domain.TxKindWithdrawal {
			return fmt.Errorf("%w: transaction %s is not a withdrawal", models.ErrInvalidTransition, tx.ID)
		}
		target := domain.TxStatusFailed
		if approve {
			target = domain.TxStatusConfirmed
		}
		if tx.Status == target {
			return nil
		}
		if err := transitionTransactionStatus(ctx, q, s.audit, tx, target, nil); err != nil {
			return err
		}
		if !approve {
			return s.ledger.ApplyTransactionInTx(ctx, q, tx.AccountID, tx.AmountMicros, tx.ID, "withdraw_refund")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionPage is one page of an account's transaction history.
type TransactionPage struct {
	Transactions []models.Transaction
	Total        int64
}

func (s *FundingService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) (*TransactionPage, error) {
	q := s.store.Queries()
	txs, err := q.ListTransactions(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := q.CountTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{Transactions: txs, Total: total}, nil
}

// SupportedCoins lists the deposit/withdrawal coins with current prices.
func (s *FundingService) SupportedCoins() []pricing.Coin {
	return s.prices.Coins()
}

// DepositMetadata decodes the metadata stored on a deposit transaction.
type DepositMetadata struct {
	CoinAmount     string `json:"coin_amount"`
	PriceUSD       string `json:"price_usd"`
	DepositAddress string `json:"deposit_address"`
}

func DecodeDepositMetadata(tx *models.Transaction) (*DepositMetadata, error) {
	var meta DepositMetadata
	if err := json.Unmarshal(tx.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode deposit metadata: %w", err)
	}
	return &meta, nil
}
