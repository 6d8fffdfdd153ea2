package service

import (
	"context"
	"testing"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/pricing"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newFundingFixture(t *testing.T) (*repository.Store, *FundingService, *ReferralService) {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	audit := NewAuditService()
	ledger := NewLedgerService(store, audit)
	referrals, err := NewReferralService(store, ledger, audit, testReferralBonus)
	require.NoError(t, err)
	funding := NewFundingService(store, ledger, audit, pricing.NewStaticSource(), referrals, notify.Nop{})
	return store, funding, referrals
}

func TestDepositLifecycle(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	intent, err := funding.InitiateDeposit(ctx, account.ID, "USDT", decimal.NewFromInt(50))
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusPending, intent.Transaction.Status)
	require.Equal(t, int64(50_000_000), intent.Transaction.AmountMicros)
	require.NotEmpty(t, intent.DepositAddress)

	// Nothing credited while pending.
	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), bal.CashMicros)

	tx, err := funding.ConfirmDeposit(ctx, intent.Transaction.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusConfirmed, tx.Status)
	require.NotNil(t, tx.ConfirmedAt)

	bal, err = store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50_000_000), bal.CashMicros)

	// Confirming twice must not credit twice.
	_, err = funding.ConfirmDeposit(ctx, intent.Transaction.ID)
	require.NoError(t, err)
	bal, err = store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50_000_000), bal.CashMicros)
}

func TestDepositConvertsCoinPrice(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	// 0.001 BTC at $45,000 = $45.
	intent, err := funding.InitiateDeposit(ctx, account.ID, "BTC", decimal.NewFromFloat(0.001))
	require.NoError(t, err)
	require.Equal(t, int64(45_000_000), intent.Transaction.AmountMicros)

	_, err = funding.InitiateDeposit(ctx, account.ID, "DOGE", decimal.NewFromInt(1))
	require.Error(t, err)
}

func TestDepositConfirmSettlesReferral(t *testing.T) {
	store, funding, referrals := newFundingFixture(t)
	ctx := context.Background()
	referrer := createTestAccount(t, store, 0, 0)
	referred := createTestAccount(t, store, 0, 0)

	_, err := referrals.Track(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)

	intent, err := funding.InitiateDeposit(ctx, referred.ID, "USDC", decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = funding.ConfirmDeposit(ctx, intent.Transaction.ID)
	require.NoError(t, err)

	ref, err := store.Queries().GetReferralByReferred(ctx, referred.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStatusCredited, ref.Status)

	bal, err := store.Queries().GetBalances(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, testReferralBonus, bal.CashMicros)
}

func TestWithdrawHoldsAndConfirms(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 0)

	tx, err := funding.InitiateWithdraw(ctx, account.ID, "ETH", "0xabc", 40_000_000)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusPending, tx.Status)

	// Funds are held immediately.
	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(60_000_000), bal.CashMicros)

	resolved, err := funding.ResolveWithdrawal(ctx, tx.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusConfirmed, resolved.Status)

	bal, err = store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(60_000_000), bal.CashMicros)
}

func TestWithdrawRejectionRefunds(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 0)

	tx, err := funding.InitiateWithdraw(ctx, account.ID, "SOL", "SoDest", 25_000_000)
	require.NoError(t, err)

	resolved, err := funding.ResolveWithdrawal(ctx, tx.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusFailed, resolved.Status)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100_000_000), bal.CashMicros)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	// Bonus cannot be withdrawn.
	account := createTestAccount(t, store, 10_000_000, 500_000_000)

	_, err := funding.InitiateWithdraw(ctx, account.ID, "BTC", "1Adest", 20_000_000)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	txs, err := store.Queries().CountTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), txs)
}

func TestResolveWithdrawalWrongKind(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	intent, err := funding.InitiateDeposit(ctx, account.ID, "USDT", decimal.NewFromInt(5))
	require.NoError(t, err)

	_, err = funding.ResolveWithdrawal(ctx, intent.Transaction.ID, true)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestListTransactionsPagination(t *testing.T) {
	store, funding, _ := newFundingFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	for i := 0; i < 3; i++ {
		_, err := funding.InitiateDeposit(ctx, account.ID, "USDT", decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	page, err := funding.ListTransactions(ctx, account.ID, 2, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)
	require.Len(t, page.Transactions, 2)
}
