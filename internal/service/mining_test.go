package service

import (
	"context"
	"testing"
	"time"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/stretchr/testify/require"
)

func newMiningFixture(t *testing.T) (*repository.Store, *MiningService) {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	ledger := NewLedgerService(store, NewAuditService())
	svc, err := NewMiningService(store, ledger, notify.Nop{}, DefaultMiningPackages, 24*time.Hour, 100)
	require.NoError(t, err)
	return store, svc
}

func TestPurchasePositionDebitsCash(t *testing.T) {
	store, mining := newMiningFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 20_000_000, 0)

	pos, err := mining.PurchasePosition(ctx, account.ID, "PRO")
	require.NoError(t, err)
	require.Equal(t, domain.PositionStatusActive, pos.Status)
	require.Equal(t, int64(1_000_000), pos.DailyRateMicros)
	require.WithinDuration(t, pos.StartedAt.AddDate(0, 0, 120), pos.EndsAt, time.Second)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), bal.CashMicros)

	purchases, err := store.Queries().CountTransactionsByKind(ctx, account.ID, domain.TxKindMiningPurchase, domain.TxStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, int64(1), purchases)
}

func TestPurchasePositionBonusCannotPay(t *testing.T) {
	store, mining := newMiningFixture(t)
	ctx := context.Background()
	// Bonus balance alone must not buy a package.
	account := createTestAccount(t, store, 1_000_000, 50_000_000)

	_, err := mining.PurchasePosition(ctx, account.ID, "BASIC")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestPurchaseUnknownPackage(t *testing.T) {
	store, mining := newMiningFixture(t)
	account := createTestAccount(t, store, 100_000_000, 0)

	_, err := mining.PurchasePosition(context.Background(), account.ID, "PLATINUM")
	require.Error(t, err)
}

func TestRunPayoutCyclePaysOncePerCycle(t *testing.T) {
	store, mining := newMiningFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 20_000_000, 0)

	pos, err := mining.PurchasePosition(ctx, account.ID, "ELITE")
	require.NoError(t, err)

	now := time.Now().UTC()
	report, err := mining.RunPayoutCycle(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, report.Paid)

	// Re-running inside the same cycle pays nothing.
	report, err = mining.RunPayoutCycle(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 0, report.Paid)

	stored, err := store.Queries().GetMiningPosition(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2_500_000), stored.TotalPaidMicros)
	require.NotNil(t, stored.LastPaidCycle)

	payouts, err := store.Queries().CountTransactionsByKind(ctx, account.ID, domain.TxKindMiningPayout, domain.TxStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, int64(1), payouts)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2_500_000), bal.CashMicros)
}

func TestRunPayoutCyclePaysAgainNextCycle(t *testing.T) {
	store, mining := newMiningFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 20_000_000, 0)

	_, err := mining.PurchasePosition(ctx, account.ID, "BASIC")
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = mining.RunPayoutCycle(ctx, now)
	require.NoError(t, err)
	report, err := mining.RunPayoutCycle(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, report.Paid)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), bal.CashMicros)
}

func TestExpiredPositionCompletesWithoutPayout(t *testing.T) {
	store, mining := newMiningFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 20_000_000, 0)

	pos, err := mining.PurchasePosition(ctx, account.ID, "BASIC")
	require.NoError(t, err)

	// Force the position past its end date.
	_, err = store.Pool().Exec(ctx,
		`UPDATE mining_positions SET ends_at = NOW() - INTERVAL '1 day' WHERE id = $1`, pos.ID)
	require.NoError(t, err)

	report, err := mining.RunPayoutCycle(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 0, report.Paid)
	require.Equal(t, int64(1), report.Completed)

	stored, err := store.Queries().GetMiningPosition(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PositionStatusCompleted, stored.Status)
	require.Equal(t, int64(0), stored.TotalPaidMicros)
}

func TestRunPayoutCycleMultiplePositions(t *testing.T) {
	store, mining := newMiningFixture(t)
	ctx := context.Background()
	a := createTestAccount(t, store, 50_000_000, 0)
	b := createTestAccount(t, store, 50_000_000, 0)

	_, err := mining.PurchasePosition(ctx, a.ID, "BASIC")
	require.NoError(t, err)
	_, err = mining.PurchasePosition(ctx, a.ID, "PRO")
	require.NoError(t, err)
	_, err = mining.PurchasePosition(ctx, b.ID, "ELITE")
	require.NoError(t, err)

	report, err := mining.RunPayoutCycle(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 3, report.Paid)

	balA, err := store.Queries().GetBalances(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50_000_000-15_000_000+1_500_000), balA.CashMicros)
	balB, err := store.Queries().GetBalances(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50_000_000-20_000_000+2_500_000), balB.CashMicros)
}
