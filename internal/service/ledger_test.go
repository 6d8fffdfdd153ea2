package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/stretchr/testify/require"
)

func newLedgerFixture(t *testing.T) (*repository.Store, *LedgerService) {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	return store, NewLedgerService(store, NewAuditService())
}

func TestDebitCashSufficient(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 10_000_000, 0)

	breakdown, err := ledger.Debit(ctx, account.ID, 4_000_000, domain.DebitSourceCash, "test_debit")
	require.NoError(t, err)
	require.Equal(t, int64(4_000_000), breakdown.FromCashMicros)
	require.Equal(t, int64(0), breakdown.FromBonusMicros)
	require.Equal(t, int64(6_000_000), breakdown.Balances.CashMicros)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6_000_000), bal.CashMicros)
}

func TestDebitInsufficientFunds(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 5_000_000, 0)

	_, err := ledger.Debit(ctx, account.ID, 10_000_000, domain.DebitSourceCash, "test_debit")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Rejected debit must leave the balance untouched.
	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5_000_000), bal.CashMicros)
}

func TestDebitAutoDrainsBonusFirst(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 20_000_000)

	breakdown, err := ledger.Debit(ctx, account.ID, 30_000_000, domain.DebitSourceAuto, "test_debit")
	require.NoError(t, err)
	require.Equal(t, int64(20_000_000), breakdown.FromBonusMicros)
	require.Equal(t, int64(10_000_000), breakdown.FromCashMicros)
	require.Equal(t, int64(90_000_000), breakdown.Balances.CashMicros)
	require.Equal(t, int64(0), breakdown.Balances.BonusMicros)
}

func TestDebitAutoCombinedInsufficient(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 3_000_000, 2_000_000)

	_, err := ledger.Debit(ctx, account.ID, 6_000_000, domain.DebitSourceAuto, "test_debit")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestDebitBonusOnly(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 50_000_000, 1_000_000)

	_, err := ledger.Debit(ctx, account.ID, 2_000_000, domain.DebitSourceBonus, "test_debit")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	breakdown, err := ledger.Debit(ctx, account.ID, 1_000_000, domain.DebitSourceBonus, "test_debit")
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), breakdown.FromBonusMicros)
	require.Equal(t, int64(50_000_000), breakdown.Balances.CashMicros)
}

func TestDebitWritesAuditEntry(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 10_000_000, 0)

	_, err := ledger.Debit(ctx, account.ID, 1_000_000, domain.DebitSourceCash, "test_debit")
	require.NoError(t, err)

	count, err := store.Queries().CountAuditEntries(ctx, "account", account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCreditRecordsTransaction(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	tx, err := ledger.Credit(ctx, account.ID, 7_500_000, domain.TxKindGamePayout, map[string]any{"reason": "test"})
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusConfirmed, tx.Status)
	require.NotNil(t, tx.ConfirmedAt)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7_500_000), bal.CashMicros)

	stored, err := store.Queries().GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7_500_000), stored.AmountMicros)
	require.Equal(t, domain.TxKindGamePayout, stored.Kind)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	_, err := ledger.Credit(ctx, account.ID, 0, domain.TxKindGamePayout, nil)
	require.Error(t, err)
	_, err = ledger.Credit(ctx, account.ID, -5, domain.TxKindGamePayout, nil)
	require.Error(t, err)
}

func TestConcurrentDebitsCannotOverdraw(t *testing.T) {
	store, ledger := newLedgerFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Debit(ctx, account.ID, 60_000_000, domain.DebitSourceCash, "test_debit")
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, models.ErrInsufficientFunds)
			failures++
		}
	}
	require.Equal(t, 1, failures, "exactly one of the two debits must fail")

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40_000_000), bal.CashMicros)
}
