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

const testReferralBonus = int64(2_000_000)

func newReferralFixture(t *testing.T) (*repository.Store, *ReferralService) {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	audit := NewAuditService()
	ledger := NewLedgerService(store, audit)
	svc, err := NewReferralService(store, ledger, audit, testReferralBonus)
	require.NoError(t, err)
	return store, svc
}

func TestTrackReferral(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	referrer := createTestAccount(t, store, 0, 0)
	referred := createTestAccount(t, store, 0, 0)

	ref, err := referrals.Track(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStatusPending, ref.Status)
	require.Equal(t, referrer.ID, ref.ReferrerAccountID)
	require.Equal(t, testReferralBonus, ref.BonusMicros)

	// Tracking the same pair again returns the existing record.
	again, err := referrals.Track(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)
	require.Equal(t, ref.ID, again.ID)
}

func TestTrackRejectsSecondReferrer(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	first := createTestAccount(t, store, 0, 0)
	second := createTestAccount(t, store, 0, 0)
	referred := createTestAccount(t, store, 0, 0)

	ref, err := referrals.Track(ctx, referred.ID, first.ReferralCode)
	require.NoError(t, err)

	// A different referrer cannot claim an already-referred account.
	_, err = referrals.Track(ctx, referred.ID, second.ReferralCode)
	require.ErrorIs(t, err, models.ErrAlreadyReferred)

	// The original referral is untouched and still settles.
	_, err = referrals.Convert(ctx, referred.ID)
	require.NoError(t, err)
	got, err := referrals.Credit(ctx, referred.ID)
	require.NoError(t, err)
	require.Equal(t, ref.ID, got.ID)
	require.Equal(t, first.ID, got.ReferrerAccountID)

	bal, err := store.Queries().GetBalances(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, testReferralBonus, bal.CashMicros)
}

func TestTrackRejectsSelfAndUnknownCode(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 0, 0)

	_, err := referrals.Track(ctx, account.ID, account.ReferralCode)
	require.Error(t, err)

	_, err = referrals.Track(ctx, account.ID, "NOSUCHCODE")
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestReferralLifecycleMonotonic(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	referrer := createTestAccount(t, store, 0, 0)
	referred := createTestAccount(t, store, 0, 0)

	_, err := referrals.Track(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)

	// Crediting before conversion must fail.
	_, err = referrals.Credit(ctx, referred.ID)
	require.ErrorIs(t, err, models.ErrReferralNotConverted)

	ref, err := referrals.Convert(ctx, referred.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStatusConverted, ref.Status)

	// Converting again is a no-op.
	ref, err = referrals.Convert(ctx, referred.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStatusConverted, ref.Status)

	ref, err = referrals.Credit(ctx, referred.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStatusCredited, ref.Status)

	bal, err := store.Queries().GetBalances(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, testReferralBonus, bal.CashMicros)
}

func TestCreditIsIdempotent(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	referrer := createTestAccount(t, store, 0, 0)
	referred := createTestAccount(t, store, 0, 0)

	_, err := referrals.Track(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)
	_, err = referrals.Convert(ctx, referred.ID)
	require.NoError(t, err)

	_, err = referrals.Credit(ctx, referred.ID)
	require.NoError(t, err)
	// A duplicate credit succeeds without paying twice.
	_, err = referrals.Credit(ctx, referred.ID)
	require.NoError(t, err)

	bal, err := store.Queries().GetBalances(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, testReferralBonus, bal.CashMicros)

	bonuses, err := store.Queries().CountTransactionsByKind(ctx, referrer.ID, domain.TxKindReferralBonus, domain.TxStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, int64(1), bonuses)
}

func TestConcurrentCreditPaysOnce(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	referrer := createTestAccount(t, store, 0, 0)
	referred := createTestAccount(t, store, 0, 0)

	_, err := referrals.Track(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)
	_, err = referrals.Convert(ctx, referred.ID)
	require.NoError(t, err)

	// The row lock serializes the two credits; the loser observes CREDITED
	// and must treat it as success.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = referrals.Credit(ctx, referred.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	bal, err := store.Queries().GetBalances(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, testReferralBonus, bal.CashMicros)

	bonuses, err := store.Queries().CountTransactionsByKind(ctx, referrer.ID, domain.TxKindReferralBonus, domain.TxStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, int64(1), bonuses)
}

func TestReferralStats(t *testing.T) {
	store, referrals := newReferralFixture(t)
	ctx := context.Background()
	referrer := createTestAccount(t, store, 0, 0)
	first := createTestAccount(t, store, 0, 0)
	second := createTestAccount(t, store, 0, 0)

	_, err := referrals.Track(ctx, first.ID, referrer.ReferralCode)
	require.NoError(t, err)
	_, err = referrals.Track(ctx, second.ID, referrer.ReferralCode)
	require.NoError(t, err)

	_, err = referrals.Convert(ctx, first.ID)
	require.NoError(t, err)
	_, err = referrals.Credit(ctx, first.ID)
	require.NoError(t, err)

	stats, err := referrals.Stats(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalCount)
	require.Equal(t, 1, stats.CreditedCount)
	require.Equal(t, testReferralBonus, stats.TotalEarnedMicros)
}
