package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/fair"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newCasinoFixture(t *testing.T) (*repository.Store, *CasinoService) {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	ledger := NewLedgerService(store, NewAuditService())
	catalog, err := NewGameCatalog(context.Background(), store)
	require.NoError(t, err)
	return store, NewCasinoService(store, ledger, catalog, notify.Nop{})
}

func TestPlaceBetSettlesAndBalances(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 20_000_000)

	result, err := casino.PlaceBet(ctx, account.ID, "DICE", "my-seed", 30_000_000)
	require.NoError(t, err)

	bet := result.Bet
	require.Equal(t, int64(30_000_000), bet.StakeMicros)
	require.NotEmpty(t, bet.ServerSeed)
	require.Equal(t, fair.Commit(bet.ClientSeed, bet.ServerSeed), bet.CommitHash)

	// The stake drains bonus first: 20 bonus + 10 cash.
	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), bal.BonusMicros)

	outcome, err := fair.Resolve(bet.CommitHash, 1.0)
	require.NoError(t, err)
	if outcome.Win {
		require.Equal(t, domain.OutcomeWin, bet.Outcome)
		expected := domain.NewMoney(30_000_000, domain.DefaultCoin).Multiply(outcome.Multiplier).Amount
		require.Equal(t, expected, bet.PayoutMicros)
		require.Equal(t, int64(90_000_000)+expected, bal.CashMicros)
	} else {
		require.Equal(t, domain.OutcomeLoss, bet.Outcome)
		require.Equal(t, int64(0), bet.PayoutMicros)
		require.Equal(t, int64(90_000_000), bal.CashMicros)
	}
	require.Equal(t, bal, result.Balances)
}

func TestPlaceBetInsufficientFundsWritesNothing(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 5_000_000, 0)

	_, err := casino.PlaceBet(ctx, account.ID, "DICE", "seed", 10_000_000)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5_000_000), bal.CashMicros)

	count, err := store.Queries().CountBets(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestPlaceBetValidatesStakeAndGame(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 500_000_000, 0)

	// Below minimum stake.
	_, err := casino.PlaceBet(ctx, account.ID, "DICE", "seed", 500_000)
	require.ErrorIs(t, err, models.ErrInvalidBet)

	// Above maximum stake.
	_, err = casino.PlaceBet(ctx, account.ID, "DICE", "seed", 200_000_000)
	require.ErrorIs(t, err, models.ErrInvalidBet)

	// Client seed over the length cap.
	_, err = casino.PlaceBet(ctx, account.ID, "DICE", strings.Repeat("x", maxClientSeedLen+1), 5_000_000)
	require.ErrorIs(t, err, models.ErrInvalidBet)

	// Unknown and disabled games.
	_, err = casino.PlaceBet(ctx, account.ID, "ROULETTE", "seed", 5_000_000)
	require.ErrorIs(t, err, models.ErrGameNotAvailable)
	_, err = casino.PlaceBet(ctx, account.ID, "DISABLED_GAME", "seed", 5_000_000)
	require.ErrorIs(t, err, models.ErrGameNotAvailable)
}

func TestPlaceBetWithoutClientSeed(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 0)

	result, err := casino.PlaceBet(ctx, account.ID, "DICE", "", 5_000_000)
	require.NoError(t, err)

	bet := result.Bet
	require.Empty(t, bet.ClientSeed)
	require.NotEmpty(t, bet.ServerSeed)
	require.Equal(t, fair.Commit("", bet.ServerSeed), bet.CommitHash)

	verify, err := casino.VerifyBet(ctx, bet.ID)
	require.NoError(t, err)
	require.True(t, verify.HashMatches)

	bal, err := store.Queries().GetBalances(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(95_000_000)+bet.PayoutMicros, bal.CashMicros)
}

func TestPlaceBetWinRecordsPayoutTransaction(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 1_000_000_000, 0)

	// Place bets until one wins; with a 1% house edge this terminates fast.
	var won *models.Bet
	for i := 0; i < 50 && won == nil; i++ {
		result, err := casino.PlaceBet(ctx, account.ID, "DICE", "seed", 1_000_000)
		require.NoError(t, err)
		if result.Bet.Outcome == domain.OutcomeWin {
			won = result.Bet
		}
	}
	require.NotNil(t, won, "expected at least one win in 50 bets at 1% edge")

	payouts, err := store.Queries().CountTransactionsByKind(ctx, account.ID, domain.TxKindGamePayout, domain.TxStatusConfirmed)
	require.NoError(t, err)
	require.Greater(t, payouts, int64(0))
}

func TestVerifyBetRecomputesHash(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 0)

	result, err := casino.PlaceBet(ctx, account.ID, "LIMBO", "verify-me", 2_000_000)
	require.NoError(t, err)

	verify, err := casino.VerifyBet(ctx, result.Bet.ID)
	require.NoError(t, err)
	require.True(t, verify.HashMatches)
	require.Equal(t, result.Bet.CommitHash, verify.RecomputedHash)
}

func TestVerifyBetUnknownID(t *testing.T) {
	_, casino := newCasinoFixture(t)

	_, err := casino.VerifyBet(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrBetNotFound)
}

func TestListBetsNewestFirst(t *testing.T) {
	store, casino := newCasinoFixture(t)
	ctx := context.Background()
	account := createTestAccount(t, store, 100_000_000, 0)

	for i := 0; i < 3; i++ {
		_, err := casino.PlaceBet(ctx, account.ID, "DICE", "seed", 1_000_000)
		require.NoError(t, err)
	}

	bets, total, err := casino.ListBets(ctx, account.ID, 2, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, bets, 2)
	require.False(t, bets[0].CreatedAt.Before(bets[1].CreatedAt))
}
