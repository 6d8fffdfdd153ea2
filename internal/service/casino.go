package service

import (
	"context"
	"strings"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/fair"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/observability"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxClientSeedLen = 128

// CasinoService places and verifies provably fair bets.
type CasinoService struct {
	store    QueryStore
	ledger   *LedgerService
	catalog  *GameCatalog
	notifier notify.Publisher
}

func NewCasinoService(store QueryStore, ledger *LedgerService, catalog *GameCatalog, notifier notify.Publisher) *CasinoService {
	return &CasinoService{store: store, ledger: ledger, catalog: catalog, notifier: notifier}
}

// PlaceBetResult is the settled bet plus the balances it left behind.
type PlaceBetResult struct {
	Bet      *models.Bet
	Balances models.Balances
}

// VerifyResult exposes everything needed to independently recompute a
// historical bet's outcome.
type VerifyResult struct {
	Bet            *models.Bet
	RecomputedHash string
	HashMatches    bool
}

// PlaceBet debits the stake, resolves the outcome from a fresh server seed,
// and records the bet, all in one database transaction. The bet row is
// written before any payout so a WIN can never exist without its bet.
func (s *CasinoService) PlaceBet(ctx context.Context, accountID uuid.UUID, gameType, clientSeed string, stakeMicros int64) (*PlaceBetResult, error) {
	// An absent client seed is allowed; the commit is then over the server
	// seed alone and the empty string is stored with the bet.
	clientSeed = strings.TrimSpace(clientSeed)
	if len(clientSeed) > maxClientSeedLen {
		return nil, models.ErrInvalidBet
	}
	cfg, err := s.catalog.Get(gameType)
	if err != nil {
		return nil, err
	}
	if stakeMicros < cfg.MinStakeMicros || stakeMicros > cfg.MaxStakeMicros {
		return nil, models.ErrInvalidBet
	}

	var result *PlaceBetResult
	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		breakdown, err := s.ledger.DebitInTx(ctx, q, accountID, stakeMicros, domain.DebitSourceAuto, "bet_stake")
		if err != nil {
			return err
		}

		serverSeed, err := fair.NewServerSeed()
		if err != nil {
			return err
		}
		hash := fair.Commit(clientSeed, serverSeed)
		outcome, err := fair.Resolve(hash, cfg.HouseEdgePercent)
		if err != nil {
			return err
		}

		bet := &models.Bet{
			ID:          uuid.New(),
			AccountID:   accountID,
			GameType:    gameType,
			StakeMicros: stakeMicros,
			Multiplier:  outcome.Multiplier,
			Outcome:     domain.OutcomeLoss,
			ClientSeed:  clientSeed,
			ServerSeed:  serverSeed,
			CommitHash:  hash,
		}
		balances := breakdown.Balances

		if outcome.Win {
			stake := domain.NewMoney(stakeMicros, domain.DefaultCoin)
			payout := stake.Multiply(outcome.Multiplier)
			bet.Outcome = domain.OutcomeWin
			bet.PayoutMicros = payout.Amount
		}
		if err := q.CreateBet(ctx, bet); err != nil {
			return err
		}
		if outcome.Win {
			if _, err := s.ledger.CreditInTx(ctx, q, accountID, bet.PayoutMicros, domain.TxKindGamePayout, map[string]any{
				"bet_id":    bet.ID,
				"game_type": gameType,
			}); err != nil {
				return err
			}
			balances.CashMicros += bet.PayoutMicros
		}

		result = &PlaceBetResult{Bet: bet, Balances: balances}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordBet(result.Bet.GameType, result.Bet.Outcome)
	s.notifier.BetSettled(ctx, accountID, result.Bet.ID, result.Bet.Outcome, result.Bet.PayoutMicros)
	zap.L().Info("bet settled",
		zap.String("bet_id", result.Bet.ID.String()),
		zap.String("game_type", gameType),
		zap.String("outcome", result.Bet.Outcome),
		zap.Int64("stake_micros", stakeMicros),
		zap.Int64("payout_micros", result.Bet.PayoutMicros),
	)
	return result, nil
}

// VerifyBet recomputes the commit hash from the stored seeds so anyone can
// check that the recorded outcome was not altered after the fact.
func (s *CasinoService) VerifyBet(ctx context.Context, betID uuid.UUID) (*VerifyResult, error) {
	bet, err := s.store.Queries().GetBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	recomputed := fair.Commit(bet.ClientSeed, bet.ServerSeed)
	return &VerifyResult{
		Bet:            bet,
		RecomputedHash: recomputed,
		HashMatches:    recomputed == bet.CommitHash,
	}, nil
}

// ListBets returns a page of the account's bet history, newest first.
func (s *CasinoService) ListBets(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Bet, int64, error) {
	q := s.store.Queries()
	bets, err := q.ListBets(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := q.CountBets(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return bets, total, nil
}

// Games lists the playable games with their stake limits.
func (s *CasinoService) Games() []models.GameConfig {
	return s.catalog.Enabled()
}
