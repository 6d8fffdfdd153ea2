package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jae876/crestara/internal/domain"
	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/observability"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MiningPackage is a purchasable cloud-mining contract template.
type MiningPackage struct {
	Tier            string
	PriceMicros     int64
	DurationDays    int
	DailyRateMicros int64
}

// DefaultMiningPackages is the fixed contract catalog. Rates are denominated
// in micro-USD per payout cycle.
var DefaultMiningPackages = []MiningPackage{
	{Tier: "BASIC", PriceMicros: 5_000_000, DurationDays: 90, DailyRateMicros: 500_000},
	{Tier: "PRO", PriceMicros: 10_000_000, DurationDays: 120, DailyRateMicros: 1_000_000},
	{Tier: "ELITE", PriceMicros: 20_000_000, DurationDays: 180, DailyRateMicros: 2_500_000},
}

// MiningService sells mining positions and runs the periodic payout cycle.
type MiningService struct {
	store      QueryStore
	ledger     *LedgerService
	notifier   notify.Publisher
	packages   map[string]MiningPackage
	cycleEvery time.Duration
	batchSize  int
}

func NewMiningService(store QueryStore, ledger *LedgerService, notifier notify.Publisher, packages []MiningPackage, cycleEvery time.Duration, batchSize int) (*MiningService, error) {
	if cycleEvery <= 0 {
		return nil, fmt.Errorf("mining cycle interval must be positive, got %s", cycleEvery)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("mining batch size must be positive, got %d", batchSize)
	}
	byTier := make(map[string]MiningPackage, len(packages))
	for _, p := range packages {
		if p.PriceMicros <= 0 || p.DailyRateMicros <= 0 || p.DurationDays <= 0 {
			return nil, fmt.Errorf("mining package %s: price, rate and duration must all be positive", p.Tier)
		}
		byTier[p.Tier] = p
	}
	return &MiningService{
		store:      store,
		ledger:     ledger,
		notifier:   notifier,
		packages:   byTier,
		cycleEvery: cycleEvery,
		batchSize:  batchSize,
	}, nil
}

// Packages lists the purchasable contract templates.
func (s *MiningService) Packages() []MiningPackage {
	out := make([]MiningPackage, 0, len(s.packages))
	for _, p := range DefaultMiningPackages {
		if pkg, ok := s.packages[p.Tier]; ok {
			out = append(out, pkg)
		}
	}
	return out
}

// PurchasePosition debits the package price from the cash balance and opens
// an ACTIVE position, recording the purchase transaction alongside.
func (s *MiningService) PurchasePosition(ctx context.Context, accountID uuid.UUID, tier string) (*models.MiningPosition, error) {
	pkg, ok := s.packages[tier]
	if !ok {
		return nil, fmt.Errorf("unknown mining package %q", tier)
	}

	var pos *models.MiningPosition
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if _, err := s.ledger.DebitInTx(ctx, q, accountID, pkg.PriceMicros, domain.DebitSourceCash, "mining_purchase"); err != nil {
			return err
		}
		now := time.Now().UTC()
		pos = &models.MiningPosition{
			ID:              uuid.New(),
			AccountID:       accountID,
			PackageTier:     pkg.Tier,
			CoinSymbol:      domain.DefaultCoin,
			DailyRateMicros: pkg.DailyRateMicros,
			StartedAt:       now,
			EndsAt:          now.AddDate(0, 0, pkg.DurationDays),
			Status:          domain.PositionStatusActive,
		}
		if err := q.CreateMiningPosition(ctx, pos); err != nil {
			return err
		}
		now2 := time.Now().UTC()
		tx := &models.Transaction{
			ID:           uuid.New(),
			AccountID:    accountID,
			Kind:         domain.TxKindMiningPurchase,
			Status:       domain.TxStatusConfirmed,
			AmountMicros: pkg.PriceMicros,
			CoinSymbol:   domain.DefaultCoin,
			Metadata:     jsonMeta(map[string]any{"position_id": pos.ID, "package_tier": pkg.Tier}),
			ConfirmedAt:  &now2,
		}
		return q.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("mining position opened",
		zap.String("position_id", pos.ID.String()),
		zap.String("tier", pos.PackageTier),
		zap.Time("ends_at", pos.EndsAt),
	)
	return pos, nil
}

// Positions lists the account's mining positions, newest first.
func (s *MiningService) Positions(ctx context.Context, accountID uuid.UUID) ([]models.MiningPosition, error) {
	return s.store.Queries().ListMiningPositions(ctx, accountID)
}

// CycleReport summarizes one payout cycle run.
type CycleReport struct {
	Cycle     time.Time
	Paid      int
	Completed int64
	Failed    int
}

// RunPayoutCycle pays every ACTIVE position once for the cycle containing
// now, then completes expired positions. Each position is paid in its own
// transaction so one failure cannot roll back already-paid positions; the
// cycle guard on the position row makes retries idempotent.
func (s *MiningService) RunPayoutCycle(ctx context.Context, now time.Time) (*CycleReport, error) {
	cycle := now.UTC().Truncate(s.cycleEvery)
	report := &CycleReport{Cycle: cycle}
	skip := make([]uuid.UUID, 0)
	var errs []error

	for report.Paid+report.Failed < s.batchSize {
		var done bool
		err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
			pos, err := q.ClaimNextPayablePosition(ctx, cycle, now, skip)
			if err != nil {
				if errors.Is(err, models.ErrPositionNotFound) {
					done = true
					return nil
				}
				return err
			}
			rows, err := q.MarkPositionPaid(ctx, pos.ID, pos.DailyRateMicros, cycle)
			if err != nil {
				return err
			}
			if rows == 0 {
				// Another run paid this position for the cycle already.
				skip = append(skip, pos.ID)
				return nil
			}
			if _, err := s.ledger.CreditInTx(ctx, q, pos.AccountID, pos.DailyRateMicros, domain.TxKindMiningPayout, map[string]any{
				"position_id":  pos.ID,
				"package_tier": pos.PackageTier,
				"cycle":        cycle.Format(time.RFC3339),
			}); err != nil {
				return payoutFailure{positionID: pos.ID, accountID: pos.AccountID, err: err}
			}
			report.Paid++
			observability.RecordMiningPayout("paid")
			s.notifier.MiningPayout(ctx, pos.AccountID, pos.ID, pos.DailyRateMicros)
			return nil
		})
		if err != nil {
			var pf payoutFailure
			if errors.As(err, &pf) {
				// Leave the position unpaid for this cycle and move on;
				// without the skip it would be reclaimed immediately.
				skip = append(skip, pf.positionID)
				report.Failed++
				observability.RecordMiningPayout("failed")
				zap.L().Error("mining payout failed",
					zap.String("position_id", pf.positionID.String()),
					zap.String("account_id", pf.accountID.String()),
					zap.Error(pf.err),
				)
				errs = append(errs, pf.err)
				continue
			}
			return report, err
		}
		if done {
			break
		}
	}

	completed, err := s.store.Queries().CompleteExpiredPositions(ctx, now)
	if err != nil {
		return report, err
	}
	report.Completed = completed

	zap.L().Info("mining payout cycle finished",
		zap.Time("cycle", cycle),
		zap.Int("paid", report.Paid),
		zap.Int64("completed", completed),
		zap.Int("failed", report.Failed),
	)
	return report, errors.Join(errs...)
}

type payoutFailure struct {
	positionID uuid.UUID
	accountID  uuid.UUID
	err        error
}

func (f payoutFailure) Error() string {
	return fmt.Sprintf("pay position %s: %v", f.positionID, f.err)
}

func (f payoutFailure) Unwrap() error { return f.err }
