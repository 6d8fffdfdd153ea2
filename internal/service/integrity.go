package service

import (
	"context"

	"github.com/Jae876/crestara/internal/observability"
	"go.uber.org/zap"
)

const idempotencyRetention = "7 days"

// IntegrityService periodically audits ledger invariants that the schema
// and transaction discipline should already guarantee. A violation means a
// bug slipped through; it is reported loudly but never auto-repaired. The
// same sweep handles idempotency-key housekeeping.
type IntegrityService struct {
	store QueryStore
}

func NewIntegrityService(store QueryStore) *IntegrityService {
	return &IntegrityService{store: store}
}

// Run executes every integrity check once. Violations are logged and
// counted; the error return is reserved for the checks themselves failing.
func (s *IntegrityService) Run(ctx context.Context) error {
	q := s.store.Queries()

	negatives, err := q.CountNegativeBalances(ctx)
	if err != nil {
		return err
	}
	if negatives > 0 {
		observability.IncrementLedgerViolation("negative_balance")
		zap.L().Error("integrity violation: negative balances", zap.Int64("accounts", negatives))
	}

	mismatches, err := q.ListMiningPayoutMismatches(ctx)
	if err != nil {
		return err
	}
	for _, m := range mismatches {
		observability.IncrementLedgerViolation("mining_payout_mismatch")
		zap.L().Error("integrity violation: mining payout mismatch",
			zap.String("position_id", m.PositionID.String()),
			zap.Int64("position_total_micros", m.TotalPaidMicros),
			zap.Int64("ledger_total_micros", m.LedgerMicros),
		)
	}

	purged, err := q.PurgeExpiredIdempotencyKeys(ctx, idempotencyRetention)
	if err != nil {
		return err
	}
	if purged > 0 {
		zap.L().Info("purged expired idempotency keys", zap.Int64("count", purged))
	}

	if negatives == 0 && len(mismatches) == 0 {
		zap.L().Debug("integrity checks passed")
	}
	return nil
}
