package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher fans out settlement events to interested consumers. Publishes
// happen after the owning database transaction commits and are best-effort:
// a failed publish is logged, never surfaced to the caller.
type Publisher interface {
	BetSettled(ctx context.Context, accountID, betID uuid.UUID, outcome string, payoutMicros int64)
	MiningPayout(ctx context.Context, accountID, positionID uuid.UUID, amountMicros int64)
	DepositConfirmed(ctx context.Context, accountID, transactionID uuid.UUID, amountMicros int64)
}

const (
	channelBets     = "events:bets"
	channelMining   = "events:mining"
	channelDeposits = "events:deposits"

	publishTimeout = 2 * time.Second
)

// RedisPublisher publishes JSON events on redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) BetSettled(ctx context.Context, accountID, betID uuid.UUID, outcome string, payoutMicros int64) {
	p.publish(ctx, channelBets, map[string]any{
		"account_id":    accountID,
		"bet_id":        betID,
		"outcome":       outcome,
		"payout_micros": payoutMicros,
	})
}

func (p *RedisPublisher) MiningPayout(ctx context.Context, accountID, positionID uuid.UUID, amountMicros int64) {
	p.publish(ctx, channelMining, map[string]any{
		"account_id":    accountID,
		"position_id":   positionID,
		"amount_micros": amountMicros,
	})
}

func (p *RedisPublisher) DepositConfirmed(ctx context.Context, accountID, transactionID uuid.UUID, amountMicros int64) {
	p.publish(ctx, channelDeposits, map[string]any{
		"account_id":     accountID,
		"transaction_id": transactionID,
		"amount_micros":  amountMicros,
	})
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, payload map[string]any) {
	payload["at"] = time.Now().UTC().Format(time.RFC3339Nano)
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("marshal event", zap.String("channel", channel), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		zap.L().Warn("publish event", zap.String("channel", channel), zap.Error(err))
	}
}

// Nop discards every event. Used in tests and when redis is not configured.
type Nop struct{}

func (Nop) BetSettled(context.Context, uuid.UUID, uuid.UUID, string, int64) {}
func (Nop) MiningPayout(context.Context, uuid.UUID, uuid.UUID, int64)      {}
func (Nop) DepositConfirmed(context.Context, uuid.UUID, uuid.UUID, int64)  {}
