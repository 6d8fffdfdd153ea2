package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	CashMicros   int64      `json:"cash_micros"`
	BonusMicros  int64      `json:"bonus_micros"`
	ReferralCode string     `json:"referral_code"`
	ReferredBy   *uuid.UUID `json:"referred_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Balances is the post-operation snapshot returned by every ledger mutation.
type Balances struct {
	CashMicros  int64 `json:"cash_micros"`
	BonusMicros int64 `json:"bonus_micros"`
}

func (b Balances) Total() int64 {
	return b.CashMicros + b.BonusMicros
}

type Transaction struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Kind         string     `json:"kind"`   // e.g. "DEPOSIT", "GAME_PAYOUT"
	Status       string     `json:"status"` // "PENDING", "CONFIRMED", "FAILED"
	AmountMicros int64      `json:"amount_micros"`
	CoinSymbol   string     `json:"coin_symbol"`
	Metadata     []byte     `json:"metadata,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

// Bet is the permanent audit artifact for fairness verification.
// Immutable once written.
type Bet struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	GameType     string          `json:"game_type"`
	StakeMicros  int64           `json:"stake_micros"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	PayoutMicros int64           `json:"payout_micros"`
	Outcome      string          `json:"outcome"` // "WIN" or "LOSS"
	ClientSeed   string          `json:"client_seed"`
	ServerSeed   string          `json:"server_seed"`
	CommitHash   string          `json:"commit_hash"`
	CreatedAt    time.Time       `json:"created_at"`
}

type GameConfig struct {
	GameType         string  `json:"game_type"`
	MinStakeMicros   int64   `json:"min_stake_micros"`
	MaxStakeMicros   int64   `json:"max_stake_micros"`
	HouseEdgePercent float64 `json:"house_edge_percent"`
	Enabled          bool    `json:"enabled"`
}

type MiningPosition struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       uuid.UUID  `json:"account_id"`
	PackageTier     string     `json:"package_tier"`
	CoinSymbol      string     `json:"coin_symbol"`
	DailyRateMicros int64      `json:"daily_rate_micros"`
	StartedAt       time.Time  `json:"started_at"`
	EndsAt          time.Time  `json:"ends_at"`
	TotalPaidMicros int64      `json:"total_paid_micros"`
	Status          string     `json:"status"` // "ACTIVE" or "COMPLETED"
	LastPaidCycle   *time.Time `json:"last_paid_cycle,omitempty"`
}

type Referral struct {
	ID                uuid.UUID  `json:"id"`
	ReferrerAccountID uuid.UUID  `json:"referrer_account_id"`
	ReferredAccountID uuid.UUID  `json:"referred_account_id"`
	BonusMicros       int64      `json:"bonus_micros"`
	Status            string     `json:"status"` // "PENDING", "CONVERTED", "CREDITED"
	CreditedAt        *time.Time `json:"credited_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
