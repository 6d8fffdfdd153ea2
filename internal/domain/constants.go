package domain

// Transaction kinds.
const (
	TxKindDeposit        = "DEPOSIT"
	TxKindWithdrawal     = "WITHDRAWAL"
	TxKindGamePayout     = "GAME_PAYOUT"
	TxKindMiningPayout   = "MINING_PAYOUT"
	TxKindMiningPurchase = "MINING_PURCHASE"
	TxKindReferralBonus  = "REFERRAL_BONUS"
)

// Transaction statuses. PENDING may move to CONFIRMED or FAILED; both are terminal.
const (
	TxStatusPending   = "PENDING"
	TxStatusConfirmed = "CONFIRMED"
	TxStatusFailed    = "FAILED"
)

// Debit sources. AUTO draws the bonus balance first, then cash for the remainder.
const (
	DebitSourceCash  = "CASH"
	DebitSourceBonus = "BONUS"
	DebitSourceAuto  = "AUTO"
)

// Bet outcomes.
const (
	OutcomeWin  = "WIN"
	OutcomeLoss = "LOSS"
)

// Mining position statuses.
const (
	PositionStatusActive    = "ACTIVE"
	PositionStatusCompleted = "COMPLETED"
)

// Referral statuses. Monotonic: PENDING -> CONVERTED -> CREDITED.
const (
	ReferralStatusPending   = "PENDING"
	ReferralStatusConverted = "CONVERTED"
	ReferralStatusCredited  = "CREDITED"
)

// DefaultCoin is the settlement currency for all balances.
const DefaultCoin = "USD"
