package models

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidBet        = errors.New("invalid bet")
	ErrGameNotAvailable  = errors.New("game not available")

	ErrAccountNotFound     = errors.New("account not found")
	ErrBetNotFound         = errors.New("bet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReferralNotFound    = errors.New("referral not found")
	ErrPositionNotFound    = errors.New("mining position not found")

	ErrAlreadyReferred      = errors.New("account already referred")
	ErrReferralNotConverted = errors.New("referral not converted")
	ErrInvalidTransition    = errors.New("invalid transaction status transition")
)
