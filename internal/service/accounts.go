package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/Jae876/crestara/internal/models"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/google/uuid"
)

// referralCodeAlphabet avoids ambiguous characters (0/O, 1/I/L).
const referralCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
const referralCodeLen = 8

// AccountService creates accounts and serves account reads.
type AccountService struct {
	store     QueryStore
	referrals *ReferralService
}

func NewAccountService(store QueryStore, referrals *ReferralService) *AccountService {
	return &AccountService{store: store, referrals: referrals}
}

// Register creates an account with a fresh referral code. When referralCode
// names an existing account, a PENDING referral is tracked for the pair; an
// unknown code fails registration rather than silently dropping the claim.
func (s *AccountService) Register(ctx context.Context, email, referralCode string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}

	account := &models.Account{
		ID:    uuid.New(),
		Email: email,
	}
	var err error
	account.ReferralCode, err = newReferralCode()
	if err != nil {
		return nil, err
	}

	if referralCode != "" {
		referrer, err := s.store.Queries().GetAccountByReferralCode(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		account.ReferredBy = &referrer.ID
	}

	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		return q.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	if referralCode != "" {
		if _, err := s.referrals.Track(ctx, account.ID, referralCode); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.Queries().GetAccount(ctx, id)
}

func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}
