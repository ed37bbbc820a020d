package app

import (
	"context"

	"github.com/timedealhq/creditbot/pkg/domain/credit"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// CreditService provides the credit ledger operations. Arithmetic
// atomicity lives in the repository; this layer owns argument
// validation and logging.
type CreditService struct {
	repo   credit.Repository
	logger *logger.Logger
}

// NewCreditService creates a new CreditService.
func NewCreditService(repo credit.Repository, log *logger.Logger) *CreditService {
	return &CreditService{
		repo:   repo,
		logger: log.With("service", "credit"),
	}
}

// Get returns a user's balance, 0 when no row exists.
func (s *CreditService) Get(ctx context.Context, userID int64) (int64, error) {
	return s.repo.Get(ctx, userID)
}

// Set upserts an exact balance. Negative amounts are rejected.
func (s *CreditService) Set(ctx context.Context, userID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, credit.ErrInvalidAmount
	}

	newVal, err := s.repo.Set(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	s.logger.Info("credits set", "user_id", userID, "credits", newVal)
	return newVal, nil
}

// Add increments a balance. The delta must be positive.
func (s *CreditService) Add(ctx context.Context, userID, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, credit.ErrInvalidAmount
	}

	newVal, err := s.repo.Add(ctx, userID, delta)
	if err != nil {
		return 0, err
	}
	s.logger.Info("credits added", "user_id", userID, "delta", delta, "credits", newVal)
	return newVal, nil
}

// Subtract decrements a balance, clamping at zero. The delta must be
// positive.
func (s *CreditService) Subtract(ctx context.Context, userID, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, credit.ErrInvalidAmount
	}

	newVal, err := s.repo.Subtract(ctx, userID, delta)
	if err != nil {
		return 0, err
	}
	s.logger.Info("credits subtracted", "user_id", userID, "delta", delta, "credits", newVal)
	return newVal, nil
}

// Leaderboard returns all positive balances, best first.
func (s *CreditService) Leaderboard(ctx context.Context) ([]credit.Balance, error) {
	return s.repo.Leaderboard(ctx)
}

// WipeAll removes every balance. Irreversible.
func (s *CreditService) WipeAll(ctx context.Context) error {
	if err := s.repo.WipeAll(ctx); err != nil {
		return err
	}
	s.logger.Warn("all credits wiped")
	return nil
}
