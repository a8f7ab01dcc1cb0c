package service

import (
	"context"
	"fmt"

	"snaparena/internal/model"
	"snaparena/internal/repository"
)

// AccountService handles profile and wallet reads for authenticated users.
// It never mutates balance; only the betting subsystem does that.
type AccountService struct {
	userRepo *repository.UserRepository
	txRepo   *repository.TransactionRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		txRepo:   txRepo,
	}
}

// GetProfile retrieves a user's profile by Telegram ID.
func (s *AccountService) GetProfile(ctx context.Context, telegramID int64) (*model.UserProfile, error) {
	return s.userRepo.GetByID(ctx, telegramID)
}

// GetBalance retrieves a user's current balance.
func (s *AccountService) GetBalance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Balance, nil
}

// GetRecentTransactions retrieves a user's most recent ledger entries.
func (s *AccountService) GetRecentTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	return s.txRepo.GetRecentByUser(ctx, telegramID, limit)
}
