package service

import (
	"context"
	"errors"

	"snaparena/internal/model"
	"snaparena/internal/pkg/lock"
	"snaparena/internal/repository"
)

// Betting errors.
var (
	ErrInvalidAmount = errors.New("invalid amount: must be positive")
)

// BettingService handles game lobbies and bet placement.
type BettingService struct {
	betRepo  *repository.BetRepository
	userLock *lock.UserLock
}

// NewBettingService creates a new BettingService instance.
func NewBettingService(betRepo *repository.BetRepository, userLock *lock.UserLock) *BettingService {
	return &BettingService{
		betRepo:  betRepo,
		userLock: userLock,
	}
}

// ListOpenGames retrieves lobbies currently open for betting.
func (s *BettingService) ListOpenGames(ctx context.Context, limit int) ([]*model.Game, error) {
	return s.betRepo.ListGames(ctx, model.GameStatusOpen, limit)
}

// GetGame retrieves a single game by id.
func (s *BettingService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	return s.betRepo.GetGame(ctx, gameID)
}

// PlaceBet stakes amount on an open game for the user. The per-user lock
// serializes a user's own concurrent requests; the repository's database
// transaction guards against cross-process races.
func (s *BettingService) PlaceBet(ctx context.Context, userID int64, gameID string, amount int64) (*model.Bet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var bet *model.Bet
	err := s.userLock.WithLock(userID, func() error {
		var err error
		bet, err = s.betRepo.PlaceBet(ctx, userID, gameID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// RecentBets retrieves the user's most recent bets.
func (s *BettingService) RecentBets(ctx context.Context, userID int64, limit int) ([]*model.Bet, error) {
	return s.betRepo.GetRecentByUser(ctx, userID, limit)
}
