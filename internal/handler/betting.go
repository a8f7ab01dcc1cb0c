package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"snaparena/internal/model"
	"snaparena/internal/repository"
	"snaparena/internal/service"
)

const defaultGameListLimit = 50

// BetService handles game lobbies and bet placement.
type BetService interface {
	ListOpenGames(ctx context.Context, limit int) ([]*model.Game, error)
	GetGame(ctx context.Context, gameID string) (*model.Game, error)
	PlaceBet(ctx context.Context, userID int64, gameID string, amount int64) (*model.Bet, error)
	RecentBets(ctx context.Context, userID int64, limit int) ([]*model.Bet, error)
}

// BettingHandler handles the games and bets endpoints.
type BettingHandler struct {
	betService BetService
}

// NewBettingHandler creates a new BettingHandler.
func NewBettingHandler(betService BetService) *BettingHandler {
	return &BettingHandler{betService: betService}
}

// HandleListGames handles GET /api/games.
func (h *BettingHandler) HandleListGames(c *gin.Context) {
	games, err := h.betService.ListOpenGames(c.Request.Context(), queryLimit(c, defaultGameListLimit))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// HandleGetGame handles GET /api/games/:id.
func (h *BettingHandler) HandleGetGame(c *gin.Context) {
	game, err := h.betService.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		return
	}
	c.JSON(http.StatusOK, game)
}

// placeBetRequest is the body of POST /api/bets.
type placeBetRequest struct {
	GameID string `json:"gameId" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// HandlePlaceBet handles POST /api/bets.
func (h *BettingHandler) HandlePlaceBet(c *gin.Context) {
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID := sessionTelegramID(c)
	bet, err := h.betService.PlaceBet(c.Request.Context(), userID, req.GameID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, repository.ErrBetBelowMinimum),
			errors.Is(err, repository.ErrGameNotOpen),
			errors.Is(err, repository.ErrGameFull),
			errors.Is(err, repository.ErrInsufficientBalance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Int64("telegram_id", userID).Msg("Failed to place bet")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		}
		return
	}

	c.JSON(http.StatusCreated, bet)
}

// HandleRecentBets handles GET /api/bets/recent.
func (h *BettingHandler) HandleRecentBets(c *gin.Context) {
	bets, err := h.betService.RecentBets(c.Request.Context(), sessionTelegramID(c), queryLimit(c, defaultHistoryLimit))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}
