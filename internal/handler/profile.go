package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"snaparena/internal/model"
	"snaparena/internal/repository"
)

const defaultHistoryLimit = 20

// ProfileService reads profiles and wallet state.
type ProfileService interface {
	GetProfile(ctx context.Context, telegramID int64) (*model.UserProfile, error)
	GetBalance(ctx context.Context, telegramID int64) (int64, error)
	GetRecentTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error)
}

// ProfileHandler handles authenticated profile and wallet reads.
type ProfileHandler struct {
	profileService ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// HandleMe handles GET /api/me.
func (h *ProfileHandler) HandleMe(c *gin.Context) {
	profile, err := h.profileService.GetProfile(c.Request.Context(), sessionTelegramID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleBalance handles GET /api/me/balance.
func (h *ProfileHandler) HandleBalance(c *gin.Context) {
	balance, err := h.profileService.GetBalance(c.Request.Context(), sessionTelegramID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// HandleTransactions handles GET /api/me/transactions.
func (h *ProfileHandler) HandleTransactions(c *gin.Context) {
	limit := queryLimit(c, defaultHistoryLimit)
	transactions, err := h.profileService.GetRecentTransactions(c.Request.Context(), sessionTelegramID(c), limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// queryLimit parses the limit query parameter, clamped to [1, 100].
func queryLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > 100 {
		return 100
	}
	return limit
}
