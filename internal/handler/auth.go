// Package handler provides the HTTP API handlers.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"snaparena/internal/auth"
	"snaparena/internal/service"
)

// LoginService runs the verify-upsert-mint login flow.
type LoginService interface {
	Login(ctx context.Context, p *auth.LoginPayload) (*service.LoginResult, error)
}

// AuthHandler handles the Telegram login endpoint.
type AuthHandler struct {
	loginService LoginService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(loginService LoginService) *AuthHandler {
	return &AuthHandler{loginService: loginService}
}

// loginResponse is the success body of the login endpoint.
type loginResponse struct {
	Token   string `json:"token"`
	Profile any    `json:"profile"`
	Created bool   `json:"created"`
}

// HandleLogin handles POST /api/auth/telegram with a JSON LoginPayload body.
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var payload auth.LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.login(c, &payload)
}

// HandleLoginQuery handles GET /api/auth/telegram, the URL-query wire variant
// where the payload arrives as login-widget query parameters.
func (h *AuthHandler) HandleLoginQuery(c *gin.Context) {
	payload, err := auth.PayloadFromValues(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
		return
	}
	h.login(c, payload)
}

func (h *AuthHandler) login(c *gin.Context, payload *auth.LoginPayload) {
	result, err := h.loginService.Login(c.Request.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLogin):
			// covers forged signatures and missing bot token alike
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		case errors.Is(err, service.ErrCredentialIssuance):
			log.Error().Err(err).Msg("Credential issuance failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		default:
			log.Error().Err(err).Msg("Profile store unavailable during login")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
		}
		return
	}

	log.Info().
		Int64("telegram_id", result.Profile.TelegramID).
		Bool("created", result.Created).
		Msg("Login succeeded")

	c.JSON(http.StatusOK, loginResponse{
		Token:   result.Token,
		Profile: result.Profile,
		Created: result.Created,
	})
}
