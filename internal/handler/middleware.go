package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"snaparena/internal/auth"
)

// telegramIDKey is the gin context key for the authenticated Telegram id.
const telegramIDKey = "telegram_id"

// sessionTelegramID returns the Telegram id RequireSession stored on the
// context. Zero means the middleware did not run, which routing must prevent.
func sessionTelegramID(c *gin.Context) int64 {
	return c.GetInt64(telegramIDKey)
}

// TokenValidator validates a session credential and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*auth.SessionClaims, error)
}

// RequireSession validates the bearer session credential and stores the
// Telegram id on the context.
func RequireSession(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer credential"})
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired credential"})
			return
		}

		c.Set(telegramIDKey, claims.TelegramID)
		c.Next()
	}
}

// LoginRateLimit limits login attempts per client IP. Forged payloads are
// cheap to mint, so the endpoint gets a budget instead of an open door.
func LoginRateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		rps = 5
	}
	if burst < 1 {
		burst = 10
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[ip]; ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(rps), burst)
		limiters[ip] = l
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
		c.Next()
	}
}

// RequestLogger emits a structured log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("Request handled")
	}
}
