package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RouterConfig bundles everything the router needs.
type RouterConfig struct {
	Auth           *AuthHandler
	Profile        *ProfileHandler
	Betting        *BettingHandler
	TokenValidator TokenValidator
	Health         HealthChecker
	LoginRPS       float64
	LoginBurst     int
}

// NewRouter builds the gin engine with all routes and middleware wired.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		if err := cfg.Health.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	login := api.Group("/auth", LoginRateLimit(cfg.LoginRPS, cfg.LoginBurst))
	login.POST("/telegram", cfg.Auth.HandleLogin)
	login.GET("/telegram", cfg.Auth.HandleLoginQuery)

	authed := api.Group("", RequireSession(cfg.TokenValidator))
	authed.GET("/me", cfg.Profile.HandleMe)
	authed.GET("/me/balance", cfg.Profile.HandleBalance)
	authed.GET("/me/transactions", cfg.Profile.HandleTransactions)
	authed.GET("/games", cfg.Betting.HandleListGames)
	authed.GET("/games/:id", cfg.Betting.HandleGetGame)
	authed.POST("/bets", cfg.Betting.HandlePlaceBet)
	authed.GET("/bets/recent", cfg.Betting.HandleRecentBets)

	return router
}
