// Package bot provides the fallback Telegram bot. It exists for one purpose:
// when the in-app handshake fails, users reach the bot directly and get a
// button that opens the web app for a fresh login attempt.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"snaparena/internal/config"
)

// Bot wraps the telebot instance.
type Bot struct {
	bot       *tele.Bot
	webAppURL string
}

// New creates the fallback bot.
func New(token string, cfg *config.BotConfig) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{bot: b, webAppURL: cfg.WebAppURL}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
}

// handleStart replies with a web-app button that opens SnapArena.
func (b *Bot) handleStart(c tele.Context) error {
	markup := &tele.ReplyMarkup{}
	btn := markup.WebApp("Open SnapArena", &tele.WebApp{URL: b.webAppURL})
	markup.Inline(markup.Row(btn))

	return c.Reply("Welcome to SnapArena! Tap below to play.", markup)
}

// Start begins long polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Fallback bot started")
	b.bot.Start()
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	b.bot.Stop()
	log.Info().Msg("Fallback bot stopped")
}
