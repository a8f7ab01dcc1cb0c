// Package model defines the data models for the SnapArena backend.
package model

import (
	"strconv"
	"time"
)

// UserProfile represents a player account created from a verified Telegram login.
type UserProfile struct {
	TelegramID  int64     `db:"telegram_id" json:"telegramId"`
	FirstName   string    `db:"first_name" json:"firstName"`
	LastName    string    `db:"last_name" json:"lastName,omitempty"`
	Username    string    `db:"username" json:"username,omitempty"`
	PhotoURL    string    `db:"photo_url" json:"photoUrl,omitempty"`
	Balance     int64     `db:"balance" json:"balance"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	LastLoginAt time.Time `db:"last_login_at" json:"lastLoginAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// UID returns the profile's document key: the decimal string form of the
// Telegram id. Clients address the profile by this key.
func (u *UserProfile) UID() string {
	return strconv.FormatInt(u.TelegramID, 10)
}

// Transaction represents a balance change record in the ledger.
// The login path never writes here except for the one-time initial grant.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        string    `db:"type" json:"type"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Game represents a bettable lobby.
type Game struct {
	ID             string     `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	MinimumBet     int64      `db:"minimum_bet" json:"minimumBet"`
	MaxPlayers     int        `db:"max_players" json:"maxPlayers"`
	CurrentPlayers int        `db:"current_players" json:"currentPlayers"`
	PotAmount      int64      `db:"pot_amount" json:"potAmount"`
	Status         string     `db:"status" json:"status"`
	WinnerID       *int64     `db:"winner_id" json:"winnerId,omitempty"`
	StartTime      *time.Time `db:"start_time" json:"startTime,omitempty"`
	EndTime        *time.Time `db:"end_time" json:"endTime,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Bet represents a stake a user placed on a game.
type Bet struct {
	ID        string    `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	GameID    string    `db:"game_id" json:"gameId"`
	Amount    int64     `db:"amount" json:"amount"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Game lifecycle states.
const (
	GameStatusOpen      = "open"
	GameStatusOngoing   = "ongoing"
	GameStatusCompleted = "completed"
)

// Bet lifecycle states.
const (
	BetStatusPending   = "pending"
	BetStatusConfirmed = "confirmed"
	BetStatusWon       = "won"
	BetStatusLost      = "lost"
)

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial = "initial" // Starting grant on account creation
	TxTypeBet     = "bet"     // Bet placement debit
	TxTypePayout  = "payout"  // Winnings credit
)
