package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snaparena/internal/model"
)

// Betting errors.
var (
	ErrGameNotFound        = errors.New("game not found")
	ErrGameNotOpen         = errors.New("game is not open for betting")
	ErrGameFull            = errors.New("game has reached its player limit")
	ErrBetBelowMinimum     = errors.New("bet amount is below the game minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// BetRepository handles games and bets persistence.
type BetRepository struct {
	pool *pgxpool.Pool
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(pool *pgxpool.Pool) *BetRepository {
	return &BetRepository{pool: pool}
}

const gameColumns = `id, title, description, minimum_bet, max_players,
		current_players, pot_amount, status, winner_id, start_time, end_time, created_at`

func scanGame(row pgx.Row) (*model.Game, error) {
	var game model.Game
	err := row.Scan(
		&game.ID,
		&game.Title,
		&game.Description,
		&game.MinimumBet,
		&game.MaxPlayers,
		&game.CurrentPlayers,
		&game.PotAmount,
		&game.Status,
		&game.WinnerID,
		&game.StartTime,
		&game.EndTime,
		&game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// CreateGame creates a new open lobby and returns it.
func (r *BetRepository) CreateGame(ctx context.Context, title, description string, minimumBet int64, maxPlayers int) (*model.Game, error) {
	const query = `
		INSERT INTO games (id, title, description, minimum_bet, max_players,
			current_players, pot_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 'open', NOW())
		RETURNING ` + gameColumns + `
	`

	game, err := scanGame(r.pool.QueryRow(ctx, query, uuid.NewString(), title, description, minimumBet, maxPlayers))
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// GetGame retrieves a game by id.
func (r *BetRepository) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	const query = `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.pool.QueryRow(ctx, query, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// ListGames retrieves games filtered by status, newest first.
// An empty status returns all games.
func (r *BetRepository) ListGames(ctx context.Context, status string, limit int) ([]*model.Game, error) {
	const query = `
		SELECT ` + gameColumns + `
		FROM games
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// PlaceBet stakes amount on an open game. The game row is locked, the balance
// debited, and the bet, ledger entry and pot increment are written inside one
// database transaction so a crash or a concurrent bet can never leave the
// books inconsistent.
func (r *BetRepository) PlaceBet(ctx context.Context, userID int64, gameID string, amount int64) (*model.Bet, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const gameQuery = `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`
	game, err := scanGame(tx.QueryRow(ctx, gameQuery, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to lock game: %w", err)
	}

	if game.Status != model.GameStatusOpen {
		return nil, ErrGameNotOpen
	}
	if game.MaxPlayers > 0 && game.CurrentPlayers >= game.MaxPlayers {
		return nil, ErrGameFull
	}
	if amount < game.MinimumBet {
		return nil, ErrBetBelowMinimum
	}

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM users WHERE telegram_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user balance: %w", err)
	}
	if balance < amount {
		return nil, ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET balance = balance - $2, updated_at = NOW()
		WHERE telegram_id = $1
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}

	var bet model.Bet
	err = tx.QueryRow(ctx, `
		INSERT INTO bets (id, user_id, game_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, 'confirmed', NOW())
		RETURNING id, user_id, game_id, amount, status, created_at
	`, uuid.NewString(), userID, gameID, amount).Scan(
		&bet.ID,
		&bet.UserID,
		&bet.GameID,
		&bet.Amount,
		&bet.Status,
		&bet.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	description := fmt.Sprintf("bet on game %s", game.Title)
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, userID, -amount, model.TxTypeBet, description)
	if err != nil {
		return nil, fmt.Errorf("failed to record bet transaction: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE games SET pot_amount = pot_amount + $2, current_players = current_players + 1
		WHERE id = $1
	`, gameID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to update game pot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bet: %w", err)
	}

	return &bet, nil
}

// GetRecentByUser retrieves a user's most recent bets, newest first.
func (r *BetRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*model.Bet, error) {
	const query = `
		SELECT id, user_id, game_id, amount, status, created_at
		FROM bets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}
	defer rows.Close()

	var bets []*model.Bet
	for rows.Next() {
		var bet model.Bet
		err := rows.Scan(
			&bet.ID,
			&bet.UserID,
			&bet.GameID,
			&bet.Amount,
			&bet.Status,
			&bet.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}
