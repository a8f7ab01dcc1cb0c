// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"snaparena/internal/auth"
	"snaparena/internal/model"
	"snaparena/internal/repository"
)

// Common errors for login operations. ErrInvalidLogin deliberately covers both
// a bad signature and a missing bot token so callers cannot tell configuration
// state from a forgery.
var (
	ErrInvalidLogin       = errors.New("telegram login rejected")
	ErrCredentialIssuance = errors.New("failed to issue session credential")
)

// SignatureVerifier accepts or rejects a signed login payload.
type SignatureVerifier interface {
	Verify(p *auth.LoginPayload) bool
}

// CredentialIssuer mints a session credential for a verified payload.
type CredentialIssuer interface {
	Issue(p *auth.LoginPayload) (string, error)
}

// ProfileStore reconciles a verified identity against the persisted profile.
type ProfileStore interface {
	Upsert(ctx context.Context, identity repository.Identity, startingBalance int64) (*model.UserProfile, bool, error)
}

// LedgerRecorder appends balance-change records.
type LedgerRecorder interface {
	Create(ctx context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error)
}

// LoginResult is what a successful login hands back to the client: the session
// credential plus the authoritative post-write profile.
type LoginResult struct {
	Token   string
	Profile *model.UserProfile
	Created bool
}

// AuthService runs the login flow: verify the signature, reconcile the
// profile, mint the session credential.
type AuthService struct {
	verifier        SignatureVerifier
	issuer          CredentialIssuer
	profiles        ProfileStore
	ledger          LedgerRecorder
	startingBalance int64
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(
	verifier SignatureVerifier,
	issuer CredentialIssuer,
	profiles ProfileStore,
	ledger LedgerRecorder,
	startingBalance int64,
) *AuthService {
	return &AuthService{
		verifier:        verifier,
		issuer:          issuer,
		profiles:        profiles,
		ledger:          ledger,
		startingBalance: startingBalance,
	}
}

// Login authenticates a Telegram login payload.
// A rejected signature returns ErrInvalidLogin before anything is persisted.
// A profile store failure is returned wrapped so callers can surface it as
// retryable; no credential is handed out for an incomplete login.
func (s *AuthService) Login(ctx context.Context, p *auth.LoginPayload) (*LoginResult, error) {
	if !s.verifier.Verify(p) {
		return nil, ErrInvalidLogin
	}

	profile, created, err := s.profiles.Upsert(ctx, repository.Identity{
		TelegramID: p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Username:   p.Username,
		PhotoURL:   p.PhotoURL,
	}, s.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	if created {
		desc := "starting balance grant"
		if _, err := s.ledger.Create(ctx, profile.TelegramID, s.startingBalance, model.TxTypeInitial, &desc); err != nil {
			// Non-fatal: the grant itself lives on the profile row
			log.Warn().Err(err).Int64("telegram_id", profile.TelegramID).
				Msg("Failed to record initial grant in ledger")
		}
	}

	token, err := s.issuer.Issue(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialIssuance, err)
	}

	return &LoginResult{Token: token, Profile: profile, Created: created}, nil
}
