package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token errors.
var (
	ErrSigningKeyMissing = errors.New("session signing key is not configured")
	ErrTokenInvalid      = errors.New("session credential is invalid or expired")
)

// SessionClaims are the claims carried by a session credential. The subject is
// the decimal string form of the Telegram id and the identity-mirror claims
// match the fields of the verified payload.
type SessionClaims struct {
	TelegramID int64  `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Username   string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and validates short-lived session credentials.
// Minting has no side effects; the credential is meant to be redeemed once,
// immediately after issuance.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   string
	now        func() time.Time
}

// NewTokenService creates a TokenService. A zero ttl defaults to five minutes.
func NewTokenService(signingKey string, ttl time.Duration, issuer, audience string) *TokenService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenService{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// Issue mints a session credential for an already-verified payload.
func (s *TokenService) Issue(p *LoginPayload) (string, error) {
	if len(s.signingKey) == 0 {
		return "", ErrSigningKeyMissing
	}

	now := s.now()
	claims := &SessionClaims{
		TelegramID: p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Username:   p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(p.ID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session credential: %w", err)
	}
	return signed, nil
}

// Validate parses a credential and returns its claims when the signature,
// issuer, audience and validity window all check out.
func (s *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	if len(s.signingKey) == 0 {
		return nil, ErrSigningKeyMissing
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, parserOpts...)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.TelegramID <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
