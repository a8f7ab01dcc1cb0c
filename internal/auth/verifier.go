package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultAuthMaxAge bounds how old a signed payload may be before it is
// rejected as a potential replay.
const DefaultAuthMaxAge = 24 * time.Hour

// DefaultClockSkew is the allowed tolerance for payloads timestamped slightly
// ahead of this host's clock.
const DefaultClockSkew = 30 * time.Second

// Verifier validates that a login payload originated from Telegram and was not
// tampered with. It is stateless and safe for concurrent use.
type Verifier struct {
	botToken  string
	maxAge    time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier bound to the bot token. A zero maxAge or
// clockSkew falls back to the package defaults.
func NewVerifier(botToken string, maxAge, clockSkew time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultAuthMaxAge
	}
	if clockSkew <= 0 {
		clockSkew = DefaultClockSkew
	}
	return &Verifier{
		botToken:  botToken,
		maxAge:    maxAge,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

// Verify reports whether the payload's signature is authentic and fresh.
// It fails closed: a missing bot token, malformed payload, stale auth_date or
// hash mismatch all yield false, with no distinction exposed to the caller.
func (v *Verifier) Verify(p *LoginPayload) bool {
	if v.botToken == "" {
		return false
	}
	if err := p.Validate(); err != nil {
		return false
	}

	authTime := time.Unix(p.AuthDate, 0)
	now := v.now()
	if authTime.After(now.Add(v.clockSkew)) {
		return false
	}
	if now.Sub(authTime) > v.maxAge {
		return false
	}

	// secret key is SHA-256 of the raw bot token, not of the check-string
	secretKey := sha256.Sum256([]byte(v.botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(p.CheckString()))
	calculated := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(calculated), []byte(strings.ToLower(p.Hash)))
}

// Sign computes the hex signature for a payload. Exposed for tests and tooling
// that need to mint valid payloads; production code only ever verifies.
func Sign(p *LoginPayload, botToken string) string {
	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(p.CheckString()))
	return hex.EncodeToString(mac.Sum(nil))
}
