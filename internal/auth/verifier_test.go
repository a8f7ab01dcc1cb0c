package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "abc"

// signedPayload returns a payload with a freshly computed valid signature.
func signedPayload(id int64, firstName string, authDate int64) *LoginPayload {
	p := &LoginPayload{ID: id, FirstName: firstName, AuthDate: authDate}
	p.Hash = Sign(p, testBotToken)
	return p
}

// testVerifier returns a verifier whose clock is pinned shortly after authDate.
func testVerifier(botToken string, authDate int64) *Verifier {
	v := NewVerifier(botToken, 0, 0)
	v.now = func() time.Time { return time.Unix(authDate+60, 0) }
	return v
}

func TestVerifier_AcceptsValidPayload(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	v := testVerifier(testBotToken, 1700000000)

	assert.True(t, v.Verify(p))
	// deterministic: same inputs, same answer
	assert.True(t, v.Verify(p))
}

func TestVerifier_RejectsTamperedID(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	v := testVerifier(testBotToken, 1700000000)
	require.True(t, v.Verify(p))

	p.ID = 43
	assert.False(t, v.Verify(p))
}

func TestVerifier_RejectsTamperedHash(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	v := testVerifier(testBotToken, 1700000000)

	// flip a single hex character
	flipped := []byte(p.Hash)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	p.Hash = string(flipped)

	assert.False(t, v.Verify(p))
}

func TestVerifier_RejectsMissingHash(t *testing.T) {
	p := &LoginPayload{ID: 42, FirstName: "Bo", AuthDate: 1700000000}
	v := testVerifier(testBotToken, 1700000000)

	assert.False(t, v.Verify(p))
}

func TestVerifier_RejectsMissingBotToken(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	v := testVerifier("", 1700000000)

	assert.False(t, v.Verify(p))
}

func TestVerifier_RejectsStalePayload(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	v := NewVerifier(testBotToken, 0, 0)
	v.now = func() time.Time {
		return time.Unix(1700000000, 0).Add(DefaultAuthMaxAge + time.Minute)
	}

	assert.False(t, v.Verify(p))
}

func TestVerifier_RejectsFuturePayload(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	v := NewVerifier(testBotToken, 0, 0)
	v.now = func() time.Time { return time.Unix(1700000000, 0).Add(-time.Hour) }

	assert.False(t, v.Verify(p))
}

func TestVerifier_AcceptsUppercaseHexSignature(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)
	p.Hash = strings.ToUpper(p.Hash)
	v := testVerifier(testBotToken, 1700000000)

	assert.True(t, v.Verify(p))
}

func TestVerifier_OptionalFieldsParticipateInSignature(t *testing.T) {
	p := &LoginPayload{
		ID:        42,
		FirstName: "Alice",
		LastName:  "Smith",
		Username:  "alice",
		PhotoURL:  "https://t.me/i/userpic/alice.jpg",
		AuthDate:  1700000000,
	}
	p.Hash = Sign(p, testBotToken)
	v := testVerifier(testBotToken, 1700000000)
	require.True(t, v.Verify(p))

	p.Username = "mallory"
	assert.False(t, v.Verify(p))
}

func TestCheckString_SortedAndOmitsAbsentFields(t *testing.T) {
	p := &LoginPayload{ID: 42, FirstName: "Bo", AuthDate: 1700000000, Hash: "ignored"}

	assert.Equal(t, "auth_date=1700000000\nfirst_name=Bo\nid=42", p.CheckString())
}

func TestCheckString_IncludesOptionalFields(t *testing.T) {
	p := &LoginPayload{
		ID:        7,
		FirstName: "Bo",
		Username:  "bo_plays",
		AuthDate:  1700000000,
	}

	assert.Equal(t, "auth_date=1700000000\nfirst_name=Bo\nid=7\nusername=bo_plays", p.CheckString())
}

func TestParsePayload_QueryStringVariant(t *testing.T) {
	p := signedPayload(42, "Bo", 1700000000)

	parsed, err := ParsePayload("hash=" + p.Hash + "&first_name=Bo&auth_date=1700000000&id=42")
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	v := testVerifier(testBotToken, 1700000000)
	assert.True(t, v.Verify(parsed))
}

func TestParsePayload_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"missing id", "first_name=Bo&auth_date=1700000000&hash=deadbeef"},
		{"missing hash", "id=42&first_name=Bo&auth_date=1700000000"},
		{"non-numeric id", "id=abc&first_name=Bo&auth_date=1700000000&hash=deadbeef"},
		{"non-numeric auth_date", "id=42&first_name=Bo&auth_date=later&hash=deadbeef"},
		{"bad encoding", "id=42;%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}
