// Package auth implements Telegram login verification and session credential
// issuance for the SnapArena backend.
package auth

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Payload validation errors.
var (
	ErrMalformedPayload = errors.New("malformed login payload")
)

// LoginPayload is the signed identity object supplied by the Telegram host
// environment. Optional fields left empty are treated as absent and excluded
// from the check-string, matching what Telegram signs.
type LoginPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// Validate checks that the required fields are present and well-formed.
// It does not touch the signature; that is the verifier's job.
func (p *LoginPayload) Validate() error {
	if p == nil {
		return ErrMalformedPayload
	}
	if p.ID <= 0 || p.FirstName == "" || p.AuthDate <= 0 || p.Hash == "" {
		return ErrMalformedPayload
	}
	return nil
}

// CheckString builds the canonical byte sequence Telegram signed: every
// non-hash field rendered as key=value, sorted lexicographically and joined
// with newlines. Numeric fields use plain decimal representation.
func (p *LoginPayload) CheckString() string {
	pairs := make([]string, 0, 6)
	pairs = append(pairs,
		"auth_date="+strconv.FormatInt(p.AuthDate, 10),
		"first_name="+p.FirstName,
		"id="+strconv.FormatInt(p.ID, 10),
	)
	if p.LastName != "" {
		pairs = append(pairs, "last_name="+p.LastName)
	}
	if p.Username != "" {
		pairs = append(pairs, "username="+p.Username)
	}
	if p.PhotoURL != "" {
		pairs = append(pairs, "photo_url="+p.PhotoURL)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

// ParsePayload decodes a LoginPayload from its URL-query wire form, the raw
// init-data variant some deployments send instead of a JSON body. Unknown keys
// are ignored; a forged payload with extra signed keys fails verification
// anyway because they never enter the check-string.
func ParsePayload(raw string) (*LoginPayload, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformedPayload
	}
	return PayloadFromValues(values)
}

// PayloadFromValues builds a LoginPayload from already-parsed query values.
func PayloadFromValues(values url.Values) (*LoginPayload, error) {
	p := &LoginPayload{
		FirstName: values.Get("first_name"),
		LastName:  values.Get("last_name"),
		Username:  values.Get("username"),
		PhotoURL:  values.Get("photo_url"),
		Hash:      values.Get("hash"),
	}

	if idStr := values.Get("id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		p.ID = id
	}
	if dateStr := values.Get("auth_date"); dateStr != "" {
		authDate, err := strconv.ParseInt(dateStr, 10, 64)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		p.AuthDate = authDate
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
