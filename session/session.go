// Package session holds the per browser state of the gateway: who the user is
// and the delegated authorization grant obtained when they logged in.
package session

import (
	"fmt"
	"time"
)

// UserProfile holds the identity claims surfaced by the identity provider.
type UserProfile struct {
	SubjectID   string `json:"sub"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	PictureURL  string `json:"picture"`
}

// TokenSet is the delegated authorization grant. RefreshToken is empty when
// the provider did not issue one (it only does so on first consent).
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// HasRefreshToken reports whether the grant can be refreshed.
func (t TokenSet) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// String never prints token values.
func (t TokenSet) String() string {
	return fmt.Sprintf("TokenSet{type=%s expires_at=%s refresh=%t access=[REDACTED]}",
		t.TokenType, t.ExpiresAt.Format(time.RFC3339), t.HasRefreshToken())
}

// GoString implements fmt.GoStringer so %#v does not leak tokens either.
func (t TokenSet) GoString() string {
	return t.String()
}

// State is the typed content of one session. Tokens is present if and only if
// the user completed a login during this session.
type State struct {
	Profile *UserProfile
	Tokens  *TokenSet
}

func (s State) clone() State {
	out := State{}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	if s.Tokens != nil {
		t := *s.Tokens
		out.Tokens = &t
	}
	return out
}

// Record is what a Repo stores for a session id.
type Record struct {
	State
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
