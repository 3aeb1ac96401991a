package session

import (
	"context"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
)

// Store is the credential store of one session. All reads and writes go
// through the repo, so concurrent requests on the same session see whole
// states only: the last writer wins.
type Store struct {
	id   string
	repo Repo
}

func newStore(id string, repo Repo) *Store {
	return &Store{id: id, repo: repo}
}

// ID returns the session id.
func (s *Store) ID() string {
	return s.id
}

// Set replaces the profile and the token set in a single write.
func (s *Store) Set(profile UserProfile, tokens TokenSet) error {
	record, err := s.repo.Get(s.id)
	if err != nil {
		return apperrors.Wrapf(err, "[session Set] loading %s", s.id)
	}
	record.State = State{Profile: &profile, Tokens: &tokens}
	return s.repo.Upsert(s.id, record)
}

// Clear removes both the profile and the token set.
func (s *Store) Clear() error {
	record, err := s.repo.Get(s.id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) || apperrors.Is(err, apperrors.ErrSessionExpired) {
			return nil
		}
		return apperrors.Wrapf(err, "[session Clear] loading %s", s.id)
	}
	record.State = State{}
	return s.repo.Upsert(s.id, record)
}

// State returns a copy of the current state. A missing or expired session
// reads as the empty state.
func (s *Store) State() State {
	record, err := s.repo.Get(s.id)
	if err != nil {
		return State{}
	}
	return record.State
}

// IsAuthenticated reports whether a token set is present. Token expiry is not
// checked here; an expired token is rejected by the downstream API instead.
func (s *Store) IsAuthenticated() bool {
	return s.State().Tokens != nil
}

// Profile returns the stored profile, or nil.
func (s *Store) Profile() *UserProfile {
	return s.State().Profile
}

// Tokens returns the stored token set, or nil.
func (s *Store) Tokens() *TokenSet {
	return s.State().Tokens
}

type contextKey struct{}

// WithStore returns a context carrying store.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, store)
}

// FromContext returns the store attached by Manager.Middleware.
func FromContext(ctx context.Context) (*Store, bool) {
	store, ok := ctx.Value(contextKey{}).(*Store)
	return store, ok && store != nil
}
