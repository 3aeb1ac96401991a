package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

// CookieName is the name of the signed session cookie.
const CookieName = "gateway_session"

// Manager binds browser cookies to session records.
type Manager struct {
	repo   Repo
	signer *CookieSigner
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a session manager. Cookies are signed with a key derived
// from secret and live for maxAge.
func NewManager(repo Repo, secret string, maxAge time.Duration, secure bool) (*Manager, error) {
	signer, err := NewCookieSigner(secret)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[session NewManager]")
	}
	return &Manager{
		repo:   repo,
		signer: signer,
		maxAge: maxAge,
		secure: secure,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source, used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Middleware loads (or starts) the session of the request and attaches its
// Store to the request context.
func (m *Manager) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := m.Load(w, r)
		if err != nil {
			log.Err(err).Str("path", r.URL.Path).Msg("Failed to load session")
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		next(w, r.WithContext(WithStore(r.Context(), store)))
	}
}

// Resume attaches the store of an existing session to the request context.
// Unlike Middleware it never starts a session: requests without a valid
// cookie reach next with no Store.
func (m *Manager) Resume(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store, ok := m.Lookup(r); ok {
			r = r.WithContext(WithStore(r.Context(), store))
		}
		next(w, r)
	}
}

// Lookup returns the store of the live session named by the request cookie.
func (m *Manager) Lookup(r *http.Request) (*Store, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	sessionID, err := m.signer.Verify(cookie.Value, m.now())
	if err != nil {
		log.Debug().Err(err).Msg("Discarding session cookie")
		return nil, false
	}
	if _, err := m.repo.Get(sessionID); err != nil {
		return nil, false
	}
	return newStore(sessionID, m.repo), true
}

// Load returns the store of the session named by the request cookie. Missing,
// tampered or expired cookies start a new anonymous session and set a fresh
// cookie on w.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Store, error) {
	if store, ok := m.Lookup(r); ok {
		return store, nil
	}

	store, cookie, err := m.Issue()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, cookie)
	return store, nil
}

// Issue starts a new anonymous session and returns its store and cookie.
func (m *Manager) Issue() (*Store, *http.Cookie, error) {
	now := m.now()
	sessionID := uuid.NewString()
	expiresAt := now.Add(m.maxAge)

	if err := m.repo.Upsert(sessionID, Record{CreatedAt: now, ExpiresAt: expiresAt}); err != nil {
		return nil, nil, apperrors.Wrapf(err, "[session Issue] storing session")
	}

	value, err := m.signer.Sign(sessionID, now, expiresAt)
	if err != nil {
		return nil, nil, apperrors.Wrapf(err, "[session Issue] signing cookie")
	}

	return newStore(sessionID, m.repo), m.cookie(value, int(m.maxAge.Seconds())), nil
}

// Rotate moves the signed in user to a new session id. The profile and
// tokens are written to a fresh session, the session of the request is
// deleted and the new cookie is set on w.
func (m *Manager) Rotate(w http.ResponseWriter, r *http.Request, profile UserProfile, tokens TokenSet) (*Store, error) {
	store, cookie, err := m.Issue()
	if err != nil {
		return nil, err
	}
	if err := store.Set(profile, tokens); err != nil {
		return nil, apperrors.Wrapf(err, "[session Rotate] storing credentials")
	}
	if previous, ok := FromContext(r.Context()); ok {
		if err := m.repo.Delete(previous.ID()); err != nil {
			log.Warn().Err(err).Str("session", previous.ID()).Msg("Failed to delete replaced session")
		}
	}
	http.SetCookie(w, cookie)
	return store, nil
}

// Destroy deletes the session of the request and expires its cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	if store, ok := FromContext(r.Context()); ok {
		if err := m.repo.Delete(store.ID()); err != nil {
			return apperrors.Wrapf(err, "[session Destroy] deleting %s", store.ID())
		}
	}
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
