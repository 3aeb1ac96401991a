package session_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/session"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret"

var (
	testProfile = session.UserProfile{
		SubjectID:   "1234567890",
		DisplayName: "Tony Stark",
		Email:       "tony@example.com",
		PictureURL:  "https://example.com/tony.png",
	}
	testTokens = session.TokenSet{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		ExpiresAt:    time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC),
	}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupManager(t *testing.T) (*session.Manager, *session.InMemoryRepo, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
	repo := session.NewInMemoryRepo().WithClock(c.Now)
	m, err := session.NewManager(repo, testSecret, time.Hour, false)
	require.NoError(t, err)
	return m.WithClock(c.Now), repo, c
}

func TestStore_SetClearAndAuthenticated(t *testing.T) {
	m, _, _ := setupManager(t)

	store, _, err := m.Issue()
	require.NoError(t, err)
	require.False(t, store.IsAuthenticated())
	require.Nil(t, store.Profile())

	require.NoError(t, store.Set(testProfile, testTokens))
	require.True(t, store.IsAuthenticated())
	require.Equal(t, testProfile, *store.Profile())
	require.Equal(t, testTokens, *store.Tokens())

	require.NoError(t, store.Clear())
	require.False(t, store.IsAuthenticated())
	require.Nil(t, store.Profile())
}

func TestStore_ExpiredTokenStillCountsAsAuthenticated(t *testing.T) {
	m, _, _ := setupManager(t)
	store, _, err := m.Issue()
	require.NoError(t, err)

	expired := testTokens
	expired.ExpiresAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	expired.RefreshToken = ""
	require.NoError(t, store.Set(testProfile, expired))

	require.True(t, store.IsAuthenticated())
}

func TestStore_ReturnsCopies(t *testing.T) {
	m, _, _ := setupManager(t)
	store, _, err := m.Issue()
	require.NoError(t, err)
	require.NoError(t, store.Set(testProfile, testTokens))

	tokens := store.Tokens()
	tokens.AccessToken = "mutated"

	require.Equal(t, testTokens.AccessToken, store.Tokens().AccessToken)
}

func TestStore_ConcurrentWritersNeverMixStates(t *testing.T) {
	m, _, _ := setupManager(t)
	store, _, err := m.Issue()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := testProfile
			p.SubjectID = fmt.Sprintf("user-%d", i)
			tk := testTokens
			tk.AccessToken = fmt.Sprintf("token-%d", i)
			require.NoError(t, store.Set(p, tk))
		}(i)
	}
	wg.Wait()

	state := store.State()
	require.NotNil(t, state.Profile)
	require.NotNil(t, state.Tokens)
	suffix := strings.TrimPrefix(state.Profile.SubjectID, "user-")
	require.Equal(t, "token-"+suffix, state.Tokens.AccessToken)
}

func TestManager_LoadCreatesSessionOnFirstRequest(t *testing.T) {
	m, repo, _ := setupManager(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	store, err := m.Load(w, r)
	require.NoError(t, err)
	require.NotEmpty(t, store.ID())
	require.Equal(t, 1, repo.Len())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, session.CookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestManager_LoadReusesSignedCookie(t *testing.T) {
	m, repo, _ := setupManager(t)
	store, cookie, err := m.Issue()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	loaded, err := m.Load(w, r)
	require.NoError(t, err)

	require.Equal(t, store.ID(), loaded.ID())
	require.Empty(t, w.Result().Cookies())
	require.Equal(t, 1, repo.Len())
}

func TestManager_LoadRejectsTamperedAndExpiredCookies(t *testing.T) {
	t.Run("tampered", func(t *testing.T) {
		m, _, _ := setupManager(t)
		store, cookie, err := m.Issue()
		require.NoError(t, err)

		cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookie)
		loaded, err := m.Load(w, r)
		require.NoError(t, err)
		require.NotEqual(t, store.ID(), loaded.ID())
	})

	t.Run("signed with another secret", func(t *testing.T) {
		m, _, _ := setupManager(t)
		other, err := session.NewManager(session.NewInMemoryRepo(), "other-secret", time.Hour, false)
		require.NoError(t, err)
		_, cookie, err := other.Issue()
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookie)
		_, err = m.Load(w, r)
		require.NoError(t, err)
		require.Len(t, w.Result().Cookies(), 1)
	})

	t.Run("expired", func(t *testing.T) {
		m, _, c := setupManager(t)
		store, cookie, err := m.Issue()
		require.NoError(t, err)
		require.NoError(t, store.Set(testProfile, testTokens))

		c.Advance(2 * time.Hour)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookie)
		loaded, err := m.Load(w, r)
		require.NoError(t, err)
		require.NotEqual(t, store.ID(), loaded.ID())
		require.False(t, loaded.IsAuthenticated())
	})
}

func TestManager_MiddlewareAndDestroy(t *testing.T) {
	m, repo, _ := setupManager(t)

	var seen *session.Store
	handler := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		store, ok := session.FromContext(r.Context())
		require.True(t, ok)
		seen = store
		require.NoError(t, m.Destroy(w, r))
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/logout", nil))

	require.NotNil(t, seen)
	require.Equal(t, 0, repo.Len())
	cookies := w.Result().Cookies()
	require.Equal(t, -1, cookies[len(cookies)-1].MaxAge)
}

func TestManager_ResumeNeverStartsSessions(t *testing.T) {
	m, repo, _ := setupManager(t)

	var found bool
	handler := m.Resume(func(w http.ResponseWriter, r *http.Request) {
		_, found = session.FromContext(r.Context())
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/list-tasks", nil))
	require.False(t, found)
	require.Empty(t, w.Result().Cookies())
	require.Equal(t, 0, repo.Len())

	store, cookie, err := m.Issue()
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/api/list-tasks", nil)
	r.AddCookie(cookie)
	handler = m.Resume(func(w http.ResponseWriter, r *http.Request) {
		resumed, ok := session.FromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, store.ID(), resumed.ID())
	})
	w = httptest.NewRecorder()
	handler(w, r)
	require.Empty(t, w.Result().Cookies())
	require.Equal(t, 1, repo.Len())
}

func TestManager_RotateReplacesSession(t *testing.T) {
	m, repo, _ := setupManager(t)
	previous, cookie, err := m.Issue()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/login/callback", nil)
	r.AddCookie(cookie)
	r = r.WithContext(session.WithStore(r.Context(), previous))
	w := httptest.NewRecorder()

	rotated, err := m.Rotate(w, r, testProfile, testTokens)
	require.NoError(t, err)
	require.NotEqual(t, previous.ID(), rotated.ID())
	require.True(t, rotated.IsAuthenticated())
	require.Equal(t, 1, repo.Len())

	_, ok := m.Lookup(r)
	require.False(t, ok)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, ok := m.Lookup(next)
	require.True(t, ok)
	require.Equal(t, rotated.ID(), loaded.ID())
	require.Equal(t, testProfile, *loaded.Profile())
}

func TestInMemoryRepo_Errors(t *testing.T) {
	repo := session.NewInMemoryRepo()
	require.Error(t, repo.Upsert("", session.Record{}))

	_, err := repo.Get("missing")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, repo.Upsert("old", session.Record{ExpiresAt: past}))
	_, err = repo.Get("old")
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, 0, repo.Len())
}

func TestTokenSet_StringRedactsTokens(t *testing.T) {
	out := fmt.Sprintf("%v %#v", testTokens, testTokens)
	require.NotContains(t, out, testTokens.AccessToken)
	require.NotContains(t, out, testTokens.RefreshToken)
	require.Contains(t, out, "[REDACTED]")
}

func TestCookieSigner(t *testing.T) {
	_, err := session.NewCookieSigner("")
	require.Error(t, err)

	s, err := session.NewCookieSigner(testSecret)
	require.NoError(t, err)

	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	value, err := s.Sign("sid-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	sid, err := s.Verify(value, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "sid-1", sid)

	_, err = s.Verify(value, now.Add(2*time.Hour))
	require.Error(t, err)
}
