package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-assistant-gateway/chat"
	"github.com/jrsteele09/go-assistant-gateway/credential"
	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	"github.com/jrsteele09/go-assistant-gateway/productivity"
	"github.com/jrsteele09/go-assistant-gateway/server"
	"github.com/jrsteele09/go-assistant-gateway/session"
	"github.com/jrsteele09/go-assistant-gateway/speech"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"
)

const (
	testBaseURL    = "http://localhost:5000"
	allowedOrigin  = "https://app.example.com"
	testWeatherKey = "weather-key-123"
	testChatKey    = "sk-or-secret"
)

var testProfile = session.UserProfile{
	SubjectID:   "110248495921238986420",
	DisplayName: "Tony Stark",
	Email:       "tony@example.com",
	PictureURL:  "https://example.com/tony.png",
}

func testConfig() config.Config {
	return config.Config{
		EnvVars: config.EnvVars{AppName: "JARVIS Test", Env: "TEST", BaseURL: testBaseURL},
		Cors:    config.Cors{Origins: config.AllowedOrigins{allowedOrigin: {}}},
		OAuth:   config.OAuth{ClientID: "client-id", ClientSecret: "client-secret", Scope: config.DefaultScope},
		Session: config.Session{Secret: "test-session-secret", MaxAge: time.Hour},
		Providers: config.Providers{
			OpenRouterAPIKey: testChatKey,
			WeatherAPIKey:    testWeatherKey,
		},
	}
}

// fakeFactory hands out recording clients and counts every construction.
type fakeFactory struct {
	mu       sync.Mutex
	calls    int
	calendar *fakeCalendar
	tasks    *fakeTasks
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{calendar: &fakeCalendar{}, tasks: &fakeTasks{}}
}

func (f *fakeFactory) Calendar(ctx context.Context, cred *credential.Live) (productivity.CalendarClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.calendar, nil
}

func (f *fakeFactory) Tasks(ctx context.Context, cred *credential.Live) (productivity.TasksClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tasks, nil
}

func (f *fakeFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls + f.calendar.calls + f.tasks.calls
}

type fakeCalendar struct {
	calls    int
	inserted *calendar.Event
	window   productivity.Window
}

func (c *fakeCalendar) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	c.calls++
	c.inserted = event
	return &calendar.Event{Id: "evt-1", HtmlLink: "https://calendar.google.com/evt-1"}, nil
}

func (c *fakeCalendar) ListEvents(ctx context.Context, calendarID string, window productivity.Window) ([]*calendar.Event, error) {
	c.calls++
	c.window = window
	return []*calendar.Event{{
		Id:      "e1",
		Summary: "Standup",
		Start:   &calendar.EventDateTime{DateTime: "2026-01-15T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-01-15T10:15:00Z"},
	}}, nil
}

type fakeTasks struct {
	calls      int
	listIDs    []string
	insertedTo string
	inserted   *tasks.Task
}

func (t *fakeTasks) ListTaskLists(ctx context.Context) ([]*tasks.TaskList, error) {
	t.calls++
	return []*tasks.TaskList{{Id: "A", Title: "Work"}, {Id: "B", Title: "Mis tareas"}}, nil
}

func (t *fakeTasks) InsertTask(ctx context.Context, taskListID string, task *tasks.Task) (*tasks.Task, error) {
	t.calls++
	t.insertedTo = taskListID
	t.inserted = task
	return &tasks.Task{Id: "task-1", Title: task.Title}, nil
}

func (t *fakeTasks) ListOpenTasks(ctx context.Context, taskListID string) ([]*tasks.Task, error) {
	t.calls++
	t.listIDs = append(t.listIDs, taskListID)
	return []*tasks.Task{{Id: "t1", Title: "Comprar leche", Due: "2026-01-20T00:00:00.000Z"}}, nil
}

type fakeChat struct {
	got []chat.Message
}

func (c *fakeChat) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	c.got = messages
	return "A sus órdenes.", nil
}

type fakeSpeech struct{}

func (fakeSpeech) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	return &speech.Audio{ContentType: speech.AudioMIMEType, Body: io.NopCloser(strings.NewReader("ID3-audio-bytes"))}, nil
}

type fixture struct {
	srv      *server.Server
	sessions *session.Manager
	repo     *session.InMemoryRepo
	factory  *fakeFactory
}

func setupServer(t *testing.T, opts ...server.Option) *fixture {
	t.Helper()
	repo := session.NewInMemoryRepo()
	sessions, err := session.NewManager(repo, "test-session-secret", time.Hour, false)
	require.NoError(t, err)
	factory := newFakeFactory()

	all := append([]server.Option{
		server.WithSessionManager(sessions),
		server.WithServiceFactory(factory),
		server.WithChat(&fakeChat{}),
		server.WithSpeech(fakeSpeech{}),
		server.WithNowTime(func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }),
	}, opts...)

	srv, err := server.New(testConfig(), all...)
	require.NoError(t, err)
	return &fixture{srv: srv, sessions: sessions, repo: repo, factory: factory}
}

// loggedIn returns the cookie of a session holding a token set.
func (f *fixture) loggedIn(t *testing.T) *http.Cookie {
	t.Helper()
	store, cookie, err := f.sessions.Issue()
	require.NoError(t, err)
	require.NoError(t, store.Set(testProfile, session.TokenSet{
		AccessToken: "ya29.token",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	return cookie
}

func (f *fixture) do(method, target string, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)
	return w
}

func TestAuthenticatedEndpoints_RejectAnonymousSessions(t *testing.T) {
	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, server.RouteAPICreateEvent, `{"title":"Demo","startTime":"2026-01-15T10:00:00Z","endTime":"2026-01-15T11:00:00Z"}`},
		{http.MethodPost, server.RouteAPICreateTask, `{"title":"Comprar leche"}`},
		{http.MethodGet, server.RouteAPIListEvents, ""},
		{http.MethodGet, server.RouteAPIListTasks, ""},
		{http.MethodPost, server.RouteAPIProcessCommand, `{"command":"hola"}`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			f := setupServer(t)

			w := f.do(tc.method, tc.path, tc.body, nil)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.JSONEq(t, `{"error":"No autenticado"}`, w.Body.String())
			require.Zero(t, f.factory.Calls())

			// Anonymous API calls never start a session.
			require.Empty(t, w.Result().Cookies())
			require.Zero(t, f.repo.Len())
		})
	}
}

func TestAuthenticatedEndpoints_RejectSessionAfterLogout(t *testing.T) {
	f := setupServer(t)
	cookie := f.loggedIn(t)

	w := f.do(http.MethodGet, server.RouteLogout, "", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, server.RouteIndex, w.Header().Get("Location"))

	w = f.do(http.MethodGet, server.RouteAPIListTasks, "", cookie)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Zero(t, f.factory.Calls())
}

func TestCreateEvent(t *testing.T) {
	f := setupServer(t)

	w := f.do(http.MethodPost, server.RouteAPICreateEvent,
		`{"title":"Demo","startTime":"2026-01-15T10:00:00Z","endTime":"2026-01-15T11:00:00Z","description":"Revisión"}`,
		f.loggedIn(t))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"success": true,
		"eventId": "evt-1",
		"htmlLink": "https://calendar.google.com/evt-1",
		"message": "Evento 'Demo' creado exitosamente"
	}`, w.Body.String())

	inserted := f.factory.calendar.inserted
	require.NotNil(t, inserted)
	require.Equal(t, productivity.EventTimeZone, inserted.Start.TimeZone)
	require.Equal(t, productivity.EventTimeZone, inserted.End.TimeZone)
	require.Equal(t, "Revisión", inserted.Description)
}

func TestCreateEvent_ValidationHappensBeforeAnyCall(t *testing.T) {
	cases := map[string]string{
		"missing endTime": `{"title":"Demo","startTime":"2026-01-15T10:00:00Z"}`,
		"missing title":   `{"startTime":"2026-01-15T10:00:00Z","endTime":"2026-01-15T11:00:00Z"}`,
		"wrong type":      `{"title":42,"startTime":"2026-01-15T10:00:00Z","endTime":"2026-01-15T11:00:00Z"}`,
		"not json":        `title=Demo`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			f := setupServer(t)
			w := f.do(http.MethodPost, server.RouteAPICreateEvent, body, f.loggedIn(t))
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Contains(t, w.Body.String(), `"error"`)
			require.Zero(t, f.factory.Calls())
		})
	}
}

func TestListEvents(t *testing.T) {
	f := setupServer(t)

	w := f.do(http.MethodGet, server.RouteAPIListEvents, "", f.loggedIn(t))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"success": true,
		"events": [{"id":"e1","summary":"Standup","start":"2026-01-15T10:00:00Z","end":"2026-01-15T10:15:00Z"}]
	}`, w.Body.String())

	window := f.factory.calendar.window
	require.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), window.TimeMin)
	require.Equal(t, time.Date(2026, 1, 22, 9, 0, 0, 0, time.UTC), window.TimeMax)
	require.EqualValues(t, 10, window.MaxResults)
}

func TestListEvents_DownstreamTimeoutIsGatewayTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	f := setupServer(t, server.WithServiceFactory(productivity.NewFactory(
		productivity.WithEndpoint(slow.URL+"/"),
		productivity.WithBaseClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)))

	w := f.do(http.MethodGet, server.RouteAPIListEvents, "", f.loggedIn(t))
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.Contains(t, w.Body.String(), `"error"`)
}

func TestListEvents_RejectedTokenIsNotAuthenticated(t *testing.T) {
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer google.Close()

	f := setupServer(t, server.WithServiceFactory(productivity.NewFactory(productivity.WithEndpoint(google.URL+"/"))))

	w := f.do(http.MethodGet, server.RouteAPIListEvents, "", f.loggedIn(t))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"No autenticado"}`, w.Body.String())
}

func TestTasks_UsePreferredList(t *testing.T) {
	f := setupServer(t)
	cookie := f.loggedIn(t)

	w := f.do(http.MethodGet, server.RouteAPIListTasks, "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"success": true,
		"tasks": [{"id":"t1","title":"Comprar leche","due":"2026-01-20T00:00:00.000Z","completed":false}]
	}`, w.Body.String())
	require.Equal(t, []string{"B"}, f.factory.tasks.listIDs)

	w = f.do(http.MethodPost, server.RouteAPICreateTask, `{"title":"Llamar a Pepper","description":"antes de las 5"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"taskId":"task-1","message":"Tarea 'Llamar a Pepper' creada exitosamente"}`, w.Body.String())
	require.Equal(t, "B", f.factory.tasks.insertedTo)
	require.Equal(t, "antes de las 5", f.factory.tasks.inserted.Notes)
}

func TestProcessCommand(t *testing.T) {
	f := setupServer(t)
	cookie := f.loggedIn(t)

	w := f.do(http.MethodPost, server.RouteAPIProcessCommand, `{"command":"Quiero agendar una reunión"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "create_event", got["action"])
	require.NotEmpty(t, got["message"])

	w = f.do(http.MethodPost, server.RouteAPIProcessCommand, `{}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "unknown", got["action"])
	require.Zero(t, f.factory.Calls())
}

func TestWeather(t *testing.T) {
	t.Run("missing lon makes no call", func(t *testing.T) {
		f := setupServer(t)
		w := f.do(http.MethodGet, server.RouteAPIWeather+"?lat=19.43", "", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), `"error"`)
	})

	t.Run("body relayed verbatim", func(t *testing.T) {
		fake := &fakeWeather{body: `{"name":"Ciudad de México","main":{"temp":21.5}}`}
		f := setupServer(t, server.WithWeather(fake))

		w := f.do(http.MethodGet, server.RouteAPIWeather+"?lat=19.43&lon=-99.13", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, fake.body, w.Body.String())
		require.Equal(t, "19.43", fake.lat)
		require.Equal(t, "-99.13", fake.lon)
	})
}

type fakeWeather struct {
	body     string
	lat, lon string
}

func (f *fakeWeather) Current(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	f.lat, f.lon = lat, lon
	return json.RawMessage(f.body), nil
}

func TestChat(t *testing.T) {
	fake := &fakeChat{}
	f := setupServer(t, server.WithChat(fake))

	w := f.do(http.MethodPost, server.RouteAPIChat, `{"messages":[{"role":"user","content":"Hola JARVIS"}]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"message":"A sus órdenes."}`, w.Body.String())
	require.Equal(t, []chat.Message{{Role: "user", Content: "Hola JARVIS"}}, fake.got)
}

func TestChat_MissingKeyIsConfigurationError(t *testing.T) {
	f := setupServer(t, server.WithChat(chat.New("", "")))

	w := f.do(http.MethodPost, server.RouteAPIChat, `{"messages":[{"role":"user","content":"Hola"}]}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "OPENROUTER_API_KEY")
}

func TestSpeak_StreamsAudio(t *testing.T) {
	f := setupServer(t)

	w := f.do(http.MethodPost, server.RouteAPISpeak, `{"text":"Buenos días"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, speech.AudioMIMEType, w.Header().Get("Content-Type"))
	require.Equal(t, "ID3-audio-bytes", w.Body.String())
}

func TestSpeak_ErrorsAreJSON(t *testing.T) {
	f := setupServer(t, server.WithSpeech(speech.New("", "")))

	w := f.do(http.MethodPost, server.RouteAPISpeak, `{"text":"Buenos días"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	require.Contains(t, w.Body.String(), "ELEVENLABS_API_KEY")
}

func TestConfigEndpoint(t *testing.T) {
	f := setupServer(t)

	w := f.do(http.MethodGet, server.RouteAPIConfig, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"openrouter_configured": true,
		"elevenlabs_configured": false,
		"weather_api_key": "`+testWeatherKey+`",
		"base_url": "`+testBaseURL+`"
	}`, w.Body.String())
	require.NotContains(t, w.Body.String(), testChatKey)
}

func TestIndex(t *testing.T) {
	f := setupServer(t)

	w := f.do(http.MethodGet, server.RouteIndex, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `href="/login"`)
	require.NotContains(t, w.Body.String(), testProfile.DisplayName)
	require.NotEmpty(t, w.Result().Cookies())

	w = f.do(http.MethodGet, server.RouteIndex, "", f.loggedIn(t))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), testProfile.DisplayName)
	require.Contains(t, w.Body.String(), `href="/logout"`)
	require.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
}

func TestUnknownPathIsNotFound(t *testing.T) {
	f := setupServer(t)
	w := f.do(http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	f := setupServer(t)
	w := f.do(http.MethodGet, server.RouteHealth, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCors(t *testing.T) {
	f := setupServer(t)

	r := httptest.NewRequest(http.MethodOptions, server.RouteAPICreateEvent, nil)
	r.Header.Set("Origin", allowedOrigin)
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, allowedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodOptions, server.RouteAPICreateEvent, nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, server.RouteAPIConfig, nil)
	r.Header.Set("Origin", allowedOrigin)
	w = httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)
	require.Equal(t, allowedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupServer(t)
	h := server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, f.srv.LoggingMiddleware, f.srv.RecoverMiddleware)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"error inesperado"}`, w.Body.String())
}

func TestRoutesAreRegistered(t *testing.T) {
	f := setupServer(t)
	routes := f.srv.Routes()
	for _, want := range []string{
		"GET " + server.RouteLogin,
		"GET " + server.RouteCallback,
		"GET " + server.RouteLogout,
		"POST " + server.RouteAPICreateEvent,
		"POST " + server.RouteAPISpeak,
	} {
		require.Contains(t, routes, want)
	}
}

func TestDecodeRejectsOversizedBodies(t *testing.T) {
	f := setupServer(t)
	big := `{"messages":[{"role":"user","content":"` + string(bytes.Repeat([]byte("a"), 2<<20)) + `"}]}`
	w := f.do(http.MethodPost, server.RouteAPIChat, big, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
