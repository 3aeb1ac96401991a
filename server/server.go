package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-assistant-gateway/auth"
	"github.com/jrsteele09/go-assistant-gateway/chat"
	"github.com/jrsteele09/go-assistant-gateway/credential"
	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	"github.com/jrsteele09/go-assistant-gateway/productivity"
	"github.com/jrsteele09/go-assistant-gateway/session"
	"github.com/jrsteele09/go-assistant-gateway/speech"
	"github.com/jrsteele09/go-assistant-gateway/weather"
	"github.com/rs/zerolog/log"
)

type ChatCompleter interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (*speech.Audio, error)
}

type WeatherFetcher interface {
	Current(ctx context.Context, lat, lon string) (json.RawMessage, error)
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	index    *template.Template
	now      func() time.Time
	sessions *session.Manager
	flow     *auth.Flow
	identity credential.ClientIdentity
	services productivity.ServiceFactory
	chat     ChatCompleter
	speech   SpeechSynthesizer
	weather  WeatherFetcher
}

type Option func(*Server)

func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

func WithAuthFlow(f *auth.Flow) Option {
	return func(s *Server) {
		s.flow = f
	}
}

// WithClientIdentity overrides the client used to rebuild credentials.
func WithClientIdentity(id credential.ClientIdentity) Option {
	return func(s *Server) {
		s.identity = id
	}
}

func WithServiceFactory(f productivity.ServiceFactory) Option {
	return func(s *Server) {
		s.services = f
	}
}

func WithChat(c ChatCompleter) Option {
	return func(s *Server) {
		s.chat = c
	}
}

func WithSpeech(sp SpeechSynthesizer) Option {
	return func(s *Server) {
		s.speech = sp
	}
}

func WithWeather(wf WeatherFetcher) Option {
	return func(s *Server) {
		s.weather = wf
	}
}

func WithNowTime(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds the gateway's HTTP handler. Every collaborator not supplied as
// an option is built from c.
func New(c config.Config, opts ...Option) (*Server, error) {
	index, err := ParseTemplate("index.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse index template: %w", err)
	}

	s := &Server{
		env:    c.GetEnv(),
		mux:    http.NewServeMux(),
		config: c,
		index:  index,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sessions == nil {
		s.sessions, err = session.NewManager(session.NewInMemoryRepo(), c.Session.Secret, c.GetMaxSessionAge(), c.CookieSecure)
		if err != nil {
			return nil, fmt.Errorf("[Server New] session manager: %w", err)
		}
	}
	if s.flow == nil {
		s.flow = auth.NewFlow(c.OAuth, c.GetBaseURL(), auth.NewInMemoryStateRepo(c.GetAuthStateTimeout()))
	}
	if s.identity.ClientID == "" {
		s.identity = credential.IdentityFromConfig(c.OAuth)
	}
	if s.services == nil {
		s.services = productivity.NewFactory()
	}
	if s.chat == nil {
		s.chat = chat.New(c.OpenRouterAPIKey, c.OpenRouterModel, chat.WithAttribution(c.GetBaseURL(), c.GetAppName()))
	}
	if s.speech == nil {
		s.speech = speech.New(c.ElevenLabsAPIKey, c.ElevenLabsVoiceID)
	}
	if s.weather == nil {
		s.weather = weather.New(c.WeatherAPIKey)
	}

	if c.Session.Ephemeral {
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}
	if !c.OAuth.IsConfigured() {
		log.Warn().Msg("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, login is disabled")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes returns the registered route patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}
