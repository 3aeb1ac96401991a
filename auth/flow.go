// Package auth runs the OpenID Connect authorization code flow against
// Google and turns a successful callback into a user profile and token set.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Phase is a step of the login handshake.
type Phase string

const (
	PhaseAnonymous       Phase = "anonymous"
	PhaseRedirecting     Phase = "redirecting"
	PhasePendingCallback Phase = "pending_callback"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseFailed          Phase = "failed"
)

const stateLength = 32

// Flow drives the login handshake. One Flow serves every session.
type Flow struct {
	issuer       string
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       []string
	stateTTL     time.Duration

	states     StateRepo
	httpClient *http.Client
	now        func() time.Time

	discovery singleflight.Group
	mu        sync.RWMutex
	provider  *oidc.Provider
}

type FlowOption func(*Flow)

// WithHTTPClient sets the client used for discovery, token exchange and
// userinfo calls.
func WithHTTPClient(c *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = c
	}
}

func WithNowTime(now func() time.Time) FlowOption {
	return func(f *Flow) {
		f.now = now
	}
}

// NewFlow builds a flow for the configured client. baseURL is the public
// address of the gateway and is used to build the callback URL.
func NewFlow(cfg config.OAuth, baseURL string, states StateRepo, opts ...FlowOption) *Flow {
	f := &Flow{
		issuer:       cfg.Issuer,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.GetRedirectURL(baseURL),
		scopes:       cfg.GetScopes(),
		stateTTL:     cfg.GetAuthStateTimeout(),
		states:       states,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	if f.issuer == "" {
		f.issuer = config.DefaultIssuer
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedirectURL is the callback address registered with the provider.
func (f *Flow) RedirectURL() string {
	return f.redirectURL
}

// Begin records a pending state bound to sessionID and returns the provider
// URL the browser must be sent to.
func (f *Flow) Begin(ctx context.Context, sessionID, returnURL string) (string, error) {
	logPhase(PhaseAnonymous, PhaseRedirecting, "")
	if sessionID == "" {
		logPhase(PhaseRedirecting, PhaseFailed, "no session")
		return "", apperrors.ErrSessionNotFound
	}

	cfg, _, err := f.oauthConfig(ctx)
	if err != nil {
		logPhase(PhaseRedirecting, PhaseFailed, err.Error())
		return "", err
	}

	state, err := randomString(stateLength)
	if err != nil {
		return "", apperrors.Wrapf(err, "[Flow.Begin] state")
	}
	nonce, err := randomString(stateLength)
	if err != nil {
		return "", apperrors.Wrapf(err, "[Flow.Begin] nonce")
	}
	verifier := oauth2.GenerateVerifier()

	if err := f.states.Upsert(state, &PendingState{
		SessionID:    sessionID,
		CodeVerifier: verifier,
		Nonce:        nonce,
		ReturnURL:    returnURL,
		CreatedAt:    f.now(),
	}); err != nil {
		return "", apperrors.Wrapf(err, "[Flow.Begin] store state")
	}

	authURL := cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	)
	logPhase(PhaseRedirecting, PhasePendingCallback, "")
	return authURL, nil
}

// Result is what a successful callback yields.
type Result struct {
	Profile   session.UserProfile
	Tokens    session.TokenSet
	ReturnURL string
}

// Complete consumes the pending state, exchanges code for tokens and
// resolves the user's identity. The state must have been issued to
// sessionID.
func (f *Flow) Complete(ctx context.Context, sessionID, state, code string) (*Result, error) {
	result, err := f.complete(ctx, sessionID, state, code)
	if err != nil {
		logPhase(PhasePendingCallback, PhaseFailed, err.Error())
		return nil, err
	}
	logPhase(PhasePendingCallback, PhaseAuthenticated, "")
	return result, nil
}

// Abort drops the pending state after the provider reported an error.
func (f *Flow) Abort(state, reason string) {
	if state != "" {
		_ = f.states.Delete(state)
	}
	logPhase(PhasePendingCallback, PhaseFailed, reason)
}

func (f *Flow) complete(ctx context.Context, sessionID, state, code string) (*Result, error) {
	pending, err := f.states.Take(state)
	if err != nil {
		return nil, err
	}
	if sessionID == "" || pending.SessionID != sessionID {
		return nil, apperrors.ErrStateSession
	}
	if code == "" {
		return nil, fmt.Errorf("falta el parámetro 'code'")
	}

	cfg, provider, err := f.oauthConfig(ctx)
	if err != nil {
		return nil, err
	}

	ctx = oidc.ClientContext(ctx, f.httpClient)
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(pending.CodeVerifier))
	if err != nil {
		return nil, apperrors.Wrapf(err, "intercambio de código fallido")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperrors.ErrMissingIDToken
	}
	idToken, err := provider.Verifier(&oidc.Config{ClientID: f.clientID, Now: f.now}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.Wrapf(err, "verificación del id_token fallida")
	}
	if idToken.Nonce != pending.Nonce {
		return nil, apperrors.ErrInvalidNonce
	}

	profile, err := f.userInfo(ctx, provider, token, idToken.Subject)
	if apperrors.Is(err, apperrors.ErrSubjectMismatch) {
		return nil, err
	}
	if err != nil {
		log.Warn().Err(err).Msg("userinfo unavailable, using id_token claims")
		profile, err = ProfileFromVerifiedIDToken(idToken, rawIDToken)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Profile: *profile,
		Tokens: session.TokenSet{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.Type(),
			ExpiresAt:    token.Expiry,
		},
		ReturnURL: pending.ReturnURL,
	}, nil
}

// userInfo fetches the profile from the userinfo endpoint. The response must
// describe subject, the user named by the verified ID token.
func (f *Flow) userInfo(ctx context.Context, provider *oidc.Provider, token *oauth2.Token, subject string) (*session.UserProfile, error) {
	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, err
	}
	if info.Subject != subject {
		return nil, apperrors.ErrSubjectMismatch
	}
	var profile session.UserProfile
	if err := info.Claims(&profile); err != nil {
		return nil, err
	}
	if profile.SubjectID == "" {
		profile.SubjectID = info.Subject
	}
	if profile.SubjectID == "" {
		return nil, apperrors.ErrMissingUserClaims
	}
	return &profile, nil
}

// ProfileFromVerifiedIDToken decodes the claims of raw without checking its
// signature. verified must be the result of verifying raw.
func ProfileFromVerifiedIDToken(verified *oidc.IDToken, raw string) (*session.UserProfile, error) {
	if verified == nil {
		return nil, apperrors.ErrUnverifiedIDToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, apperrors.Wrapf(err, "id_token ilegible")
	}

	profile := &session.UserProfile{
		SubjectID:   stringClaim(claims, "sub"),
		DisplayName: stringClaim(claims, "name"),
		Email:       stringClaim(claims, "email"),
		PictureURL:  stringClaim(claims, "picture"),
	}
	if profile.SubjectID == "" || profile.SubjectID != verified.Subject {
		return nil, apperrors.ErrMissingUserClaims
	}
	return profile, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// oauthConfig returns the client configuration, discovering the provider on
// first use. Concurrent first requests share one discovery call.
func (f *Flow) oauthConfig(ctx context.Context) (*oauth2.Config, *oidc.Provider, error) {
	provider, err := f.discover(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &oauth2.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  f.redirectURL,
		Scopes:       f.scopes,
	}, provider, nil
}

func (f *Flow) discover(ctx context.Context) (*oidc.Provider, error) {
	f.mu.RLock()
	provider := f.provider
	f.mu.RUnlock()
	if provider != nil {
		return provider, nil
	}

	v, err, _ := f.discovery.Do(f.issuer, func() (interface{}, error) {
		f.mu.RLock()
		cached := f.provider
		f.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		p, err := oidc.NewProvider(oidc.ClientContext(ctx, f.httpClient), f.issuer)
		if err != nil {
			return nil, apperrors.Wrapf(err, "[Flow.discover] %s", f.issuer)
		}
		f.mu.Lock()
		f.provider = p
		f.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oidc.Provider), nil
}

func logPhase(from, to Phase, reason string) {
	event := log.Info()
	if to == PhaseFailed {
		event = log.Warn().Str("reason", reason)
	}
	event.Str("from", string(from)).Str("to", string(to)).Msg("auth phase")
}

// randomString creates a random base64url string
func randomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
