// Package oidctest runs a fake OpenID Connect provider for tests. It serves
// discovery, JWKS, token and userinfo endpoints the way Google does and lets
// a test play the part of the user at the consent screen.
package oidctest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	RouteDiscovery = "/.well-known/openid-configuration"
	RouteAuthorize = "/o/oauth2/v2/auth"
	RouteToken     = "/token"
	RouteUserInfo  = "/v1/userinfo"
	RouteJWKS      = "/oauth2/v3/certs"
)

// Identity is the user who consents at the fake provider.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type grant struct {
	identity      Identity
	nonce         string
	codeChallenge string
	redirectURI   string
}

// Options change how the provider behaves. They must be set before the
// provider's discovery document is first fetched.
type Options struct {
	// WithoutUserInfo omits the userinfo endpoint from discovery.
	WithoutUserInfo bool
	// NoRefreshToken leaves refresh_token out of token responses.
	NoRefreshToken bool
}

// Provider is a running fake identity provider.
type Provider struct {
	ClientID     string
	ClientSecret string

	server *httptest.Server
	keys   *KeyPair
	opts   Options

	mu             sync.Mutex
	codes          map[string]grant
	accessTokens   map[string]Identity
	failUserInfo   bool
	userInfoSub    string
	idTokenIssuer  string
	tokenCalls     int
	userInfoCalls  int
	discoveryCalls int
}

func NewProvider(clientID, clientSecret string, opts Options) (*Provider, error) {
	keys, err := GenerateRSAKeyPair("test-key")
	if err != nil {
		return nil, err
	}
	p := &Provider{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		keys:         keys,
		opts:         opts,
		codes:        make(map[string]grant),
		accessTokens: make(map[string]Identity),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+RouteDiscovery, p.discovery)
	mux.HandleFunc("GET "+RouteJWKS, p.jwks)
	mux.HandleFunc("POST "+RouteToken, p.token)
	mux.HandleFunc("GET "+RouteUserInfo, p.userInfo)
	p.server = httptest.NewServer(mux)
	return p, nil
}

// URL is the issuer URL.
func (p *Provider) URL() string {
	return p.server.URL
}

func (p *Provider) Client() *http.Client {
	return p.server.Client()
}

func (p *Provider) Close() {
	p.server.Close()
}

// FailUserInfo makes the userinfo endpoint answer 500.
func (p *Provider) FailUserInfo(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failUserInfo = fail
}

// ServeUserInfoAs overrides the sub claim returned by the userinfo endpoint.
func (p *Provider) ServeUserInfoAs(subject string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoSub = subject
}

// IssueIDTokensAs overrides the iss claim of future ID tokens.
func (p *Provider) IssueIDTokensAs(issuer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenIssuer = issuer
}

func (p *Provider) Calls() (discovery, token, userInfo int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discoveryCalls, p.tokenCalls, p.userInfoCalls
}

// Consent plays the user approving the request in authURL. It returns the
// code and state the provider would send to the callback.
func (p *Provider) Consent(authURL string, who Identity) (code, state string, err error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", "", err
	}
	q := u.Query()
	if q.Get("client_id") != p.ClientID {
		return "", "", fmt.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		return "", "", fmt.Errorf("unexpected response_type %q", q.Get("response_type"))
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		return "", "", errors.New("missing S256 code challenge")
	}

	code = uuid.NewString()
	p.mu.Lock()
	p.codes[code] = grant{
		identity:      who,
		nonce:         q.Get("nonce"),
		codeChallenge: q.Get("code_challenge"),
		redirectURI:   q.Get("redirect_uri"),
	}
	p.mu.Unlock()
	return code, q.Get("state"), nil
}

func (p *Provider) discovery(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.discoveryCalls++
	p.mu.Unlock()

	base := p.server.URL
	resp := map[string]any{
		"issuer":                                base,
		"authorization_endpoint":                base + RouteAuthorize,
		"token_endpoint":                        base + RouteToken,
		"jwks_uri":                              base + RouteJWKS,
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{RS256},
		"code_challenge_methods_supported":      []string{"S256", "plain"},
		"token_endpoint_auth_methods_supported": []string{"client_secret_post", "client_secret_basic"},
	}
	if !p.opts.WithoutUserInfo {
		resp["userinfo_endpoint"] = base + RouteUserInfo
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p *Provider) jwks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.keys.JWKS())
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if clientID != p.ClientID || clientSecret != p.ClientSecret {
		writeError(w, "invalid_client", "unknown client", http.StatusUnauthorized)
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeError(w, "unsupported_grant_type", r.PostForm.Get("grant_type"), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.tokenCalls++
	g, found := p.codes[r.PostForm.Get("code")]
	delete(p.codes, r.PostForm.Get("code"))
	issuer := p.idTokenIssuer
	p.mu.Unlock()

	if !found {
		writeError(w, "invalid_grant", "unknown code", http.StatusBadRequest)
		return
	}
	if g.redirectURI != r.PostForm.Get("redirect_uri") {
		writeError(w, "invalid_grant", "redirect_uri mismatch", http.StatusBadRequest)
		return
	}
	if !checkCodeChallenge(g.codeChallenge, r.PostForm.Get("code_verifier")) {
		writeError(w, "invalid_grant", "code_verifier mismatch", http.StatusBadRequest)
		return
	}

	if issuer == "" {
		issuer = p.server.URL
	}
	now := time.Now()
	idToken, err := p.keys.Sign(jwt.MapClaims{
		"iss":     issuer,
		"aud":     p.ClientID,
		"sub":     g.identity.Subject,
		"email":   g.identity.Email,
		"name":    g.identity.Name,
		"picture": g.identity.Picture,
		"nonce":   g.nonce,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	if err != nil {
		writeError(w, "server_error", err.Error(), http.StatusInternalServerError)
		return
	}

	accessToken := "ya29." + uuid.NewString()
	p.mu.Lock()
	p.accessTokens[accessToken] = g.identity
	p.mu.Unlock()

	resp := TokenResponse{
		AccessToken: accessToken,
		IDToken:     idToken,
		TokenType:   "Bearer",
		ExpiresIn:   3599,
		Scope:       "openid email profile",
	}
	if !p.opts.NoRefreshToken {
		resp.RefreshToken = "1//" + uuid.NewString()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p *Provider) userInfo(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.userInfoCalls++
	fail := p.failUserInfo
	p.mu.Unlock()

	if fail {
		writeError(w, "server_error", "userinfo unavailable", http.StatusInternalServerError)
		return
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		writeError(w, "invalid_token", "Invalid Authorization header format", http.StatusUnauthorized)
		return
	}

	p.mu.Lock()
	who, ok := p.accessTokens[parts[1]]
	if p.userInfoSub != "" {
		who.Subject = p.userInfoSub
	}
	p.mu.Unlock()
	if !ok {
		writeError(w, "invalid_token", "unknown access token", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, who)
}

func checkCodeChallenge(challenge, verifier string) bool {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:]) == challenge
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
