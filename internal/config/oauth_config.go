package config

import (
	"strings"
	"time"
)

const (
	clientIDKey         = "google_client_id"
	clientSecretKey     = "google_client_secret"
	issuerKey           = "google_issuer"
	scopesKey           = "google_scopes"
	authStateTimeoutKey = "auth_state_timeout"

	// DefaultScope is requested at login and reused, split into individual
	// scopes, whenever a credential is rebuilt from the session.
	DefaultScope = "openid email profile https://www.googleapis.com/auth/calendar https://www.googleapis.com/auth/tasks"

	DefaultIssuer = "https://accounts.google.com"

	// CallbackPath is where the identity provider sends the browser back to.
	CallbackPath = "/login/callback"
)

type OAuth struct {
	ClientID     string
	ClientSecret string
	Issuer       string
	Scope        string
	// AuthStateTimeout bounds how long a login may sit in pending_callback.
	AuthStateTimeout time.Duration
}

// GetScopes returns the space separated scope string as individual scopes.
func (o OAuth) GetScopes() []string {
	return strings.Fields(o.Scope)
}

func (o OAuth) GetAuthStateTimeout() time.Duration {
	if o.AuthStateTimeout <= 0 {
		return 15 * time.Minute
	}
	return o.AuthStateTimeout
}

// IsConfigured reports whether a client registration is present.
func (o OAuth) IsConfigured() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// GetRedirectURL returns the absolute callback URL for baseURL.
func (o OAuth) GetRedirectURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + CallbackPath
}
