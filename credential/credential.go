// Package credential rebuilds a usable OAuth2 credential from the token set
// kept in a session. Live credentials are request scoped and never stored.
package credential

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/session"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNotAuthenticated is returned when there is no token set to rebuild from.
var ErrNotAuthenticated = apperrors.NotAuthenticated("No autenticado")

// ClientIdentity is the static client registration shared by every request.
type ClientIdentity struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// IdentityFromConfig builds the client identity from the OAuth section of
// the configuration, using Google's token endpoint.
func IdentityFromConfig(c config.OAuth) ClientIdentity {
	return ClientIdentity{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     google.Endpoint.TokenURL,
		Scopes:       c.GetScopes(),
	}
}

// Live is a credential rebuilt for one request.
type Live struct {
	config *oauth2.Config
	token  *oauth2.Token
}

// Reconstruct rebuilds a live credential from tokens. It fails with
// ErrNotAuthenticated when tokens is nil.
func Reconstruct(tokens *session.TokenSet, id ClientIdentity) (*Live, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	return &Live{
		config: &oauth2.Config{
			ClientID:     id.ClientID,
			ClientSecret: id.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  id.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: append([]string(nil), id.Scopes...),
		},
		token: &oauth2.Token{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			TokenType:    tokens.TokenType,
			Expiry:       tokens.ExpiresAt,
		},
	}, nil
}

// Scopes returns the scopes the credential was granted for.
func (l *Live) Scopes() []string {
	return append([]string(nil), l.config.Scopes...)
}

// ClientID returns the client the credential belongs to.
func (l *Live) ClientID() string {
	return l.config.ClientID
}

// Token returns a copy of the underlying token.
func (l *Live) Token() *oauth2.Token {
	t := *l.token
	return &t
}

// TokenSource returns the source used to authorize outgoing calls. With a
// refresh token the oauth2 library refreshes expired tokens itself; without
// one the stored access token is sent as is and a stale token is rejected by
// the downstream API.
func (l *Live) TokenSource(ctx context.Context) oauth2.TokenSource {
	if l.token.RefreshToken == "" {
		return oauth2.StaticTokenSource(l.Token())
	}
	return l.config.TokenSource(ctx, l.Token())
}

// HTTPClient returns a client that attaches the bearer token to every call.
// base supplies the transport and timeout; refresh calls go through it too.
func (l *Live) HTTPClient(ctx context.Context, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, l.TokenSource(ctx))
	client.Timeout = base.Timeout
	return client
}
