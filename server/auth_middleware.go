package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-assistant-gateway/credential"
	"github.com/jrsteele09/go-assistant-gateway/session"
)

type credentialKey struct{}

// RequireCredentials rebuilds the live credential of the session and attaches
// it to the request context. Requests without a token set are answered with
// 401 before the handler runs, so no downstream call is made.
func (s *Server) RequireCredentials(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tokens *session.TokenSet
		if store, ok := session.FromContext(r.Context()); ok {
			tokens = store.Tokens()
		}

		live, err := credential.Reconstruct(tokens, s.identity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), credentialKey{}, live)))
	}
}

// credentialFromContext returns the credential attached by RequireCredentials.
func credentialFromContext(ctx context.Context) (*credential.Live, error) {
	live, ok := ctx.Value(credentialKey{}).(*credential.Live)
	if !ok || live == nil {
		return nil, credential.ErrNotAuthenticated
	}
	return live, nil
}
