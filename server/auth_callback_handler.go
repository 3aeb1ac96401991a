package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-assistant-gateway/session"
	"github.com/rs/zerolog"
)

// LoginHandler starts the authorization code flow for the session of the
// request and redirects the browser to the identity provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if store, ok := session.FromContext(r.Context()); ok {
			sessionID = store.ID()
		}
		authURL, err := s.flow.Begin(r.Context(), sessionID, safeReturnURL(r.URL.Query().Get("return_url")))
		if err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to start login")
			http.Error(w, fmt.Sprintf("Error en autenticación: %v", err), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the login started by the same session. On
// success the profile and token set are written in one step to a new session
// that replaces the pre-login one.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")

		if errorParam := r.FormValue("error"); errorParam != "" {
			reason := errorParam
			if desc := r.FormValue("error_description"); desc != "" {
				reason = errorParam + " - " + desc
			}
			s.flow.Abort(state, reason)
			authFailed(w, reason)
			return
		}

		store, ok := session.FromContext(r.Context())
		if !ok {
			authFailed(w, "sesión no disponible")
			return
		}

		result, err := s.flow.Complete(r.Context(), store.ID(), state, code)
		if err != nil {
			authFailed(w, err.Error())
			return
		}

		if _, err := s.sessions.Rotate(w, r, result.Profile, result.Tokens); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to store credentials")
			authFailed(w, err.Error())
			return
		}

		zerolog.Ctx(r.Context()).Info().
			Str("sub", result.Profile.SubjectID).
			Bool("refresh_token", result.Tokens.HasRefreshToken()).
			Msg("User logged in")
		http.Redirect(w, r, safeReturnURL(result.ReturnURL), http.StatusFound)
	}
}

// LogoutHandler destroys the session and goes back to the landing page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.Destroy(w, r); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to destroy session")
		}
		http.Redirect(w, r, RouteIndex, http.StatusFound)
	}
}

func authFailed(w http.ResponseWriter, reason string) {
	http.Error(w, "Error en autenticación: "+reason, http.StatusBadRequest)
}

// safeReturnURL only allows local absolute paths, anything else becomes "/".
func safeReturnURL(u string) string {
	if !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return RouteIndex
	}
	return u
}
