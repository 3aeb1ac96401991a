package config

import "time"

const (
	sessionSecretKey       = "session_secret"
	sessionMaxAgeKey       = "session_max_age"
	sessionCookieSecureKey = "session_cookie_secure"
)

type Session struct {
	Secret       string
	MaxAge       time.Duration
	CookieSecure bool
	// Ephemeral is set when Secret was generated at start up; sessions will
	// not survive a restart.
	Ephemeral bool
}

func (s Session) GetMaxSessionAge() time.Duration {
	if s.MaxAge <= 0 {
		return 24 * time.Hour
	}
	return s.MaxAge
}
