package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	cookieKeyLength = 32
	cookieKeyInfo   = "gateway session cookie v1"
)

// CookieSigner signs and verifies session cookie values. A value is an HS256
// JWT whose jti is the session id.
type CookieSigner struct {
	key []byte
}

// NewCookieSigner derives the signing key from secret.
func NewCookieSigner(secret string) (*CookieSigner, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	h := hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo))
	key := make([]byte, cookieKeyLength)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("reading from HKDF: %w", err)
	}
	return &CookieSigner{key: key}, nil
}

// Sign returns the cookie value for sessionID.
func (s *CookieSigner) Sign(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks the signature and expiry of value and returns the session id.
func (s *CookieSigner) Verify(value string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("invalid session cookie: %w", err)
	}
	if claims.ID == "" {
		return "", errors.New("invalid session cookie: missing session id")
	}
	return claims.ID, nil
}
