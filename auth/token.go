// Package auth bridges the external session/auth collaborator: it holds
// the access token handed over at login and peeks at its claims.
package auth

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"lovewire/errors"
)

// StaticTokenSource wraps a token granted by the auth collaborator.
// SetToken rotates it on refresh; setting it empty disables all connection
// attempts on both channels.
type StaticTokenSource struct {
	mu    sync.RWMutex
	token string
}

func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *StaticTokenSource) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// UserID extracts the user_id claim without verifying the signature. The
// token is minted and validated server-side; the client only needs its own
// identity for presence lookups.
func UserID(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.ErrMissingUserClaim
	}
	return id, nil
}
