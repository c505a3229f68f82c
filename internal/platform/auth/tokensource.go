package auth

import (
	"context"
	"sync"
	"time"
)

// TokenSource hands out an ID token for a fixed service account, signing in again
// shortly before the cached session expires.
type TokenSource struct {
	mu       sync.Mutex
	auth     Authenticator
	email    string
	password string
	skew     time.Duration
	now      func() time.Time
	session  *Session
}

func NewTokenSource(a Authenticator, email, password string) *TokenSource {
	return &TokenSource{
		auth:     a,
		email:    email,
		password: password,
		skew:     time.Minute,
		now:      time.Now,
	}
}

func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil && t.now().Add(t.skew).Before(t.session.ExpiresAt) {
		return t.session.IDToken, nil
	}

	s, err := t.auth.SignIn(ctx, t.email, t.password)
	if err != nil {
		return "", err
	}
	t.session = s
	return s.IDToken, nil
}

// Invalidate drops the cached session, e.g. after the remote answered 401.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.session = nil
	t.mu.Unlock()
}
