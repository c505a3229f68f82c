package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeIdentityProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("key") != "api-key" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API_KEY_INVALID"}}`))
			return
		}
		var body credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.ReturnSecureToken {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch {
		case r.URL.Path == "/v1/accounts:signInWithPassword" && body.Password == "correct-horse":
			_, _ = w.Write([]byte(`{"localId":"uid-1","email":"` + body.Email + `","idToken":"id-token","refreshToken":"refresh","expiresIn":"3600"}`))
		case r.URL.Path == "/v1/accounts:signInWithPassword":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
		case r.URL.Path == "/v1/accounts:signUp" && body.Email == "taken@clinic.test":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"EMAIL_EXISTS"}}`))
		case r.URL.Path == "/v1/accounts:signUp" && len(body.Password) < 8:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"WEAK_PASSWORD : Password should be at least 8 characters"}}`))
		case r.URL.Path == "/v1/accounts:signUp":
			_, _ = w.Write([]byte(`{"localId":"uid-2","email":"` + body.Email + `","idToken":"new-token","refreshToken":"r2","expiresIn":"60"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server, now time.Time) *ProviderClient {
	p := NewProviderClient(ProviderConfig{BaseURL: srv.URL + "/v1/", APIKey: "api-key", Timeout: 2 * time.Second})
	p.now = func() time.Time { return now }
	return p
}

func TestProviderClient_SignIn(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	p := newTestProvider(fakeIdentityProvider(t), now)

	s, err := p.SignIn(context.Background(), "nurse@clinic.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", s.UserID)
	assert.Equal(t, "nurse@clinic.test", s.Email)
	assert.Equal(t, "id-token", s.IDToken)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)

	_, err = p.SignIn(context.Background(), "nurse@clinic.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProviderClient_SignUp(t *testing.T) {
	p := newTestProvider(fakeIdentityProvider(t), time.Now())

	s, err := p.SignUp(context.Background(), "new@clinic.test", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, "uid-2", s.UserID)

	_, err = p.SignUp(context.Background(), "taken@clinic.test", "long-enough")
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = p.SignUp(context.Background(), "new@clinic.test", "short")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "WEAK_PASSWORD", pe.Code)
	assert.Equal(t, http.StatusBadRequest, pe.Status)
}

func TestProviderClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := NewProviderClient(ProviderConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := p.SignIn(context.Background(), "a@b.test", "secret1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

type countingAuthenticator struct {
	calls   int
	expires time.Time
	err     error
}

func (c *countingAuthenticator) SignIn(_ context.Context, email, _ string) (*Session, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Session{Email: email, IDToken: "token-" + string(rune('0'+c.calls)), ExpiresAt: c.expires}, nil
}

func (c *countingAuthenticator) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.SignIn(ctx, email, password)
}

func TestTokenSource_CachesUntilNearExpiry(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	fake := &countingAuthenticator{expires: now.Add(10 * time.Minute)}
	ts := NewTokenSource(fake, "sync@clinic.test", "pw")
	ts.now = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)
	assert.Equal(t, 1, fake.calls)

	// Inside the refresh window the session is renewed.
	ts.now = func() time.Time { return now.Add(9*time.Minute + 30*time.Second) }
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)

	ts.Invalidate()
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestTokenSource_PropagatesError(t *testing.T) {
	ts := NewTokenSource(&countingAuthenticator{err: ErrInvalidCredentials}, "a", "b")
	_, err := ts.Token(context.Background())
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
