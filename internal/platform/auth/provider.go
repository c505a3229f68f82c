package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
)

// ProviderError is a rejection from the identity provider that has no dedicated
// sentinel, e.g. WEAK_PASSWORD or TOO_MANY_ATTEMPTS_TRY_LATER.
type ProviderError struct {
	Status int
	Code   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider rejected request (%d): %s", e.Status, e.Code)
}

// Session is a signed-in user as returned by the identity provider.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Authenticator signs users in with email and password.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
}

type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ProviderClient talks to an Identity Toolkit compatible REST API. Every call
// resolves exactly once: with a session, a provider rejection or a transport
// error (including the timeout).
type ProviderClient struct {
	http   *resty.Client
	apiKey string
	now    func() time.Time
}

func NewProviderClient(cfg ProviderConfig) *ProviderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProviderClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey: cfg.APIKey,
		now:    time.Now,
	}
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type tokenResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *ProviderClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return p.call(ctx, "/accounts:signInWithPassword", email, password)
}

func (p *ProviderClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return p.call(ctx, "/accounts:signUp", email, password)
}

func (p *ProviderClient) call(ctx context.Context, path, email, password string) (*Session, error) {
	var out tokenResponse
	var apiErr errorResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(credentialsRequest{Email: email, Password: password, ReturnSecureToken: true}).
		SetResult(&out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("identity provider %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, classifyProviderError(resp.StatusCode(), apiErr.Error.Message)
	}

	ttl, err := strconv.Atoi(out.ExpiresIn)
	if err != nil {
		ttl = 3600
	}
	return &Session{
		UserID:       out.LocalID,
		Email:        out.Email,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    p.now().Add(time.Duration(ttl) * time.Second),
	}, nil
}

func classifyProviderError(status int, message string) error {
	// Messages may carry a detail suffix: "WEAK_PASSWORD : Password should be ..."
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return ErrEmailExists
	}
	if code == "" {
		code = "UNKNOWN"
	}
	return &ProviderError{Status: status, Code: code}
}
