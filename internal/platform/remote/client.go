package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// TokenProvider supplies the bearer token for the remote backend.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// Envelope is the wrapper every backend response uses.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// RejectedError is a response the backend understood and refused.
type RejectedError struct {
	Path    string
	Status  int
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote %s rejected (status %d, code %d): %s", e.Path, e.Status, e.Code, e.Message)
}

// Client posts local records to the remote HealthSense backend.
type Client struct {
	http   *resty.Client
	tokens TokenProvider
	log    zerolog.Logger
}

func NewClient(cfg Config, tokens TokenProvider, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		tokens: tokens,
		log:    log.With().Str("component", "remote").Logger(),
	}
}

func (c *Client) RegisterPatient(ctx context.Context, req PatientRequest) (*Envelope, error) {
	return c.post(ctx, "/patients/register", req)
}

func (c *Client) AddVitals(ctx context.Context, req VitalsRequest) (*Envelope, error) {
	return c.post(ctx, "/vitals/add", req)
}

func (c *Client) AddGeneralVisit(ctx context.Context, req GeneralVisitRequest) (*Envelope, error) {
	return c.post(ctx, "/visits/add", req)
}

func (c *Client) AddOverweightVisit(ctx context.Context, req OverweightVisitRequest) (*Envelope, error) {
	return c.post(ctx, "/visits/add", req)
}

// post sends body with a bearer token. A 401 drops the cached token and the
// request is sent once more with a fresh one.
func (c *Client) post(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	env, status, err := c.send(ctx, path, body)
	if err == nil && status == http.StatusUnauthorized {
		c.log.Info().Str("path", path).Msg("token rejected, signing in again")
		c.tokens.Invalidate()
		env, status, err = c.send(ctx, path, body)
	}
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest || !env.Success {
		return nil, &RejectedError{Path: path, Status: status, Code: env.Code, Message: env.Message}
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, path string, body interface{}) (*Envelope, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("remote %s: obtain token: %w", path, err)
	}

	var env Envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&env).
		SetError(&env).
		Post(path)
	if err != nil {
		return nil, 0, fmt.Errorf("remote %s: %w", path, err)
	}
	if env.Message == "" && resp.IsError() {
		env.Message = http.StatusText(resp.StatusCode())
	}
	return &env, resp.StatusCode(), nil
}

// IsRejected reports whether err is a refusal from the backend rather than a
// transport failure.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
