package paperless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jpalmerr/paperless/internal/metrics"
	"github.com/jpalmerr/paperless/internal/poller"
)

var (
	// ErrInvalidAuth indicates the server rejected the credentials or answered
	// with something other than a JSON token.
	ErrInvalidAuth = errors.New("invalid authentication")

	// ErrCannotConnect indicates the server could not be reached or answered
	// with an unexpected status code.
	ErrCannotConnect = errors.New("cannot connect")
)

// auth attempt outcomes used as metric labels
const (
	authResultSuccess       = "success"
	authResultInvalidAuth   = "invalid_auth"
	authResultCannotConnect = "cannot_connect"
)

// Authenticator exchanges a username and password for an API token.
type Authenticator struct {
	client   *poller.Client
	logger   *slog.Logger
	timeout  time.Duration
	recorder *metrics.Recorder
}

// NewAuthenticator creates an [Authenticator].
func NewAuthenticator(opts ...ClientOption) *Authenticator {
	cfg, client := newClientConfig(opts)
	return &Authenticator{
		client:   client,
		logger:   cfg.logger,
		timeout:  cfg.timeout,
		recorder: cfg.recorder,
	}
}

// Authenticate posts the credentials to /api/token/ and returns the token.
//
// Exactly one request is made. Outcomes are checked in order:
//   - 403: [ErrInvalidAuth]
//   - any other non-200 status, or no response at all: [ErrCannotConnect]
//   - Content-Type other than exactly "application/json": [ErrInvalidAuth]
//   - body that is not JSON or has no "token": [ErrInvalidAuth]
//
// Returned errors wrap one of the two sentinels; match with errors.Is.
func (a *Authenticator) Authenticate(ctx context.Context, c Credentials) (string, error) {
	tokenURL := apiBaseURL(c.Host, c.Port, c.UseTLS) + "/token/"
	form := url.Values{"username": {c.Username}, "password": {c.Password}}

	resp := a.client.Do(ctx, poller.Request{
		Method: http.MethodPost,
		URL:    tokenURL,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body:    form.Encode(),
		Timeout: a.timeout,
	})

	token, err := a.interpret(tokenURL, resp)
	switch {
	case err == nil:
		a.recorder.IncAuthAttempt(authResultSuccess)
	case errors.Is(err, ErrInvalidAuth):
		a.recorder.IncAuthAttempt(authResultInvalidAuth)
	default:
		a.recorder.IncAuthAttempt(authResultCannotConnect)
	}
	return token, err
}

func (a *Authenticator) interpret(tokenURL string, resp poller.Response) (string, error) {
	if resp.Error != nil {
		a.logger.Debug("token request failed", "url", tokenURL, "error", resp.Error)
		return "", fmt.Errorf("%w: %w", ErrCannotConnect, resp.Error)
	}

	if resp.StatusCode == http.StatusForbidden {
		a.logger.Debug("token request rejected, probably invalid credentials",
			"url", tokenURL, "status_code", resp.StatusCode, "headers", resp.Header)
		return "", fmt.Errorf("%w: server answered 403", ErrInvalidAuth)
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Debug("unexpected token response status",
			"url", tokenURL, "status_code", resp.StatusCode, "headers", resp.Header)
		return "", fmt.Errorf("%w: expected 200, got %d", ErrCannotConnect, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		a.logger.Debug("unexpected token response content type", "url", tokenURL, "content_type", ct)
		return "", fmt.Errorf("%w: expected content type application/json, got %q", ErrInvalidAuth, ct)
	}

	var body struct {
		Token *string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("%w: decode token response: %w", ErrInvalidAuth, err)
	}
	if body.Token == nil || *body.Token == "" {
		return "", fmt.Errorf("%w: token response has no token", ErrInvalidAuth)
	}

	a.logger.Debug("received API token", "url", tokenURL)
	return *body.Token, nil
}

// Close releases idle connections.
func (a *Authenticator) Close() {
	a.client.Close()
}

// UserInput is the data submitted to the setup form.
type UserInput struct {
	Host     string
	Port     string
	SSL      bool
	Username string
	Password string
	TodoTag  string
}

// Credentials returns the authentication part of the input.
func (in UserInput) Credentials() Credentials {
	return Credentials{
		Host:     in.Host,
		Port:     in.Port,
		UseTLS:   in.SSL,
		Username: in.Username,
		Password: in.Password,
	}
}

// SetupInfo is what a successful validation hands back for persisting.
type SetupInfo struct {
	Title   string
	Token   string
	TodoTag string
}

// ValidateInput authenticates with the submitted credentials and returns the
// entry title ("Paperless-NG {host}:{port}"), the token and the to-do tag.
func ValidateInput(ctx context.Context, auth *Authenticator, in UserInput) (SetupInfo, error) {
	token, err := auth.Authenticate(ctx, in.Credentials())
	if err != nil {
		return SetupInfo{}, err
	}
	return SetupInfo{
		Title:   fmt.Sprintf("Paperless-NG %s:%s", in.Host, in.Port),
		Token:   token,
		TodoTag: in.TodoTag,
	}, nil
}
