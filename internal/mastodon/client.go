// Package mastodon is a small client for the parts of the Mastodon REST API
// the bot needs: application registration, the OAuth2 out-of-band code
// exchange and status publishing.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"github.com/abdulachik/doomsayer/internal/state"
)

const (
	// OutOfBandRedirect asks the instance to display the authorization code
	// instead of redirecting.
	OutOfBandRedirect = "urn:ietf:wg:oauth:2.0:oob"

	// ScopeWrite grants permission to publish statuses.
	ScopeWrite = "write"

	// DefaultTimeout bounds every HTTP request.
	DefaultTimeout = 30 * time.Second
)

// Client talks to Mastodon instances.
type Client struct {
	httpClient *http.Client
}

// Config holds configuration for the client.
type Config struct {
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Its Timeout is replaced
	// by Timeout when that is set.
	HTTPClient *http.Client
}

// New creates a new client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clone := *hc
	clone.Timeout = timeout

	return &Client{httpClient: &clone}
}

// APIError is returned when the instance answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mastodon api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("mastodon api error (status %d): %s", e.StatusCode, e.Message)
}

// Status is a published status.
type Status struct {
	ID        string    `json:"id"`
	URI       string    `json:"uri"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// PostStatus publishes text as a new status using cred.
// The idempotency key is sent as the Idempotency-Key header when non-empty.
func (c *Client) PostStatus(ctx context.Context, cred state.Credential, text, idempotencyKey string) (*Status, error) {
	form := url.Values{"status": {text}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint(cred.Base, "/api/v1/statuses"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	var status Status
	if err := c.do(c.authorized(ctx, cred), req, &status); err != nil {
		return nil, err
	}

	slog.Debug("published status", "id", status.ID, "uri", status.URI)

	return &status, nil
}

// VerifyCredentials checks that cred is accepted by its instance and returns
// the registered application name.
func (c *Client) VerifyCredentials(ctx context.Context, cred state.Credential) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint(cred.Base, "/api/v1/apps/verify_credentials"), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var app struct {
		Name string `json:"name"`
	}
	if err := c.do(c.authorized(ctx, cred), req, &app); err != nil {
		return "", err
	}

	return app.Name, nil
}

// authorized returns an http.Client that attaches cred's bearer token.
func (c *Client) authorized(ctx context.Context, cred state.Credential) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
	})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = c.httpClient.Timeout
	return hc
}

// do sends req and decodes a JSON response into out.
func (c *Client) do(hc *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	return nil
}

// maxErrorMessage caps the bytes of a response body kept in an APIError.
const maxErrorMessage = 512

func newAPIError(code int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if len(msg) > maxErrorMessage {
		n := maxErrorMessage
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return &APIError{StatusCode: code, Message: msg}
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
