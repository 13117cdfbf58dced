// Package ogws provides the client adapter for the upstream OGWS REST
// API: bearer token acquisition and lifecycle, message submission, and
// status retrieval.
package ogws

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/protexis/ogx-gateway/internal/domain/auth"
	"github.com/protexis/ogx-gateway/pkg/ogx"
)

const (
	// maxResponseBodySize bounds upstream response bodies.
	// Prevents OOM from a misbehaving upstream sending unbounded responses.
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB
)

// UpstreamError is a non-2xx response from OGWS.
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ogws returned status %d: %s", e.StatusCode, e.Body)
}

// TokenStore persists the bearer token record across restarts.
type TokenStore interface {
	Load() (*auth.TokenRecord, error)
	Save(record *auth.TokenRecord) error
}

// Client talks to the OGWS REST API. It owns the bearer token
// lifecycle: tokens are acquired with client credentials, persisted
// through the TokenStore, and refreshed per the auth package policy.
// Safe for concurrent use.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	store        TokenStore
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	record *auth.TokenRecord
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout for the HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates an OGWS client for the given API base URL.
func NewClient(baseURL, clientID, clientSecret string, store TokenStore, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetValidToken returns a bearer token, acquiring or refreshing one as
// needed. With forceRefresh the current token is discarded first.
func (c *Client) GetValidToken(ctx context.Context, forceRefresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record == nil {
		// First call after boot: pick up a persisted token.
		record, err := c.store.Load()
		if err != nil {
			c.logger.Warn("failed to load persisted token, acquiring a new one", "error", err)
		} else {
			c.record = record
		}
	}

	now := c.now()
	if !forceRefresh && c.record != nil && !c.record.NeedsRefresh(now) {
		c.record.Touch(now)
		return c.record.Token, nil
	}

	record, err := c.acquireToken(ctx)
	if err != nil {
		return "", err
	}
	c.record = record

	if err := c.store.Save(record); err != nil {
		// A token that only lives in memory still works; losing
		// persistence costs one extra acquisition after restart.
		c.logger.Warn("failed to persist token", "error", err)
	}

	c.logger.Info("acquired new bearer token", "expires_at", record.ExpiresAt)
	return record.Token, nil
}

// GetAuthHeader returns the Authorization header for an OGWS request,
// refreshing the token if needed.
func (c *Client) GetAuthHeader(ctx context.Context) (http.Header, error) {
	token, err := c.GetValidToken(ctx, false)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// ValidateToken reports whether the Authorization header carries the
// current, unexpired bearer token. Each call counts against the
// token's validation budget.
func (c *Client) ValidateToken(headers http.Header) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.record.Valid(now) {
		return false
	}
	c.record.RecordValidation(now)

	presented := strings.TrimPrefix(headers.Get("Authorization"), "Bearer ")
	return presented == c.record.Token
}

// tokenResponse is the OGWS auth endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// acquireToken requests a new bearer token with client credentials.
// Caller holds c.mu.
func (c *Client) acquireToken(ctx context.Context) (*auth.TokenRecord, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	now := c.now()
	return &auth.TokenRecord{
		Token:     tr.AccessToken,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		LastUsed:  now,
	}, nil
}

// submitResponse is the OGWS submit endpoint response.
type submitResponse struct {
	MessageID string `json:"message_id"`
}

// SubmitMessage submits a validated message payload for the given
// destination and returns the OGWS-assigned message ID.
func (c *Client) SubmitMessage(ctx context.Context, destinationID string, payload []byte) (string, error) {
	token, err := c.GetValidToken(ctx, false)
	if err != nil {
		return "", err
	}

	envelope, err := json.Marshal(map[string]any{
		"DestinationID": destinationID,
		"Payload":       json.RawMessage(payload),
	})
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submit/messages", strings.NewReader(string(envelope)))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("submit message: %w", err)
	}

	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("parse submit response: %w", err)
	}
	if sr.MessageID == "" {
		return "", fmt.Errorf("submit response missing message_id")
	}
	return sr.MessageID, nil
}

// statusResponse is the OGWS status endpoint response.
type statusResponse struct {
	State int `json:"state"`
}

// MessageStatus retrieves the delivery state of a submitted message.
func (c *Client) MessageStatus(ctx context.Context, gatewayMessageID string) (ogx.MessageState, error) {
	token, err := c.GetValidToken(ctx, false)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/messages/"+url.PathEscape(gatewayMessageID)+"/status", nil)
	if err != nil {
		return 0, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("message status: %w", err)
	}

	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return 0, fmt.Errorf("parse status response: %w", err)
	}
	return ogx.MessageState(sr.State), nil
}

// do executes the request and returns the body for 2xx responses, or
// an *UpstreamError otherwise. Bodies are read with a size bound.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
