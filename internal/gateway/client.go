// Package gateway is the application's client for the taskboard gateway: auth,
// table reads and writes, object storage and change-event subscriptions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("gateway: not found")
	ErrUnauthorized = errors.New("gateway: unauthorized")
	ErrConflict     = errors.New("gateway: conflict")
	ErrNoSession    = errors.New("gateway: no active session")
)

// Error is a non-2xx answer from the gateway.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: status %d", e.Status)
	}
	return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
}

// Is maps HTTP statuses onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// Client talks to one gateway. It keeps the signed-in session in memory and
// is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *zap.Logger

	mu        sync.RWMutex
	session   *Session
	listeners map[int]AuthListener
	nextID    int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for REST calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds every REST call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the gateway at baseURL using the public apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{},
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:       zap.NewNop(),
		listeners: make(map[int]AuthListener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// doJSON sends body as JSON and decodes a JSON answer into out when out is
// not nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	return c.do(ctx, method, path, "application/json", reader, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Error
		}
		c.log.Debug("gateway call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
