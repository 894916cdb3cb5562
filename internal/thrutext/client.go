// Package thrutext is a rate-limited client for the ThruText JSON:API.
package thrutext

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GetThruTools/ThruText-API/internal/id"
	"github.com/GetThruTools/ThruText-API/internal/ratelimit"
	"github.com/GetThruTools/ThruText-API/internal/validation"
)

const (
	// ProductionURL is the live API root.
	ProductionURL = "https://api.relaytxt.io/v1"
	// StagingURL is the staging API root.
	StagingURL = "https://api.relaytxt-staging.io/v1"

	// Rate limit per account: 5 requests per second, burst of 10
	defaultRPS   = 5.0
	defaultBurst = 10

	defaultTimeout = 30 * time.Second

	// Transport failures are retried, HTTP error statuses are not. See retryable.
	maxAttempts  = 3
	retryBackoff = 250 * time.Millisecond
)

// Cache persists small documents such as the region list.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Config configures a Client.
type Config struct {
	// AccountName is the subdomain used for admin display URLs.
	AccountName string
	Staging     bool
	// BaseURL overrides the production or staging root.
	BaseURL string
	Timeout time.Duration

	RequestsPerSecond float64
	Burst             int

	// DefaultTimezone applies to campaigns created without one.
	DefaultTimezone string

	// Username and Password are used to log in lazily on the first account call.
	Username string
	Password string

	// Cache stores the region list between runs. Optional.
	Cache Cache
}

// Client is a rate-limited ThruText API client.
type Client struct {
	http     *http.Client
	baseURL  string
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
	cache    Cache
	validate *validation.Validator

	accountName     string
	staging         bool
	defaultTimezone string
	username        string
	password        string

	mu        sync.RWMutex
	token     string
	accountID string

	regionsMu sync.Mutex
	regions   *RegionIndex
}

// New creates a new ThruText client.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ProductionURL
		if cfg.Staging {
			baseURL = StagingURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL:         strings.TrimRight(baseURL, "/"),
		limiter:         ratelimit.New(rps, burst),
		logger:          logger,
		cache:           cfg.Cache,
		validate:        validation.New(),
		accountName:     cfg.AccountName,
		staging:         cfg.Staging,
		defaultTimezone: cfg.DefaultTimezone,
		username:        cfg.Username,
		password:        cfg.Password,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// SetSession installs a token and account number obtained elsewhere.
func (c *Client) SetSession(token, accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.accountID = accountID
}

// AccountID returns the account number of the current session, if any.
func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

// DisplayURL returns the admin page of a resource, e.g. groups/42.
func (c *Client) DisplayURL(resource, resourceID string) string {
	host := ".relaytxt.io"
	if c.staging {
		host = ".relaytxt-staging.io"
	}
	return "https://" + c.accountName + host + "/admin/" + resource + "/" + resourceID
}

// ensureSession logs in with the configured credentials when no session exists.
func (c *Client) ensureSession(ctx context.Context) (string, error) {
	c.mu.RLock()
	accountID := c.accountID
	c.mu.RUnlock()
	if accountID != "" {
		return accountID, nil
	}
	if c.username == "" || c.password == "" {
		return "", ErrNotLoggedIn
	}
	session, err := c.Login(ctx, c.username, c.password)
	if err != nil {
		return "", err
	}
	return session.AccountID, nil
}

// accountPath builds /accounts/{account}/{parts...}, logging in if needed.
func (c *Client) accountPath(ctx context.Context, parts ...string) (string, error) {
	accountID, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "accounts", url.PathEscape(accountID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return "/" + strings.Join(escaped, "/"), nil
}

// doRequest executes one API call with rate limiting and transport retries.
// body, if non-nil, is encoded as JSON.
func (c *Client) doRequest(ctx context.Context, method, path string, params *Params, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	target := c.baseURL + path
	if q := params.Values().Encode(); q != "" {
		target += "?" + q
	}

	c.mu.RLock()
	token, limitKey := c.token, c.accountID
	c.mu.RUnlock()
	if limitKey == "" {
		limitKey = "anonymous"
	}

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx, limitKey); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", MediaType)
		if payload != nil {
			req.Header.Set("Content-Type", MediaType)
		}
		if token != "" {
			req.Header.Set("Authorization", `Token token="`+token+`"`)
		}
		if requestID, ok := id.RequestFrom(ctx); ok {
			req.Header.Set("X-Request-Id", requestID)
		} else if requestID, err := id.Generate(id.PrefixRequest); err == nil {
			req.Header.Set("X-Request-Id", requestID)
		}

		c.logger.Debug("thrutext request",
			"method", method,
			"path", path,
			"attempt", attempt,
		)

		resp, err = c.http.Do(req)
		if err == nil {
			break
		}
		if ctx.Err() != nil || attempt >= maxAttempts || !retryable(method, err) {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		c.logger.Warn("thrutext request failed, retrying", "method", method, "path", path, "attempt", attempt, "error", err)
		if err := sleep(ctx, time.Duration(attempt)*retryBackoff); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("thrutext error response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

// download fetches an absolute URL without API headers, retrying transport failures.
func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err == nil {
			data, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return nil, fmt.Errorf("read response: %w", readErr)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusError(resp.StatusCode, data)
			}
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*retryBackoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("download: %w", lastErr)
}

// retryable reports whether a failed attempt may be sent again. Idempotent
// methods always may. A POST or PATCH only may when the connection was never
// established, since otherwise the server could already have applied it.
func retryable(method string, err error) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
