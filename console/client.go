// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/belfast-foundation/belfast-console/lib/clock"
	"github.com/belfast-foundation/belfast-console/lib/netutil"
	"github.com/belfast-foundation/belfast-console/lib/version"
)

// CSRFHeader carries the CSRF token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// RequestIDHeader correlates a request with server logs.
const RequestIDHeader = "X-Request-ID"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root including its version prefix, e.g.
	// "https://game.example.net/api/v1".
	BaseURL string

	// HTTPClient is used for all requests. If nil, a new client is
	// created. Its Jar is replaced unless it already has one.
	HTTPClient *http.Client

	// Timeout bounds each attempt. Zero means no client-side timeout.
	Timeout time.Duration

	// Retries is how many extra attempts a GET or HEAD gets after a
	// retryable failure. Mutations are sent exactly once.
	Retries int

	// RetryBackoff is the wait before the first retry; it grows
	// linearly. Defaults to 250ms.
	RetryBackoff time.Duration

	// Clock drives retry backoff. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks to one admin API. Safe for concurrent use.
type Client struct {
	baseURL      string
	cookieURL    *url.URL
	httpClient   *http.Client
	jar          *resettableJar
	timeout      time.Duration
	retries      int
	retryBackoff time.Duration
	clock        clock.Clock
	logger       *slog.Logger

	mu             sync.RWMutex
	csrfToken      string
	onUnauthorized func(path string)
}

// NewClient creates a Client for config.BaseURL.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("console: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("console: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("console: BaseURL %q must be http or https", config.BaseURL)
	}
	if config.Retries < 0 {
		return nil, fmt.Errorf("console: Retries must not be negative, got %d", config.Retries)
	}

	var httpClient http.Client
	if config.HTTPClient != nil {
		httpClient = *config.HTTPClient
	}
	var ownJar *resettableJar
	if httpClient.Jar == nil {
		jar, err := newCookieJar()
		if err != nil {
			return nil, fmt.Errorf("console: creating cookie jar: %w", err)
		}
		ownJar = &resettableJar{jar: jar}
		httpClient.Jar = ownJar
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	cookieURL, _ := url.Parse(baseURL + "/")

	client := &Client{
		baseURL:      baseURL,
		cookieURL:    cookieURL,
		httpClient:   &httpClient,
		jar:          ownJar,
		timeout:      config.Timeout,
		retries:      config.Retries,
		retryBackoff: config.RetryBackoff,
		clock:        config.Clock,
		logger:       config.Logger,
	}
	if client.retryBackoff <= 0 {
		client.retryBackoff = 250 * time.Millisecond
	}
	if client.clock == nil {
		client.clock = clock.Real()
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	return client, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Origin returns the scheme and host of the API, the WebAuthn origin
// for ceremonies against it.
func (c *Client) Origin() string {
	return c.cookieURL.Scheme + "://" + c.cookieURL.Host
}

// SetCSRFToken installs the token sent on mutating requests. An empty
// token stops sending the header.
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrfToken = token
}

// CSRFToken returns the current token, or "".
func (c *Client) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrfToken
}

// OnUnauthorized installs a hook called with the request path whenever
// a non-authentication endpoint answers 401. The hook runs on the
// requesting goroutine before the error is returned.
func (c *Client) OnUnauthorized(hook func(path string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = hook
}

// Cookies returns the cookies the jar would send to the API.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.cookieURL)
}

// SetCookies loads cookies, typically from a saved session, into the
// jar for the API.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.httpClient.Jar.SetCookies(c.cookieURL, cookies)
}

// ClearCookies forgets every cookie the jar holds for the API. A jar
// supplied through ClientConfig.HTTPClient is sent expiries for each
// path from the API root up to "/"; cookies scoped to a parent domain
// of such a jar survive.
func (c *Client) ClearCookies() {
	if c.jar != nil {
		c.jar.reset()
		return
	}
	cookies := c.Cookies()
	if len(cookies) == 0 {
		return
	}
	for _, path := range cookiePaths(c.cookieURL.Path) {
		expired := make([]*http.Cookie, 0, len(cookies))
		for _, cookie := range cookies {
			expired = append(expired, &http.Cookie{Name: cookie.Name, Path: path, MaxAge: -1})
		}
		c.httpClient.Jar.SetCookies(c.cookieURL, expired)
	}
}

// cookiePaths lists "/" and every prefix of path ending at a segment
// boundary, with and without the trailing slash.
func cookiePaths(path string) []string {
	path = strings.TrimRight(path, "/") + "/"
	paths := []string{"/"}
	for index := 1; index < len(path); index++ {
		if path[index] == '/' {
			paths = append(paths, path[:index], path[:index+1])
		}
	}
	return paths
}

func newCookieJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// resettableJar is a cookie jar that can be emptied while requests
// are in flight.
type resettableJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *resettableJar) reset() {
	// cookiejar.New never fails.
	jar, _ := newCookieJar()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = jar
}

// CloseIdleConnections drops pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func isIdempotentRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// isAuthRoute reports whether a 401 from path is an answer about
// credentials, or comes from a call whose caller handles the 401
// itself, rather than a sign that the held session died.
func isAuthRoute(path string) bool {
	switch path {
	case "/auth/login", "/auth/logout", "/auth/session", "/auth/password/change":
		return true
	}
	return strings.HasPrefix(path, "/auth/bootstrap") ||
		strings.HasPrefix(path, "/auth/passkeys/authenticate/") ||
		strings.HasPrefix(path, "/user/auth/") ||
		strings.HasPrefix(path, "/registration/")
}

// rawResponse is a successful HTTP exchange before envelope decoding.
type rawResponse struct {
	status int
	body   []byte
}

// doRequest sends one logical request, retrying idempotent reads on
// transient failures. requestBody is JSON-encoded when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any) (*rawResponse, error) {
	var encoded []byte
	if requestBody != nil {
		var err error
		encoded, err = json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("console: encoding %s %s body: %w", method, path, err)
		}
	}

	requestID := uuid.NewString()
	attempts := 1
	if isIdempotentRead(method) {
		attempts += c.retries
	}

	var lastErr *APIError
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * c.retryBackoff
			c.logger.Debug("retrying request",
				"method", method, "path", path, "attempt", attempt,
				"wait", wait, "request_id", requestID, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-c.clock.After(wait):
			}
		}

		response, apiErr := c.attempt(ctx, method, path, encoded, requestID)
		if apiErr == nil {
			return response, nil
		}
		lastErr = apiErr
		if !apiErr.Retryable() || ctx.Err() != nil {
			break
		}
	}

	if lastErr.StatusCode == http.StatusUnauthorized && !isAuthRoute(path) {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook(path)
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, encoded []byte, requestID string) (*rawResponse, *APIError) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if encoded != nil {
		bodyReader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, &APIError{Message: MessageRequestFailed, RequestID: requestID, Err: err}
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(RequestIDHeader, requestID)
	request.Header.Set("User-Agent", version.UserAgent())
	if isMutating(method) {
		if token := c.CSRFToken(); token != "" {
			request.Header.Set(CSRFHeader, token)
		}
	}

	started := c.clock.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return nil, &APIError{Message: MessageRequestFailed, RequestID: requestID, Err: err}
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &APIError{
			Message:    MessageRequestFailed,
			StatusCode: response.StatusCode,
			RequestID:  requestID,
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	c.logger.Debug("request completed",
		"method", method, "path", path, "status", response.StatusCode,
		"duration", c.clock.Now().Sub(started), "request_id", requestID)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		apiErr := errorFromBody(response.StatusCode, body)
		apiErr.RequestID = requestID
		return nil, apiErr
	}
	return &rawResponse{status: response.StatusCode, body: body}, nil
}
