// Package bookstack is a typed client for the BookStack REST API.
// One Client is bound to one instance: the sync builds a source client and a
// destination client from independent credential sets.
package bookstack

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
	"github.com/faithconnect/bookstack-sync/internal/ratelimit"
)

const (
	// HTTP client settings
	defaultTimeout = 30 * time.Second

	// Read retry settings; creates are never retried.
	defaultReadRetries  = 2
	defaultRetryBackoff = 500 * time.Millisecond

	// BookStack caps list pages at 500 items.
	listPageSize = 500

	// maxErrorBody bounds how much of a failed response is kept for messages.
	maxErrorBody = 64 * 1024

	userAgent = "bookstack-sync/1.0"
)

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	// Timeout bounds each request, including reading the body. Default 30s.
	Timeout time.Duration
	// ReadRetries is how many times a read is retried after a transport failure.
	// Negative disables retries. Default 2.
	ReadRetries int
	// RetryBackoff is the delay before the first retry; it doubles per attempt. Default 500ms.
	RetryBackoff time.Duration
	// Limiter throttles requests per instance. Nil disables throttling.
	Limiter *ratelimit.KeyedRateLimiter
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a rate-limited BookStack API client for a single instance.
type Client struct {
	http         *http.Client
	creds        Credentials
	side         Side
	limiter      *ratelimit.KeyedRateLimiter
	readRetries  int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// New creates a client for the instance described by creds.
func New(side Side, creds Credentials, opts Options, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	retries := opts.ReadRetries
	switch {
	case retries == 0:
		retries = defaultReadRetries
	case retries < 0:
		retries = 0
	}

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:         httpClient,
		creds:        creds,
		side:         side,
		limiter:      opts.Limiter,
		readRetries:  retries,
		retryBackoff: backoff,
		logger:       logger.With("instance", side),
	}
}

// Side returns which end of the sync the client targets.
func (c *Client) Side() Side { return c.side }

// BaseURL returns the instance address.
func (c *Client) BaseURL() string { return c.creds.BaseURL() }

// Credentials returns the credential set the client authenticates with.
func (c *Client) Credentials() Credentials { return c.creds }

// request describes one API call.
type request struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        []byte
}

// doRequest executes a single HTTP request and maps the response status onto
// the error taxonomy. This is the only place status codes are interpreted.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.creds.BaseURL()); err != nil {
			return nil, contextOrTransport(ctx, "rate limit wait", err)
		}
	}

	u := c.creds.BaseURL() + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create request")
	}

	req.Header.Set("Authorization", c.creds.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	c.logger.Debug("bookstack request",
		"method", r.method,
		"path", r.path,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, contextOrTransport(ctx, "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, contextOrTransport(ctx, "read response", err)
		}
		return data, nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, statusError(r.method, resp.StatusCode, data)
}

// read performs a GET, retrying transport failures up to the configured bound.
func (c *Client) read(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.readRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, domainerrors.Wrap(ctx.Err(), domainerrors.CodeCanceled, "retry wait")
			case <-time.After(backoff):
			}
		}

		data, err := c.doRequest(ctx, request{method: http.MethodGet, path: path, query: query})
		if err == nil {
			return data, nil
		}
		lastErr = err

		code, _ := domainerrors.CodeOf(err)
		if !code.Retryable() {
			return nil, err
		}

		c.logger.Warn("transient read failure, retrying",
			"path", path,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, lastErr
}

// getJSON reads path and decodes the response into dest.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	data, err := c.read(ctx, path, query)
	if err != nil {
		return err
	}
	return decode(data, dest)
}

// postJSON sends payload as JSON and decodes the created entity into dest. Never retried.
func (c *Client) postJSON(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "encode request")
	}
	data, err := c.doRequest(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		return err
	}
	return decode(data, dest)
}

// listResponse is BookStack's envelope for list endpoints.
type listResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// listAll follows count/offset paging until total items have been read.
func listAll[T any](ctx context.Context, c *Client, path string, filter url.Values) ([]T, error) {
	var all []T
	for offset := 0; ; {
		query := url.Values{}
		for k, v := range filter {
			query[k] = v
		}
		query.Set("count", strconv.Itoa(listPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page listResponse[T]
		if err := c.getJSON(ctx, path, query, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)
		offset += len(page.Data)
		if len(page.Data) == 0 || offset >= page.Total {
			return all, nil
		}
	}
}

func decode(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeServer, "parse response")
	}
	return nil
}

// contextOrTransport classifies a failed round trip: caller cancellation is
// reported as such, everything else (including timeouts) is a transport error.
func contextOrTransport(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return domainerrors.Wrap(err, domainerrors.CodeCanceled, msg)
	}
	return domainerrors.Transport(msg, err)
}

// apiError is the error body BookStack returns on failures.
type apiError struct {
	Error struct {
		Code       int                 `json:"code"`
		Message    string              `json:"message"`
		Validation map[string][]string `json:"validation"`
	} `json:"error"`
}

// statusError maps a non-2xx response to the sync error taxonomy.
//
//	401, 403       -> AUTH
//	404            -> NOT_FOUND
//	other 4xx POST -> VALIDATION
//	5xx, other     -> SERVER
func statusError(method string, status int, body []byte) error {
	var parsed apiError
	_ = json.Unmarshal(body, &parsed)

	msg := parsed.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	msg = fmt.Sprintf("status %d: %s", status, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domainerrors.Unauthorized(msg)
	case status == http.StatusNotFound:
		return domainerrors.NotFound(msg)
	case status >= 400 && status < 500 && method != http.MethodGet:
		if len(parsed.Error.Validation) > 0 {
			return domainerrors.ValidationWithDetails(msg, parsed.Error.Validation)
		}
		return domainerrors.Validation(msg)
	default:
		return domainerrors.Server(msg)
	}
}
