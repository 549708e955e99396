// Package rest is the HTTP client shared by every upstream API package. It
// paces requests with a token bucket, retries transient failures with
// exponential backoff and turns non-2xx responses into
// *toolerr.UpstreamError.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

// maxErrorBody caps how much of an error response is kept in the error.
const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	Service    string            // Name used in errors and logs ("hiro", "llama").
	BaseURL    string            // Prefix for relative paths.
	APIKey     string            // Sent as x-api-key when set.
	Headers    map[string]string // Extra headers on every request.
	RPS        float64           // Requests per second (0 = no limit).
	Burst      int               // Token bucket size (default 1).
	MaxRetries int               // Retries for transient failures (default 2, -1 disables).
	BaseDelay  time.Duration     // First retry delay (default 250ms).
	Timeout    time.Duration     // Per-attempt timeout (default 10s).
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues JSON requests against one upstream service.
type Client struct {
	service string
	baseURL string
	headers map[string]string
	limiter *rate.Limiter
	retries int
	delay   time.Duration
	timeout time.Duration
	client  *http.Client
	log     *zap.Logger
}

// New creates a Client from opts, applying defaults.
func New(opts Options) *Client {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = 2
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 250 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	headers := map[string]string{"Accept": "application/json"}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.APIKey != "" {
		headers["x-api-key"] = opts.APIKey
	}

	c := &Client{
		service: opts.Service,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		headers: headers,
		retries: opts.MaxRetries,
		delay:   opts.BaseDelay,
		timeout: opts.Timeout,
		client:  opts.HTTPClient,
		log:     opts.Logger.With(zap.String("service", opts.Service)),
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst)
	}

	return c
}

// Service returns the service name used in errors.
func (c *Client) Service() string { return c.service }

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &toolerr.UpstreamError{Service: c.service, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Get performs a GET and returns the raw response body. Absolute URLs are
// used as-is, anything else is joined to the base URL.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.resolve(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body []byte
	op := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(&toolerr.UpstreamError{Service: c.service, Err: err})
			}
		}

		b, err := c.attempt(ctx, target)
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}

		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying upstream request",
			zap.String("url", target),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, c.backOff(ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			var ue *toolerr.UpstreamError
			if !errors.As(err, &ue) {
				return nil, &toolerr.UpstreamError{Service: c.service, Err: ctxErr}
			}
		}
		return nil, err
	}

	return body, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	if c.retries == 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.delay
	exp.MaxInterval = 8 * c.delay
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxTries(exp, uint64(c.retries)), ctx)
}

func (c *Client) attempt(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &toolerr.UpstreamError{Service: c.service, Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &toolerr.UpstreamError{Service: c.service, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		ue := &toolerr.UpstreamError{Service: c.service, Status: resp.StatusCode}
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			ue.Err = errors.New(msg)
		}
		return nil, ue
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &toolerr.UpstreamError{Service: c.service, Err: fmt.Errorf("read response: %w", err)}
	}
	return body, nil
}

// retryable reports whether a failed attempt is worth repeating: transport
// errors, 429 and 5xx. 4xx responses and a finished caller context are final.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var ue *toolerr.UpstreamError
	if !errors.As(err, &ue) {
		return false
	}

	switch {
	case ue.Status == 0:
		return true
	case ue.Status == http.StatusTooManyRequests:
		return true
	case ue.Status >= 500:
		return true
	}
	return false
}
